package core

// validation.go turns the two raw request strings into a ValidatedRequest.
//
// Checks run in a fixed order and stop at the first failure, so the reported
// kind for a request with several problems is always the same:
//  1. link present
//  2. N present
//  3. link free of < > " | ? *
//  4. path exists
//  5. path is a regular file
//  6. path ends in .xlsx (any case)
//  7. N is a base-10 integer
//  8. N >= 1

import (
	"os"
	"strconv"
	"strings"
)

// forbiddenLinkChars are rejected in file links on every platform.
const forbiddenLinkChars = `<>"|?*`

// xlsxExtension is the only accepted workbook suffix, compared lowercased.
const xlsxExtension = ".xlsx"

// RawRequest is the untrusted input of a lookup, already trimmed by the caller.
type RawRequest struct {
	Link string
	N    string
}

// ValidatedRequest is a lookup whose path and N passed validation.
type ValidatedRequest struct {
	Path string
	N    int
}

// Validate is shorthand for ValidateRequest(r.Link, r.N).
func (r RawRequest) Validate() (ValidatedRequest, error) {
	return ValidateRequest(r.Link, r.N)
}

// ValidateRequest checks link and n and returns them as a ValidatedRequest.
// The only side effect is a stat of the path.
func ValidateRequest(link, n string) (ValidatedRequest, error) {
	if link == "" {
		return ValidatedRequest{}, NewError(LinkMissing)
	}
	if n == "" {
		return ValidatedRequest{}, NewError(NMissing)
	}
	if strings.ContainsAny(link, forbiddenLinkChars) {
		return ValidatedRequest{}, NewError(LinkInvalidChars)
	}

	info, err := os.Stat(link)
	if err != nil {
		return ValidatedRequest{}, WrapError(FileNotFound, err)
	}
	if !info.Mode().IsRegular() {
		return ValidatedRequest{}, NewError(PathNotFile)
	}
	if !strings.HasSuffix(strings.ToLower(link), xlsxExtension) {
		return ValidatedRequest{}, NewError(WrongExtension)
	}

	parsed, err := strconv.ParseInt(n, 10, 32)
	if err != nil {
		return ValidatedRequest{}, WrapError(NNotInteger, err)
	}
	if parsed < 1 {
		return ValidatedRequest{}, NewError(NNotPositive)
	}

	return ValidatedRequest{Path: link, N: int(parsed)}, nil
}
