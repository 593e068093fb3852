// Package core provides the business logic of the N-th minimal lookup.
//
// The package is independent of any transport: web handlers, the CLI and
// tests all go through the same [Service].
//
// # Pipeline
//
// A lookup runs three steps and stops at the first failure:
//
//  1. [ValidateRequest] turns the raw link and N strings into a
//     [ValidatedRequest], checking them in a fixed order.
//  2. A [NumberSource] reads the integers of the first column of the first
//     sheet of the workbook.
//  3. [SelectNth] sorts the numbers, drops duplicates and returns the N-th.
//
// # Error Handling
//
// Every business failure is an [*Error] tagged with a [Kind] and carrying
// the kind's fixed message. [MapError] adds a support code and a suggested
// action for display. Mapping a kind to a status code is the transport's
// job.
//
// # Concurrency
//
// [Service] keeps no per-request state. Workbook reads are bounded by a
// [QueryLimiter]; everything else is a pure function of its inputs.
package core
