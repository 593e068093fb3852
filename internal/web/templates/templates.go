// Package templates holds the HTML components of the lookup UI.
package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

const htmxScript = "https://unpkg.com/htmx.org@2.0.4"

// Index renders the lookup form page. Submitting the form swaps the result
// of /lookup into the #result element.
func Index() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>N Minimal</title>
<script src="`+htmxScript+`"></script>
<style>
body { font-family: sans-serif; max-width: 40rem; margin: 2rem auto; }
label { display: block; margin-top: 1rem; }
input { width: 100%; padding: .4rem; }
.result { margin-top: 1.5rem; padding: 1rem; border-radius: 4px; background: #eef7ee; }
.alert { margin-top: 1.5rem; padding: 1rem; border-radius: 4px; background: #fbeaea; }
.code { color: #666; font-size: .85rem; }
</style>
</head>
<body>
<h1>N-th minimal value</h1>
<form hx-get="/lookup" hx-target="#result" hx-swap="innerHTML">
<label for="fileLink">Workbook path (.xlsx)</label>
<input id="fileLink" name="fileLink" type="text" required>
<label for="N">N</label>
<input id="N" name="N" type="number" min="1" value="1" required>
<button type="submit" style="margin-top:1rem">Find</button>
</form>
<div id="result"></div>
</body>
</html>
`)
		return err
	})
}

// Result renders a successful lookup.
func Result(link, n string, value int64) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="result"><strong>%s</strong><div>N = %s in %s</div></div>`,
			strconv.FormatInt(value, 10),
			templ.EscapeString(n),
			templ.EscapeString(link),
		)
		return err
	})
}

// ErrorAlert renders a user-facing error with its suggested action and code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div class="alert" role="alert"><strong>%s</strong>`, templ.EscapeString(message)); err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<div>%s</div>`, templ.EscapeString(action)); err != nil {
				return err
			}
		}
		if code != "" {
			if _, err := fmt.Fprintf(w, `<div class="code">Code: %s</div>`, templ.EscapeString(code)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}
