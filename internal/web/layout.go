package web

import (
	"io"
)

func writePageStart(w io.Writer, title string) {
	_, _ = io.WriteString(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>`+esc(title)+` · Neweyes Online</title>
    <link rel="stylesheet" href="`+assetPath("/static/styles.css")+`"/>
  </head>
  <body>
    <main class="shell">
`)
}

func writePageEnd(w io.Writer) {
	_, _ = io.WriteString(w, `    </main>
  </body>
</html>
`)
}

func writeFlash(w io.Writer, flash string) {
	if flash == "" {
		return
	}
	_, _ = io.WriteString(w, `      <div class="flash" role="status">`+esc(flash)+`</div>
`)
}

func writeError(w io.Writer, message string) {
	if message == "" {
		return
	}
	_, _ = io.WriteString(w, `      <div class="error" role="alert">`+esc(message)+`</div>
`)
}
