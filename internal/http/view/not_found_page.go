package view

import (
	"bytes"
	"html/template"
)

// NotFoundPageData provides the dynamic fields for the not-found template.
type NotFoundPageData struct {
	Identifier string
	HomeURL    string
}

var notFoundPageTmpl = template.Must(template.New("not_found_page").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<title>Link not found</title>
	<style>
		:root {
			--bg: #090a0f;
			--card: rgba(255, 255, 255, 0.05);
			--border: rgba(255, 255, 255, 0.15);
			--text: #e7ecff;
			--muted: #a1acc5;
			--accent: #7dd3fc;
			font-family: "Inter", -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
		}
		* { box-sizing: border-box; }
		body {
			margin: 0;
			min-height: 100vh;
			display: flex;
			align-items: center;
			justify-content: center;
			background: var(--bg);
			color: var(--text);
		}
		.card {
			background: var(--card);
			border: 1px solid var(--border);
			border-radius: 16px;
			padding: 40px 48px;
			max-width: 420px;
			text-align: center;
		}
		.status { font-size: 56px; font-weight: 700; color: var(--accent); margin: 0; }
		h1 { font-size: 20px; margin: 12px 0 8px; }
		p { color: var(--muted); margin: 0 0 24px; line-height: 1.5; }
		code {
			background: rgba(255, 255, 255, 0.08);
			border-radius: 6px;
			padding: 2px 8px;
			font-size: 14px;
		}
		a {
			display: inline-block;
			color: var(--bg);
			background: var(--accent);
			border-radius: 10px;
			padding: 10px 22px;
			text-decoration: none;
			font-weight: 600;
		}
	</style>
</head>
<body>
	<main class="card">
		<p class="status">404</p>
		<h1>This link does not exist</h1>
		<p>No short link matches <code>{{.Identifier}}</code>. It may have been mistyped or never created.</p>
		{{if .HomeURL}}<a href="{{.HomeURL}}">Create a short link</a>{{end}}
	</main>
</body>
</html>
`))

// RenderNotFoundPage renders the HTML shown when an identifier resolves to
// nothing.
func RenderNotFoundPage(data NotFoundPageData) (string, error) {
	var buf bytes.Buffer
	if err := notFoundPageTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
