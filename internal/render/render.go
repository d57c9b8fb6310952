// Package render turns probe output into content-type-aware HTML
// fragments safe for embedding in a display surface.
package render

import (
	"bytes"
	"encoding/json"
	"html"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	htmlformatter "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// formatter emits class-tagged spans only; the surrounding pre/div
// wrapper is ours so all branches share the same shell.
var formatter = htmlformatter.New(
	htmlformatter.WithClasses(true),
	htmlformatter.PreventSurroundingPre(true),
)

// Body classifies body by the declared content type and renders it.
// JSON is re-indented then highlighted; XML and HTML are highlighted
// as-is; anything else degrades to an escaped quoted literal.
func Body(contentType string, body []byte) string {
	ct := strings.ToLower(contentType)

	switch {
	case strings.Contains(ct, "json"):
		return highlight(indentJSON(body), "json")
	case strings.Contains(ct, "xml"):
		return highlight(string(body), "xml")
	case strings.Contains(ct, "html"):
		return highlight(string(body), "html")
	default:
		return html.EscapeString(strconv.Quote(string(body)))
	}
}

// Headers renders a raw status-line-plus-headers block. A line of the
// shape "name: value" splits at the first colon into a name span and a
// value span; any other line (the status line) becomes a single span.
func Headers(raw string) string {
	var b strings.Builder
	b.WriteString("<div class='highlight'><pre>")
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		name, value, found := strings.Cut(line, ":")
		if found && name != "" && value != "" {
			b.WriteString("<span class='nt'>")
			b.WriteString(html.EscapeString(name))
			b.WriteString("</span>:<span class='s'>")
			b.WriteString(html.EscapeString(value))
			b.WriteString("</span>")
		} else {
			b.WriteString("<span class='nf'>")
			b.WriteString(html.EscapeString(line))
			b.WriteString("</span>")
		}
	}
	b.WriteString("</pre></div>")
	return b.String()
}

// RequestTrace renders each captured outgoing header block through
// Headers in send order, then appends the URL-encoded form body as the
// literal suffix it is on the wire.
func RequestTrace(blocks []string, formBody string) string {
	var b strings.Builder
	for _, block := range blocks {
		b.WriteString(Headers(block))
	}
	b.WriteString(formBody)
	return b.String()
}

// indentJSON pretty-prints JSON, falling back to the raw text when the
// body does not parse.
func indentJSON(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "    "); err != nil {
		return string(body)
	}
	return buf.String()
}

func highlight(source, lang string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return html.EscapeString(source)
	}

	var buf bytes.Buffer
	buf.WriteString("<div class='highlight'><pre>")
	if err := formatter.Format(&buf, styles.Fallback, iterator); err != nil {
		return html.EscapeString(source)
	}
	buf.WriteString("</pre></div>")

	return buf.String()
}
