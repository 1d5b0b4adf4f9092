// Package richtext turns CMS documents into sanitized HTML.
package richtext

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer converts rich text documents and markdown into safe HTML.
type Renderer struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
}

// New returns a Renderer with a UGC sanitization policy.
func New() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnFullyQualifiedLinks(true)

	return &Renderer{
		policy:   policy,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

type node struct {
	NodeType string          `json:"nodeType"`
	Value    string          `json:"value"`
	Marks    []mark          `json:"marks"`
	Data     json.RawMessage `json:"data"`
	Content  []node          `json:"content"`
}

type mark struct {
	Type string `json:"type"`
}

type linkData struct {
	URI    string `json:"uri"`
	Target *struct {
		Sys struct {
			ID string `json:"id"`
		} `json:"sys"`
	} `json:"target"`
}

var blockTags = map[string]string{
	"paragraph":         "p",
	"heading-1":         "h1",
	"heading-2":         "h2",
	"heading-3":         "h3",
	"heading-4":         "h4",
	"heading-5":         "h5",
	"heading-6":         "h6",
	"unordered-list":    "ul",
	"ordered-list":      "ol",
	"list-item":         "li",
	"blockquote":        "blockquote",
	"table":             "table",
	"table-row":         "tr",
	"table-cell":        "td",
	"table-header-cell": "th",
}

var markTags = map[string]string{
	"bold":        "strong",
	"italic":      "em",
	"underline":   "u",
	"code":        "code",
	"superscript": "sup",
	"subscript":   "sub",
}

// Document renders a rich text JSON document. An empty or null document
// renders as empty HTML.
func (r *Renderer) Document(doc json.RawMessage) (template.HTML, error) {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}

	var root node
	if err := json.Unmarshal(trimmed, &root); err != nil {
		return "", fmt.Errorf("decode rich text: %w", err)
	}

	var b strings.Builder
	writeNode(&b, root)
	return template.HTML(r.policy.Sanitize(b.String())), nil
}

// PlainText flattens a rich text document into its text content.
func PlainText(doc json.RawMessage) string {
	var root node
	if err := json.Unmarshal(doc, &root); err != nil {
		return ""
	}
	var parts []string
	collectText(root, &parts)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// Markdown renders a markdown string, as used by category descriptions.
func (r *Renderer) Markdown(src string) (template.HTML, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

func writeNode(b *strings.Builder, n node) {
	switch n.NodeType {
	case "document":
		writeChildren(b, n)
	case "text":
		writeText(b, n)
	case "hr":
		b.WriteString("<hr>")
	case "hyperlink":
		var data linkData
		_ = json.Unmarshal(n.Data, &data)
		fmt.Fprintf(b, `<a href="%s">`, html.EscapeString(data.URI))
		writeChildren(b, n)
		b.WriteString("</a>")
	case "entry-hyperlink":
		var data linkData
		_ = json.Unmarshal(n.Data, &data)
		if data.Target != nil && data.Target.Sys.ID != "" {
			fmt.Fprintf(b, `<a href="/entry/%s">`, html.EscapeString(data.Target.Sys.ID))
			writeChildren(b, n)
			b.WriteString("</a>")
			return
		}
		writeChildren(b, n)
	default:
		tag, ok := blockTags[n.NodeType]
		if !ok {
			// embedded entries and assets carry no inline content we can render
			writeChildren(b, n)
			return
		}
		fmt.Fprintf(b, "<%s>", tag)
		writeChildren(b, n)
		fmt.Fprintf(b, "</%s>", tag)
	}
}

func writeChildren(b *strings.Builder, n node) {
	for _, child := range n.Content {
		writeNode(b, child)
	}
}

func writeText(b *strings.Builder, n node) {
	var closing []string
	for _, m := range n.Marks {
		tag, ok := markTags[m.Type]
		if !ok {
			continue
		}
		fmt.Fprintf(b, "<%s>", tag)
		closing = append(closing, tag)
	}

	lines := strings.Split(n.Value, "\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteString("<br>")
		}
		b.WriteString(html.EscapeString(line))
	}

	for i := len(closing) - 1; i >= 0; i-- {
		fmt.Fprintf(b, "</%s>", closing[i])
	}
}

func collectText(n node, parts *[]string) {
	if n.NodeType == "text" && n.Value != "" {
		*parts = append(*parts, n.Value)
	}
	for _, child := range n.Content {
		collectText(child, parts)
	}
}
