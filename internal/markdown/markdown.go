// Package markdown extracts what the hub needs from markdown documents:
// a title, a plain-text body for tagging, outgoing links and rendered HTML.
package markdown

import (
	"bytes"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	// Raw HTML stays escaped.
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

type Document struct {
	Title    string
	Headings []string
	Links    []string
	Text     string
}

// Parse reads src. Title is the first heading of any level, or "" when there is none.
func Parse(src []byte) Document {
	root := md.Parser().Parse(text.NewReader(src))

	var (
		doc  Document
		body strings.Builder
	)
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				body.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			heading := inlineText(node, src)
			doc.Headings = append(doc.Headings, heading)
			if doc.Title == "" {
				doc.Title = heading
			}
		case *ast.Link:
			doc.Links = append(doc.Links, string(node.Destination))
		case *ast.AutoLink:
			doc.Links = append(doc.Links, string(node.URL(src)))
		case *ast.Text:
			body.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				body.WriteByte(' ')
			}
		case *ast.String:
			body.Write(node.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				body.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	doc.Text = squeeze(body.String())
	return doc
}

// Title returns the first heading of src, falling back to fallback.
func Title(src []byte, fallback string) string {
	if title := Parse(src).Title; title != "" {
		return title
	}
	return fallback
}

// HTML renders src. On a render error the escaped source is returned in a pre block.
func HTML(src []byte) string {
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "<pre>" + template.HTMLEscapeString(string(src)) + "</pre>"
	}
	return buf.String()
}

// Excerpt cuts s to at most n runes on a word boundary and appends an ellipsis when cut.
func Excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := c.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// squeeze trims every line and drops the empty ones.
func squeeze(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
