// Package markdown renders generated answers for display.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Renderer converts answer Markdown to HTML. Raw HTML in the answer is
// escaped, never passed through.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a renderer with GFM tables and lists. Single line
// breaks are kept because answers put each bullet on its own line.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
	return &Renderer{md: md}
}

// Render returns the HTML form of answer.
func (r *Renderer) Render(answer string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(answer), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Headings lists the bold section titles and headings in answer, in order.
// Numbered-section answers put titles in a strong span at the start of a
// list item, so both forms are collected.
func (r *Renderer) Headings(answer string) []string {
	source := []byte(answer)
	doc := r.md.Parser().Parse(text.NewReader(source))

	var out []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			out = append(out, plainText(node, source))
			return ast.WalkSkipChildren, nil
		case *ast.Emphasis:
			if node.Level == 2 && isLeadingInListItem(node) {
				out = append(out, plainText(node, source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

// isLeadingInListItem reports whether n is the first inline of a list item.
func isLeadingInListItem(n ast.Node) bool {
	if n.PreviousSibling() != nil {
		return false
	}
	block := n.Parent()
	if block == nil {
		return false
	}
	_, ok := block.Parent().(*ast.ListItem)
	return ok && block.PreviousSibling() == nil
}

func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*ast.Text); ok {
				b.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
