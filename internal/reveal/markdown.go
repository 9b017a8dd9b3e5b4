// ABOUTME: Markdown-to-terminal rendering for assistant replies
// ABOUTME: Walks the goldmark AST and emits plain text with optional color styling

package reveal

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Renderer converts markdown to terminal text.
type Renderer struct {
	md     goldmark.Markdown
	bold   func(a ...any) string
	italic func(a ...any) string
	code   func(a ...any) string
	faint  func(a ...any) string
}

// NewRenderer creates a renderer. With styled false the output carries no
// escape sequences.
func NewRenderer(styled bool) *Renderer {
	r := &Renderer{md: goldmark.New()}
	if styled {
		r.bold = color.New(color.Bold).SprintFunc()
		r.italic = color.New(color.Italic).SprintFunc()
		r.code = color.New(color.FgCyan).SprintFunc()
		r.faint = color.New(color.Faint).SprintFunc()
	} else {
		r.bold, r.italic, r.code, r.faint = fmt.Sprint, fmt.Sprint, fmt.Sprint, fmt.Sprint
	}
	return r
}

// Render converts markdown source to unstyled terminal text.
func Render(markdown string) string {
	return NewRenderer(false).Render(markdown)
}

// Render converts markdown source to terminal text.
func (r *Renderer) Render(markdown string) string {
	src := []byte(markdown)
	doc := r.md.Parser().Parse(text.NewReader(src))

	var blocks []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if s := r.block(n, src, ""); s != "" {
			blocks = append(blocks, s)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// block renders one block node; indent prefixes every line after the first.
func (r *Renderer) block(n ast.Node, src []byte, indent string) string {
	switch node := n.(type) {
	case *ast.Heading:
		return r.bold(r.inline(node, src))
	case *ast.Paragraph, *ast.TextBlock:
		return r.inline(node, src)
	case *ast.List:
		return r.list(node, src, indent)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var b bytes.Buffer
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			b.WriteString("    ")
			b.WriteString(r.code(strings.TrimRight(string(line.Value(src)), "\n")))
			if i < lines.Len()-1 {
				b.WriteByte('\n')
			}
		}
		return b.String()
	case *ast.Blockquote:
		var parts []string
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			parts = append(parts, r.block(c, src, indent))
		}
		quoted := strings.Split(strings.Join(parts, "\n\n"), "\n")
		for i, l := range quoted {
			quoted[i] = r.faint("│ ") + l
		}
		return strings.Join(quoted, "\n")
	case *ast.ThematicBreak:
		return r.faint("───")
	case *ast.HTMLBlock:
		return ""
	default:
		return r.inline(n, src)
	}
}

func (r *Renderer) list(l *ast.List, src []byte, indent string) string {
	var items []string
	num := l.Start
	if num == 0 {
		num = 1
	}
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "• "
		if l.IsOrdered() {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		childIndent := indent + strings.Repeat(" ", len([]rune(marker))+2)

		var parts []string
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			s := r.block(c, src, childIndent)
			if _, nested := c.(*ast.List); !nested {
				s = strings.ReplaceAll(s, "\n", "\n"+childIndent)
				if c != item.FirstChild() {
					s = childIndent + s
				}
			}
			parts = append(parts, s)
		}
		body := strings.Join(parts, "\n")
		items = append(items, indent+"  "+marker+body)
	}
	return strings.Join(items, "\n")
}

func (r *Renderer) inline(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			switch {
			case node.HardLineBreak():
				b.WriteByte('\n')
			case node.SoftLineBreak():
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.Emphasis:
			if node.Level >= 2 {
				b.WriteString(r.bold(r.inline(node, src)))
			} else {
				b.WriteString(r.italic(r.inline(node, src)))
			}
		case *ast.CodeSpan:
			b.WriteString(r.code(r.inline(node, src)))
		case *ast.Link:
			label := r.inline(node, src)
			dest := string(node.Destination)
			if label == "" || label == dest {
				b.WriteString(dest)
			} else {
				b.WriteString(label + " (" + dest + ")")
			}
		case *ast.AutoLink:
			b.Write(node.URL(src))
		case *ast.Image:
			b.WriteString(r.inline(node, src))
		case *ast.RawHTML:
			// dropped
		default:
			b.WriteString(r.inline(node, src))
		}
	}
	return b.String()
}
