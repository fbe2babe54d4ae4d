// Package richtext renders the Markdown used in question text, guidance,
// descriptions and funder feedback.
package richtext

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

// md drops raw HTML from the source.
var md = goldmark.New()

// HTML renders src to an HTML fragment.
func HTML(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PlainText strips Markdown syntax, joining blocks with a single space.
func PlainText(src string) string {
	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))
	var parts []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			parts = append(parts, s)
		}
		cur.Reset()
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				cur.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					cur.WriteByte(' ')
				}
			}
		case *ast.CodeSpan:
			if entering {
				for c := node.FirstChild(); c != nil; c = c.NextSibling() {
					if t, ok := c.(*ast.Text); ok {
						cur.Write(t.Segment.Value(source))
					}
				}
				return ast.WalkSkipChildren, nil
			}
		default:
			if n.Type() == ast.TypeBlock && !entering {
				flush()
			}
		}
		return ast.WalkContinue, nil
	})
	flush()
	return strings.Join(parts, " ")
}

// RenderTemplate returns a copy of t with every rich-text field rendered to HTML.
func RenderTemplate(t *models.Template) (*models.Template, error) {
	if t == nil {
		return nil, nil
	}
	out := *t
	out.Sections = make([]models.Section, len(t.Sections))
	var err error
	for i, sec := range t.Sections {
		if sec.Description, err = HTML(sec.Description); err != nil {
			return nil, err
		}
		subs := make([]models.Subsection, len(sec.Subsections))
		for j, sub := range sec.Subsections {
			if sub.Description, err = HTML(sub.Description); err != nil {
				return nil, err
			}
			qs := make([]models.Question, len(sub.Questions))
			for k, q := range sub.Questions {
				if q.QuestionText, err = HTML(q.QuestionText); err != nil {
					return nil, err
				}
				if q.Guidance, err = HTML(q.Guidance); err != nil {
					return nil, err
				}
				qs[k] = q
			}
			sub.Questions = qs
			subs[j] = sub
		}
		sec.Subsections = subs
		out.Sections[i] = sec
	}
	return &out, nil
}
