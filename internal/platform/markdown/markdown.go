// Package markdown parses page sources and renders them to sanitized HTML.
package markdown

import (
	"bytes"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrHeadingMissing is returned for sources without a level-1 heading.
var ErrHeadingMissing = eris.New("cannot parse H1 heading in the markdown")

const leadingInvisible = "\ufeff\u200b\u200c\u200d"

// Document is a parsed page source.
type Document struct {
	// Heading is the text of the first level-1 heading, or the front matter title.
	Heading string
	// Slug is an optional permalink override from front matter.
	Slug string
	// Markdown is the source without front matter.
	Markdown string
}

type frontMatter struct {
	Title string `yaml:"title"`
	Slug  string `yaml:"slug"`
}

// Parser is safe for concurrent use.
type Parser struct {
	engine goldmark.Markdown
	policy *bluemonday.Policy
}

// NewParser builds a parser with GitHub flavoured markdown enabled.
func NewParser() *Parser {
	return &Parser{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// ParseDocument splits optional front matter from source and extracts the heading.
func (p *Parser) ParseDocument(source []byte) (Document, error) {
	source = []byte(strings.TrimLeft(string(source), leadingInvisible))

	var meta frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return Document{}, eris.Wrap(err, "parsing front matter")
	}

	doc := Document{
		Heading:  strings.TrimSpace(meta.Title),
		Slug:     strings.TrimSpace(meta.Slug),
		Markdown: string(body),
	}

	if doc.Heading == "" {
		doc.Heading = p.firstHeading(body)
	}
	if doc.Heading == "" {
		return Document{}, ErrHeadingMissing
	}

	return doc, nil
}

func (p *Parser) firstHeading(source []byte) string {
	root := p.engine.Parser().Parse(text.NewReader(source))

	var heading string
	_ = ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := node.(*ast.Heading); ok && h.Level == 1 {
			heading = strings.TrimSpace(inlineText(h, source))
			if heading != "" {
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})

	return heading
}

func inlineText(node ast.Node, source []byte) string {
	var buf strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch n := child.(type) {
		case *ast.Text:
			buf.Write(n.Segment.Value(source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(n.Value)
		default:
			buf.WriteString(inlineText(child, source))
		}
	}
	return buf.String()
}

// Render converts markdown to sanitized HTML. The first level-1 heading is left out since
// pages show their heading separately.
func (p *Parser) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := p.engine.Convert([]byte(strings.TrimLeft(markdown, leadingInvisible)), &buf); err != nil {
		return "", eris.Wrap(err, "rendering markdown")
	}

	sanitized := p.policy.SanitizeBytes(buf.Bytes())
	return dropFirstHeading(sanitized)
}

func dropFirstHeading(fragment []byte) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(fragment), body)
	if err != nil {
		return "", eris.Wrap(err, "parsing rendered html")
	}

	var out bytes.Buffer
	dropped := false
	for _, node := range nodes {
		if !dropped && node.Type == html.ElementNode && node.DataAtom == atom.H1 {
			dropped = true
			continue
		}
		if err := html.Render(&out, node); err != nil {
			return "", eris.Wrap(err, "serializing rendered html")
		}
	}

	return strings.TrimSpace(out.String()), nil
}
