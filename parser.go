package chapterdeck

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"gopkg.in/yaml.v3"
)

// Frontmatter represents the YAML frontmatter at the top of an article.
type Frontmatter struct {
	Title     string `yaml:"title"`
	Summary   string `yaml:"summary"`
	ItemWidth int    `yaml:"item_width"`
}

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithAttribute(),
		),
	)

	policy = newSlidePolicy()
)

func newSlidePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowStyles("color", "background-color", "font-weight", "font-style", "text-decoration").
		OnElements("span", "pre")
	p.AllowElements("figure", "figcaption")
	p.RequireNoFollowOnLinks(true)
	return p
}

// ParseFile reads and parses the article at path.
func ParseFile(path string) (*Article, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(path, content)
}

// Parse parses Markdown content into an article. name is used in error
// messages and as the fallback title.
func Parse(name string, content []byte) (*Article, error) {
	fail := func(line int, message string) *ParseError {
		return NewParseError(name, line, message).WithSource(content)
	}

	fm, body, lineOffset, err := extractFrontmatter(content)
	if err != nil {
		return nil, fail(1, err.Error()).
			WithCause(err).
			WithHint("Frontmatter is YAML between two --- lines at the very top of the file")
	}
	if fm.ItemWidth < 0 {
		return nil, fail(1, fmt.Sprintf("item_width must not be negative, got %d", fm.ItemWidth)).
			WithHint("Leave item_width out to use the configured indicator width")
	}

	doc := markdown.Parser().Parse(text.NewReader(body))

	article := &Article{
		Title:      fm.Title,
		Summary:    fm.Summary,
		ItemWidth:  fm.ItemWidth,
		SourceFile: name,
	}

	lead := ast.NewDocument()
	var (
		current *ast.Document
		chunks  []*ast.Document
	)
	for n := doc.FirstChild(); n != nil; {
		next := n.NextSibling()

		if h, ok := n.(*ast.Heading); ok {
			switch {
			case h.Level == 1 && current == nil && article.Title == "":
				article.Title = headingText(h, body)
			case h.Level == 2:
				slide := &Slide{
					Key:   headingID(h),
					Title: headingText(h, body),
					Line:  lineOffset + lineOf(h, body),
				}
				// The slide element carries the id; the heading must not repeat it.
				h.RemoveAttributes()
				article.Slides = append(article.Slides, slide)
				current = ast.NewDocument()
				chunks = append(chunks, current)
			}
		}

		doc.RemoveChild(doc, n)
		if current == nil {
			lead.AppendChild(lead, n)
		} else {
			current.AppendChild(current, n)
		}
		n = next
	}

	if len(article.Slides) == 0 {
		return nil, fail(lineOffset+1, "article has no chapters").
			WithHint("Start each chapter with a level-2 heading, e.g. ## Introduction")
	}

	seen := make(map[string]*Slide, len(article.Slides))
	for _, s := range article.Slides {
		if s.Key == "" {
			return nil, fail(s.Line, "chapter heading has no id").
				WithHint("Give the chapter an explicit id: ## Title {#chapter-key}")
		}
		if first, dup := seen[s.Key]; dup {
			return nil, fail(s.Line, fmt.Sprintf("duplicate chapter key %q", s.Key)).
				WithHint("Give one of the chapters a unique id: ## Title {#other-key}").
				WithRelated(fmt.Sprintf("first declared at line %d", first.Line))
		}
		seen[s.Key] = s
	}

	if article.Lead, err = render(lead, body); err != nil {
		return nil, err
	}
	for i, chunk := range chunks {
		if article.Slides[i].HTML, err = render(chunk, body); err != nil {
			return nil, err
		}
	}

	if article.Title == "" {
		article.Title = titleFromName(name)
	}

	return article, nil
}

// extractFrontmatter splits off the YAML frontmatter and reports how many
// source lines it occupied.
func extractFrontmatter(content []byte) (*Frontmatter, []byte, int, error) {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return &Frontmatter{}, content, 0, nil
	}

	// Find the closing ---
	endIdx := bytes.Index(content[4:], []byte("\n---\n"))
	if endIdx == -1 {
		if bytes.HasSuffix(content, []byte("\n---")) {
			endIdx = len(content) - 4 - 4
		} else {
			return nil, nil, 0, fmt.Errorf("unclosed frontmatter")
		}
	}

	yamlContent := content[4 : 4+endIdx]
	consumed := min(len(content), 4+endIdx+5) // Skip "\n---\n"
	remaining := content[consumed:]

	var fm Frontmatter
	if err := yaml.Unmarshal(yamlContent, &fm); err != nil {
		return nil, nil, 0, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &fm, remaining, bytes.Count(content[:consumed], []byte("\n")), nil
}

func render(doc *ast.Document, source []byte) (template.HTML, error) {
	if doc.ChildCount() == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Renderer().Render(&buf, source, doc); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes())), nil
}

func headingID(h *ast.Heading) string {
	v, ok := h.AttributeString("id")
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case []byte:
		return string(id)
	case string:
		return id
	}
	return ""
}

func headingText(h *ast.Heading, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(h, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.CodeSpan:
			for c := t.FirstChild(); c != nil; c = c.NextSibling() {
				if txt, ok := c.(*ast.Text); ok {
					b.Write(txt.Segment.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// lineOf returns the 1-indexed line of a block node within source.
func lineOf(n ast.Node, source []byte) int {
	lines := n.Lines()
	if lines == nil || lines.Len() == 0 {
		return 1
	}
	return bytes.Count(source[:lines.At(0).Start], []byte("\n")) + 1
}

func titleFromName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." {
		return "Untitled"
	}
	words := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
