// Package chapterdeck turns Markdown articles into chapter decks: ordered
// slides that a browser pages through one chapter at a time while a strip of
// indicators keeps the selected chapter in view.
//
// Each level-2 heading starts a chapter. The chapter key, used in URL
// fragments and indicator links, is the heading id:
//
//	---
//	title: Open Canada
//	summary: Why open data matters
//	---
//
//	Lead paragraph shown above the deck.
//
//	## Where we are {#chapter-1}
//
//	...
//
//	## Where we go next
//
//	...
package chapterdeck

import "html/template"

// Article is a parsed Markdown file.
type Article struct {
	Slug       string // URL path, "/" for index.md
	Title      string
	Summary    string
	ItemWidth  int // indicator width override in pixels, 0 means use the configured width
	Lead       template.HTML
	Slides     []*Slide
	SourceFile string
}

// Slide is one chapter of an article.
type Slide struct {
	Key   string // unique within the article, used as the URL fragment
	Title string
	HTML  template.HTML
	Line  int // line of the heading in the source file
}

// Keys returns the slide keys in order.
func (a *Article) Keys() []string {
	keys := make([]string, len(a.Slides))
	for i, s := range a.Slides {
		keys[i] = s.Key
	}
	return keys
}

// Slide returns the slide with the given key, or nil.
func (a *Article) Slide(key string) *Slide {
	for _, s := range a.Slides {
		if s.Key == key {
			return s
		}
	}
	return nil
}
