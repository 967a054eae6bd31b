package server

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/livetemplate/chapterdeck"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{if .Article}}{{.Article.Title}} · {{end}}{{.SiteTitle}}</title>
{{- with .Article}}{{with .Summary}}
<meta name="description" content="{{.}}">{{end}}{{end}}
<link rel="stylesheet" href="/assets/pager.css">
<noscript><style>.chapter { display: block; }</style></noscript>
</head>
<body>
{{- if .Article}}{{with .Article}}
<article class="deck" data-deck data-article="{{.Slug}}" style="--item-width: {{$.ItemWidth}}px">
  <header class="deck-header">
    <h1>{{.Title}}</h1>
    {{- with .Summary}}
    <p class="deck-summary">{{.}}</p>
    {{- end}}
    {{- with .Lead}}
    <div class="deck-lead">{{.}}</div>
    {{- end}}
  </header>
  <nav class="pager" aria-label="Chapters">
    <button type="button" class="pager-edge" data-edge="previous" aria-label="Previous chapters">&lsaquo;</button>
    <div class="pager-window">
      <ol class="pager-strip">
        {{- range $i, $s := .Slides}}
        <li class="pager-item" data-key="{{$s.Key}}" data-index="{{$i}}"><a href="#{{$s.Key}}" title="{{$s.Title}}">{{$s.Title}}</a></li>
        {{- end}}
      </ol>
    </div>
    <button type="button" class="pager-edge" data-edge="next" aria-label="Next chapters">&rsaquo;</button>
  </nav>
  <div class="chapters">
    {{- range $i, $s := .Slides}}
    <section class="chapter" id="{{$s.Key}}" data-key="{{$s.Key}}" data-index="{{$i}}">
      {{$s.HTML}}
    </section>
    {{- end}}
  </div>
  <aside class="toc">
    <h2>Contents</h2>
    <ol>
      {{- range .Slides}}
      <li><a href="#{{.Key}}" data-slide="{{.Key}}">{{.Title}}</a></li>
      {{- end}}
    </ol>
  </aside>
</article>
<script src="/assets/pager.js" defer></script>
{{- end}}{{else}}
<main class="deck">
  <h1>{{.SiteTitle}}</h1>
  <ul class="articles">
    {{- range .Articles}}
    <li><a href="{{.Slug}}">{{.Title}}</a>{{with .Summary}} <span class="deck-summary">{{.}}</span>{{end}} ({{len .Slides}} chapters)</li>
    {{- else}}
    <li>No articles yet.</li>
    {{- end}}
  </ul>
</main>
{{- end}}
</body>
</html>
`))

type pageData struct {
	SiteTitle string
	Article   *chapterdeck.Article
	ItemWidth int
	Articles  []*chapterdeck.Article
}

// servePage renders an article, or the article index at "/" when no
// index.md exists.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Path
	if slug != "/" {
		slug = strings.TrimSuffix(slug, "/")
	}

	if body, ok := s.pages.Get(slug); ok {
		writeHTML(w, body)
		return
	}

	data := pageData{SiteTitle: s.config.Title}
	if article, ok := s.library.Get(slug); ok {
		data.Article = article
		data.ItemWidth = article.ItemWidth
		if data.ItemWidth <= 0 {
			data.ItemWidth = s.config.Pager.ItemWidth
		}
	} else if slug == "/" {
		data.Articles = s.library.All()
	} else {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("failed to render page", zap.String("slug", slug), zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	if s.config.Cache.IsEnabled() {
		s.pages.Set(slug, buf.Bytes(), s.config.Cache.GetTTL())
	}
	writeHTML(w, buf.Bytes())
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}
