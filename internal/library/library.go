// Package library discovers the articles under a content root and keeps them
// addressable by slug.
package library

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/livetemplate/chapterdeck"
	"github.com/livetemplate/chapterdeck/internal/logging"
)

// skipDirs are never scanned for articles.
var skipDirs = []string{"node_modules", "vendor", "dist", "build", "target"}

// Library holds the parsed articles of a content root.
type Library struct {
	rootDir string
	ignore  []string
	logger  *zap.Logger

	mu       sync.RWMutex
	articles map[string]*chapterdeck.Article // slug -> article
}

// New creates a library rooted at rootDir. ignore holds doublestar patterns,
// relative to rootDir, of Markdown files to leave out.
func New(rootDir string, ignore []string, logger *zap.Logger) *Library {
	if abs, err := filepath.Abs(rootDir); err == nil {
		rootDir = abs
	}
	return &Library{
		rootDir:  rootDir,
		ignore:   ignore,
		logger:   logging.OrNop(logger),
		articles: make(map[string]*chapterdeck.Article),
	}
}

// Root returns the absolute content root.
func (l *Library) Root() string {
	return l.rootDir
}

// Discover scans the content root and replaces the current article set. On
// error the previous set is kept.
func (l *Library) Discover() error {
	articles := make(map[string]*chapterdeck.Article)

	err := l.walk(func(path, relPath string) error {
		article, err := chapterdeck.ParseFile(path)
		if err != nil {
			return err
		}
		article.Slug = Slug(relPath)
		articles[article.Slug] = article
		return nil
	})
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.articles = articles
	l.mu.Unlock()

	l.logger.Info("discovered articles", zap.String("root", l.rootDir), zap.Int("count", len(articles)))
	return nil
}

// Validate parses every article without loading it and returns the number
// of files checked along with every parse error.
func (l *Library) Validate() (int, []error) {
	var (
		checked int
		errs    []error
	)
	err := l.walk(func(path, _ string) error {
		checked++
		if _, err := chapterdeck.ParseFile(path); err != nil {
			errs = append(errs, err)
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	return checked, errs
}

// walk calls visit for every Markdown file under the root that is not in a
// hidden or skipped directory and not ignored.
func (l *Library) walk(visit func(path, relPath string) error) error {
	return filepath.WalkDir(l.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == l.rootDir {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
				return filepath.SkipDir
			}
			for _, skip := range skipDirs {
				if name == skip {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if filepath.Ext(path) != ".md" {
			return nil
		}

		relPath, err := filepath.Rel(l.rootDir, path)
		if err != nil {
			return err
		}
		if l.Ignored(relPath) {
			l.logger.Debug("skipping ignored article", zap.String("path", relPath))
			return nil
		}

		return visit(path, relPath)
	})
}

// Reload re-parses a single file after it changed. Files that are new to the
// library trigger a full rediscovery; removed files are dropped. A path that
// is not a Markdown file, such as a removed directory, also rediscovers.
func (l *Library) Reload(path string) error {
	relPath, err := filepath.Rel(l.rootDir, path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if l.Ignored(relPath) {
		return nil
	}
	// Anything but a Markdown file is a directory event; rescan.
	if filepath.Ext(path) != ".md" {
		return l.Discover()
	}
	slug := Slug(relPath)

	l.mu.RLock()
	_, exists := l.articles[slug]
	l.mu.RUnlock()

	if !exists {
		return l.Discover()
	}

	article, err := chapterdeck.ParseFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		l.mu.Lock()
		delete(l.articles, slug)
		l.mu.Unlock()
		l.logger.Info("article removed", zap.String("slug", slug))
		return nil
	}
	if err != nil {
		return err
	}
	article.Slug = slug

	l.mu.Lock()
	l.articles[slug] = article
	l.mu.Unlock()

	l.logger.Debug("article reloaded", zap.String("slug", slug), zap.Int("slides", len(article.Slides)))
	return nil
}

// Get returns the article with the given slug.
func (l *Library) Get(slug string) (*chapterdeck.Article, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.articles[slug]
	return a, ok
}

// All returns every article, ordered by slug.
func (l *Library) All() []*chapterdeck.Article {
	l.mu.RLock()
	all := make([]*chapterdeck.Article, 0, len(l.articles))
	for _, a := range l.articles {
		all = append(all, a)
	}
	l.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Slug < all[j].Slug })
	return all
}

// Len returns the number of articles.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.articles)
}

// Ignored reports whether relPath matches one of the ignore patterns.
func (l *Library) Ignored(relPath string) bool {
	normalized := filepath.ToSlash(relPath)
	for _, pattern := range l.ignore {
		if matched, err := doublestar.Match(pattern, normalized); err == nil && matched {
			return true
		}
		// Patterns without a slash also match the base name, like .gitignore.
		if !strings.Contains(pattern, "/") {
			if matched, err := doublestar.Match(pattern, filepath.Base(normalized)); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// Slug converts a content-relative Markdown path to its URL path:
// "guides/open-data.md" becomes "/guides/open-data" and "index.md" becomes "/".
func Slug(relPath string) string {
	p := strings.TrimSuffix(filepath.ToSlash(relPath), ".md")
	switch {
	case p == "index":
		return "/"
	case strings.HasSuffix(p, "/index"):
		return "/" + strings.TrimSuffix(p, "/index")
	}
	return "/" + p
}
