package rss

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"stocktracker/internal/provider"
)

const sourceName = "rss"

// Feed is one configured RSS/Atom source.
type Feed struct {
	Name string
	URL  string
}

// Provider pulls general-market headlines from a fixed list of feeds. It
// never serves symbol-targeted queries; those stay with the API providers.
type Provider struct {
	feeds  []Feed
	parser *gofeed.Parser
	maxAge time.Duration
}

func New(feeds []Feed, timeout time.Duration) *Provider {
	parser := gofeed.NewParser()
	if timeout > 0 {
		parser.Client = &http.Client{Timeout: timeout}
	}
	return &Provider{
		feeds:  feeds,
		parser: parser,
		maxAge: 7 * 24 * time.Hour,
	}
}

func (p *Provider) Name() string { return sourceName }

// FetchNews ignores non-empty queries: feed content is not filterable by
// symbol upstream, so targeted requests return nothing rather than noise.
func (p *Provider) FetchNews(ctx context.Context, query string) ([]provider.Article, error) {
	if p == nil || len(p.feeds) == 0 {
		return nil, nil
	}
	if strings.TrimSpace(query) != "" {
		return nil, nil
	}

	now := time.Now().UTC()
	cutoff := now.Add(-p.maxAge)
	var (
		items    []provider.Article
		firstErr error
	)
	for _, feed := range p.feeds {
		parsed, err := p.parser.ParseURLWithContext(feed.URL, ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = &provider.Error{
					Source: sourceName,
					Op:     "fetch " + feed.Name,
					Err:    err,
				}
			}
			continue
		}
		for _, item := range parsed.Items {
			if strings.TrimSpace(item.Link) == "" || strings.TrimSpace(item.Title) == "" {
				continue
			}
			published := now
			if item.PublishedParsed != nil {
				published = item.PublishedParsed.UTC()
			} else if item.UpdatedParsed != nil {
				published = item.UpdatedParsed.UTC()
			}
			if published.Before(cutoff) {
				continue
			}
			content := item.Description
			if content == "" {
				content = item.Content
			}
			article := provider.Article{
				SourceName:  feed.Name,
				Title:       item.Title,
				Content:     content,
				URL:         item.Link,
				PublishedAt: published,
			}
			if article.SourceName == "" {
				article.SourceName = sourceName
			}
			if len(item.Authors) > 0 && item.Authors[0] != nil {
				article.Author = item.Authors[0].Name
			}
			items = append(items, article)
		}
	}
	// Partial results beat none: surface the first failure only when every
	// feed came back empty.
	if len(items) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return items, nil
}

func (p *Provider) String() string {
	return fmt.Sprintf("rss(%d feeds)", len(p.feeds))
}
