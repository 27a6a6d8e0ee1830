// Package rss pulls headlines from per-country RSS feeds as a secondary
// source next to the news API. Feed items are converted to the same raw
// article shape and deduplicated downstream by the storage layer.
package rss

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/aura-global/aura/internal/models"
)

// Source parses configured per-country feeds.
type Source struct {
	feeds  map[string]string // country code -> feed URL
	parser *gofeed.Parser
}

// NewSource creates an RSS source for the given country feed map.
func NewSource(feeds map[string]string) *Source {
	return &Source{
		feeds:  feeds,
		parser: gofeed.NewParser(),
	}
}

// HasFeed reports whether a feed is configured for the country.
func (s *Source) HasFeed(country string) bool {
	_, ok := s.feeds[country]
	return ok
}

// FetchArticles parses the country's configured feed and returns its
// items as raw articles. Items without a title or link are dropped.
func (s *Source) FetchArticles(ctx context.Context, country string) ([]models.RawArticle, error) {
	feedURL, ok := s.feeds[country]
	if !ok {
		return nil, fmt.Errorf("no feed configured for country %s", country)
	}

	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	var items []models.RawArticle
	for _, item := range feed.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}

		publishedAt := time.Now()
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		}

		items = append(items, models.RawArticle{
			Title:       item.Title,
			URL:         item.Link,
			Source:      feed.Title,
			PublishedAt: publishedAt,
		})
	}

	return items, nil
}
