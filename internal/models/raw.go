package models

import "time"

// RawArticle is an unclassified news item as delivered by a source
// (news API or RSS feed), before sentiment/category classification.
type RawArticle struct {
	Title       string
	URL         string
	Source      string
	PublishedAt time.Time
}
