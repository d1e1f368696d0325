package domain

import "time"

// RawArticle is an uninterpreted item produced by a collector. The
// orchestration layer only counts and forwards these; parsing meaning out of
// the fields is downstream business.
type RawArticle struct {
	Title       string
	Link        string
	Summary     string
	Content     string
	PublishedAt time.Time
	SourceName  string
	Category    string
}
