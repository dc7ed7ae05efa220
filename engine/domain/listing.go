// Package domain holds the core listing types shared across the engine:
// raw crawled records, index metadata, and the result shape returned to
// the agent. Validation and the error taxonomy live here too.
package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Sentinel placeholders for missing optional data. Metadata written to the
// index uses NA; result fields shaped from metadata fall back to Unknown.
const (
	SentinelNA      = "N/A"
	SentinelUnknown = "Unknown"
)

// City is the nested city object on a raw listing record.
type City struct {
	Name string `json:"name"`
}

// RawListing is one crawled listing record, immutable once ingested.
// Unknown fields from the upstream API are retained so the summarizer
// sees the full record, not a curated subset.
type RawListing struct {
	ID           int64       `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	MinPrice     json.Number `json:"min_price"`
	ExtraPrice   json.Number `json:"extra_price"`
	City         City        `json:"city"`
	Rating       float64     `json:"rate"`
	ReviewsCount int         `json:"reviews_count"`
	ImageURL     string      `json:"image_url"`
	URL          string      `json:"url"`
	LocationID   string      `json:"location_id,omitempty"`
	Page         int         `json:"page,omitempty"`

	extra map[string]json.RawMessage
}

// listingAlias avoids UnmarshalJSON recursion.
type listingAlias RawListing

var knownListingKeys = map[string]bool{
	"id": true, "title": true, "description": true,
	"min_price": true, "extra_price": true, "city": true,
	"rate": true, "reviews_count": true, "image_url": true,
	"url": true, "location_id": true, "page": true,
}

// UnmarshalJSON decodes the typed fields and retains any unrecognized
// upstream fields so FieldDump can reproduce the full record.
func (l *RawListing) UnmarshalJSON(data []byte) error {
	var a listingAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range all {
		if knownListingKeys[k] {
			delete(all, k)
		}
	}
	*l = RawListing(a)
	if len(all) > 0 {
		l.extra = all
	}
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON: retained unknown fields are
// merged back in, and fields absent from the source record stay absent
// rather than resurfacing as zero values. A record survives a
// crawl → corpus file → ingest round trip byte-equivalent in content.
func (l RawListing) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(l.extra)+12)
	for k, v := range l.extra {
		out[k] = v
	}
	set := func(key string, v any) {
		raw, _ := json.Marshal(v)
		out[key] = raw
	}
	if l.ID != 0 {
		set("id", l.ID)
	}
	if l.Title != "" {
		set("title", l.Title)
	}
	if l.Description != "" {
		set("description", l.Description)
	}
	if l.MinPrice != "" {
		set("min_price", l.MinPrice)
	}
	if l.ExtraPrice != "" {
		set("extra_price", l.ExtraPrice)
	}
	if l.City.Name != "" {
		set("city", l.City)
	}
	if l.Rating != 0 {
		set("rate", l.Rating)
	}
	if l.ReviewsCount != 0 {
		set("reviews_count", l.ReviewsCount)
	}
	if l.ImageURL != "" {
		set("image_url", l.ImageURL)
	}
	if l.URL != "" {
		set("url", l.URL)
	}
	if l.LocationID != "" {
		set("location_id", l.LocationID)
	}
	if l.Page != 0 {
		set("page", l.Page)
	}
	return json.Marshal(out)
}

// FieldDump renders the full record as "key: value" lines, one per field,
// in stable key order. This is the text handed to the summarizer.
func (l RawListing) FieldDump() string {
	fields := map[string]string{
		"id":            fmt.Sprintf("%d", l.ID),
		"title":         l.Title,
		"description":   l.Description,
		"min_price":     l.MinPrice.String(),
		"extra_price":   l.ExtraPrice.String(),
		"city":          l.City.Name,
		"rate":          fmt.Sprintf("%g", l.Rating),
		"reviews_count": fmt.Sprintf("%d", l.ReviewsCount),
		"image_url":     l.ImageURL,
		"url":           l.URL,
	}
	for k, raw := range l.extra {
		fields[k] = string(raw)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		if fields[k] == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", k, fields[k])
	}
	return b.String()
}

// ListingResult is the shape the retrieval tool hands back to the agent.
// JSON keys match the payload the front end already consumes.
type ListingResult struct {
	Title           string  `json:"title"`
	Type            string  `json:"type"`
	Description     string  `json:"description"`
	Price           string  `json:"price"`
	City            string  `json:"city"`
	Rating          string  `json:"rating"`
	ReviewsCount    string  `json:"reviews_count"`
	ImageURL        string  `json:"image_url"`
	WebURL          string  `json:"web_url"`
	SimilarityScore float32 `json:"similarity_score"`
}
