package domain

import "strconv"

// Metadata is the flat payload stored beside each vector index entry.
// Every field is text; missing source fields carry the NA sentinel so a
// key is never absent from the stored payload.
type Metadata struct {
	MinPrice    string `json:"min_price"`
	ExtraPrice  string `json:"extra_price"`
	City        string `json:"city"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ID          string `json:"id"`
	URL         string `json:"url"`
}

// MetadataFromListing coerces a raw record into index metadata. fallbackID
// is used when the record has no identifier of its own, typically the
// record's position in the corpus.
func MetadataFromListing(l RawListing, fallbackID string) Metadata {
	m := Metadata{
		MinPrice:    textOr(l.MinPrice.String(), SentinelNA),
		ExtraPrice:  textOr(l.ExtraPrice.String(), SentinelNA),
		City:        textOr(l.City.Name, SentinelNA),
		Title:       textOr(l.Title, SentinelNA),
		Description: textOr(l.Description, SentinelNA),
		URL:         textOr(l.URL, SentinelNA),
	}
	if l.ID != 0 {
		m.ID = strconv.FormatInt(l.ID, 10)
	} else {
		m.ID = fallbackID
	}
	return m
}

// Map flattens the metadata for storage as an index payload.
func (m Metadata) Map() map[string]string {
	return map[string]string{
		"min_price":   m.MinPrice,
		"extra_price": m.ExtraPrice,
		"city":        m.City,
		"title":       m.Title,
		"description": m.Description,
		"id":          m.ID,
		"url":         m.URL,
	}
}

// MetadataFromMap rebuilds metadata from a stored payload, substituting
// the NA sentinel for any key the payload lost.
func MetadataFromMap(p map[string]string) Metadata {
	get := func(k string) string { return textOr(p[k], SentinelNA) }
	return Metadata{
		MinPrice:    get("min_price"),
		ExtraPrice:  get("extra_price"),
		City:        get("city"),
		Title:       get("title"),
		Description: get("description"),
		ID:          get("id"),
		URL:         get("url"),
	}
}

func textOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
