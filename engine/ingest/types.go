package ingest

import "github.com/stayscout/stayscout/engine/domain"

// Entry is one summarized record on its way into the vector index.
type Entry struct {
	ID      string
	Listing domain.RawListing
	Summary string
	Meta    domain.Metadata
}

// ProcessedItem mirrors one corpus record after ingestion, written to the
// processed-output file for inspection.
type ProcessedItem struct {
	Original domain.RawListing `json:"original_item"`
	Summary  string            `json:"summary"`
	Metadata domain.Metadata   `json:"metadata"`
}

// Report summarises a batch run. A skipped record is one whose failure was
// absorbed so the rest of the batch could continue.
type Report struct {
	Total    int
	Ingested int
	Skipped  int
}
