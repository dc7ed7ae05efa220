package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/stayscout/stayscout/engine/domain"
)

// LoadCorpus reads the crawled listing corpus (a JSON array of raw records)
// from disk. Records are decoded one at a time so a single off-shape record
// is logged and skipped instead of aborting the whole batch.
func LoadCorpus(path string) ([]domain.RawListing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read corpus %s: %w", path, err)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("ingest: parse corpus %s: %w", path, err)
	}

	listings := make([]domain.RawListing, 0, len(records))
	for i, raw := range records {
		var l domain.RawListing
		if err := json.Unmarshal(raw, &l); err != nil {
			slog.Default().Warn("corpus record skipped", "path", path, "index", i, "err", err)
			continue
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// processedFile is the on-disk envelope for the processed-output file.
type processedFile struct {
	Items []ProcessedItem `json:"items"`
}

// WriteProcessed writes the per-record summaries and metadata produced by a
// batch run, for inspection alongside the index.
func WriteProcessed(path string, items []ProcessedItem) error {
	data, err := json.MarshalIndent(processedFile{Items: items}, "", "  ")
	if err != nil {
		return fmt.Errorf("ingest: marshal processed items: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("ingest: write %s: %w", path, err)
	}
	return nil
}
