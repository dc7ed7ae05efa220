// Package crawler fetches raw listing records from the booking site's
// search and detail APIs. It pages through each configured location, pulls
// every room's full record, and hands the records to a sink: a corpus file
// for batch ingestion or a NATS subject for streamed ingestion.
package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/stayscout/stayscout/engine/domain"
	"github.com/stayscout/stayscout/pkg/fn"
)

// DefaultBaseURL is the booking site's API origin.
const DefaultBaseURL = "https://api.jajiga.com"

// Options configures a crawl.
type Options struct {
	BaseURL string
	PerPage int
	Pages   int
	// Pause between requests; the upstream API is unauthenticated and
	// throttles aggressive clients.
	Pause time.Duration
	Retry fn.RetryOpts
}

// DefaultOptions mirrors the reference crawl: 18 rooms per page, 5 pages
// per location, one request every 500ms.
func DefaultOptions() Options {
	return Options{
		BaseURL: DefaultBaseURL,
		PerPage: 18,
		Pages:   5,
		Pause:   500 * time.Millisecond,
		Retry:   fn.RetryOpts{MaxAttempts: 2, InitialWait: time.Second, MaxWait: 5 * time.Second},
	}
}

// Sink receives each crawled record.
type Sink interface {
	Emit(ctx context.Context, l domain.RawListing) error
}

// Crawler pulls listing records location by location.
type Crawler struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Crawler.
func New(opts Options, logger *slog.Logger) *Crawler {
	def := DefaultOptions()
	if opts.BaseURL == "" {
		opts.BaseURL = def.BaseURL
	}
	if opts.PerPage <= 0 {
		opts.PerPage = def.PerPage
	}
	if opts.Pages <= 0 {
		opts.Pages = def.Pages
	}
	if opts.Pause <= 0 {
		opts.Pause = def.Pause
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = def.Retry
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		opts:    opts,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(opts.Pause), 1),
		logger:  logger,
	}
}

// searchResponse is the shape of the search API reply we care about.
type searchResponse struct {
	Rooms struct {
		Items []struct {
			ID int64 `json:"id"`
		} `json:"items"`
	} `json:"rooms"`
}

// Run crawls every location in order and emits each record to the sink.
// Failures on one page or one room are logged and skipped; the count of
// emitted records is returned.
func (c *Crawler) Run(ctx context.Context, locations []string, sink Sink) (int, error) {
	total := 0
	for _, loc := range locations {
		c.logger.Info("crawl: location start", "location", loc)
		n, err := c.crawlLocation(ctx, loc, sink)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (c *Crawler) crawlLocation(ctx context.Context, locationID string, sink Sink) (int, error) {
	emitted := 0
	for page := 1; page <= c.opts.Pages; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return emitted, err
		}

		ids, err := c.searchPage(ctx, locationID, page)
		if err != nil {
			c.logger.Warn("crawl: search page failed", "location", locationID, "page", page, "err", err)
			continue
		}
		if len(ids) == 0 {
			c.logger.Info("crawl: no rooms, stopping early", "location", locationID, "page", page)
			break
		}

		for _, id := range ids {
			if err := c.limiter.Wait(ctx); err != nil {
				return emitted, err
			}

			r := fn.Retry(ctx, c.opts.Retry, func(ctx context.Context) fn.Result[domain.RawListing] {
				return c.fetchRoom(ctx, id)
			})
			if r.IsErr() {
				_, err := r.Unwrap()
				c.logger.Warn("crawl: room fetch failed", "room_id", id, "err", err)
				continue
			}

			listing, _ := r.Unwrap()
			listing.LocationID = locationID
			listing.Page = page
			if err := sink.Emit(ctx, listing); err != nil {
				return emitted, fmt.Errorf("crawl: emit room %d: %w", id, err)
			}
			emitted++
		}
	}
	return emitted, nil
}

// searchPage returns the room ids listed on one search result page.
func (c *Crawler) searchPage(ctx context.Context, locationID string, page int) ([]int64, error) {
	params := url.Values{
		"per_page":    {strconv.Itoa(c.opts.PerPage)},
		"page":        {strconv.Itoa(page)},
		"locations[]": {locationID},
		"without[]":   {"map"},
	}

	var sr searchResponse
	if err := c.getJSON(ctx, c.opts.BaseURL+"/api/search?"+params.Encode(), &sr); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(sr.Rooms.Items))
	for _, item := range sr.Rooms.Items {
		if item.ID != 0 {
			ids = append(ids, item.ID)
		}
	}
	return ids, nil
}

// fetchRoom fetches one room's full detail record.
func (c *Crawler) fetchRoom(ctx context.Context, id int64) fn.Result[domain.RawListing] {
	var listing domain.RawListing
	err := c.getJSON(ctx, fmt.Sprintf("%s/api/room/%d", c.opts.BaseURL, id), &listing)
	if err != nil {
		return fn.Err[domain.RawListing](err)
	}
	return fn.Ok(listing)
}

func (c *Crawler) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("status %d from %s", resp.StatusCode, rawURL)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
