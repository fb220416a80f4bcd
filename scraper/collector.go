package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-booksync/metrics"
	"github.com/aluiziolira/go-booksync/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Collector drives the fetch/extract loop across result pages and owns the
// run's duplicate-title state.
type Collector struct {
	fetcher   Fetcher
	extractor *Extractor
	metrics   *metrics.Metrics
}

func NewCollector(fetcher Fetcher, extractor *Extractor, m *metrics.Metrics) *Collector {
	return &Collector{
		fetcher:   fetcher,
		extractor: extractor,
		metrics:   m,
	}
}

// Collect fetches pages 1..maxPages strictly in order until targetCount unique
// records are gathered, the results run out, or a page fails. Page failures
// are logged and end pagination; they are never returned. The returned error
// only reports invalid arguments.
func (c *Collector) Collect(ctx context.Context, targetCount, maxPages int) (*models.RunReport, error) {
	if targetCount <= 0 {
		return nil, fmt.Errorf("target count must be positive, got %d", targetCount)
	}
	if maxPages <= 0 {
		return nil, fmt.Errorf("max pages must be positive, got %d", maxPages)
	}

	// At most targetCount titles are ever accepted, so the cache never evicts.
	seen, err := lru.New[string, struct{}](targetCount)
	if err != nil {
		return nil, fmt.Errorf("create seen-title set: %w", err)
	}

	report := &models.RunReport{
		StartTime: time.Now(),
		Books:     make([]models.BookRecord, 0, min(targetCount, 64)),
	}

	page := 1
loop:
	for len(report.Books) < targetCount && page <= maxPages {
		if err := ctx.Err(); err != nil {
			report.StopReason = models.StopCanceled
			report.LastError = err.Error()
			break
		}

		outcome := c.fetcher.Fetch(ctx, page)
		report.Requests += max(outcome.Attempts, 1)

		switch outcome.Kind {
		case OutcomeHTTPError, OutcomeNetworkError:
			c.contain(report, outcome, outcome.Err)
			report.StopReason = models.StopFetchError
			break loop
		case OutcomeParseError:
			c.contain(report, outcome, outcome.Err)
			report.StopReason = models.StopParseError
			break loop
		}

		report.PageCount++
		c.metrics.IncPages()

		blocks, records := 0, []models.BookRecord(nil)
		if outcome.Kind == OutcomeSuccess {
			blocks, records = c.extractor.Extract(outcome.Document)
		}

		if blocks == 0 {
			if page > 1 {
				slog.Info("no item blocks found, assuming end of results",
					slog.Int("page", page),
					slog.String("url", outcome.URL),
				)
				report.StopReason = models.StopExhausted
				break
			}
			if len(report.Books) == 0 {
				c.contain(report, outcome, ErrStructural{URL: outcome.URL})
				report.StopReason = models.StopNoResults
				break
			}
		}

		skipped := blocks - len(records)
		report.Skipped += skipped
		for i := 0; i < skipped; i++ {
			c.metrics.IncSkipped()
		}

		for _, book := range records {
			if len(report.Books) >= targetCount {
				break
			}
			if seen.Contains(book.Title) {
				report.Duplicates++
				c.metrics.IncDuplicates()
				continue
			}
			seen.Add(book.Title, struct{}{})
			report.Books = append(report.Books, book)
			c.metrics.IncItems()
		}

		slog.Debug("page processed",
			slog.Int("page", page),
			slog.Int("blocks", blocks),
			slog.Int("records", len(records)),
			slog.Int("batch", len(report.Books)),
		)
		page++
	}

	if report.StopReason == "" {
		if len(report.Books) >= targetCount {
			report.StopReason = models.StopTargetReached
		} else {
			report.StopReason = models.StopMaxPages
		}
	}
	if len(report.Books) > targetCount {
		report.Books = report.Books[:targetCount]
	}
	report.EndTime = time.Now()

	if len(report.Books) == 0 {
		slog.Warn("no books were successfully fetched",
			slog.String("stop_reason", string(report.StopReason)),
			slog.String("category", errorTypeLabel(ErrEmptyResult)),
		)
	}
	slog.Info("collection finished",
		slog.Int("books", len(report.Books)),
		slog.Int("pages", report.PageCount),
		slog.Int("duplicates", report.Duplicates),
		slog.Int("skipped", report.Skipped),
		slog.String("stop_reason", string(report.StopReason)),
	)
	return report, nil
}

func (c *Collector) contain(report *models.RunReport, outcome FetchOutcome, err error) {
	category := errorTypeLabel(err)
	c.metrics.IncError(category)
	if err != nil {
		report.LastError = err.Error()
	}
	slog.Error("page collection stopped, proceeding with fetched data",
		slog.Int("page", outcome.Page),
		slog.String("url", outcome.URL),
		slog.String("category", category),
		slog.Any("error", err),
		slog.Int("collected", len(report.Books)),
	)
}
