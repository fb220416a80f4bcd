package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-booksync/metrics"
	"github.com/aluiziolira/go-booksync/models"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeFetcher struct {
	pages map[int]FetchOutcome
	calls []int
}

func (f *fakeFetcher) Fetch(_ context.Context, page int) FetchOutcome {
	f.calls = append(f.calls, page)
	out, ok := f.pages[page]
	if !ok {
		doc, _ := goquery.NewDocumentFromReader(strings.NewReader(buildResultsPage()))
		out = FetchOutcome{Kind: OutcomeSuccess, Document: doc}
	}
	out.Page = page
	out.URL = fmt.Sprintf("http://example.test/s?page=%d", page)
	out.Attempts = 1
	return out
}

func successPage(t *testing.T, items ...item) FetchOutcome {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(buildResultsPage(items...)))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return FetchOutcome{Kind: OutcomeSuccess, Document: doc}
}

func titlesOf(books []models.BookRecord) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}

func newTestCollector(f Fetcher) (*Collector, *metrics.Metrics) {
	m := metrics.New()
	return NewCollector(f, NewExtractor(DefaultSelectors()), m), m
}

func TestCollectDeduplicatesAcrossPages(t *testing.T) {
	f := &fakeFetcher{pages: map[int]FetchOutcome{
		1: successPage(t, book("A"), book("B"), book("A")),
		2: successPage(t, book("C")),
	}}
	c, m := newTestCollector(f)

	report, err := c.Collect(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	if diff := cmp.Diff([]string{"A", "B", "C"}, titlesOf(report.Books)); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, f.calls); diff != "" {
		t.Fatalf("fetched pages mismatch (-want +got):\n%s", diff)
	}
	if report.Duplicates != 1 {
		t.Fatalf("duplicates = %d, want 1", report.Duplicates)
	}
	if report.StopReason != models.StopExhausted {
		t.Fatalf("stop reason = %s, want %s", report.StopReason, models.StopExhausted)
	}
	if got := testutil.ToFloat64(m.DuplicatesTotal); got != 1 {
		t.Fatalf("duplicates metric = %v, want 1", got)
	}
}

func TestCollectFirstOccurrenceWins(t *testing.T) {
	first := book("Streaming Systems")
	first.author = "Tyler Akidau"
	later := book("Streaming Systems")
	later.author = "Someone Else"

	f := &fakeFetcher{pages: map[int]FetchOutcome{
		1: successPage(t, first),
		2: successPage(t, later, book("Kafka")),
	}}
	c, _ := newTestCollector(f)

	report, err := c.Collect(context.Background(), 10, 2)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	want := []models.BookRecord{
		{Title: "Streaming Systems", Author: "Tyler Akidau", Price: "19", Rating: "4.5 out of 5 stars"},
		{Title: "Kafka", Author: "Author of Kafka", Price: "19", Rating: "4.5 out of 5 stars"},
	}
	if diff := cmp.Diff(want, report.Books); diff != "" {
		t.Fatalf("books mismatch (-want +got):\n%s", diff)
	}
	if report.StopReason != models.StopMaxPages {
		t.Fatalf("stop reason = %s, want %s", report.StopReason, models.StopMaxPages)
	}
}

func TestCollectCapsAtTargetCount(t *testing.T) {
	f := &fakeFetcher{pages: map[int]FetchOutcome{
		1: successPage(t, book("A"), book("B"), book("C"), book("D"), book("E")),
		2: successPage(t, book("F")),
	}}
	c, _ := newTestCollector(f)

	report, err := c.Collect(context.Background(), 2, 3)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	if diff := cmp.Diff([]string{"A", "B"}, titlesOf(report.Books)); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, f.calls); diff != "" {
		t.Fatalf("page 2 must not be fetched (-want +got):\n%s", diff)
	}
	if report.StopReason != models.StopTargetReached {
		t.Fatalf("stop reason = %s, want %s", report.StopReason, models.StopTargetReached)
	}
}

func TestCollectStopsOnFetchError(t *testing.T) {
	tests := []struct {
		name    string
		outcome FetchOutcome
	}{
		{
			name:    "http error",
			outcome: FetchOutcome{Kind: OutcomeHTTPError, Status: 503, Err: ErrHTTPStatus{Status: 503}},
		},
		{
			name:    "network error",
			outcome: FetchOutcome{Kind: OutcomeNetworkError, Err: ErrTimeout{Err: context.DeadlineExceeded}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{pages: map[int]FetchOutcome{
				1: successPage(t, book("A"), book("B")),
				2: tt.outcome,
				3: successPage(t, book("C")),
			}}
			c, _ := newTestCollector(f)

			report, err := c.Collect(context.Background(), 10, 5)
			if err != nil {
				t.Fatalf("collect must contain page errors, got %v", err)
			}
			if diff := cmp.Diff([]int{1, 2}, f.calls); diff != "" {
				t.Fatalf("pages after the failure must not be fetched (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]string{"A", "B"}, titlesOf(report.Books)); diff != "" {
				t.Fatalf("accumulated records must survive (-want +got):\n%s", diff)
			}
			if report.StopReason != models.StopFetchError || report.LastError == "" {
				t.Fatalf("stop reason = %s last error = %q", report.StopReason, report.LastError)
			}
		})
	}
}

func TestCollectFirstPageHTTPError(t *testing.T) {
	f := &fakeFetcher{pages: map[int]FetchOutcome{
		1: {Kind: OutcomeHTTPError, Status: 503, Err: ErrHTTPStatus{Status: 503}},
	}}
	c, m := newTestCollector(f)

	report, err := c.Collect(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(report.Books) != 0 {
		t.Fatalf("books = %d, want 0", len(report.Books))
	}
	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("server_error")); got != 1 {
		t.Fatalf("server_error metric = %v, want 1", got)
	}
}

func TestCollectEmptyFirstPage(t *testing.T) {
	tests := []struct {
		name    string
		outcome func(t *testing.T) FetchOutcome
	}{
		{name: "no item blocks", outcome: func(t *testing.T) FetchOutcome { return successPage(t) }},
		{name: "blank body", outcome: func(*testing.T) FetchOutcome { return FetchOutcome{Kind: OutcomeEmptyPage} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{pages: map[int]FetchOutcome{
				1: tt.outcome(t),
				2: successPage(t, book("A")),
			}}
			c, _ := newTestCollector(f)

			report, err := c.Collect(context.Background(), 10, 3)
			if err != nil {
				t.Fatalf("collect: %v", err)
			}
			if len(report.Books) != 0 {
				t.Fatalf("books = %d, want 0", len(report.Books))
			}
			if diff := cmp.Diff([]int{1}, f.calls); diff != "" {
				t.Fatalf("fetched pages mismatch (-want +got):\n%s", diff)
			}
			if report.StopReason != models.StopNoResults {
				t.Fatalf("stop reason = %s, want %s", report.StopReason, models.StopNoResults)
			}
		})
	}
}

func TestCollectEmptyLaterPageKeepsRecords(t *testing.T) {
	f := &fakeFetcher{pages: map[int]FetchOutcome{
		1: successPage(t, book("A")),
		2: {Kind: OutcomeEmptyPage},
		3: successPage(t, book("B")),
	}}
	c, _ := newTestCollector(f)

	report, err := c.Collect(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if diff := cmp.Diff([]string{"A"}, titlesOf(report.Books)); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
	if report.StopReason != models.StopExhausted {
		t.Fatalf("stop reason = %s, want %s", report.StopReason, models.StopExhausted)
	}
	if report.Failed() {
		t.Fatalf("exhausted results are a clean stop")
	}
}

func TestCollectSkipsIncompleteItems(t *testing.T) {
	noPrice := book("No Price")
	noPrice.omit = "price"
	noRating := book("No Rating")
	noRating.omit = "rating"
	blankTitle := book("   ")

	f := &fakeFetcher{pages: map[int]FetchOutcome{
		1: successPage(t, noPrice, book("Complete"), noRating, blankTitle),
		2: successPage(t, book("Second")),
	}}
	c, m := newTestCollector(f)

	report, err := c.Collect(context.Background(), 10, 2)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if diff := cmp.Diff([]string{"Complete", "Second"}, titlesOf(report.Books)); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
	if report.Skipped != 3 {
		t.Fatalf("skipped = %d, want 3", report.Skipped)
	}
	if got := testutil.ToFloat64(m.ItemsSkippedTotal); got != 3 {
		t.Fatalf("skipped metric = %v, want 3", got)
	}
}

func TestCollectPageOfOnlyIncompleteItemsContinues(t *testing.T) {
	broken := book("Broken")
	broken.omit = "author"

	f := &fakeFetcher{pages: map[int]FetchOutcome{
		1: successPage(t, broken),
		2: successPage(t, book("A")),
	}}
	c, _ := newTestCollector(f)

	report, err := c.Collect(context.Background(), 10, 2)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if diff := cmp.Diff([]string{"A"}, titlesOf(report.Books)); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectParseError(t *testing.T) {
	f := &fakeFetcher{pages: map[int]FetchOutcome{
		1: successPage(t, book("A")),
		2: {Kind: OutcomeParseError, Err: ErrParse{Err: errors.New("bad markup")}},
	}}
	c, _ := newTestCollector(f)

	report, err := c.Collect(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(report.Books) != 1 || report.StopReason != models.StopParseError {
		t.Fatalf("books = %d stop reason = %s", len(report.Books), report.StopReason)
	}
}

func TestCollectCanceledContext(t *testing.T) {
	f := &fakeFetcher{pages: map[int]FetchOutcome{1: successPage(t, book("A"))}}
	c, _ := newTestCollector(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := c.Collect(ctx, 10, 3)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(f.calls) != 0 {
		t.Fatalf("no page should be fetched after cancellation, got %v", f.calls)
	}
	if report.StopReason != models.StopCanceled {
		t.Fatalf("stop reason = %s, want %s", report.StopReason, models.StopCanceled)
	}
}

func TestCollectRejectsInvalidArguments(t *testing.T) {
	c, _ := newTestCollector(&fakeFetcher{})
	if _, err := c.Collect(context.Background(), 0, 3); err == nil {
		t.Fatalf("expected error for zero target count")
	}
	if _, err := c.Collect(context.Background(), 5, 0); err == nil {
		t.Fatalf("expected error for zero max pages")
	}
}

func TestCollectRunsAreIndependent(t *testing.T) {
	f := &fakeFetcher{pages: map[int]FetchOutcome{
		1: successPage(t, book("A"), book("B")),
	}}
	c, _ := newTestCollector(f)

	first, err := c.Collect(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("first collect: %v", err)
	}
	second, err := c.Collect(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("second collect: %v", err)
	}
	if diff := cmp.Diff(titlesOf(first.Books), titlesOf(second.Books)); diff != "" {
		t.Fatalf("second run must not inherit seen titles (-first +second):\n%s", diff)
	}
}
