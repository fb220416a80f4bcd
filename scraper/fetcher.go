package scraper

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-booksync/config"
	"github.com/aluiziolira/go-booksync/metrics"
	"github.com/gocolly/colly/v2"
)

const (
	ctxStatus = "status"
	ctxBody   = "body"
)

// OutcomeKind tags the result of a single page fetch.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeEmptyPage
	OutcomeHTTPError
	OutcomeNetworkError
	OutcomeParseError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmptyPage:
		return "empty_page"
	case OutcomeHTTPError:
		return "http_error"
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// FetchOutcome is the classified result of fetching one results page.
// Document is set only for OutcomeSuccess; Err is set for the error kinds.
type FetchOutcome struct {
	Kind     OutcomeKind
	Page     int
	URL      string
	Status   int
	Attempts int
	Document *goquery.Document
	Err      error
}

// Fetcher retrieves and classifies one results page.
type Fetcher interface {
	Fetch(ctx context.Context, page int) FetchOutcome
}

// HTTPFetcher issues one GET per page through a synchronous colly collector.
type HTTPFetcher struct {
	cfg       *config.Config
	base      *url.URL
	collector *colly.Collector
	transport *http.Transport
	metrics   *metrics.Metrics
}

// NewHTTPFetcher builds a fetcher for cfg.BaseURL. Certificate verification
// stays on unless cfg.InsecureSkipVerify is set.
func NewHTTPFetcher(cfg *config.Config, m *metrics.Metrics) (*HTTPFetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true

	if cfg.InsecureSkipVerify {
		slog.Warn("TLS certificate verification disabled for source requests",
			slog.String("host", parsed.Host),
		)
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
	}
	collector.WithTransport(transport)

	if cfg.Delay > 0 {
		if err := collector.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: 1,
			Delay:       cfg.Delay,
		}); err != nil {
			return nil, fmt.Errorf("configure rate limits: %w", err)
		}
	}

	f := &HTTPFetcher{
		cfg:       cfg,
		base:      parsed,
		collector: collector,
		transport: transport,
		metrics:   m,
	}

	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxStatus, r.StatusCode)
		r.Ctx.Put(ctxBody, r.Body)
	})

	return f, nil
}

// PageURL composes the request URL for a 1-based page number.
func (f *HTTPFetcher) PageURL(page int) string {
	return pageURL(f.base, page)
}

func pageURL(base *url.URL, page int) string {
	u := *base
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func (f *HTTPFetcher) headers() http.Header {
	h := http.Header{}
	h.Set("User-Agent", f.cfg.UserAgent)
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Accept-Encoding", "gzip")
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	h.Set("Connection", "keep-alive")
	if f.cfg.Referer != "" {
		h.Set("Referer", f.cfg.Referer)
	}
	return h
}

// Fetch makes a single attempt at the page; retries belong to RetryingFetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, page int) FetchOutcome {
	out := FetchOutcome{Page: page, URL: f.PageURL(page), Attempts: 1}

	if err := ctx.Err(); err != nil {
		out.Kind = OutcomeNetworkError
		out.Err = classifyNetworkError(err)
		return out
	}

	reqCtx := colly.NewContext()
	start := time.Now()
	err := f.collector.Request(http.MethodGet, out.URL, nil, reqCtx, f.headers())
	f.metrics.ObserveDuration(time.Since(start))

	out.Status, _ = reqCtx.GetAny(ctxStatus).(int)
	body, _ := reqCtx.GetAny(ctxBody).([]byte)

	switch {
	case err != nil:
		out.Kind = OutcomeNetworkError
		out.Err = classifyNetworkError(err)
	case out.Status >= http.StatusBadRequest:
		out.Kind = OutcomeHTTPError
		out.Err = ErrHTTPStatus{Status: out.Status}
	case len(bytes.TrimSpace(body)) == 0:
		out.Kind = OutcomeEmptyPage
	default:
		doc, perr := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if perr != nil {
			out.Kind = OutcomeParseError
			out.Err = ErrParse{Err: perr}
			break
		}
		out.Kind = OutcomeSuccess
		out.Document = doc
	}

	f.metrics.IncRequest(out.Kind.String())
	slog.Debug("fetched page",
		slog.Int("page", page),
		slog.String("url", out.URL),
		slog.Int("status", out.Status),
		slog.String("outcome", out.Kind.String()),
	)
	return out
}
