// Package models defines data structures shared by the collector, sink and pipeline.
package models

import "time"

// BookRecord is one listing item extracted from a search results page.
// The JSON keys are the handoff format between pipeline steps.
type BookRecord struct {
	Title  string `csv:"title" json:"Title"`
	Author string `csv:"authors" json:"Author"`
	Price  string `csv:"price" json:"Price"`
	Rating string `csv:"rating" json:"Rating"`
}

// StopReason explains why pagination ended.
type StopReason string

const (
	StopTargetReached StopReason = "target_reached"
	StopMaxPages      StopReason = "max_pages"
	StopExhausted     StopReason = "results_exhausted"
	StopNoResults     StopReason = "no_results"
	StopFetchError    StopReason = "fetch_error"
	StopParseError    StopReason = "parse_error"
	StopCanceled      StopReason = "canceled"
)

// RunReport holds the outcome of one pagination run.
type RunReport struct {
	Books      []BookRecord
	StartTime  time.Time
	EndTime    time.Time
	PageCount  int
	Requests   int
	Duplicates int
	Skipped    int
	StopReason StopReason
	LastError  string
}

// Failed reports whether pagination ended on a contained error rather than a clean stop.
func (r *RunReport) Failed() bool {
	if r == nil {
		return false
	}
	switch r.StopReason {
	case StopFetchError, StopParseError, StopNoResults:
		return true
	}
	return false
}
