package main

import (
	"io"
	"time"

	"github.com/aluiziolira/go-booksync/models"
	"github.com/aluiziolira/go-booksync/pipeline"
	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	return t
}

func printBooks(out io.Writer, books []models.BookRecord) {
	t := newTable(out)
	t.AppendHeader(table.Row{"#", "Title", "Author", "Price", "Rating"})
	for i, book := range books {
		t.AppendRow(table.Row{i + 1, book.Title, book.Author, book.Price, book.Rating})
	}
	t.Render()
}

func printReport(out io.Writer, report *models.RunReport) {
	if report == nil {
		return
	}
	t := newTable(out)
	t.AppendHeader(table.Row{"Collection", ""})
	t.AppendRows([]table.Row{
		{"Stop reason", string(report.StopReason)},
		{"Books", len(report.Books)},
		{"Pages", report.PageCount},
		{"Requests", report.Requests},
		{"Duplicates", report.Duplicates},
		{"Skipped items", report.Skipped},
		{"Duration", report.EndTime.Sub(report.StartTime).Round(time.Millisecond).String()},
	})
	if report.LastError != "" {
		t.AppendRow(table.Row{"Last error", report.LastError})
	}
	t.Render()
}

func printRunSummary(out io.Writer, summary *pipeline.RunSummary) {
	if summary == nil {
		return
	}
	printReport(out, summary.Report)

	t := newTable(out)
	t.AppendHeader(table.Row{"Step", "Duration", "Status"})
	for _, step := range summary.Steps {
		status := "ok"
		if step.Err != nil {
			status = step.Err.Error()
		}
		t.AppendRow(table.Row{step.Name, step.Duration.Round(time.Millisecond).String(), status})
	}
	t.AppendFooter(table.Row{"Run " + summary.RunID, "Loaded", summary.Loaded})
	t.Render()
}
