package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-booksync/metrics"
	"github.com/aluiziolira/go-booksync/models"
)

// Execer runs a single parameterised statement. *sql.DB and *sql.Tx satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Options configure a Sink.
type Options struct {
	Dialect Dialect
	Table   string
	// Transactional wraps each Load in one transaction. The default issues
	// independent inserts, so a mid-batch failure leaves earlier rows committed.
	Transactional bool
	Metrics       *metrics.Metrics
}

// Sink owns the destination table: schema creation and row loading.
type Sink struct {
	db            *sql.DB
	dialect       Dialect
	table         string
	transactional bool
	metrics       *metrics.Metrics
}

func NewSink(db *sql.DB, opts Options) (*Sink, error) {
	if !identifierPattern.MatchString(opts.Table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, opts.Table)
	}
	if opts.Dialect.Placeholder == nil {
		return nil, fmt.Errorf("warehouse: dialect is required")
	}
	return &Sink{
		db:            db,
		dialect:       opts.Dialect,
		table:         opts.Table,
		transactional: opts.Transactional,
		metrics:       opts.Metrics,
	}, nil
}

// EnsureTable creates the destination table when it does not exist yet.
// It is safe to call on every run.
func (s *Sink) EnsureTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.createTableSQL(s.table)); err != nil {
		return fmt.Errorf("ensure table %s: %w", s.table, err)
	}
	slog.Debug("table ensured", slog.String("table", s.table), slog.String("dialect", s.dialect.Name))
	return nil
}

// Load inserts one row per record in batch order and returns the number of
// rows written. An empty batch returns immediately without touching the sink.
// There is no upsert: loading the same batch twice inserts it twice.
func (s *Sink) Load(ctx context.Context, books []models.BookRecord) (int, error) {
	if len(books) == 0 {
		slog.Info("no book data to load, skipping insertion", slog.String("table", s.table))
		return 0, nil
	}

	var (
		n   int
		err error
	)
	if s.transactional {
		n, err = s.loadTx(ctx, books)
	} else {
		n, err = s.insertAll(ctx, s.db, books)
	}
	s.metrics.AddRowsLoaded(n)
	if err != nil {
		return n, err
	}
	slog.Info("books loaded", slog.String("table", s.table), slog.Int("rows", n))
	return n, nil
}

func (s *Sink) loadTx(ctx context.Context, books []models.BookRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin load transaction: %w", err)
	}
	n, err := s.insertAll(ctx, tx, books)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", slog.Any("error", rbErr))
		}
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit load transaction: %w", err)
	}
	return n, nil
}

func (s *Sink) insertAll(ctx context.Context, exec Execer, books []models.BookRecord) (int, error) {
	query := s.dialect.insertSQL(s.table)
	inserted := 0
	for i, book := range books {
		if _, err := exec.ExecContext(ctx, query, book.Title, book.Author, book.Price, book.Rating); err != nil {
			return inserted, fmt.Errorf("insert row %d (%q): %w", i, book.Title, err)
		}
		inserted++
	}
	return inserted, nil
}
