package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-booksync/models"
)

// DualWriter exports the same batch as CSV and JSONL.
type DualWriter struct {
	csv  *CSVWriter
	json *JSONWriter
}

func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, err
	}

	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		csvWriter.Close()
		return nil, err
	}

	return &DualWriter{csv: csvWriter, json: jsonWriter}, nil
}

func (dw *DualWriter) Write(books []models.BookRecord) error {
	if err := dw.csv.Write(books); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	if err := dw.json.Write(books); err != nil {
		return fmt.Errorf("json: %w", err)
	}
	return nil
}

func (dw *DualWriter) Close() error {
	return errors.Join(dw.csv.Close(), dw.json.Close())
}

func (dw *DualWriter) Validate() error {
	return errors.Join(dw.csv.Validate(), dw.json.Validate())
}
