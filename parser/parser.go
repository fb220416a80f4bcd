package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-booksync/models"
)

var currencySymbols = []string{"US$", "Â£", "£", "€", "$"}

// ValidateBook ensures the extractor captured a usable record.
func ValidateBook(b *models.BookRecord) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("book missing title")
	}
	return nil
}

// NormalizeText trims surrounding whitespace. Internal spacing is kept so the
// title stays an exact dedup key.
func NormalizeText(text string) string {
	return strings.TrimSpace(text)
}

// NormalizePrice removes currency symbols, surrounding whitespace and a
// dangling decimal separator ("34." becomes "34").
func NormalizePrice(price string) string {
	price = strings.TrimSpace(price)
	for _, sym := range currencySymbols {
		price = strings.ReplaceAll(price, sym, "")
	}
	price = strings.TrimSpace(price)
	return strings.TrimSuffix(price, ".")
}
