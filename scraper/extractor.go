package scraper

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-booksync/models"
	"github.com/aluiziolira/go-booksync/parser"
)

// Selectors locate item blocks and their fields inside a results page.
type Selectors struct {
	Item   string
	Title  string
	Author string
	Price  string
	Rating string
}

// DefaultSelectors match the search results markup of the default source.
func DefaultSelectors() Selectors {
	return Selectors{
		Item:   "div.s-result-item",
		Title:  "h2.a-size-base-plus.a-spacing-none.a-color-base.a-text-normal",
		Author: "span.a-size-base",
		Price:  "span.a-price-whole",
		Rating: "span.a-icon-alt",
	}
}

// Extractor pulls BookRecords out of parsed result pages.
type Extractor struct {
	sel Selectors
}

func NewExtractor(sel Selectors) *Extractor {
	return &Extractor{sel: sel}
}

// Blocks returns the candidate item blocks in document order.
func (e *Extractor) Blocks(doc *goquery.Document) []*goquery.Selection {
	if doc == nil {
		return nil
	}
	var blocks []*goquery.Selection
	doc.Find(e.sel.Item).Each(func(_ int, s *goquery.Selection) {
		blocks = append(blocks, s)
	})
	return blocks
}

// ParseItem reads the four fields of a block. A block missing any field, or
// carrying a blank title, yields ok == false and no partial record.
func (e *Extractor) ParseItem(block *goquery.Selection) (models.BookRecord, bool) {
	title, ok := childText(block, e.sel.Title)
	if !ok {
		return models.BookRecord{}, false
	}
	author, ok := childText(block, e.sel.Author)
	if !ok {
		return models.BookRecord{}, false
	}
	price, ok := childText(block, e.sel.Price)
	if !ok {
		return models.BookRecord{}, false
	}
	rating, ok := childText(block, e.sel.Rating)
	if !ok {
		return models.BookRecord{}, false
	}

	book := models.BookRecord{
		Title:  title,
		Author: author,
		Price:  parser.NormalizePrice(price),
		Rating: rating,
	}
	if err := parser.ValidateBook(&book); err != nil {
		return models.BookRecord{}, false
	}
	return book, true
}

// Extract returns the number of item blocks found and the records parsed from them.
func (e *Extractor) Extract(doc *goquery.Document) (int, []models.BookRecord) {
	blocks := e.Blocks(doc)
	records := make([]models.BookRecord, 0, len(blocks))
	for _, block := range blocks {
		if book, ok := e.ParseItem(block); ok {
			records = append(records, book)
		}
	}
	return len(blocks), records
}

func childText(block *goquery.Selection, selector string) (string, bool) {
	s := block.Find(selector).First()
	if s.Length() == 0 {
		return "", false
	}
	return parser.NormalizeText(s.Text()), true
}
