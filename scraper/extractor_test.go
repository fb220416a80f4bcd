package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-booksync/models"
)

func mustDocument(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestParseItemTrimsFields(t *testing.T) {
	html := `<div class="s-result-item">
		<h2 class="a-size-base-plus a-spacing-none a-color-base a-text-normal">
			<span>  Fundamentals of Data Engineering  </span>
		</h2>
		<span class="a-size-base"> Joe Reis </span>
		<span class="a-size-base">Paperback</span>
		<span class="a-price-whole">$45.</span>
		<span class="a-icon-alt"> 4.7 out of 5 stars </span>
	</div>`

	e := NewExtractor(DefaultSelectors())
	blocks := e.Blocks(mustDocument(t, html))
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(blocks))
	}

	got, ok := e.ParseItem(blocks[0])
	if !ok {
		t.Fatalf("expected complete item")
	}
	want := models.BookRecord{
		Title:  "Fundamentals of Data Engineering",
		Author: "Joe Reis",
		Price:  "45",
		Rating: "4.7 out of 5 stars",
	}
	if got != want {
		t.Fatalf("record = %+v, want %+v", got, want)
	}
}

func TestParseItemRequiresAllFields(t *testing.T) {
	for _, field := range []string{"title", "author", "price", "rating"} {
		t.Run("missing "+field, func(t *testing.T) {
			it := book("Incomplete")
			it.omit = field

			e := NewExtractor(DefaultSelectors())
			blocks := e.Blocks(mustDocument(t, buildResultsPage(it)))
			if len(blocks) != 1 {
				t.Fatalf("blocks = %d, want 1", len(blocks))
			}
			if _, ok := e.ParseItem(blocks[0]); ok {
				t.Fatalf("item without %s must be discarded", field)
			}
		})
	}
}

func TestExtractPreservesDocumentOrder(t *testing.T) {
	broken := book("Broken")
	broken.omit = "rating"

	e := NewExtractor(DefaultSelectors())
	blocks, records := e.Extract(mustDocument(t, buildResultsPage(book("Z"), broken, book("M"), book("A"))))

	if blocks != 4 {
		t.Fatalf("blocks = %d, want 4", blocks)
	}
	if got := strings.Join(titlesOf(records), ","); got != "Z,M,A" {
		t.Fatalf("titles = %s, want Z,M,A", got)
	}
}

func TestExtractCustomSelectors(t *testing.T) {
	html := `<article class="product_pod">
		<h3><a title="A Light in the Attic">A Light in the ...</a></h3>
		<p class="author">Shel Silverstein</p>
		<p class="price_color">£51.77</p>
		<p class="star-rating">Three</p>
	</article>`

	e := NewExtractor(Selectors{
		Item:   "article.product_pod",
		Title:  "h3 a",
		Author: "p.author",
		Price:  "p.price_color",
		Rating: "p.star-rating",
	})
	_, records := e.Extract(mustDocument(t, html))
	if len(records) != 1 || records[0].Price != "51.77" {
		t.Fatalf("records = %+v", records)
	}
}

func TestExtractNilDocument(t *testing.T) {
	e := NewExtractor(DefaultSelectors())
	if blocks, records := e.Extract(nil); blocks != 0 || len(records) != 0 {
		t.Fatalf("nil document should yield nothing, got %d/%d", blocks, len(records))
	}
}
