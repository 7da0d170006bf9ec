package board

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/david/bid-monitor/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

var resultsTmpl = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

const (
	notAvailable = "N/A"
	invalidDate  = "Invalid Date"
	otherVariant = "other"
)

// badgeVariants maps known bid types to their badge style key.
var badgeVariants = map[models.BidType]string{
	models.TypeMunicipal: "municipal",
	models.TypeCounty:    "county",
	models.TypeState:     "state",
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Card is the display form of one bid. Optional parts are empty when the bid lacks them.
type Card struct {
	Title        string
	Type         string
	BadgeVariant string
	Location     string
	Deadline     string
	BidNumber    string
	Description  string
	Posted       string
	Source       string
	URL          string
}

// Results is the data behind the results container.
type Results struct {
	Cards  []Card
	Failed bool
}

// BadgeVariant returns the style key for a bid type, falling back to "other" for unknown or missing types.
func BadgeVariant(t models.BidType) string {
	if v, ok := badgeVariants[t]; ok {
		return v
	}
	return otherVariant
}

// FormatDate renders a date-like string as "Jan 2, 2006". Empty or blank input yields "N/A"
// and unparseable input yields "Invalid Date".
func FormatDate(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return notAvailable
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return invalidDate
}

// FormatTimestamp renders the "last updated" instant in local time.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format("1/2/2006, 3:04:05 PM")
}

// BuildCards maps bids to cards in list order.
func BuildCards(bids []models.Bid) []Card {
	cards := make([]Card, 0, len(bids))
	for _, b := range bids {
		card := Card{
			Title:        b.Title,
			Type:         b.Type,
			BadgeVariant: BadgeVariant(b.Type),
			Location:     b.Location,
			BidNumber:    b.BidNumber,
			Description:  b.Description,
			Posted:       FormatDate(b.PostedDate),
			Source:       b.Source,
			URL:          b.URL,
		}
		if strings.TrimSpace(b.Deadline) != "" {
			card.Deadline = FormatDate(b.Deadline)
		}
		cards = append(cards, card)
	}
	return cards
}

// Render writes the results fragment for bids: one card per bid, or the no-results placeholder.
func Render(w io.Writer, bids []models.Bid) error {
	return renderResults(w, Results{Cards: BuildCards(bids)})
}

// RenderError writes the load-failure placeholder.
func RenderError(w io.Writer) error {
	return renderResults(w, Results{Failed: true})
}

func renderResults(w io.Writer, r Results) error {
	if err := resultsTmpl.ExecuteTemplate(w, "results", r); err != nil {
		return fmt.Errorf("render results: %w", err)
	}
	return nil
}

// Templates returns a fresh parse of the results templates for pages that embed the fragment.
// resultsTmpl cannot be cloned once it has executed.
func Templates() (*template.Template, error) {
	return template.ParseFS(templatesFS, "templates/*.html")
}
