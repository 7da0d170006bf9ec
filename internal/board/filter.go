package board

import (
	"strings"

	"github.com/david/bid-monitor/internal/models"
)

// TypeAll is the type-filter sentinel that disables the type predicate.
const TypeAll = "all"

// Filter returns the bids that pass both the type and the search predicate, in their
// original order. The search is case-insensitive over title, description, location and
// bid number; the type comparison is exact. The result never aliases bids.
func Filter(bids []models.Bid, search, typeFilter string) []models.Bid {
	term := strings.ToLower(search)

	out := make([]models.Bid, 0, len(bids))
	for _, b := range bids {
		if typeFilter != TypeAll && b.Type != typeFilter {
			continue
		}
		if term != "" && !strings.Contains(searchableText(b), term) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// searchableText joins the searchable fields with newlines so a term cannot match across fields.
func searchableText(b models.Bid) string {
	return strings.ToLower(strings.Join([]string{b.Title, b.Description, b.Location, b.BidNumber}, "\n"))
}
