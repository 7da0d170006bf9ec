package monitor

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

func TestExtractDeadline(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "Storm sewer lining Due: 03/15/2024 2:00 PM", want: "2024-03-15"},
		{text: "Catch basin cleaning - Closing Date March 5, 2024", want: "2024-03-05"},
		{text: "Sweeping services, bids due on Sept. 9, 2024", want: "2024-09-09"},
		{text: "Drainage study deadline 2024-11-01", want: "2024-11-01"},
		{text: "Bid opening: dec 1 2025 at the clerk's office", want: "2025-12-01"},
		{text: "Sewer cleaning posted 03/01/2024", want: ""},
		{text: "Deadline extended until further notice", want: ""},
		{text: "Overdue invoices 03/15/2024", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			check.Equal(t, tt.want, ExtractDeadline(tt.text))
		})
	}
}

func TestExtractBids_SetsDeadline(t *testing.T) {
	doc := mustDoc(t, "https://bids.example.gov/list", `
<div class="bid-item"><span>Vac truck rental services</span><span>Due: 04/02/2024</span><a href="/b/9">Details</a></div>`)

	src := SourceConfig{Mode: ModeBlocks, BlockSelector: "div[class*=bid]", MinTextLength: 20, MaxItems: 20}
	bids := ExtractBids(doc, src, testKeywords, time.Now())

	check.Equal(t, 1, len(bids))
	check.Equal(t, "2024-04-02", bids[0].Deadline)
}
