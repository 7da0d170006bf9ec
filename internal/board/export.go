package board

import (
	"errors"
	"strings"
	"time"

	"github.com/david/bid-monitor/internal/models"
)

// CSVContentType is the media type of exported documents.
const CSVContentType = "text/csv"

// ErrNothingToExport is returned when the filtered list is empty.
var ErrNothingToExport = errors.New("no bids to export")

var csvHeader = []string{"Title", "Type", "Location", "Source", "Posted Date", "Deadline", "Bid Number", "URL", "Description"}

// Export is a rendered CSV document ready for download.
type Export struct {
	Filename string
	Content  []byte
}

// ExportFilename names the download after the UTC date of now.
func ExportFilename(now time.Time) string {
	return "bids_" + now.UTC().Format("2006-01-02") + ".csv"
}

// ExportCSV serializes bids. Free-text columns are always quoted with embedded quotes doubled;
// type, dates, bid number and URL are written raw. Rows are newline-joined with no trailing newline.
func ExportCSV(bids []models.Bid, now time.Time) (*Export, error) {
	if len(bids) == 0 {
		return nil, ErrNothingToExport
	}

	rows := make([]string, 0, len(bids)+1)
	rows = append(rows, strings.Join(csvHeader, ","))
	for _, b := range bids {
		rows = append(rows, strings.Join([]string{
			quoteField(b.Title),
			b.Type,
			quoteField(b.Location),
			quoteField(b.Source),
			b.PostedDate,
			b.Deadline,
			b.BidNumber,
			b.URL,
			quoteField(b.Description),
		}, ","))
	}

	return &Export{
		Filename: ExportFilename(now),
		Content:  []byte(strings.Join(rows, "\n")),
	}, nil
}

func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
