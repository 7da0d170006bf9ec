package monitor

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/david/bid-monitor/internal/models"
	"github.com/microcosm-cc/bluemonday"
)

const (
	maxTitleRunes    = 200
	signatureRunes   = 100
	postedDateLayout = "2006-01-02"
)

// bidNumberPatterns are tried in order; the first match wins.
var bidNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)#[\dA-Z-]+`),
	regexp.MustCompile(`(?i)RFP[\s-]?[\dA-Z-]+`),
	regexp.MustCompile(`(?i)BID[\s-]?[\dA-Z-]+`),
	regexp.MustCompile(`(?i)IFB[\s-]?[\dA-Z-]+`),
	regexp.MustCompile(`(?i)\d{4,}[-/]\d+`),
}

var textPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// ContainsKeyword reports whether text contains any keyword, ignoring case.
// Keywords are expected in lower case.
func ContainsKeyword(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// ExtractBidNumber returns the first solicitation identifier found in text, or "".
func ExtractBidNumber(text string) string {
	for _, re := range bidNumberPatterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// ExtractBids turns a fetched portal page into bids according to the source's mode.
func ExtractBids(doc *goquery.Document, src SourceConfig, keywords []string, scannedAt time.Time) []models.Bid {
	base := doc.Url
	if base == nil {
		base, _ = url.Parse(src.URL)
	}

	var bids []models.Bid
	add := func(text, href string) {
		if !ContainsKeyword(text, keywords) || utf8.RuneCountInString(text) <= src.MinTextLength {
			return
		}
		link := resolveURL(base, href)
		if link == "" {
			return
		}
		bids = append(bids, models.Bid{
			Title:      truncateRunes(text, maxTitleRunes),
			Type:       src.Type,
			Location:   src.Location,
			BidNumber:  ExtractBidNumber(text),
			PostedDate: scannedAt.Format(postedDateLayout),
			Deadline:   ExtractDeadline(text),
			Source:     src.Name,
			URL:        link,
		})
	}

	switch src.Mode {
	case ModeBlocks:
		doc.Find(src.BlockSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
			if i >= src.MaxItems {
				return false
			}
			href, ok := s.Find("a[href]").First().Attr("href")
			if !ok {
				return true
			}
			add(selectionText(s), href)
			return true
		})
	default:
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			add(selectionText(s), href)
		})
	}

	return bids
}

// Deduplicate keeps the first bid for each title signature: the first 100 characters of the
// title, lower-cased, with spaces removed.
func Deduplicate(bids []models.Bid) []models.Bid {
	seen := make(map[string]struct{}, len(bids))
	out := make([]models.Bid, 0, len(bids))
	for _, b := range bids {
		sig := titleSignature(b.Title)
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, b)
	}
	return out
}

func titleSignature(title string) string {
	return strings.ReplaceAll(strings.ToLower(truncateRunes(title, signatureRunes)), " ", "")
}

// selectionText strips markup from the selection and collapses whitespace.
func selectionText(s *goquery.Selection) string {
	inner, err := s.Html()
	if err != nil {
		return normalizeSpace(s.Text())
	}
	return normalizeSpace(html.UnescapeString(textPolicy.Sanitize(inner)))
}

func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

// normalizeSpace collapses runs of whitespace into one space and trims the string.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
