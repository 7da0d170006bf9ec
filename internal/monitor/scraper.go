package monitor

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Scraper fetches a source's page and returns it parsed.
type Scraper interface {
	Scrape(ctx context.Context, src SourceConfig) (*goquery.Document, error)
}

// CollyScraper fetches portal pages with a fresh colly collector per source.
type CollyScraper struct {
	UserAgent   string
	MaxRetries  int
	Backoff     time.Duration
	MaxBodySize int
	Logger      *zap.Logger
}

func NewCollyScraper(logger *zap.Logger) *CollyScraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollyScraper{
		UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		MaxRetries:  2,
		Backoff:     time.Second,
		MaxBodySize: 10 * 1024 * 1024, // 10MB
		Logger:      logger,
	}
}

func (s *CollyScraper) buildCollector(ctx context.Context, src SourceConfig) *colly.Collector {
	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(s.UserAgent),
		colly.MaxBodySize(s.MaxBodySize),
		colly.DetectCharset(),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(time.Duration(src.TimeoutSeconds) * time.Second)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	})
	return c
}

// Scrape visits src.URL, retrying transport failures with a linear backoff.
func (s *CollyScraper) Scrape(ctx context.Context, src SourceConfig) (*goquery.Document, error) {
	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if attempt > 0 {
			s.Logger.Debug("retrying source",
				zap.String("source", src.ID),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * s.Backoff):
			}
		}

		doc, err := s.scrapeOnce(ctx, src)
		if err == nil {
			return doc, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("scrape %s after %d attempts: %w", src.ID, s.MaxRetries+1, lastErr)
}

func (s *CollyScraper) scrapeOnce(ctx context.Context, src SourceConfig) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := s.buildCollector(ctx, src)

	var (
		doc      *goquery.Document
		parseErr error
	)
	c.OnResponse(func(r *colly.Response) {
		d, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			parseErr = fmt.Errorf("parse html: %w", err)
			return
		}
		d.Url = r.Request.URL
		doc = d
	})

	if err := c.Visit(src.URL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", src.URL, err)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	if doc == nil {
		return nil, fmt.Errorf("no response received for %s", src.URL)
	}
	return doc, nil
}
