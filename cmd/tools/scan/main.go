package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/david/bid-monitor/internal/logging"
	"github.com/david/bid-monitor/internal/monitor"
	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"
)

func main() {
	sourceID := flag.String("source", "", "scan only this source ID (e.g., cleveland)")
	sourcesFile := flag.String("sources", "", "sources YAML file (default: embedded registry)")
	showBids := flag.Bool("bids", false, "print every bid found")
	delay := flag.Duration("delay", 2*time.Second, "pause between sources")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger, err := logging.New(*level)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	registry, err := monitor.LoadRegistry(*sourcesFile)
	if err != nil {
		log.Fatalf("failed to load sources: %v", err)
	}
	if *sourceID != "" {
		var picked []monitor.SourceConfig
		for _, s := range registry.Sources {
			if s.ID == *sourceID {
				picked = append(picked, s)
			}
		}
		if len(picked) == 0 {
			log.Fatalf("unknown source %q", *sourceID)
		}
		registry.Sources = picked
	}

	m := monitor.New(registry, monitor.NewCollyScraper(logger), logger, monitor.WithSourceDelay(*delay))

	result, err := m.Run(context.Background())
	if result != nil {
		printSources(result)
	}
	if err != nil {
		logger.Error("scan failed", zap.Error(err))
		os.Exit(1)
	}

	if *showBids {
		bids, _ := m.Snapshot()
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Type", "Source", "Bid Number", "Title"})
		for _, b := range bids {
			t.AppendRow(table.Row{b.Type, b.Source, b.BidNumber, b.Title})
		}
		t.AppendFooter(table.Row{"", "", "Total", len(bids)})
		t.Render()
	}
}

func printSources(result *monitor.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Scan " + result.RunID)
	t.AppendHeader(table.Row{"Source", "Found", "Error"})
	for _, s := range result.Sources {
		t.AppendRow(table.Row{s.Name, s.Found, s.Error})
	}
	t.AppendFooter(table.Row{
		"Unique " + result.FinishedAt.Sub(result.StartedAt).Round(time.Second).String(),
		result.Found,
		result.Duplicates,
	})
	t.Render()
}
