package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/david/bid-monitor/internal/bidapi"
	"github.com/david/bid-monitor/internal/board"
	"github.com/david/bid-monitor/internal/config"
	"github.com/david/bid-monitor/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
)

func main() {
	cfg, err := config.Load(".", "")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	backend := flag.String("backend", cfg.BackendURL, "monitor API base URL")
	search := flag.String("q", "", "search term")
	typeFilter := flag.String("type", board.TypeAll, "bid type (all, Municipal, County, State)")
	outDir := flag.String("out", ".", "directory to write the CSV into")
	refresh := flag.Bool("refresh", false, "ask the monitor to rescan before exporting")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client := bidapi.NewClient(*backend, 5*time.Minute)
	if *refresh {
		resp, err := client.Refresh(ctx)
		if err != nil {
			log.Fatalf("refresh failed: %v", err)
		}
		log.Printf("refresh %s: %s", resp.RunID, resp.Message)
	}

	ctrl := board.NewController(client, nil)
	if err := ctrl.Load(ctx); err != nil {
		log.Fatalf("failed to fetch bids: %v", err)
	}

	view := ctrl.ApplyFilter(*search, *typeFilter)
	export, err := ctrl.Export(view)
	if err != nil {
		log.Fatalf("export: %v", err)
	}

	path := filepath.Join(*outDir, export.Filename)
	if err := os.WriteFile(path, export.Content, 0o644); err != nil {
		log.Fatalf("write %s: %v", path, err)
	}

	exported := models.CountByType(view.Bids)
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Type", "Exported", "Monitor"})

	stats, err := client.Statistics(ctx)
	if err != nil {
		log.Printf("statistics unavailable: %v", err)
		stats = &models.StatisticsResponse{}
	}
	t.AppendRow(table.Row{models.TypeMunicipal, exported.Municipal, stats.Statistics.Municipal})
	t.AppendRow(table.Row{models.TypeCounty, exported.County, stats.Statistics.County})
	t.AppendRow(table.Row{models.TypeState, exported.State, stats.Statistics.State})
	t.AppendFooter(table.Row{"Total", exported.Total, stats.Statistics.Total})
	t.Render()

	if stats.LastUpdate != nil && !stats.LastUpdate.IsZero() {
		log.Printf("monitor last updated %s", board.FormatTimestamp(stats.LastUpdate.Time))
	}
	log.Printf("wrote %s", path)
}
