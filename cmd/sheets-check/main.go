// sheets-check appends a marker row to the configured spreadsheet and
// exits. Run it once after setting up the service account to verify
// the credentials and sharing before starting the monitor.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/hydro-monitor/internal/config"
	"github.com/afroash/hydro-monitor/internal/sink"
)

func main() {
	configPath := flag.String("config", "configs/monitor.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.Sheets.Enabled {
		log.Fatal("Sheets mirroring is not enabled in the config")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Failed to resolve timezone: %v", err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sheetsSink, err := sink.NewSheetsSink(ctx, sink.SheetsConfig{
		CredentialsFile: cfg.Sheets.CredentialsFile,
		SpreadsheetID:   cfg.Sheets.SpreadsheetID,
		Worksheet:       cfg.Sheets.Worksheet,
		Timezone:        loc,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create sheets sink: %v", err)
	}

	// Recognizable throwaway values, safe to delete from the sheet.
	ph, ec, temp := 0.0, 0.0, 0.0
	row := sink.Row{
		Timestamp:    time.Now().UTC(),
		PH:           &ph,
		EC:           &ec,
		TemperatureF: &temp,
	}

	if err := sheetsSink.Append(ctx, row); err != nil {
		log.Fatalf("Append failed: %v", err)
	}

	logger.Info().
		Str("spreadsheet_id", cfg.Sheets.SpreadsheetID).
		Str("worksheet", cfg.Sheets.Worksheet).
		Msg("Test row appended, credentials look good")
}
