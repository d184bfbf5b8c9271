package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsConfig holds settings for the Google Sheets sink
type SheetsConfig struct {
	CredentialsFile string
	SpreadsheetID   string
	Worksheet       string
	Timezone        *time.Location
}

// SheetsSink appends rows to a Google Sheets worksheet using a service
// account credentials file. One reading becomes one row of
// [timestamp, ph, ec, temperature_f].
type SheetsSink struct {
	service       *sheets.Service
	spreadsheetID string
	appendRange   string
	loc           *time.Location
	logger        zerolog.Logger
}

// NewSheetsSink creates the sink and verifies the credentials file can
// be loaded. No network call is made until the first append.
func NewSheetsSink(ctx context.Context, config SheetsConfig, logger zerolog.Logger) (*SheetsSink, error) {
	service, err := sheets.NewService(ctx,
		option.WithCredentialsFile(config.CredentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	worksheet := config.Worksheet
	if worksheet == "" {
		worksheet = "Sheet1"
	}
	loc := config.Timezone
	if loc == nil {
		loc = time.UTC
	}

	logger.Info().
		Str("spreadsheet_id", config.SpreadsheetID).
		Str("worksheet", worksheet).
		Msg("Sheets sink initialized")

	return &SheetsSink{
		service:       service,
		spreadsheetID: config.SpreadsheetID,
		appendRange:   worksheet + "!A:D",
		loc:           loc,
		logger:        logger,
	}, nil
}

// Name identifies the sink in logs and stats.
func (s *SheetsSink) Name() string { return "sheets" }

// Append writes one reading row to the worksheet.
func (s *SheetsSink) Append(ctx context.Context, row Row) error {
	cells := row.Strings(s.loc)
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}

	_, err := s.service.Spreadsheets.Values.
		Append(s.spreadsheetID, s.appendRange, &sheets.ValueRange{
			Values: [][]interface{}{values},
		}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append row: %w", err)
	}

	s.logger.Debug().Str("timestamp", cells[0]).Msg("Row appended to sheet")
	return nil
}

// Close releases nothing; the sheets service holds no connection state
// worth tearing down.
func (s *SheetsSink) Close() error { return nil }
