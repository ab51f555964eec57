package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/quotewright/internal/common"
)

// SheetsConfig holds the configuration of the Google Sheets writer.
type SheetsConfig struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	TimeZone           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultSheetsConfig returns a config with defaults and no credentials.
func DefaultSheetsConfig() SheetsConfig {
	return SheetsConfig{
		SpreadsheetName:  "Quotes",
		EnableFormatting: true,
		TimeZone:         "America/New_York",
		BatchSize:        500,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// Validate checks that exactly one authentication method is configured.
func (c *SheetsConfig) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != ""

	switch {
	case !hasOAuth && !hasServiceAccount:
		return fmt.Errorf("%w: no sheets authentication method configured", common.ErrMissingConfig)
	case hasOAuth && hasServiceAccount:
		return fmt.Errorf("%w: use either OAuth2 or a service account for sheets, not both", common.ErrInvalidConfig)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: sheets batch size must be positive", common.ErrInvalidConfig)
	case c.RetryAttempts < 0:
		return fmt.Errorf("%w: sheets retry attempts cannot be negative", common.ErrInvalidConfig)
	case c.RetryDelay < 0:
		return fmt.Errorf("%w: sheets retry delay cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}

// SheetsWriter writes rendered quotes to a Google spreadsheet, one tab per
// quote.
type SheetsWriter struct {
	service *sheets.Service
	logger  *slog.Logger
	config  SheetsConfig
}

// NewSheetsWriter authenticates and creates a writer.
func NewSheetsWriter(ctx context.Context, config SheetsConfig, logger *slog.Logger) (*SheetsWriter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ts, err := tokenSource(ctx, config)
	if err != nil {
		return nil, err
	}
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return NewSheetsWriterWithService(srv, config, logger), nil
}

// NewSheetsWriterWithService wraps an existing sheets service.
func NewSheetsWriterWithService(srv *sheets.Service, config SheetsConfig, logger *slog.Logger) *SheetsWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSheetsConfig().BatchSize
	}
	return &SheetsWriter{service: srv, logger: logger, config: config}
}

func tokenSource(ctx context.Context, config SheetsConfig) (oauth2.TokenSource, error) {
	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		return jwtConfig.TokenSource(ctx), nil
	}

	oauthConfig := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
	return oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: config.RefreshToken, TokenType: "Bearer"}), nil
}

// Write replaces the quote's tab with the sheet and returns the spreadsheet id.
func (w *SheetsWriter) Write(ctx context.Context, s Sheet) (string, error) {
	tab := sheetName(s.Title)
	w.logger.Info("Exporting quote to sheets", "tab", tab, "rows", len(s.Rows))

	retryOpts := common.RetryOptions{
		Name:         "sheets export",
		Logger:       w.logger,
		MaxAttempts:  max(w.config.RetryAttempts, 1),
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	var spreadsheetID string
	var sheetID int64
	err := common.WithRetry(ctx, func() error {
		var err error
		spreadsheetID, sheetID, err = w.prepareTab(ctx, tab)
		return err
	}, retryOpts)
	if err != nil {
		return "", fmt.Errorf("failed to prepare spreadsheet: %w", err)
	}

	values := make([][]any, len(s.Rows))
	for i, row := range s.Rows {
		values[i] = row.Cells
		if values[i] == nil {
			values[i] = []any{}
		}
	}

	err = common.WithRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, tab, values)
	}, retryOpts)
	if err != nil {
		return "", fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, sheetID, s)
		}, retryOpts)
		if err != nil {
			w.logger.Warn("Failed to apply sheet formatting", "error", err)
		}
	}

	w.logger.Info("Quote export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))
	return spreadsheetID, nil
}

// prepareTab finds or creates the spreadsheet and an empty tab named tab.
func (w *SheetsWriter) prepareTab(ctx context.Context, tab string) (string, int64, error) {
	if w.config.SpreadsheetID == "" {
		created, err := w.service.Spreadsheets.Create(&sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{
				Title:    w.config.SpreadsheetName,
				TimeZone: w.config.TimeZone,
			},
			Sheets: []*sheets.Sheet{{Properties: &sheets.SheetProperties{Title: tab}}},
		}).Context(ctx).Do()
		if err != nil {
			return "", 0, fmt.Errorf("unable to create spreadsheet: %w", err)
		}
		w.config.SpreadsheetID = created.SpreadsheetId
		w.logger.Info("Created spreadsheet", "id", created.SpreadsheetId, "url", created.SpreadsheetUrl)
		if len(created.Sheets) > 0 && created.Sheets[0].Properties != nil {
			return created.SpreadsheetId, created.Sheets[0].Properties.SheetId, nil
		}
		return created.SpreadsheetId, 0, nil
	}

	id := w.config.SpreadsheetID
	existing, err := w.service.Spreadsheets.Get(id).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("unable to access spreadsheet %s: %w", id, err)
	}
	for _, sh := range existing.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			if _, err := w.service.Spreadsheets.Values.Clear(id, quoteRange(tab), &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
				return "", 0, fmt.Errorf("unable to clear tab %s: %w", tab, err)
			}
			return id, sh.Properties.SheetId, nil
		}
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(id, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: tab}}}},
	}).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("unable to add tab %s: %w", tab, err)
	}
	for _, r := range resp.Replies {
		if r.AddSheet != nil && r.AddSheet.Properties != nil {
			return id, r.AddSheet.Properties.SheetId, nil
		}
	}
	return "", 0, common.Permanent(errors.New("add sheet reply carried no sheet"))
}

func (w *SheetsWriter) writeData(ctx context.Context, spreadsheetID, tab string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))
		batch := values[i:end]

		rangeStr := fmt.Sprintf("%s!A%d", quoteName(tab), i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, &sheets.ValueRange{Values: batch}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}
		w.logger.Debug("Wrote batch", "start_row", i+1, "rows", len(batch))
	}
	return nil
}

func (w *SheetsWriter) applyFormatting(ctx context.Context, spreadsheetID string, sheetID int64, s Sheet) error {
	bold := func(row int, endCol int64) *sheets.Request {
		return &sheets.Request{RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    int64(row),
				EndRowIndex:      int64(row + 1),
				StartColumnIndex: 0,
				EndColumnIndex:   endCol,
			},
			Cell:   &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true}}},
			Fields: "userEnteredFormat.textFormat.bold",
		}}
	}

	cols := int64(len(s.Columns))
	var requests []*sheets.Request
	for i, row := range s.Rows {
		switch row.Kind {
		case RowTitle, RowGroup:
			requests = append(requests, bold(i, 1))
		case RowHeader, RowSubtotal, RowTotal:
			requests = append(requests, bold(i, cols))
		}
	}
	for i, c := range s.Columns {
		if !c.Money {
			continue
		}
		requests = append(requests, &sheets.Request{RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    3,
				EndRowIndex:      int64(len(s.Rows)),
				StartColumnIndex: int64(i),
				EndColumnIndex:   int64(i + 1),
			},
			Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
				NumberFormat: &sheets.NumberFormat{Type: "CURRENCY", Pattern: currencyFmt},
			}},
			Fields: "userEnteredFormat.numberFormat",
		}})
	}
	requests = append(requests,
		&sheets.Request{AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
			Dimensions: &sheets.DimensionRange{SheetId: sheetID, Dimension: "COLUMNS", StartIndex: 0, EndIndex: cols},
		}},
		&sheets.Request{UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
			Properties: &sheets.SheetProperties{SheetId: sheetID, GridProperties: &sheets.GridProperties{FrozenRowCount: 3}},
			Fields:     "gridProperties.frozenRowCount",
		}},
	)

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	return err
}

func quoteName(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

func quoteRange(tab string) string {
	return quoteName(tab) + "!A:Z"
}
