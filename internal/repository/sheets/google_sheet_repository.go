package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/stockbook/internal/config"
)

// Repository defines the row-level operations the ledger needs from a
// tabular store. Rows and columns are 1-based, as in the spreadsheet UI; row
// 1 holds the header.
type Repository interface {
	ReadRows(ctx context.Context, sheet string) ([][]string, error)
	ReadRow(ctx context.Context, sheet string, row int) ([]string, error)
	AppendRow(ctx context.Context, sheet string, values []interface{}) error
	UpdateRow(ctx context.Context, sheet string, row int, values []interface{}) error
	UpdateCell(ctx context.Context, sheet string, row, col int, value interface{}) error
	DeleteRow(ctx context.Context, sheet string, row int) error
}

// GoogleSheetRepository implements the Repository interface using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return NewGoogleSheetRepositoryWithService(service, cfg.SpreadsheetID, logger), nil
}

// NewGoogleSheetRepositoryWithService wraps an already configured API client.
func NewGoogleSheetRepositoryWithService(service *sheetsapi.Service, spreadsheetID string, logger *zap.Logger) *GoogleSheetRepository {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        logger,
		sheetIDs:      map[string]int64{},
	}
}

// ReadRows fetches every populated row of the sheet, header included.
func (r *GoogleSheetRepository) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	if sheet == "" {
		return nil, fmt.Errorf("sheet must not be empty")
	}

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, quoteSheet(sheet)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		rows = append(rows, rowStrings(row))
	}

	r.logger.Debug("sheet read", zap.String("sheet", sheet), zap.Int("rows", len(rows)))
	return rows, nil
}

// ReadRow fetches a single row. An empty row yields a nil slice.
func (r *GoogleSheetRepository) ReadRow(ctx context.Context, sheet string, row int) ([]string, error) {
	if row < 1 {
		return nil, fmt.Errorf("row %d out of range", row)
	}

	sheetRange := fmt.Sprintf("%s!%d:%d", quoteSheet(sheet), row, row)
	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, sheetRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	if len(resp.Values) == 0 {
		return nil, nil
	}
	return rowStrings(resp.Values[0]), nil
}

// AppendRow appends the provided values after the last populated row.
func (r *GoogleSheetRepository) AppendRow(ctx context.Context, sheet string, values []interface{}) error {
	if sheet == "" {
		return fmt.Errorf("sheet must not be empty")
	}

	sheetRange := quoteSheet(sheet) + "!A1"
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{escapeValues(values)}}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("row appended to sheet", zap.String("sheet", sheet))
	return nil
}

// UpdateRow overwrites the row starting at column A.
func (r *GoogleSheetRepository) UpdateRow(ctx context.Context, sheet string, row int, values []interface{}) error {
	if row < 1 {
		return fmt.Errorf("row %d out of range", row)
	}

	return r.update(ctx, cellRef(sheet, row, 1), values)
}

// UpdateCell overwrites a single cell.
func (r *GoogleSheetRepository) UpdateCell(ctx context.Context, sheet string, row, col int, value interface{}) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("cell %d,%d out of range", row, col)
	}

	return r.update(ctx, cellRef(sheet, row, col), []interface{}{value})
}

func (r *GoogleSheetRepository) update(ctx context.Context, sheetRange string, values []interface{}) error {
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{escapeValues(values)}}

	_, err := r.service.Spreadsheets.Values.Update(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update range %s: %w", sheetRange, err)
	}

	r.logger.Debug("range updated", zap.String("range", sheetRange))
	return nil
}

// DeleteRow removes the row and shifts the rows below it up by one.
func (r *GoogleSheetRepository) DeleteRow(ctx context.Context, sheet string, row int) error {
	if row < 2 {
		return fmt.Errorf("row %d out of range", row)
	}

	sheetID, err := r.sheetID(ctx, sheet)
	if err != nil {
		return err
	}

	rq := sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{
				DeleteDimension: &sheetsapi.DeleteDimensionRequest{
					Range: &sheetsapi.DimensionRange{
						SheetId:    sheetID,
						Dimension:  "ROWS",
						StartIndex: int64(row - 1),
						EndIndex:   int64(row),
					},
				},
			},
		},
	}

	if _, err := r.service.Spreadsheets.BatchUpdate(r.spreadsheetID, &rq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d from %s: %w", row, sheet, err)
	}

	r.logger.Debug("row deleted", zap.String("sheet", sheet), zap.Int("row", row))
	return nil
}

// sheetID resolves the numeric grid id that structural requests need.
func (r *GoogleSheetRepository) sheetID(ctx context.Context, title string) (int64, error) {
	key := strings.ToLower(strings.TrimSpace(title))

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.sheetIDs[key]; ok {
		return id, nil
	}

	spreadsheet, err := r.service.Spreadsheets.Get(r.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("fetch spreadsheet: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties == nil {
			continue
		}
		r.sheetIDs[strings.ToLower(strings.TrimSpace(sheet.Properties.Title))] = sheet.Properties.SheetId
	}

	if id, ok := r.sheetIDs[key]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("unable to identify worksheet %q", title)
}
