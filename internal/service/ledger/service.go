package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockbook/internal/config"
	"github.com/mamadbah2/stockbook/internal/domain/models"
	repo "github.com/mamadbah2/stockbook/internal/repository/sheets"
)

// AddRequest describes an incoming delivery.
type AddRequest struct {
	Name          string
	Quantity      int
	PurchasePrice decimal.Decimal
	SellingPrice  decimal.Decimal
	PurchasedBy   string
}

// SaleResult describes the effect of a successful sale.
type SaleResult struct {
	Entry     models.SalesEntry
	Remaining int
	Removed   bool
}

// Service keeps the Stock, IncomingLog and SalesLog sheets in step.
//
// Mutating operations are serialised within the process and re-read the
// target row before writing it; a row that moved or changed since the lookup
// aborts the write with ErrConflict.
type Service struct {
	repo     repo.Repository
	sheets   config.SheetsConfig
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	headers map[string]bool
}

// NewService constructs a ledger over the given store. Log dates are written
// and read in location; nil means time.Local.
func NewService(repository repo.Repository, sheets config.SheetsConfig, location *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.Local
	}
	return &Service{
		repo:     repository,
		sheets:   sheets,
		location: location,
		logger:   logger,
		now:      func() time.Time { return time.Now().In(location) },
		headers:  map[string]bool{},
	}
}

type stockMatch struct {
	row  int
	raw  []string
	item models.StockRow
}

// Add records a delivery: the Stock row is created or topped up and an
// IncomingLog entry is appended.
func (s *Service) Add(ctx context.Context, req AddRequest) (models.StockRow, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return models.StockRow{}, fmt.Errorf("%w: item name is required", ErrInvalidArguments)
	case req.Quantity <= 0:
		return models.StockRow{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidArguments)
	case req.PurchasePrice.IsNegative(), req.SellingPrice.IsNegative():
		return models.StockRow{}, fmt.Errorf("%w: prices must not be negative", ErrInvalidArguments)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureHeader(ctx, models.TableStock); err != nil {
		return models.StockRow{}, err
	}

	match, err := s.lookup(ctx, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return models.StockRow{}, err
	}

	var item models.StockRow
	if match != nil {
		if err := s.verify(ctx, match); err != nil {
			return models.StockRow{}, err
		}

		item = models.StockRow{
			Name:          match.item.Name,
			Quantity:      match.item.Quantity + req.Quantity,
			PurchasePrice: req.PurchasePrice,
			SellingPrice:  req.SellingPrice,
		}
		if err := s.repo.UpdateRow(ctx, s.sheets.StockSheet, match.row, stockValues(item)); err != nil {
			return models.StockRow{}, fmt.Errorf("update stock row: %w", err)
		}
	} else {
		item = models.StockRow{
			Name:          name,
			Quantity:      req.Quantity,
			PurchasePrice: req.PurchasePrice,
			SellingPrice:  req.SellingPrice,
		}
		if err := s.repo.AppendRow(ctx, s.sheets.StockSheet, stockValues(item)); err != nil {
			return models.StockRow{}, fmt.Errorf("append stock row: %w", err)
		}
	}

	if err := s.ensureHeader(ctx, models.TableIncoming); err != nil {
		return models.StockRow{}, err
	}

	incoming := []interface{}{
		name,
		req.Quantity,
		numberCell(req.PurchasePrice),
		strings.TrimSpace(req.PurchasedBy),
		s.now().Format(dateLayout),
	}
	if err := s.repo.AppendRow(ctx, s.sheets.IncomingSheet, incoming); err != nil {
		return models.StockRow{}, fmt.Errorf("append incoming entry: %w", err)
	}

	s.logger.Info("stock added",
		zap.String("item", item.Name),
		zap.Int("quantity", req.Quantity),
		zap.Int("on_hand", item.Quantity),
		zap.Bool("new_item", match == nil))

	return item, nil
}

// Sell records a sale at the item's current selling price. Selling the whole
// remaining quantity removes the Stock row.
func (s *Service) Sell(ctx context.Context, name string, quantity int, soldTo string) (SaleResult, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return SaleResult{}, fmt.Errorf("%w: item name is required", ErrInvalidArguments)
	case quantity <= 0:
		return SaleResult{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidArguments)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	match, err := s.lookup(ctx, name)
	if err != nil {
		return SaleResult{}, err
	}

	if quantity > match.item.Quantity {
		return SaleResult{}, &StockError{Name: match.item.Name, Requested: quantity, Available: match.item.Quantity}
	}

	if err := s.verify(ctx, match); err != nil {
		return SaleResult{}, err
	}

	if err := s.ensureHeader(ctx, models.TableSales); err != nil {
		return SaleResult{}, err
	}

	now := s.now()
	entry := models.SalesEntry{
		Name:         match.item.Name,
		QuantitySold: quantity,
		SellingPrice: match.item.SellingPrice,
		SoldTo:       strings.TrimSpace(soldTo),
		Date:         now,
	}

	sale := []interface{}{entry.Name, entry.QuantitySold, numberCell(entry.SellingPrice), entry.SoldTo, now.Format(dateLayout)}
	if err := s.repo.AppendRow(ctx, s.sheets.SalesSheet, sale); err != nil {
		return SaleResult{}, fmt.Errorf("append sales entry: %w", err)
	}

	result := SaleResult{Entry: entry, Remaining: match.item.Quantity - quantity}
	if result.Remaining == 0 {
		if err := s.repo.DeleteRow(ctx, s.sheets.StockSheet, match.row); err != nil {
			return SaleResult{}, fmt.Errorf("delete stock row: %w", err)
		}
		result.Removed = true
	} else {
		if err := s.repo.UpdateCell(ctx, s.sheets.StockSheet, match.row, colQuantity, result.Remaining); err != nil {
			return SaleResult{}, fmt.Errorf("update stock quantity: %w", err)
		}
	}

	s.logger.Info("stock sold",
		zap.String("item", entry.Name),
		zap.Int("quantity", quantity),
		zap.Int("remaining", result.Remaining),
		zap.String("sold_to", entry.SoldTo))

	return result, nil
}

// Update overwrites a single Stock cell. The value is parsed according to the
// field; ErrInvalidValue is returned when it cannot be.
func (s *Service) Update(ctx context.Context, name string, field models.Field, value string) (models.StockRow, error) {
	col, cellValue, err := fieldValue(field, value)
	if err != nil {
		return models.StockRow{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	match, err := s.lookup(ctx, name)
	if err != nil {
		return models.StockRow{}, err
	}

	if err := s.verify(ctx, match); err != nil {
		return models.StockRow{}, err
	}

	if err := s.repo.UpdateCell(ctx, s.sheets.StockSheet, match.row, col, cellValue); err != nil {
		return models.StockRow{}, fmt.Errorf("update %s: %w", field.Label(), err)
	}

	item := match.item
	switch field {
	case models.FieldQuantity:
		item.Quantity = cellValue.(int)
	case models.FieldPurchasePrice:
		item.PurchasePrice, _ = decimal.NewFromString(cellValue.(json.Number).String())
	case models.FieldSellingPrice:
		item.SellingPrice, _ = decimal.NewFromString(cellValue.(json.Number).String())
	}

	s.logger.Info("stock updated", zap.String("item", item.Name), zap.String("field", string(field)), zap.Any("value", cellValue))
	return item, nil
}

// ValidateValue reports whether value is acceptable for field without
// touching the store.
func ValidateValue(field models.Field, value string) error {
	_, _, err := fieldValue(field, value)
	return err
}

func fieldValue(field models.Field, value string) (int, interface{}, error) {
	switch field {
	case models.FieldQuantity:
		qty, err := ParseQuantity(value)
		if err != nil {
			return 0, nil, err
		}
		if qty < 0 {
			return 0, nil, fmt.Errorf("%w: quantity must not be negative", ErrInvalidValue)
		}
		return colQuantity, qty, nil
	case models.FieldPurchasePrice, models.FieldSellingPrice:
		price, err := ParsePrice(value)
		if err != nil {
			return 0, nil, err
		}
		if price.IsNegative() {
			return 0, nil, fmt.Errorf("%w: price must not be negative", ErrInvalidValue)
		}
		col := colPurchasePrice
		if field == models.FieldSellingPrice {
			col = colSellingPrice
		}
		return col, numberCell(price), nil
	default:
		return 0, nil, fmt.Errorf("%w: unknown field %q", ErrInvalidArguments, field)
	}
}

// View returns the Stock row whose name matches case-insensitively.
func (s *Service) View(ctx context.Context, name string) (models.StockRow, error) {
	match, err := s.lookup(ctx, name)
	if err != nil {
		return models.StockRow{}, err
	}
	return match.item, nil
}

// Dump returns the raw content of one of the three tables.
func (s *Service) Dump(ctx context.Context, table string) (models.Table, error) {
	kind := models.ParseTableKind(table)
	sheet, ok := s.sheetFor(kind)
	if !ok {
		return models.Table{}, fmt.Errorf("%w: %q", ErrUnknownTable, strings.TrimSpace(table))
	}

	rows, err := s.repo.ReadRows(ctx, sheet)
	if err != nil {
		return models.Table{}, err
	}

	if len(rows) == 0 {
		return models.Table{Name: sheet}, fmt.Errorf("%w: %s", ErrEmpty, sheet)
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	out := models.Table{Name: sheet, Header: pad(rows[0], width), Rows: make([][]string, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		out.Rows = append(out.Rows, pad(row, width))
	}
	return out, nil
}

// Items lists every parseable Stock row.
func (s *Service) Items(ctx context.Context) ([]models.StockRow, error) {
	rows, err := s.repo.ReadRows(ctx, s.sheets.StockSheet)
	if err != nil {
		return nil, err
	}

	items := []models.StockRow{}
	for i, row := range dataRows(rows) {
		if isBlank(row) {
			continue
		}
		item, err := parseStockRow(row)
		if err != nil {
			s.logger.Warn("skip stock row", zap.Int("row", i+2), zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// IncomingLog lists every parseable IncomingLog entry.
func (s *Service) IncomingLog(ctx context.Context) ([]models.IncomingEntry, error) {
	rows, err := s.repo.ReadRows(ctx, s.sheets.IncomingSheet)
	if err != nil {
		return nil, err
	}

	entries := []models.IncomingEntry{}
	for i, row := range dataRows(rows) {
		if isBlank(row) {
			continue
		}
		entry, err := parseIncomingRow(row, s.location)
		if err != nil {
			s.logger.Debug("skip incoming row", zap.Int("row", i+2), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SalesLog lists every parseable SalesLog entry.
func (s *Service) SalesLog(ctx context.Context) ([]models.SalesEntry, error) {
	rows, err := s.repo.ReadRows(ctx, s.sheets.SalesSheet)
	if err != nil {
		return nil, err
	}

	entries := []models.SalesEntry{}
	for i, row := range dataRows(rows) {
		if isBlank(row) {
			continue
		}
		entry, err := parseSalesRow(row, s.location)
		if err != nil {
			s.logger.Debug("skip sales row", zap.Int("row", i+2), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// History returns the Stock row with every incoming and sales entry logged
// under the same name.
func (s *Service) History(ctx context.Context, name string) (models.ItemHistory, error) {
	item, err := s.View(ctx, name)
	if err != nil {
		return models.ItemHistory{}, err
	}

	incoming, err := s.IncomingLog(ctx)
	if err != nil {
		return models.ItemHistory{}, fmt.Errorf("load incoming log: %w", err)
	}

	sales, err := s.SalesLog(ctx)
	if err != nil {
		return models.ItemHistory{}, fmt.Errorf("load sales log: %w", err)
	}

	history := models.ItemHistory{
		Item:     item,
		Status:   item.Status(),
		Incoming: []models.IncomingEntry{},
		Sales:    []models.SalesEntry{},
	}
	for _, e := range incoming {
		if sameName(e.Name, item.Name) {
			history.Incoming = append(history.Incoming, e)
		}
	}
	for _, e := range sales {
		if sameName(e.Name, item.Name) {
			history.Sales = append(history.Sales, e)
		}
	}
	return history, nil
}

func (s *Service) lookup(ctx context.Context, name string) (*stockMatch, error) {
	key := strings.TrimSpace(name)
	if key == "" {
		return nil, fmt.Errorf("%w: item name is required", ErrInvalidArguments)
	}

	rows, err := s.repo.ReadRows(ctx, s.sheets.StockSheet)
	if err != nil {
		return nil, fmt.Errorf("load stock: %w", err)
	}

	for i, row := range dataRows(rows) {
		if len(row) == 0 || !sameName(row[0], key) {
			continue
		}

		item, err := parseStockRow(row)
		if err != nil {
			return nil, fmt.Errorf("stock row %d: %w", i+2, err)
		}
		return &stockMatch{row: i + 2, raw: row, item: item}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// verify re-reads the matched row and fails when its name or quantity no
// longer agree with what the lookup saw.
func (s *Service) verify(ctx context.Context, match *stockMatch) error {
	current, err := s.repo.ReadRow(ctx, s.sheets.StockSheet, match.row)
	if err != nil {
		return fmt.Errorf("re-read stock row %d: %w", match.row, err)
	}

	if !sameName(cell(current, colName), match.item.Name) || cell(current, colQuantity) != cell(match.raw, colQuantity) {
		s.logger.Warn("stock row changed since lookup", zap.Int("row", match.row), zap.String("item", match.item.Name))
		return fmt.Errorf("%w: %s", ErrConflict, match.item.Name)
	}
	return nil
}

func (s *Service) ensureHeader(ctx context.Context, kind models.TableKind) error {
	sheet, ok := s.sheetFor(kind)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, kind)
	}
	if s.headers[sheet] {
		return nil
	}

	first, err := s.repo.ReadRow(ctx, sheet, 1)
	if err != nil {
		return fmt.Errorf("read header of %s: %w", sheet, err)
	}

	if isBlank(first) {
		if err := s.repo.AppendRow(ctx, sheet, toValues(kind.Header())); err != nil {
			return fmt.Errorf("write header of %s: %w", sheet, err)
		}
		s.logger.Info("sheet header written", zap.String("sheet", sheet))
	}

	s.headers[sheet] = true
	return nil
}

func (s *Service) sheetFor(kind models.TableKind) (string, bool) {
	switch kind {
	case models.TableStock:
		return s.sheets.StockSheet, true
	case models.TableIncoming:
		return s.sheets.IncomingSheet, true
	case models.TableSales:
		return s.sheets.SalesSheet, true
	default:
		return "", false
	}
}

func stockValues(item models.StockRow) []interface{} {
	return []interface{}{item.Name, item.Quantity, numberCell(item.PurchasePrice), numberCell(item.SellingPrice)}
}

// dataRows drops the header row.
func dataRows(rows [][]string) [][]string {
	if len(rows) < 2 {
		return nil
	}
	return rows[1:]
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func pad(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}
