package reporting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockbook/internal/domain/models"
)

const dateLayout = "2006-01-02"

// Ledger is the read side of the ledger service used for reporting.
type Ledger interface {
	Items(ctx context.Context) ([]models.StockRow, error)
	IncomingLog(ctx context.Context) ([]models.IncomingEntry, error)
	SalesLog(ctx context.Context) ([]models.SalesEntry, error)
}

// Service exposes dashboard figures and the daily stock report.
type Service struct {
	ledger    Ledger
	threshold int
	logger    *zap.Logger
}

// NewService wires a new reporting service instance. Items with a quantity
// below threshold count as low stock.
func NewService(ledger Ledger, threshold int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ledger: ledger, threshold: threshold, logger: logger}
}

// Stats aggregates the Stock table and counts sales entries.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	items, err := s.ledger.Items(ctx)
	if err != nil {
		return models.Stats{}, fmt.Errorf("load stock: %w", err)
	}

	sales, err := s.ledger.SalesLog(ctx)
	if err != nil {
		return models.Stats{}, fmt.Errorf("load sales: %w", err)
	}

	stats := models.Stats{
		TotalItems: len(items),
		TotalValue: stockValue(items),
		TotalSales: len(sales),
	}
	for _, item := range items {
		if item.Quantity < s.threshold {
			stats.LowStockItems++
		}
	}
	stats.TotalValue = stats.TotalValue.Round(2)
	return stats, nil
}

// LowStock lists items under the threshold, lowest quantity first.
func (s *Service) LowStock(ctx context.Context) ([]models.StockRow, error) {
	items, err := s.ledger.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stock: %w", err)
	}
	return s.lowStock(items), nil
}

func (s *Service) lowStock(items []models.StockRow) []models.StockRow {
	low := []models.StockRow{}
	for _, item := range items {
		if item.Quantity < s.threshold {
			low = append(low, item)
		}
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].Quantity < low[j].Quantity })
	return low
}

// GenerateDailyReport builds the snapshot for day and its text rendering.
func (s *Service) GenerateDailyReport(ctx context.Context, day time.Time) (models.InventorySnapshot, string, error) {
	items, err := s.ledger.Items(ctx)
	if err != nil {
		return models.InventorySnapshot{}, "", fmt.Errorf("load stock: %w", err)
	}

	incoming, err := s.ledger.IncomingLog(ctx)
	if err != nil {
		return models.InventorySnapshot{}, "", fmt.Errorf("load incoming: %w", err)
	}

	sales, err := s.ledger.SalesLog(ctx)
	if err != nil {
		return models.InventorySnapshot{}, "", fmt.Errorf("load sales: %w", err)
	}

	snapshot := models.InventorySnapshot{
		Date:       time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()),
		TotalItems: len(items),
		StockValue: stockValue(items).StringFixed(2),
		LowStock:   []string{},
		CreatedAt:  day,
	}

	for _, item := range items {
		snapshot.TotalUnits += item.Quantity
	}

	revenue := decimal.Zero
	for _, sale := range sales {
		if !sameDay(sale.Date, day) {
			continue
		}
		snapshot.UnitsSold += sale.QuantitySold
		revenue = revenue.Add(sale.Revenue())
	}
	snapshot.Revenue = revenue.StringFixed(2)

	for _, entry := range incoming {
		if sameDay(entry.Date, day) {
			snapshot.UnitsReceived += entry.Quantity
		}
	}

	for _, item := range s.lowStock(items) {
		snapshot.LowStock = append(snapshot.LowStock, fmt.Sprintf("%s (%d)", item.Name, item.Quantity))
	}

	s.logger.Debug("daily report generated",
		zap.Int("items", snapshot.TotalItems),
		zap.Int("units_sold", snapshot.UnitsSold),
		zap.Int("low_stock", len(snapshot.LowStock)))

	return snapshot, s.format(snapshot), nil
}

func (s *Service) format(snapshot models.InventorySnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Inventory report %s\n", snapshot.Date.Format(dateLayout))
	fmt.Fprintf(&b, "Items: %d (%d units), stock value %s\n", snapshot.TotalItems, snapshot.TotalUnits, snapshot.StockValue)

	if snapshot.UnitsSold == 0 {
		b.WriteString("Sold today: nothing yet\n")
	} else {
		fmt.Fprintf(&b, "Sold today: %d units for %s\n", snapshot.UnitsSold, snapshot.Revenue)
	}

	fmt.Fprintf(&b, "Received today: %d units\n", snapshot.UnitsReceived)

	if len(snapshot.LowStock) == 0 {
		fmt.Fprintf(&b, "Low stock (<%d): none", s.threshold)
	} else {
		fmt.Fprintf(&b, "Low stock (<%d): %s", s.threshold, strings.Join(snapshot.LowStock, ", "))
	}

	return b.String()
}

func stockValue(items []models.StockRow) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.SellingPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
