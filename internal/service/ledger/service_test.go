package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockbook/internal/config"
	"github.com/mamadbah2/stockbook/internal/domain/models"
	repo "github.com/mamadbah2/stockbook/internal/repository/sheets"
)

var testSheets = config.SheetsConfig{
	StockSheet:    "Stock",
	IncomingSheet: "Incoming",
	SalesSheet:    "Sales",
}

func newTestService(t *testing.T, store repo.Repository) *Service {
	t.Helper()

	svc := NewService(store, testSheets, time.Local, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 10, 30, 0, 0, time.Local) }
	return svc
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func addBolt(t *testing.T, svc *Service, qty int, purchase, selling string) models.StockRow {
	t.Helper()

	item, err := svc.Add(context.Background(), AddRequest{
		Name:          "Bolt",
		Quantity:      qty,
		PurchasePrice: price(purchase),
		SellingPrice:  price(selling),
		PurchasedBy:   "alice",
	})
	require.NoError(t, err)
	return item
}

func TestAddThenView(t *testing.T) {
	store := repo.NewMemoryRepository()
	svc := newTestService(t, store)
	ctx := context.Background()

	addBolt(t, svc, 10, "1.50", "2.25")

	item, err := svc.View(ctx, "bolt")
	require.NoError(t, err)

	assert.Equal(t, "Bolt", item.Name)
	assert.Equal(t, 10, item.Quantity)
	assert.True(t, item.PurchasePrice.Equal(price("1.5")), "purchase price %s", item.PurchasePrice)
	assert.True(t, item.SellingPrice.Equal(price("2.25")), "selling price %s", item.SellingPrice)

	stock, _ := store.ReadRows(ctx, "Stock")
	assert.Equal(t, [][]string{
		models.StockHeader,
		{"Bolt", "10", "1.5", "2.25"},
	}, stock)

	incoming, _ := store.ReadRows(ctx, "Incoming")
	assert.Equal(t, [][]string{
		models.IncomingHeader,
		{"Bolt", "10", "1.5", "alice", "2025-03-14"},
	}, incoming)
}

func TestAddExistingItemAccumulatesQuantity(t *testing.T) {
	store := repo.NewMemoryRepository()
	svc := newTestService(t, store)
	ctx := context.Background()

	addBolt(t, svc, 10, "1.00", "2.00")

	item, err := svc.Add(ctx, AddRequest{
		Name:          "  bolt ",
		Quantity:      5,
		PurchasePrice: price("1.20"),
		SellingPrice:  price("2.40"),
		PurchasedBy:   "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, 15, item.Quantity)

	viewed, err := svc.View(ctx, "BOLT")
	require.NoError(t, err)
	assert.Equal(t, "Bolt", viewed.Name, "stored spelling is kept")
	assert.Equal(t, 15, viewed.Quantity)
	assert.True(t, viewed.PurchasePrice.Equal(price("1.2")))
	assert.True(t, viewed.SellingPrice.Equal(price("2.4")))

	stock, _ := store.ReadRows(ctx, "Stock")
	assert.Len(t, stock, 2, "one header and one item row")

	incoming, err := svc.IncomingLog(ctx)
	require.NoError(t, err)
	require.Len(t, incoming, 2)
	assert.Equal(t, "bolt", incoming[1].Name)
	assert.Equal(t, "bob", incoming[1].PurchasedBy)
}

func TestAddRejectsInvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		req  AddRequest
	}{
		{"empty name", AddRequest{Name: "  ", Quantity: 1}},
		{"zero quantity", AddRequest{Name: "Nut", Quantity: 0}},
		{"negative quantity", AddRequest{Name: "Nut", Quantity: -3}},
		{"negative price", AddRequest{Name: "Nut", Quantity: 1, PurchasePrice: price("-1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repo.NewMemoryRepository()
			svc := newTestService(t, store)

			_, err := svc.Add(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidArguments)
			assert.Zero(t, store.Writes())
		})
	}
}

func TestSellMoreThanStockChangesNothing(t *testing.T) {
	store := repo.NewMemoryRepository()
	svc := newTestService(t, store)
	ctx := context.Background()

	addBolt(t, svc, 5, "1", "2")
	before := store.Writes()
	stockBefore, _ := store.ReadRows(ctx, "Stock")

	_, err := svc.Sell(ctx, "bolt", 6, "carol")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)

	assert.Equal(t, before, store.Writes())
	stockAfter, _ := store.ReadRows(ctx, "Stock")
	assert.Equal(t, stockBefore, stockAfter)
	sales, _ := store.ReadRows(ctx, "Sales")
	assert.Empty(t, sales)
}

func TestSellExactQuantityRemovesRow(t *testing.T) {
	store := repo.NewMemoryRepository()
	svc := newTestService(t, store)
	ctx := context.Background()

	addBolt(t, svc, 4, "1", "2.5")

	result, err := svc.Sell(ctx, "Bolt", 4, "dave")
	require.NoError(t, err)
	assert.True(t, result.Removed)
	assert.Zero(t, result.Remaining)

	stock, _ := store.ReadRows(ctx, "Stock")
	assert.Equal(t, [][]string{models.StockHeader}, stock)

	sales, _ := store.ReadRows(ctx, "Sales")
	assert.Equal(t, [][]string{
		models.SalesHeader,
		{"Bolt", "4", "2.5", "dave", "2025-03-14"},
	}, sales)

	_, err = svc.View(ctx, "Bolt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSellPartialQuantityDecrements(t *testing.T) {
	store := repo.NewMemoryRepository()
	svc := newTestService(t, store)
	ctx := context.Background()

	addBolt(t, svc, 10, "1", "3")

	result, err := svc.Sell(ctx, "BOLT", 3, "erin")
	require.NoError(t, err)
	assert.False(t, result.Removed)
	assert.Equal(t, 7, result.Remaining)
	assert.True(t, result.Entry.SellingPrice.Equal(price("3")))
	assert.True(t, result.Entry.Revenue().Equal(price("9")))

	stock, _ := store.ReadRows(ctx, "Stock")
	assert.Equal(t, []string{"Bolt", "7", "1", "3"}, stock[1])

	sales, err := svc.SalesLog(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, 3, sales[0].QuantitySold)
	assert.Equal(t, "erin", sales[0].SoldTo)
}

func TestSellUnknownItem(t *testing.T) {
	store := repo.NewMemoryRepository()
	svc := newTestService(t, store)

	_, err := svc.Sell(context.Background(), "ghost", 1, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, store.Writes())
}

func TestViewMissingItemWritesNothing(t *testing.T) {
	store := repo.NewMemoryRepository()
	store.Seed("Stock", [][]string{models.StockHeader, {"Nut", "3", "0.1", "0.2"}})
	svc := newTestService(t, store)

	_, err := svc.View(context.Background(), "Bolt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, store.Writes())
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		field    models.Field
		value    string
		expected []string
	}{
		{models.FieldQuantity, "42", []string{"Bolt", "42", "1", "2"}},
		{models.FieldPurchasePrice, " 1.75 ", []string{"Bolt", "10", "1.75", "2"}},
		{models.FieldSellingPrice, "3.10", []string{"Bolt", "10", "1", "3.1"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			store := repo.NewMemoryRepository()
			svc := newTestService(t, store)
			ctx := context.Background()

			addBolt(t, svc, 10, "1", "2")

			_, err := svc.Update(ctx, "bolt", tt.field, tt.value)
			require.NoError(t, err)

			stock, _ := store.ReadRows(ctx, "Stock")
			assert.Equal(t, tt.expected, stock[1])
		})
	}
}

func TestUpdateRejectsInvalidValues(t *testing.T) {
	store := repo.NewMemoryRepository()
	svc := newTestService(t, store)
	ctx := context.Background()

	addBolt(t, svc, 10, "1", "2")
	before := store.Writes()

	for _, tc := range []struct {
		field models.Field
		value string
	}{
		{models.FieldQuantity, "ten"},
		{models.FieldQuantity, "2.5"},
		{models.FieldQuantity, "-1"},
		{models.FieldSellingPrice, "abc"},
		{models.FieldPurchasePrice, "-0.5"},
	} {
		_, err := svc.Update(ctx, "Bolt", tc.field, tc.value)
		assert.ErrorIs(t, err, ErrInvalidValue, "%s=%q", tc.field, tc.value)
		assert.ErrorIs(t, ValidateValue(tc.field, tc.value), ErrInvalidValue)
	}

	_, err := svc.Update(ctx, "Bolt", models.FieldUnknown, "1")
	assert.ErrorIs(t, err, ErrInvalidArguments)

	_, err = svc.Update(ctx, "Washer", models.FieldQuantity, "1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, before, store.Writes())
}

func TestDump(t *testing.T) {
	store := repo.NewMemoryRepository()
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.Dump(ctx, "Sheet9")
	assert.ErrorIs(t, err, ErrUnknownTable)

	_, err = svc.Dump(ctx, "sheet3")
	assert.ErrorIs(t, err, ErrEmpty)

	addBolt(t, svc, 2, "1", "2")

	table, err := svc.Dump(ctx, " SHEET1 ")
	require.NoError(t, err)
	assert.Equal(t, "Stock", table.Name)
	assert.Equal(t, models.StockHeader, table.Header)
	assert.Equal(t, [][]string{{"Bolt", "2", "1", "2"}}, table.Rows)

	table, err = svc.Dump(ctx, "incoming")
	require.NoError(t, err)
	assert.Equal(t, "Incoming", table.Name)
	assert.Len(t, table.Rows, 1)
}

func TestDumpPadsShortRows(t *testing.T) {
	store := repo.NewMemoryRepository()
	store.Seed("Sales", [][]string{models.SalesHeader, {"Bolt", "1"}})
	svc := newTestService(t, store)

	table, err := svc.Dump(context.Background(), "sales")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bolt", "1", "", "", ""}, table.Rows[0])
}

func TestHistory(t *testing.T) {
	store := repo.NewMemoryRepository()
	svc := newTestService(t, store)
	ctx := context.Background()

	addBolt(t, svc, 10, "1", "2")
	addBolt(t, svc, 5, "1", "2")
	_, err := svc.Add(ctx, AddRequest{Name: "Nut", Quantity: 3, PurchasePrice: price("0.1"), SellingPrice: price("0.2")})
	require.NoError(t, err)
	_, err = svc.Sell(ctx, "bolt", 2, "frank")
	require.NoError(t, err)

	history, err := svc.History(ctx, "BOLT")
	require.NoError(t, err)
	assert.Equal(t, 13, history.Item.Quantity)
	assert.Equal(t, "In Stock", history.Status)
	assert.Len(t, history.Incoming, 2)
	assert.Len(t, history.Sales, 1)

	_, err = svc.History(ctx, "washer")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestItemsSkipsMalformedRows(t *testing.T) {
	store := repo.NewMemoryRepository()
	store.Seed("Stock", [][]string{
		models.StockHeader,
		{"Bolt", "10", "1", "2"},
		{},
		{"Broken", "many", "1", "2"},
		{"Nut", "3.0", "", "0.2"},
	})
	svc := newTestService(t, store)

	items, err := svc.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Nut", items[1].Name)
	assert.Equal(t, 3, items[1].Quantity)
	assert.True(t, items[1].PurchasePrice.IsZero())
}

func TestViewMalformedRow(t *testing.T) {
	store := repo.NewMemoryRepository()
	store.Seed("Stock", [][]string{models.StockHeader, {"Bolt", "lots", "1", "2"}})
	svc := newTestService(t, store)

	_, err := svc.View(context.Background(), "bolt")
	assert.ErrorIs(t, err, ErrMalformedRow)
}

// racingRepository changes the Stock sheet right before the ledger re-reads
// the matched row, as a second operator would.
type racingRepository struct {
	*repo.MemoryRepository
	race func()
}

func (r *racingRepository) ReadRow(ctx context.Context, sheet string, row int) ([]string, error) {
	if r.race != nil && row > 1 {
		r.race()
		r.race = nil
	}
	return r.MemoryRepository.ReadRow(ctx, sheet, row)
}

func TestSellDetectsConcurrentChange(t *testing.T) {
	store := &racingRepository{MemoryRepository: repo.NewMemoryRepository()}
	store.Seed("Stock", [][]string{models.StockHeader, {"Bolt", "10", "1", "2"}})
	store.Seed("Sales", [][]string{models.SalesHeader})
	svc := newTestService(t, store)

	store.race = func() {
		store.Seed("Stock", [][]string{models.StockHeader, {"Bolt", "4", "1", "2"}})
	}

	_, err := svc.Sell(context.Background(), "Bolt", 6, "gina")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Zero(t, store.Writes())

	stock, _ := store.ReadRows(context.Background(), "Stock")
	assert.Equal(t, "4", stock[1][1])
}

func TestParseQuantity(t *testing.T) {
	for input, expected := range map[string]int{"7": 7, " 12 ": 12, "3.0": 3, "-2": -2} {
		got, err := ParseQuantity(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, got, input)
	}

	for _, input := range []string{"", "x", "1.5", "1e30", "-1e30", "99999999999999999999"} {
		_, err := ParseQuantity(input)
		assert.ErrorIs(t, err, ErrInvalidValue, input)
	}
}

// recordingRepository keeps the values handed to the store before they are
// flattened to text.
type recordingRepository struct {
	*repo.MemoryRepository
	appended map[string][][]interface{}
}

func (r *recordingRepository) AppendRow(ctx context.Context, sheet string, values []interface{}) error {
	r.appended[sheet] = append(r.appended[sheet], values)
	return r.MemoryRepository.AppendRow(ctx, sheet, values)
}

func TestWritesTypedCells(t *testing.T) {
	store := &recordingRepository{MemoryRepository: repo.NewMemoryRepository(), appended: map[string][][]interface{}{}}
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.Add(ctx, AddRequest{Name: "007", Quantity: 5, PurchasePrice: price("1.50"), SellingPrice: price("2.25"), PurchasedBy: "0612"})
	require.NoError(t, err)
	_, err = svc.Sell(ctx, "007", 2, "3/4")
	require.NoError(t, err)

	stock := store.appended["Stock"]
	require.Len(t, stock, 2)
	assert.Equal(t, []interface{}{"007", 5, json.Number("1.5"), json.Number("2.25")}, stock[1])

	incoming := store.appended["Incoming"]
	require.Len(t, incoming, 2)
	assert.Equal(t, []interface{}{"007", 5, json.Number("1.5"), "0612", "2025-03-14"}, incoming[1])

	sales := store.appended["Sales"]
	require.Len(t, sales, 2)
	assert.Equal(t, []interface{}{"007", 2, json.Number("2.25"), "3/4", "2025-03-14"}, sales[1])

	item, err := svc.View(ctx, "007")
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
}

func TestLogDatesUseServiceLocation(t *testing.T) {
	conakry := time.FixedZone("GMT", 0)
	tokyo := time.FixedZone("JST", 9*3600)

	store := repo.NewMemoryRepository()
	store.Seed("Sales", [][]string{models.SalesHeader, {"Bolt", "1", "2", "", "2025-03-14"}})

	svc := NewService(store, testSheets, tokyo, zap.NewNop())
	sales, err := svc.SalesLog(context.Background())
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, tokyo, sales[0].Date.Location())

	// 20:00 in Conakry on the 14th is already the 15th in Tokyo.
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 20, 0, 0, 0, conakry).In(tokyo) }
	_, err = svc.Add(context.Background(), AddRequest{Name: "Nut", Quantity: 1})
	require.NoError(t, err)

	rows, err := store.ReadRows(context.Background(), "Incoming")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-15", rows[1][4])
}
