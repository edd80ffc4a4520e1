package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/stockbook/internal/domain/models"
)

const dateLayout = "2006-01-02"

// Stock table columns, 1-based.
const (
	colName          = 1
	colQuantity      = 2
	colPurchasePrice = 3
	colSellingPrice  = 4
)

// ParseQuantity parses operator input for a quantity. Integral decimals
// such as "10.0" are accepted since spreadsheets may render them that way.
func ParseQuantity(value string) (int, error) {
	value = strings.TrimSpace(value)
	if n, err := strconv.Atoi(value); err == nil {
		return n, nil
	}

	d, err := decimal.NewFromString(value)
	if err != nil || !d.IsInteger() {
		return 0, fmt.Errorf("%w: %q is not a whole number", ErrInvalidValue, value)
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt)) || d.LessThan(decimal.NewFromInt(math.MinInt)) {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidValue, value)
	}
	return int(d.IntPart()), nil
}

// ParsePrice parses operator input for a price.
func ParsePrice(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, value)
	}
	return d, nil
}

func cell(row []string, col int) string {
	if col < 1 || col > len(row) {
		return ""
	}
	return strings.TrimSpace(row[col-1])
}

func optionalPrice(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	return ParsePrice(value)
}

func parseStockRow(row []string) (models.StockRow, error) {
	qty, err := ParseQuantity(cell(row, colQuantity))
	if err != nil {
		return models.StockRow{}, fmt.Errorf("%w: quantity: %v", ErrMalformedRow, err)
	}

	purchase, err := optionalPrice(cell(row, colPurchasePrice))
	if err != nil {
		return models.StockRow{}, fmt.Errorf("%w: purchase price: %v", ErrMalformedRow, err)
	}

	selling, err := optionalPrice(cell(row, colSellingPrice))
	if err != nil {
		return models.StockRow{}, fmt.Errorf("%w: selling price: %v", ErrMalformedRow, err)
	}

	return models.StockRow{
		Name:          cell(row, colName),
		Quantity:      qty,
		PurchasePrice: purchase,
		SellingPrice:  selling,
	}, nil
}

func parseIncomingRow(row []string, loc *time.Location) (models.IncomingEntry, error) {
	qty, err := ParseQuantity(cell(row, 2))
	if err != nil {
		return models.IncomingEntry{}, err
	}

	price, err := optionalPrice(cell(row, 3))
	if err != nil {
		return models.IncomingEntry{}, err
	}

	date, err := parseDate(cell(row, 5), loc)
	if err != nil {
		return models.IncomingEntry{}, err
	}

	return models.IncomingEntry{
		Name:          cell(row, 1),
		Quantity:      qty,
		PurchasePrice: price,
		PurchasedBy:   cell(row, 4),
		Date:          date,
	}, nil
}

func parseSalesRow(row []string, loc *time.Location) (models.SalesEntry, error) {
	qty, err := ParseQuantity(cell(row, 2))
	if err != nil {
		return models.SalesEntry{}, err
	}

	price, err := optionalPrice(cell(row, 3))
	if err != nil {
		return models.SalesEntry{}, err
	}

	date, err := parseDate(cell(row, 5), loc)
	if err != nil {
		return models.SalesEntry{}, err
	}

	return models.SalesEntry{
		Name:         cell(row, 1),
		QuantitySold: qty,
		SellingPrice: price,
		SoldTo:       cell(row, 4),
		Date:         date,
	}, nil
}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(value) > 10 {
		value = value[:10]
	}
	return time.ParseInLocation(dateLayout, value, loc)
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// numberCell passes a price to the store as a JSON number so it is never
// written as text.
func numberCell(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func toValues(cells []string) []interface{} {
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	return values
}
