package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StockRow is one line of the Stock table. Name is matched case-insensitively.
type StockRow struct {
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
}

// Status mirrors the label shown for an item on the dashboard.
func (r StockRow) Status() string {
	if r.Quantity > 0 {
		return "In Stock"
	}
	return "Out of Stock"
}

// IncomingEntry is an append-only purchase record.
type IncomingEntry struct {
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	PurchasedBy   string          `json:"purchased_by"`
	Date          time.Time       `json:"date"`
}

// SalesEntry is an append-only sale record.
type SalesEntry struct {
	Name         string          `json:"name"`
	QuantitySold int             `json:"quantity_sold"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	SoldTo       string          `json:"sold_to"`
	Date         time.Time       `json:"date"`
}

// Revenue is quantity times unit price.
func (e SalesEntry) Revenue() decimal.Decimal {
	return e.SellingPrice.Mul(decimal.NewFromInt(int64(e.QuantitySold)))
}

// ItemHistory groups a stock row with every log entry recorded for it.
type ItemHistory struct {
	Item     StockRow        `json:"item"`
	Status   string          `json:"status"`
	Incoming []IncomingEntry `json:"incoming"`
	Sales    []SalesEntry    `json:"sales"`
}

// Field identifies an updatable Stock column.
type Field string

const (
	FieldQuantity      Field = "quantity"
	FieldPurchasePrice Field = "purchase_price"
	FieldSellingPrice  Field = "selling_price"
	FieldUnknown       Field = "unknown"
)

// ParseField maps user supplied names ("quantity", "Purchase Price",
// "sellingPrice", "1".."3") onto a Field.
func ParseField(value string) Field {
	normalized := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(value)))

	switch normalized {
	case "1", "quantity", "qty":
		return FieldQuantity
	case "2", "purchaseprice", "purchase":
		return FieldPurchasePrice
	case "3", "sellingprice", "selling":
		return FieldSellingPrice
	default:
		return FieldUnknown
	}
}

// Label is the column heading for the field.
func (f Field) Label() string {
	switch f {
	case FieldQuantity:
		return "Quantity"
	case FieldPurchasePrice:
		return "Purchase Price"
	case FieldSellingPrice:
		return "Selling Price"
	default:
		return string(f)
	}
}
