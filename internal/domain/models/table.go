package models

import "strings"

// TableKind enumerates the three logical tables of the ledger.
type TableKind string

const (
	TableStock    TableKind = "stock"
	TableIncoming TableKind = "incoming"
	TableSales    TableKind = "sales"
	TableUnknown  TableKind = "unknown"
)

// Column headers written as the first row of each table.
var (
	StockHeader    = []string{"Item Name", "Quantity", "Purchase Price", "Selling Price"}
	IncomingHeader = []string{"Item Name", "Quantity", "Purchase Price", "Purchased By", "Date"}
	SalesHeader    = []string{"Item Name", "Quantity", "Selling Price", "Sold To", "Date"}
)

// ParseTableKind resolves the names an operator may type for a table. The
// historical sheet titles (sheet1..sheet3) are accepted alongside the
// logical names.
func ParseTableKind(value string) TableKind {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sheet1", "stock", "inventory":
		return TableStock
	case "sheet2", "incoming", "purchase", "purchases":
		return TableIncoming
	case "sheet3", "sales":
		return TableSales
	default:
		return TableUnknown
	}
}

// Header returns the column headings for the table.
func (k TableKind) Header() []string {
	switch k {
	case TableStock:
		return StockHeader
	case TableIncoming:
		return IncomingHeader
	case TableSales:
		return SalesHeader
	default:
		return nil
	}
}

// Table is a raw dump of a sheet: the first row as header and the rest as
// records, every cell rendered as text.
type Table struct {
	Name   string     `json:"name"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}
