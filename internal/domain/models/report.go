package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stats summarises the Stock and SalesLog tables for the dashboard.
type Stats struct {
	TotalItems    int             `json:"total_items"`
	TotalValue    decimal.Decimal `json:"total_value"`
	LowStockItems int             `json:"low_stock_items"`
	TotalSales    int             `json:"total_sales"`
}

// InventorySnapshot represents the aggregated daily data to be stored in MongoDB.
type InventorySnapshot struct {
	Date          time.Time `bson:"date" json:"date"`
	TotalItems    int       `bson:"total_items" json:"total_items"`
	TotalUnits    int       `bson:"total_units" json:"total_units"`
	StockValue    string    `bson:"stock_value" json:"stock_value"`
	UnitsSold     int       `bson:"units_sold" json:"units_sold"`
	Revenue       string    `bson:"revenue" json:"revenue"`
	UnitsReceived int       `bson:"units_received" json:"units_received"`
	LowStock      []string  `bson:"low_stock" json:"low_stock"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
