package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no Stock row matches the item name.
	ErrNotFound = errors.New("item not found")
	// ErrInsufficientStock indicates a sale larger than the quantity on hand.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidValue indicates a quantity or price that could not be parsed.
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidArguments indicates a request that is missing or has out of range fields.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrUnknownTable indicates a table name that maps to none of the three sheets.
	ErrUnknownTable = errors.New("invalid sheet name")
	// ErrEmpty indicates a table without any rows.
	ErrEmpty = errors.New("sheet is empty")
	// ErrConflict indicates the target row changed between lookup and write.
	ErrConflict = errors.New("row changed concurrently")
	// ErrMalformedRow indicates a Stock row whose cells cannot be parsed.
	ErrMalformedRow = errors.New("malformed row")
)

// StockError carries the quantities of a rejected sale.
type StockError struct {
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("cannot sell %d %s, only %d in stock", e.Requested, e.Name, e.Available)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}
