package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockbook/internal/domain/models"
	"github.com/mamadbah2/stockbook/internal/service/ledger"
)

// Ledger is the subset of the ledger service driven by the menu.
type Ledger interface {
	Add(ctx context.Context, req ledger.AddRequest) (models.StockRow, error)
	Sell(ctx context.Context, name string, quantity int, soldTo string) (ledger.SaleResult, error)
	Update(ctx context.Context, name string, field models.Field, value string) (models.StockRow, error)
	View(ctx context.Context, name string) (models.StockRow, error)
	Dump(ctx context.Context, table string) (models.Table, error)
}

// Console runs the numbered inventory menu over a line based input.
type Console struct {
	ledger Ledger
	in     *bufio.Scanner
	out    io.Writer
	logger *zap.Logger
}

// New wires a console reading operator input from in and printing to out.
func New(l Ledger, in io.Reader, out io.Writer, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{
		ledger: l,
		in:     bufio.NewScanner(in),
		out:    out,
		logger: logger,
	}
}

const menu = `
===== Inventory Manager =====
1. Add Item
2. Delete Item (Sell)
3. Update Item
4. View Item
5. View Sheet (Sheet1/Sheet2/Sheet3)
6. Exit`

// Run loops on the menu until the operator exits, the input ends or ctx is
// cancelled. Operation failures are printed and the loop continues.
func (c *Console) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.println(menu)
		choice, err := c.prompt("Select an option (1-6): ")
		if err != nil {
			return c.finish(err)
		}

		switch choice {
		case "1":
			err = c.addItem(ctx)
		case "2":
			err = c.sellItem(ctx)
		case "3":
			err = c.updateItem(ctx)
		case "4":
			err = c.viewItem(ctx)
		case "5":
			err = c.viewSheet(ctx)
		case "6":
			c.println("Exiting. Goodbye!")
			return nil
		default:
			c.println("Invalid choice. Try again.")
		}

		if err != nil {
			return c.finish(err)
		}
	}
}

func (c *Console) finish(err error) error {
	if errors.Is(err, io.EOF) {
		c.println("")
		return nil
	}
	return err
}

func (c *Console) addItem(ctx context.Context) error {
	name, err := c.prompt("Item Name: ")
	if err != nil {
		return err
	}
	quantity, err := c.promptInt("Quantity: ")
	if err != nil {
		return err
	}
	purchase, err := c.promptPrice("Purchase Price: ")
	if err != nil {
		return err
	}
	purchasedBy, err := c.prompt("Purchased By: ")
	if err != nil {
		return err
	}
	selling, err := c.promptPrice("Selling Price: ")
	if err != nil {
		return err
	}

	_, err = c.ledger.Add(ctx, ledger.AddRequest{
		Name:          name,
		Quantity:      quantity,
		PurchasePrice: purchase,
		SellingPrice:  selling,
		PurchasedBy:   purchasedBy,
	})
	if err != nil {
		c.report("add item", err)
		return nil
	}

	c.println("\nItem added/updated in Inventory and logged in Incoming tab.")
	return nil
}

func (c *Console) sellItem(ctx context.Context) error {
	name, err := c.prompt("Item Name to sell/delete: ")
	if err != nil {
		return err
	}
	quantity, err := c.promptInt("Quantity to sell: ")
	if err != nil {
		return err
	}
	soldTo, err := c.prompt("Sold To: ")
	if err != nil {
		return err
	}

	result, err := c.ledger.Sell(ctx, name, quantity, soldTo)
	if err != nil {
		var stockErr *ledger.StockError
		if errors.As(err, &stockErr) {
			c.printf("Cannot sell %d. Only %d in stock.\n", stockErr.Requested, stockErr.Available)
			return nil
		}
		c.report("sell item", err)
		return nil
	}

	if result.Removed {
		c.println("Item sold completely and removed from inventory.")
	} else {
		c.printf("Sold %d. Remaining: %d\n", quantity, result.Remaining)
	}
	return nil
}

func (c *Console) updateItem(ctx context.Context) error {
	name, err := c.prompt("Enter Item Name to update: ")
	if err != nil {
		return err
	}

	item, err := c.ledger.View(ctx, name)
	if err != nil {
		c.report("view item", err)
		return nil
	}

	c.println("\nCurrent Data:")
	renderTable(c.out, models.StockHeader, [][]string{stockCells(item)})

	c.println("\nWhat would you like to update?")
	c.println("1. Quantity")
	c.println("2. Purchase Price")
	c.println("3. Selling Price")
	choice, err := c.prompt("Enter choice (1/2/3): ")
	if err != nil {
		return err
	}

	var field models.Field
	switch choice {
	case "1":
		field = models.FieldQuantity
	case "2":
		field = models.FieldPurchasePrice
	case "3":
		field = models.FieldSellingPrice
	default:
		c.println("Invalid choice.")
		return nil
	}

	for {
		value, err := c.prompt(fmt.Sprintf("Enter new %s: ", field.Label()))
		if err != nil {
			return err
		}

		if err := ledger.ValidateValue(field, value); err != nil {
			c.println("Please enter a valid number.")
			continue
		}

		if _, err := c.ledger.Update(ctx, item.Name, field, value); err != nil {
			c.report("update item", err)
			return nil
		}

		c.printf("%s updated.\n", field.Label())
		return nil
	}
}

func (c *Console) viewItem(ctx context.Context) error {
	name, err := c.prompt("Enter item name to view: ")
	if err != nil {
		return err
	}

	item, err := c.ledger.View(ctx, name)
	if err != nil {
		c.report("view item", err)
		return nil
	}

	c.println("\nItem details:")
	renderTable(c.out, models.StockHeader, [][]string{stockCells(item)})
	return nil
}

func (c *Console) viewSheet(ctx context.Context) error {
	name, err := c.prompt("Enter sheet name (Sheet1/Sheet2/Sheet3): ")
	if err != nil {
		return err
	}

	table, err := c.ledger.Dump(ctx, name)
	switch {
	case errors.Is(err, ledger.ErrEmpty):
		c.printf("%s is empty.\n", name)
		return nil
	case err != nil:
		c.report("view sheet", err)
		return nil
	}

	c.printf("\nSheet: %s\n", table.Name)
	renderTable(c.out, table.Header, table.Rows)
	return nil
}

// report prints the operator facing message for a failed operation.
func (c *Console) report(op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		c.println("Item not found.")
	case errors.Is(err, ledger.ErrUnknownTable):
		c.println("Invalid sheet name.")
	case errors.Is(err, ledger.ErrInvalidArguments):
		c.printf("Invalid input: %v\n", err)
	case errors.Is(err, ledger.ErrConflict):
		c.println("The item was changed by someone else. Please try again.")
	default:
		c.logger.Error("operation failed", zap.String("op", op), zap.Error(err))
		c.printf("Error: %v\n", err)
	}
}

func (c *Console) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func (c *Console) promptInt(label string) (int, error) {
	for {
		value, err := c.prompt(label)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(value)
		if err == nil {
			return n, nil
		}
		c.println("Please enter a valid number.")
	}
}

func (c *Console) promptPrice(label string) (decimal.Decimal, error) {
	for {
		value, err := c.prompt(label)
		if err != nil {
			return decimal.Zero, err
		}
		d, err := ledger.ParsePrice(value)
		if err == nil {
			return d, nil
		}
		c.println("Please enter a valid number.")
	}
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}
