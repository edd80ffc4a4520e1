package console

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/mamadbah2/stockbook/internal/domain/models"
)

// renderTable prints a bordered grid with a line between every row.
func renderTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetRowLine(true)
	table.AppendBulk(rows)
	table.Render()
}

func stockCells(item models.StockRow) []string {
	return []string{
		item.Name,
		strconv.Itoa(item.Quantity),
		item.PurchasePrice.String(),
		item.SellingPrice.String(),
	}
}
