package sheets

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ColumnName converts a 1-based column index to its A1 letters (1 → A,
// 27 → AA).
func ColumnName(col int) string {
	if col < 1 {
		return ""
	}

	var name []byte
	for col > 0 {
		col--
		name = append([]byte{byte('A' + col%26)}, name...)
		col /= 26
	}
	return string(name)
}

func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func cellRef(sheet string, row, col int) string {
	return fmt.Sprintf("%s!%s%d", quoteSheet(sheet), ColumnName(col), row)
}

func rowStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = cellString(v)
	}
	return out
}

func cellString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// escapeValues marks every string as literal text so USER_ENTERED input
// never turns it into a number, a date or a formula ("007", "3/4", "=A1").
// Sheets drops the leading apostrophe on storage. Numbers, including
// json.Number, are sent as they are.
func escapeValues(values []interface{}) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out[i] = "'" + s
			continue
		}
		out[i] = v
	}
	return out
}
