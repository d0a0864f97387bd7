package types

import (
	"database/sql/driver"
	"fmt"
)

// LineItem is one ordered service or good.
type LineItem struct {
	Title string  `json:"title"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
}

// LineItems is stored as a JSON array.
type LineItems []LineItem

// Value implements driver.Valuer.
func (items LineItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	return jsonValue([]LineItem(items))
}

// Scan implements sql.Scanner.
func (items *LineItems) Scan(src any) error {
	if src == nil {
		*items = LineItems{}
		return nil
	}
	decoded := []LineItem{}
	if err := jsonScan(src, &decoded); err != nil {
		return fmt.Errorf("line items: %w", err)
	}
	*items = decoded
	return nil
}
