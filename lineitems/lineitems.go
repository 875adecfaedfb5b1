// Package lineitems encodes invoice line items into the text blob stored in the
// invoices.items column and computes invoice totals.
package lineitems

import (
	"encoding/json"
	"fmt"

	"invoice-backend/models"

	"github.com/shopspring/decimal"
)

// CorruptDataError reports an items blob that could not be decoded.
type CorruptDataError struct {
	Err error
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("corrupt line items: %v", e.Err)
}

func (e *CorruptDataError) Unwrap() error {
	return e.Err
}

// Encode serializes items as a JSON array. A nil slice encodes as "[]".
func Encode(items []models.LineItem) (string, error) {
	if items == nil {
		items = []models.LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode line items: %w", err)
	}
	return string(b), nil
}

// Decode is the inverse of Encode.
func Decode(text string) ([]models.LineItem, error) {
	var items []models.LineItem
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, &CorruptDataError{Err: err}
	}
	// json.Unmarshal accepts "null" for a slice; a stored blob must be an array.
	if items == nil {
		return nil, &CorruptDataError{Err: fmt.Errorf("items blob is %q", text)}
	}
	return items, nil
}

// LineTotal is quantity * price at full precision.
func LineTotal(item models.LineItem) decimal.Decimal {
	return decimal.NewFromFloat(item.Quantity).Mul(decimal.NewFromFloat(item.Price))
}

// GrandTotal sums the line totals of items. The empty sequence totals 0.
func GrandTotal(items []models.LineItem) float64 {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(LineTotal(it))
	}
	return sum.InexactFloat64()
}

// FormatMoney renders d rounded to two decimals, e.g. "7.50".
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
