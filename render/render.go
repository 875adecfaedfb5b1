// Package render turns a stored invoice into a printable document.
package render

import (
	"invoice-backend/config"
	"invoice-backend/lineitems"
	"invoice-backend/models"

	"github.com/shopspring/decimal"
)

// Renderer renders invoices issued by one seller.
type Renderer struct {
	seller config.Seller
}

func NewRenderer(seller config.Seller) *Renderer {
	if seller.CurrencySymbol == "" {
		seller.CurrencySymbol = "£"
	}
	return &Renderer{seller: seller}
}

// documentView is the flattened input shared by the HTML and PDF renderers.
type documentView struct {
	Seller     config.Seller
	Invoice    models.Invoice
	Lines      []lineView
	GrandTotal string
}

type lineView struct {
	Item     string
	Quantity string
	Price    string
	Total    string
}

func (r *Renderer) view(inv models.Invoice) documentView {
	lines := make([]lineView, 0, len(inv.Items))
	for _, it := range inv.Items {
		lines = append(lines, lineView{
			Item:     it.Item,
			Quantity: decimal.NewFromFloat(it.Quantity).String(),
			Price:    decimal.NewFromFloat(it.Price).String(),
			Total:    lineitems.FormatMoney(lineitems.LineTotal(it)),
		})
	}
	return documentView{
		Seller:     r.seller,
		Invoice:    inv,
		Lines:      lines,
		GrandTotal: r.seller.CurrencySymbol + lineitems.FormatMoney(decimal.NewFromFloat(inv.GrandTotal)),
	}
}
