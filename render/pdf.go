package render

import (
	"fmt"
	"io"

	"invoice-backend/models"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageMargin = 15.0
	lineHeight = 6.0
	rowHeight  = 8.0
)

// PDF writes inv as an A4 document to w.
func (r *Renderer) PDF(w io.Writer, inv models.Invoice) error {
	v := r.view(inv)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetTitle("Invoice "+inv.InvoiceNumber, true)
	pdf.SetCreator(v.Seller.Name, true)
	pdf.AddPage()

	// Core fonts are cp1252; translate so symbols such as £ survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*pageMargin
	half := contentW / 2

	pdf.SetDrawColor(22, 163, 74)
	pdf.SetLineWidth(1)

	// Seller block (left) and invoice meta (right).
	top := pdf.GetY()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(half, 10, tr(v.Seller.Name), "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(75, 85, 99)
	for _, line := range []string{v.Seller.Address, v.Seller.Phone, v.Seller.Email} {
		pdf.CellFormat(half, lineHeight, tr(line), "", 2, "L", false, 0, "")
	}
	sellerBottom := pdf.GetY()

	pdf.SetXY(pageMargin+half, top)
	pdf.SetTextColor(31, 41, 55)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(half, 10, "INVOICE", "", 2, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(75, 85, 99)
	for _, line := range []string{
		"Invoice #: " + inv.InvoiceNumber,
		"Date: " + inv.InvoiceDate,
		"Due Date: " + inv.InvoiceDueDate,
	} {
		pdf.CellFormat(half, lineHeight, tr(line), "", 2, "R", false, 0, "")
	}
	if pdf.GetY() < sellerBottom {
		pdf.SetY(sellerBottom)
	}
	pdf.Ln(8)

	// Bill to.
	pdf.SetX(pageMargin)
	pdf.SetTextColor(55, 65, 81)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 8, "Bill To:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(75, 85, 99)
	for _, line := range []string{inv.ClientName, inv.ClientAddress, inv.ClientPostcode, inv.ClientPhone} {
		if line == "" {
			continue
		}
		pdf.CellFormat(contentW, lineHeight, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// Items table.
	cols := []struct {
		title string
		width float64
		align string
	}{
		{"Items", contentW * 0.46, "L"},
		{"Qty", contentW * 0.14, "R"},
		{"Price", contentW * 0.20, "R"},
		{"Total", contentW * 0.20, "R"},
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(243, 244, 246)
	pdf.SetTextColor(31, 41, 55)
	pdf.SetLineWidth(0.2)
	pdf.SetDrawColor(209, 213, 219)
	for _, col := range cols {
		pdf.CellFormat(col.width, rowHeight, col.title, "B", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range v.Lines {
		values := []string{line.Item, line.Quantity, line.Price, line.Total}
		for i, col := range cols {
			pdf.CellFormat(col.width, rowHeight, tr(values[i]), "B", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, rowHeight, tr("Grand Total: "+v.GrandTotal), "", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render invoice %d pdf: %w", inv.ID, err)
	}
	return nil
}
