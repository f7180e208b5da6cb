// Package invoice renders a receipt document from a committed sale.
// Rendering is pure: identical inputs produce identical bytes, and
// nothing here touches the catalog or the cart.
package invoice

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"medistock/internal/models"
)

const lineWidth = 64

// Presentation is the display metadata supplied by the surrounding
// application; the renderer performs no settings lookup of its own.
type Presentation struct {
	ClinicName   string
	CurrencyUnit string
}

// InvoiceID derives the short receipt identifier from a sale id:
// its first 8 characters, uppercased.
func InvoiceID(sale *models.Sale) string {
	id := sale.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

// Filename names the receipt artifact deterministically from the sale
func Filename(sale *models.Sale) string {
	return fmt.Sprintf("invoice_%s.txt", strings.ToLower(InvoiceID(sale)))
}

// Render produces the receipt document for a committed sale.
func Render(sale *models.Sale, p Presentation) []byte {
	var buf bytes.Buffer

	title := p.ClinicName
	if title == "" {
		title = "Clinic Invoice"
	}
	pad := (lineWidth - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(&buf, "%s%s\n", strings.Repeat(" ", pad), title)
	fmt.Fprintln(&buf, strings.Repeat("=", lineWidth))

	fmt.Fprintf(&buf, "Date:       %s\n", sale.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&buf, "Invoice ID: %s\n", InvoiceID(sale))
	fmt.Fprintf(&buf, "Served by:  %s\n", sale.SellerName)
	fmt.Fprintln(&buf)

	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Item\tQty\tPrice\tTotal\n")
	for _, line := range sale.Lines {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			line.Name,
			line.Quantity,
			money(p.CurrencyUnit, line.UnitPrice.StringFixed(2)),
			money(p.CurrencyUnit, line.Subtotal.StringFixed(2)))
	}
	w.Flush()

	fmt.Fprintln(&buf, strings.Repeat("-", lineWidth))
	fmt.Fprintf(&buf, "Total Amount: %s\n", money(p.CurrencyUnit, sale.TotalAmount.StringFixed(2)))

	return buf.Bytes()
}

func money(unit, amount string) string {
	if unit == "" {
		return amount
	}
	return unit + " " + amount
}
