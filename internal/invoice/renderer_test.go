package invoice

import (
	"strings"
	"testing"
	"time"

	"medistock/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSale() *models.Sale {
	return &models.Sale{
		ID:          "ab12cd34-5678-90ef-1234-567890abcdef",
		SellerName:  "alice",
		TotalAmount: decimal.RequireFromString("22.10"),
		CreatedAt:   time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
		Lines: []models.SaleLine{
			{
				Name:      "Paracetamol",
				Quantity:  3,
				UnitPrice: decimal.RequireFromString("5.00"),
				Subtotal:  decimal.RequireFromString("15.00"),
			},
			{
				Name:      "Ibuprofen",
				Quantity:  1,
				UnitPrice: decimal.RequireFromString("7.10"),
				Subtotal:  decimal.RequireFromString("7.10"),
			},
		},
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	sale := sampleSale()
	p := Presentation{ClinicName: "Sunrise Clinic", CurrencyUnit: "USD"}

	first := Render(sale, p)
	second := Render(sale, p)

	assert.Equal(t, first, second)
}

func TestRenderContent(t *testing.T) {
	sale := sampleSale()
	doc := string(Render(sale, Presentation{ClinicName: "Sunrise Clinic", CurrencyUnit: "USD"}))

	assert.Contains(t, doc, "Sunrise Clinic")
	assert.Contains(t, doc, "Date:       2024-03-15 09:30:00 UTC")
	assert.Contains(t, doc, "Invoice ID: AB12CD34")
	assert.Contains(t, doc, "Served by:  alice")

	assert.Contains(t, doc, "Paracetamol")
	assert.Contains(t, doc, "Ibuprofen")
	assert.Contains(t, doc, "USD 5.00")
	assert.Contains(t, doc, "USD 15.00")
	assert.Contains(t, doc, "USD 7.10")

	assert.Contains(t, doc, "Total Amount: USD 22.10")
}

func TestRenderOneRowPerLine(t *testing.T) {
	sale := sampleSale()
	doc := string(Render(sale, Presentation{ClinicName: "Sunrise Clinic", CurrencyUnit: "USD"}))

	rows := strings.Split(doc, "\n")
	var header int
	for i, row := range rows {
		if strings.HasPrefix(row, "Item") {
			header = i
			break
		}
	}
	require.NotZero(t, header)
	assert.Contains(t, rows[header+1], "Paracetamol")
	assert.Contains(t, rows[header+2], "Ibuprofen")
}

func TestRenderTimestampsInUTC(t *testing.T) {
	sale := sampleSale()
	zone := time.FixedZone("UTC+6", 6*3600)
	sale.CreatedAt = time.Date(2024, 3, 15, 15, 30, 0, 0, zone)

	doc := string(Render(sale, Presentation{ClinicName: "Sunrise Clinic", CurrencyUnit: "USD"}))

	assert.Contains(t, doc, "2024-03-15 09:30:00 UTC")
}

func TestInvoiceID(t *testing.T) {
	assert.Equal(t, "AB12CD34", InvoiceID(sampleSale()))
	assert.Equal(t, "SHORT", InvoiceID(&models.Sale{ID: "short"}))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "invoice_ab12cd34.txt", Filename(sampleSale()))
}
