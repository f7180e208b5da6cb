package cart

import (
	"testing"

	"medistock/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func med(id, name string, quantity int, price string) *models.Medicine {
	return &models.Medicine{
		ID:       id,
		Name:     name,
		Quantity: quantity,
		Price:    decimal.RequireFromString(price),
	}
}

func lineFor(t *testing.T, c *Cart, id string) Line {
	t.Helper()
	for _, l := range c.Lines() {
		if l.MedicineID == id {
			return l
		}
	}
	t.Fatalf("no line for %s", id)
	return Line{}
}

func TestAddNewLine(t *testing.T) {
	c := New()
	c.Add(med("m1", "Paracetamol", 10, "5.00"))

	require.Equal(t, 1, c.Len())
	line := lineFor(t, c, "m1")
	assert.Equal(t, 1, line.Quantity)
	assert.True(t, line.UnitPrice.Equal(decimal.RequireFromString("5.00")))
}

func TestAddOutOfStockIsNoop(t *testing.T) {
	c := New()
	c.Add(med("m1", "Paracetamol", 0, "5.00"))

	assert.Zero(t, c.Len())
}

func TestAddIncrementsUpToStock(t *testing.T) {
	c := New()
	m := med("m1", "Paracetamol", 2, "5.00")

	c.Add(m)
	c.Add(m)
	c.Add(m) // at stock, no-op

	assert.Equal(t, 2, lineFor(t, c, "m1").Quantity)
}

func TestSetQuantityClampsToStock(t *testing.T) {
	c := New()
	c.Add(med("m1", "Paracetamol", 6, "5.00"))

	c.SetQuantity("m1", 100)

	assert.Equal(t, 6, lineFor(t, c, "m1").Quantity)
}

func TestSetQuantityZeroIsNoop(t *testing.T) {
	c := New()
	c.Add(med("m1", "Paracetamol", 6, "5.00"))
	c.SetQuantity("m1", 4)

	c.SetQuantity("m1", 0)
	assert.Equal(t, 4, lineFor(t, c, "m1").Quantity, "only Remove may drop a line")

	c.SetQuantity("m1", -3)
	assert.Equal(t, 4, lineFor(t, c, "m1").Quantity)
}

func TestSetQuantityUnknownLineIsNoop(t *testing.T) {
	c := New()
	c.SetQuantity("ghost", 3)
	assert.Zero(t, c.Len())
}

func TestRemove(t *testing.T) {
	c := New()
	c.Add(med("m1", "Paracetamol", 6, "5.00"))
	c.Add(med("m2", "Ibuprofen", 3, "7.00"))

	c.Remove("m1")

	require.Equal(t, 1, c.Len())
	assert.Equal(t, "m2", c.Lines()[0].MedicineID)
}

func TestTotalRecomputedAfterEveryMutation(t *testing.T) {
	c := New()
	m1 := med("m1", "Paracetamol", 10, "5.00")
	m2 := med("m2", "Ibuprofen", 10, "7.50")

	c.Add(m1)
	assert.True(t, c.Total().Equal(decimal.RequireFromString("5.00")))

	c.Add(m2)
	assert.True(t, c.Total().Equal(decimal.RequireFromString("12.50")))

	c.SetQuantity("m1", 4)
	assert.True(t, c.Total().Equal(decimal.RequireFromString("27.50")))

	c.Remove("m2")
	assert.True(t, c.Total().Equal(decimal.RequireFromString("20.00")))

	c.Clear()
	assert.True(t, c.Total().IsZero())
	assert.Zero(t, c.Len())
}

func TestObserveStockClampsDown(t *testing.T) {
	c := New()
	c.Add(med("m1", "Paracetamol", 10, "5.00"))
	c.SetQuantity("m1", 8)

	c.ObserveStock("m1", 3)
	assert.Equal(t, 3, lineFor(t, c, "m1").Quantity)

	// a later SetQuantity is bounded by the fresh observation
	c.SetQuantity("m1", 10)
	assert.Equal(t, 3, lineFor(t, c, "m1").Quantity)
}

func TestObserveStockZeroDropsLine(t *testing.T) {
	c := New()
	c.Add(med("m1", "Paracetamol", 10, "5.00"))

	c.ObserveStock("m1", 0)

	assert.Zero(t, c.Len())
}

func TestManagerOwnsOneCartPerOperator(t *testing.T) {
	mgr := NewManager()

	a := mgr.Get("alice")
	b := mgr.Get("bob")
	assert.NotSame(t, a, b)
	assert.Same(t, a, mgr.Get("alice"))

	a.Add(med("m1", "Paracetamol", 10, "5.00"))
	assert.Zero(t, b.Len(), "carts are never shared")

	mgr.Drop("alice")
	assert.Zero(t, mgr.Get("alice").Len(), "a dropped session starts fresh")
}
