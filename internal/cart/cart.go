package cart

import (
	"sync"

	"medistock/internal/models"

	"github.com/shopspring/decimal"
)

// Line is one (medicine, requested quantity) pair in a cart. UnitPrice
// is copied from the medicine at add time; stockSeen is the on-hand
// count as last observed by this session and bounds the quantity.
type Line struct {
	MedicineID string          `json:"medicine_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`

	stockSeen int
}

// Cart is an operator's in-progress, unpersisted selection of items.
// It is owned by exactly one operator but guarded for safe access from
// concurrent requests on the same session.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add puts one unit of the medicine in the cart. An existing line grows
// by one only while below the last-known stock; a new line is created
// only when stock is positive. Anything else is a no-op.
func (c *Cart) Add(m *models.Medicine) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].MedicineID == m.ID {
			c.lines[i].stockSeen = m.Quantity
			if c.lines[i].Quantity < m.Quantity {
				c.lines[i].Quantity++
			}
			return
		}
	}

	if m.Quantity <= 0 {
		return
	}
	c.lines = append(c.lines, Line{
		MedicineID: m.ID,
		Name:       m.Name,
		UnitPrice:  m.Price,
		Quantity:   1,
		stockSeen:  m.Quantity,
	})
}

// SetQuantity clamps the requested quantity into [1, last-known stock]
// and applies it. A request of zero or less is a no-op; Remove is the
// only way to drop a line.
func (c *Cart) SetQuantity(medicineID string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity < 1 {
		return
	}
	for i := range c.lines {
		if c.lines[i].MedicineID == medicineID {
			if quantity > c.lines[i].stockSeen {
				quantity = c.lines[i].stockSeen
			}
			if quantity < 1 {
				return
			}
			c.lines[i].Quantity = quantity
			return
		}
	}
}

// Remove deletes the line unconditionally
func (c *Cart) Remove(medicineID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].MedicineID == medicineID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// ObserveStock refreshes the last-known stock for a line and clamps
// its quantity down if the observation shrank below it. A line whose
// stock is observed at zero is dropped; it can no longer satisfy the
// [1, stock] bound.
func (c *Cart) ObserveStock(medicineID string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].MedicineID == medicineID {
			if quantity <= 0 {
				c.lines = append(c.lines[:i], c.lines[i+1:]...)
				return
			}
			c.lines[i].stockSeen = quantity
			if c.lines[i].Quantity > quantity {
				c.lines[i].Quantity = quantity
			}
			return
		}
	}
}

// Total is recomputed on every call, never cached across mutations
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// Lines returns a snapshot copy of the cart contents
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of lines
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// Clear empties the cart after a committed or abandoned checkout
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}
