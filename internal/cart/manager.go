package cart

import "sync"

// Manager hands out per-operator carts. A cart is created on first use
// and lives in memory only; it is gone on restart or Drop.
type Manager struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

func NewManager() *Manager {
	return &Manager{carts: make(map[string]*Cart)}
}

// Get returns the operator's cart, creating it if needed
func (m *Manager) Get(operatorID string) *Cart {
	m.mu.RLock()
	c, ok := m.carts[operatorID]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[operatorID]; ok {
		return c
	}
	c = New()
	m.carts[operatorID] = c
	return c
}

// Drop ends the operator's session, discarding the cart
func (m *Manager) Drop(operatorID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, operatorID)
}
