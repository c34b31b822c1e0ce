package orders

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow/internal/domain"
)

// fakeStore backs the validator reads and the ledger writes in unit tests.
// The ledger applies the same all-or-nothing semantics as the SQL
// implementation: stock only moves when every line fits.
type fakeStore struct {
	mu        sync.Mutex
	companies map[string]*domain.Company
	products  map[string]*domain.Product
	orders    map[string]*domain.Order
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		companies: make(map[string]*domain.Company),
		products:  make(map[string]*domain.Product),
		orders:    make(map[string]*domain.Order),
	}
}

func (s *fakeStore) addCompany(id, name string) {
	s.companies[id] = &domain.Company{ID: id, Name: name}
}

func (s *fakeStore) addProduct(id, name string, price string, quantity, minStock int) {
	s.products[id] = &domain.Product{
		ID:        id,
		Name:      name,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  quantity,
		MinStock:  minStock,
	}
}

func (s *fakeStore) stock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Quantity
}

type fakeCompanies struct{ store *fakeStore }

func (f *fakeCompanies) GetByID(_ context.Context, id string) (*domain.Company, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	c, ok := f.store.companies[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

type fakeProducts struct{ store *fakeStore }

func (f *fakeProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	p, ok := f.store.products[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

type fakeLedger struct {
	store    *fakeStore
	placeErr error
}

func (f *fakeLedger) Place(_ context.Context, validated *ValidatedOrder) (*domain.Order, error) {
	if f.placeErr != nil {
		return nil, f.placeErr
	}

	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	// Cumulative per product, matching the SQL ledger where a second line
	// for the same product decrements already-reduced stock.
	needed := make(map[string]int, len(validated.Lines))
	for _, line := range validated.Lines {
		needed[line.ProductID] += line.Quantity
		p, ok := f.store.products[line.ProductID]
		if !ok || p.Quantity < needed[line.ProductID] {
			return nil, fmt.Errorf("%w: product %s", ErrInsufficientStock, line.ProductID)
		}
	}

	order := &domain.Order{
		ID:        uuid.New().String(),
		CompanyID: validated.CompanyID,
		Total:     validated.Total,
		Status:    domain.OrderStatusConfirmed,
	}
	for _, line := range validated.Lines {
		line.ID = uuid.New().String()
		f.store.products[line.ProductID].Quantity -= line.Quantity
		order.Lines = append(order.Lines, line)
	}

	f.store.orders[order.ID] = order
	return order, nil
}

func (f *fakeLedger) Cancel(_ context.Context, orderID string) (*domain.Order, int, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	order, ok := f.store.orders[orderID]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	for _, line := range order.Lines {
		f.store.products[line.ProductID].Quantity += line.Quantity
	}
	delete(f.store.orders, orderID)

	order.Status = domain.OrderStatusCancelled
	return order, len(order.Lines), nil
}

type fakeSink struct {
	mu     sync.Mutex
	events []domain.NotificationRequested
	err    error
}

func (f *fakeSink) Notify(_ context.Context, event domain.NotificationRequested) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSink) recorded() []domain.NotificationRequested {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.NotificationRequested, len(f.events))
	copy(out, f.events)
	return out
}
