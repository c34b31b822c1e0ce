package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestValidator(store *fakeStore) *Validator {
	return NewValidator(&fakeCompanies{store: store}, &fakeProducts{store: store})
}

func TestValidator_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects missing buyer reference", func(t *testing.T) {
		store := newFakeStore()
		v := newTestValidator(store)

		_, err := v.Validate(ctx, "", []LineRequest{{ProductID: "p1", Quantity: 1}})
		if !errors.Is(err, ErrMissingBuyer) {
			t.Fatalf("expected ErrMissingBuyer, got %v", err)
		}
	})

	t.Run("rejects unknown buyer", func(t *testing.T) {
		store := newFakeStore()
		v := newTestValidator(store)

		_, err := v.Validate(ctx, "no-such-company", []LineRequest{{ProductID: "p1", Quantity: 1}})
		if !errors.Is(err, ErrMissingBuyer) {
			t.Fatalf("expected ErrMissingBuyer, got %v", err)
		}
	})

	t.Run("rejects empty line items", func(t *testing.T) {
		store := newFakeStore()
		store.addCompany("c1", "Acme")
		v := newTestValidator(store)

		_, err := v.Validate(ctx, "c1", nil)
		if !errors.Is(err, ErrEmptyOrder) {
			t.Fatalf("expected ErrEmptyOrder, got %v", err)
		}
	})

	t.Run("rejects unknown product", func(t *testing.T) {
		store := newFakeStore()
		store.addCompany("c1", "Acme")
		v := newTestValidator(store)

		_, err := v.Validate(ctx, "c1", []LineRequest{{ProductID: "ghost", Quantity: 1}})
		if !errors.Is(err, ErrMissingProduct) {
			t.Fatalf("expected ErrMissingProduct, got %v", err)
		}
	})

	t.Run("rejects blank product reference", func(t *testing.T) {
		store := newFakeStore()
		store.addCompany("c1", "Acme")
		v := newTestValidator(store)

		_, err := v.Validate(ctx, "c1", []LineRequest{{ProductID: "", Quantity: 1}})
		if !errors.Is(err, ErrMissingProduct) {
			t.Fatalf("expected ErrMissingProduct, got %v", err)
		}
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		store := newFakeStore()
		store.addCompany("c1", "Acme")
		store.addProduct("p1", "Widget", "5.00", 10, 0)
		v := newTestValidator(store)

		for _, qty := range []int{0, -3} {
			_, err := v.Validate(ctx, "c1", []LineRequest{{ProductID: "p1", Quantity: qty}})
			if !errors.Is(err, ErrInvalidQuantity) {
				t.Fatalf("quantity %d: expected ErrInvalidQuantity, got %v", qty, err)
			}
		}
	})

	t.Run("rejects quantity above on-hand stock", func(t *testing.T) {
		store := newFakeStore()
		store.addCompany("c1", "Acme")
		store.addProduct("p1", "Widget", "5.00", 2, 0)
		v := newTestValidator(store)

		_, err := v.Validate(ctx, "c1", []LineRequest{{ProductID: "p1", Quantity: 5}})
		if !errors.Is(err, ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}
	})

	t.Run("snapshots current prices and computes exact total", func(t *testing.T) {
		store := newFakeStore()
		store.addCompany("c1", "Acme")
		store.addProduct("p1", "Widget", "5.00", 10, 0)
		store.addProduct("p2", "Gadget", "19.99", 4, 0)
		v := newTestValidator(store)

		validated, err := v.Validate(ctx, "c1", []LineRequest{
			{ProductID: "p1", Quantity: 3},
			{ProductID: "p2", Quantity: 2},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := decimal.RequireFromString("54.98")
		if !validated.Total.Equal(want) {
			t.Errorf("expected total %s, got %s", want, validated.Total)
		}

		var sum decimal.Decimal
		for _, line := range validated.Lines {
			sum = sum.Add(line.Subtotal())
		}
		if !sum.Equal(validated.Total) {
			t.Errorf("line subtotals %s do not add up to total %s", sum, validated.Total)
		}

		if !validated.Lines[0].UnitPrice.Equal(decimal.RequireFromString("5.00")) {
			t.Errorf("expected snapshot price 5.00, got %s", validated.Lines[0].UnitPrice)
		}
	})

	t.Run("snapshot survives later catalog price change", func(t *testing.T) {
		store := newFakeStore()
		store.addCompany("c1", "Acme")
		store.addProduct("p1", "Widget", "5.00", 10, 0)
		v := newTestValidator(store)

		validated, err := v.Validate(ctx, "c1", []LineRequest{{ProductID: "p1", Quantity: 1}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		store.products["p1"].UnitPrice = decimal.RequireFromString("9.00")

		if !validated.Lines[0].UnitPrice.Equal(decimal.RequireFromString("5.00")) {
			t.Errorf("snapshot price changed, got %s", validated.Lines[0].UnitPrice)
		}
	})

	t.Run("is read-only", func(t *testing.T) {
		store := newFakeStore()
		store.addCompany("c1", "Acme")
		store.addProduct("p1", "Widget", "5.00", 10, 0)
		v := newTestValidator(store)

		if _, err := v.Validate(ctx, "c1", []LineRequest{{ProductID: "p1", Quantity: 4}}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := store.stock("p1"); got != 10 {
			t.Errorf("validation mutated stock: %d", got)
		}
	})
}
