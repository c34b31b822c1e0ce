package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	MinStock    int             `json:"min_stock"`
	LastUpdated time.Time       `json:"last_updated"`
}

// BelowMinStock reports whether on-hand quantity has dropped under the
// restock threshold.
func (p *Product) BelowMinStock() bool {
	return p.Quantity < p.MinStock
}
