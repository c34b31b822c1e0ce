package orders

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow/internal/domain"
)

// LineRequest is a caller-supplied order line. Prices are never taken from
// the request; the validator snapshots them from the catalog.
type LineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ValidatedOrder is the validator's output: every line carries the catalog
// unit price as of the validation instant, and Total is computed server-side.
type ValidatedOrder struct {
	CompanyID string
	Lines     []domain.OrderLine
	Total     decimal.Decimal
}

type companyFinder interface {
	GetByID(ctx context.Context, id string) (*domain.Company, error)
}

type productFinder interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// Validator checks a proposed order against catalog state. It is read-only;
// the stock check here and the decrement at placement time are reconciled by
// the conditional update in the ledger, not by this read.
type Validator struct {
	companies companyFinder
	products  productFinder
}

func NewValidator(companies companyFinder, products productFinder) *Validator {
	return &Validator{companies: companies, products: products}
}

func (v *Validator) Validate(ctx context.Context, companyID string, lines []LineRequest) (*ValidatedOrder, error) {
	if companyID == "" {
		return nil, ErrMissingBuyer
	}
	company, err := v.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("resolve company %s: %w", companyID, err)
	}
	if company == nil {
		return nil, fmt.Errorf("%w: company %s", ErrMissingBuyer, companyID)
	}

	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	validated := &ValidatedOrder{
		CompanyID: companyID,
		Lines:     make([]domain.OrderLine, 0, len(lines)),
		Total:     decimal.Zero,
	}

	seen := make(map[string]*domain.Product, len(lines))
	for _, line := range lines {
		if line.ProductID == "" {
			return nil, ErrMissingProduct
		}

		product, ok := seen[line.ProductID]
		if !ok {
			product, err = v.products.GetByID(ctx, line.ProductID)
			if err != nil {
				return nil, fmt.Errorf("resolve product %s: %w", line.ProductID, err)
			}
			if product == nil {
				return nil, fmt.Errorf("%w: product %s", ErrMissingProduct, line.ProductID)
			}
			seen[line.ProductID] = product
		}

		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, line.ProductID)
		}
		if line.Quantity > product.Quantity {
			return nil, fmt.Errorf("%w: product %s has %d on hand, requested %d",
				ErrInsufficientStock, line.ProductID, product.Quantity, line.Quantity)
		}

		validated.Lines = append(validated.Lines, domain.OrderLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: product.UnitPrice,
		})
		validated.Total = validated.Total.Add(product.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	return validated, nil
}
