package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/stockflow/stockflow/internal/auth"
	"github.com/stockflow/stockflow/internal/domain"
)

var (
	meter = otel.Meter("orders")

	ordersPlaced    metric.Int64Counter
	ordersCancelled metric.Int64Counter
)

func init() {
	ordersPlaced, _ = meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders placed successfully"))
	ordersCancelled, _ = meter.Int64Counter("orders.cancelled",
		metric.WithDescription("Orders cancelled and compensated"))
}

// Ledger is the transactional write surface the service depends on. Both
// operations are all-or-nothing; stock is only ever touched through their
// conditional updates.
type Ledger interface {
	Place(ctx context.Context, validated *ValidatedOrder) (*domain.Order, error)
	Cancel(ctx context.Context, orderID string) (*domain.Order, int, error)
}

// Sink receives best-effort notification fan-out after a commit. Failures
// are logged and never surface as the operation's result.
type Sink interface {
	Notify(ctx context.Context, event domain.NotificationRequested) error
}

type PlacementResult struct {
	OrderID   string             `json:"order_id"`
	Total     decimal.Decimal    `json:"total"`
	Status    domain.OrderStatus `json:"status"`
	LineCount int                `json:"line_count"`
}

type CancellationResult struct {
	OrderID           string             `json:"order_id"`
	Status            domain.OrderStatus `json:"status"`
	RestoredLineCount int                `json:"restored_line_count"`
}

// Service is the order fulfillment workflow: capability guard, validation,
// atomic placement, compensating cancellation.
type Service struct {
	validator *Validator
	ledger    Ledger
	sink      Sink
	logger    *slog.Logger
}

func NewService(validator *Validator, ledger Ledger, sink Sink, logger *slog.Logger) *Service {
	return &Service{
		validator: validator,
		ledger:    ledger,
		sink:      sink,
		logger:    logger,
	}
}

// PlaceOrder validates the request against catalog state and applies it as a
// single atomic unit of header, lines, and stock decrements. The guard runs
// before any read or write.
func (s *Service) PlaceOrder(ctx context.Context, companyID string, lines []LineRequest) (*PlacementResult, error) {
	principal := auth.PrincipalFrom(ctx)
	if !principal.Can(auth.CapPlaceOrder) {
		return nil, ErrForbidden
	}

	validated, err := s.validator.Validate(ctx, companyID, lines)
	if err != nil {
		return nil, err
	}

	order, err := s.ledger.Place(ctx, validated)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}

	ordersPlaced.Add(ctx, 1)
	s.alertLowStock(ctx, principal.Subject, order.Lines)
	s.notify(ctx, domain.NotificationRequested{
		Recipient:   principal.Subject,
		Priority:    domain.PriorityMedium,
		Title:       "Order Confirmed",
		Description: fmt.Sprintf("Order %s confirmed with %d line(s), total %s.", order.ID, len(order.Lines), order.Total.StringFixed(2)),
		Method:      domain.MethodCreate,
	})

	return &PlacementResult{
		OrderID:   order.ID,
		Total:     order.Total,
		Status:    order.Status,
		LineCount: len(order.Lines),
	}, nil
}

// CancelOrder reverses a committed order: stock restored from persisted
// lines, lines and header removed, all atomically. Cancelling a nonexistent
// order is terminal and non-retryable.
func (s *Service) CancelOrder(ctx context.Context, orderID string) (*CancellationResult, error) {
	principal := auth.PrincipalFrom(ctx)
	if !principal.Can(auth.CapCancelOrder) {
		return nil, ErrForbidden
	}

	order, restored, err := s.ledger.Cancel(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}

	ordersCancelled.Add(ctx, 1)
	s.notify(ctx, domain.NotificationRequested{
		Recipient:   principal.Subject,
		Priority:    domain.PriorityMedium,
		Title:       "Order Cancelled",
		Description: fmt.Sprintf("Order %s cancelled, %d line(s) restored to stock.", order.ID, restored),
		Method:      domain.MethodDelete,
	})

	return &CancellationResult{
		OrderID:           order.ID,
		Status:            domain.OrderStatusCancelled,
		RestoredLineCount: restored,
	}, nil
}

// alertLowStock re-reads the affected products after commit and raises a
// HIGH alert for any that dropped under their restock threshold. Read
// failures only cost the alert, never the placement.
func (s *Service) alertLowStock(ctx context.Context, recipient string, lines []domain.OrderLine) {
	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		if seen[line.ProductID] {
			continue
		}
		seen[line.ProductID] = true

		product, err := s.validator.products.GetByID(ctx, line.ProductID)
		if err != nil {
			s.logger.Warn("low-stock check skipped", "error", err, "product_id", line.ProductID)
			continue
		}
		if product == nil || !product.BelowMinStock() {
			continue
		}

		s.notify(ctx, domain.NotificationRequested{
			Recipient:   recipient,
			Priority:    domain.PriorityHigh,
			Title:       "Low Stock Alert",
			Description: fmt.Sprintf("Product %q (%s) is down to %d, below its minimum of %d.", product.Name, product.ID, product.Quantity, product.MinStock),
			Method:      domain.MethodUpdate,
		})
	}
}

func (s *Service) notify(ctx context.Context, event domain.NotificationRequested) {
	if s.sink == nil {
		return
	}
	event.EventID = uuid.New().String()
	event.Timestamp = time.Now().UTC()
	if err := s.sink.Notify(ctx, event); err != nil {
		s.logger.Error("failed to publish notification", "error", err, "title", event.Title)
	}
}
