package orderservice

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"orderflow/internal/apperr"
	"orderflow/internal/domain/orders"
	"orderflow/internal/ports"
	"orderflow/internal/shared/contracts"
	"orderflow/internal/shared/rabbitmq"
)

// Service implements ports.OrderService: it owns the order state machine.
type Service struct {
	uow       ports.UnitOfWork
	repo      ports.OrderRepository
	publisher ports.Publisher
	logger    zerolog.Logger
}

// Ensure Service implements the interface at compile time.
var _ ports.OrderService = (*Service)(nil)

// New creates the order service with its collaborators.
func New(uow ports.UnitOfWork, repo ports.OrderRepository, publisher ports.Publisher, logger zerolog.Logger) *Service {
	return &Service{uow: uow, repo: repo, publisher: publisher, logger: logger}
}

// CreateOrder validates input, persists the order as 'pending' inside one
// transaction, and publishes order.created only after the commit succeeds.
// A failed publish leaves the order pending in storage with no compensation;
// the lost-publish window is an accepted at-least-once gap.
func (service *Service) CreateOrder(ctx context.Context, cmd ports.CreateOrderCommand) (*orders.Order, error) {
	if cmd.CustomerID == "" {
		return nil, apperr.Validation("customer_id is required")
	}

	items := make([]orders.OrderItem, len(cmd.Items))
	for i, it := range cmd.Items {
		items[i] = orders.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
	}
	if err := orders.ValidateItems(items); err != nil {
		return nil, err
	}

	order := &orders.Order{
		ID:         uuid.NewString(),
		CustomerID: cmd.CustomerID,
		Items:      items,
		Status:     orders.StatusPending,
	}
	order.SetTotalAmount()

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.repo.Create(txCtx, order)
	})
	if err != nil {
		service.logger.Error().Err(err).Msg("failed to create order")
		return nil, err
	}

	service.logger.Info().
		Str("order_id", order.ID).
		Float64("total_amount", order.TotalAmount.Dollars()).
		Msg("order created")

	// publish only after the transaction committed, from the persisted row
	if err := service.publishCreated(order); err != nil {
		service.logger.Error().Err(err).
			Str("order_id", order.ID).
			Msg("failed to publish order.created; order remains pending")
	}

	return order, nil
}

// GetOrder is a read-only lookup.
func (service *Service) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	var order *orders.Order
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = service.repo.GetByID(txCtx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// HandleOrderProcessed reconciles the order's status from a result event.
// Unknown orders and already-terminal orders are no-ops: redelivery of the
// same result event must have no additional observable effect.
func (service *Service) HandleOrderProcessed(ctx context.Context, event contracts.OrderProcessedEvent) error {
	next := orders.OrderStatus(event.Status)

	var applied bool
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		order, err := service.repo.GetByID(txCtx, event.OrderID)
		if err != nil {
			return err
		}

		// domain guard first, then the CAS in SQL enforces the same rule
		// against concurrent writers
		if !orders.CanTransition(order.Status, next) {
			return nil
		}

		applied, err = service.repo.ApplyResultCAS(txCtx, event.OrderID, next, event.ErrorMessage)
		return err
	})
	if errors.Is(err, apperr.ErrNotFound) {
		// nothing correct to do with an unknown order; ack and drop
		service.logger.Error().
			Str("order_id", event.OrderID).
			Msg("order not found for order.processed event; dropping")
		return err
	}
	if err != nil {
		service.logger.Error().Err(err).Str("order_id", event.OrderID).Msg("failed to apply order result")
		return apperr.MarkUnrecoverable(err)
	}

	if !applied {
		service.logger.Info().
			Str("order_id", event.OrderID).
			Msg("order already terminal; duplicate order.processed delivery skipped")
		return nil
	}

	service.logger.Info().
		Str("order_id", event.OrderID).
		Str("status", event.Status).
		Msg("order status reconciled")
	return nil
}

// publishCreated builds the creation event from the persisted row and
// publishes it with routing key order.created.
func (service *Service) publishCreated(order *orders.Order) error {
	items := make([]contracts.EventItem, len(order.Items))
	for i, it := range order.Items {
		items[i] = contracts.EventItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.Dollars(),
		}
	}

	body, err := contracts.EncodeOrderCreated(contracts.OrderCreatedEvent{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		Items:       items,
		TotalAmount: order.TotalAmount.Dollars(),
		CreatedAt:   order.CreatedAt.UTC(),
	})
	if err != nil {
		return err
	}
	return service.publisher.Publish(rabbitmq.ExchangeOrders, contracts.EventOrderCreated, body)
}
