package processor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"orderflow/internal/apperr"
	"orderflow/internal/domain/orders"
	"orderflow/internal/domain/processing"
	"orderflow/internal/ports"
	"orderflow/internal/shared/contracts"
	"orderflow/internal/shared/rabbitmq"
)

// simulatedFailureMessage is the fixed message recorded when the failure
// simulation fires.
const simulatedFailureMessage = "Random validation failure"

// Service implements ports.ProcessorService: the idempotent processing state
// machine pending → processing → {completed | failed}.
type Service struct {
	uow       ports.UnitOfWork
	repo      ports.ProcessingRepository
	publisher ports.Publisher
	simulate  Simulator
	logger    zerolog.Logger
}

var _ ports.ProcessorService = (*Service)(nil)

// New creates the processor service with its collaborators.
func New(uow ports.UnitOfWork, repo ports.ProcessingRepository, publisher ports.Publisher, simulate Simulator, logger zerolog.Logger) *Service {
	return &Service{uow: uow, repo: repo, publisher: publisher, simulate: simulate, logger: logger}
}

// HandleOrderCreated processes one delivered creation event. Redeliveries are
// tolerated: an existing terminal record short-circuits with no side effects,
// and the unique constraint on order_id settles races between concurrent
// deliveries. Storage faults come back marked unrecoverable so the caller
// dead-letters the delivery; a cancellation passes through unmarked and the
// delivery is requeued instead.
func (service *Service) HandleOrderCreated(ctx context.Context, event contracts.OrderCreatedEvent) error {
	proceed, err := service.claim(ctx, event.OrderID)
	if err != nil {
		return apperr.MarkUnrecoverable(err)
	}
	if !proceed {
		service.logger.Info().
			Str("order_id", event.OrderID).
			Msg("order already processed; duplicate delivery skipped")
		return nil
	}

	if err := service.setProcessing(ctx, event.OrderID); err != nil {
		return apperr.MarkUnrecoverable(err)
	}

	// business outcome: deterministic validation first, then the synthetic
	// failure path; neither is an error in the infrastructure sense
	status := processing.StatusCompleted
	var errorMessage *string
	if verr := validateOrder(event); verr != nil {
		status = processing.StatusFailed
		msg := verr.Error()
		errorMessage = &msg
	} else if service.simulate() {
		status = processing.StatusFailed
		msg := simulatedFailureMessage
		errorMessage = &msg
	}

	applied, err := service.finish(ctx, event.OrderID, status, errorMessage)
	if err != nil {
		return apperr.MarkUnrecoverable(err)
	}
	if !applied {
		// a concurrent attempt reached a terminal state first; its publish wins
		service.logger.Info().
			Str("order_id", event.OrderID).
			Msg("concurrent attempt already recorded terminal outcome; skipping publish")
		return nil
	}

	service.logger.Info().
		Str("order_id", event.OrderID).
		Str("status", string(status)).
		Msg("processing outcome recorded")

	// publish only after the terminal outcome committed
	if err := service.publishProcessed(event.OrderID, status, errorMessage); err != nil {
		// the record is terminal and durable; the lost result event is the
		// same accepted gap as a lost creation event
		service.logger.Error().Err(err).
			Str("order_id", event.OrderID).
			Msg("failed to publish order.processed")
	}
	return nil
}

// claim resolves the idempotency gate: returns proceed=false when a terminal
// record already exists for the order.
func (service *Service) claim(ctx context.Context, orderID string) (bool, error) {
	rec, err := service.getRecord(ctx, orderID)
	if err == nil {
		// a non-terminal record means a previous attempt crashed mid-flight;
		// re-run validation rather than trusting partial state
		return !rec.Status.IsTerminal(), nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return false, err
	}

	insertErr := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.repo.Insert(txCtx, &processing.Record{
			OrderID: orderID,
			Status:  processing.StatusPending,
		})
	})
	if insertErr == nil {
		return true, nil
	}
	if !errors.Is(insertErr, apperr.ErrDuplicate) {
		return false, insertErr
	}

	// lost the race with a concurrent delivery: re-read and short-circuit
	// only if the winner already reached a terminal state
	rec, err = service.getRecord(ctx, orderID)
	if err != nil {
		return false, err
	}
	return !rec.Status.IsTerminal(), nil
}

func (service *Service) getRecord(ctx context.Context, orderID string) (*processing.Record, error) {
	var rec *processing.Record
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		rec, err = service.repo.GetByOrderID(txCtx, orderID)
		return err
	})
	return rec, err
}

func (service *Service) setProcessing(ctx context.Context, orderID string) error {
	return service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.repo.SetProcessing(txCtx, orderID)
	})
}

func (service *Service) finish(ctx context.Context, orderID string, status processing.Status, errorMessage *string) (bool, error) {
	var applied bool
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		applied, err = service.repo.FinishCAS(txCtx, orderID, status, errorMessage, time.Now().UTC())
		return err
	})
	return applied, err
}

func (service *Service) publishProcessed(orderID string, status processing.Status, errorMessage *string) error {
	body, err := contracts.EncodeOrderProcessed(contracts.OrderProcessedEvent{
		OrderID:      orderID,
		Status:       string(status),
		ErrorMessage: errorMessage,
	})
	if err != nil {
		return err
	}
	return service.publisher.Publish(rabbitmq.ExchangeOrders, contracts.EventOrderProcessed, body)
}

// validateOrder checks the event snapshot: items must be non-empty with
// positive quantities and non-negative prices, and the carried total must
// equal the recomputed sum. A violation is a deterministic failed outcome.
func validateOrder(event contracts.OrderCreatedEvent) error {
	items := make([]orders.OrderItem, len(event.Items))
	for i, it := range event.Items {
		items[i] = orders.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     orders.MoneyFromDollars(it.Price),
		}
	}
	if err := orders.ValidateItems(items); err != nil {
		return err
	}

	if orders.SumItems(items) != orders.MoneyFromDollars(event.TotalAmount) {
		return apperr.Validation("total_amount does not match the sum of items")
	}
	return nil
}
