package orderservice

import (
	"context"
	"errors"
	"sync"
	"time"

	"orderflow/internal/apperr"
	"orderflow/internal/domain/orders"
)

// fakeUoW runs the function directly; the in-memory fakes need no real tx.
type fakeUoW struct{}

func (fakeUoW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeOrdersRepo is an in-memory substitute for the Postgres repo.
type fakeOrdersRepo struct {
	mu        sync.Mutex
	rows      map[string]*orders.Order
	createErr error
	casErr    error
}

func newFakeOrdersRepo() *fakeOrdersRepo {
	return &fakeOrdersRepo{rows: map[string]*orders.Order{}}
}

func (r *fakeOrdersRepo) Create(_ context.Context, o *orders.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return r.createErr
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	cp := *o
	r.rows[o.ID] = &cp
	return nil
}

func (r *fakeOrdersRepo) GetByID(_ context.Context, orderID string) (*orders.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.rows[orderID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrdersRepo) ApplyResultCAS(_ context.Context, orderID string, next orders.OrderStatus, errorMessage *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.casErr != nil {
		return false, r.casErr
	}

	o, ok := r.rows[orderID]
	if !ok {
		return false, nil
	}
	if o.Status != orders.StatusPending {
		return false, nil
	}
	o.Status = next
	o.ErrorMessage = errorMessage
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}

// fakePublisher records every publish; failNext injects a publish failure.
type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	failNext bool
}

type publishedMessage struct {
	exchange   string
	routingKey string
	body       []byte
}

func (p *fakePublisher) Publish(exchange, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failNext {
		p.failNext = false
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, publishedMessage{exchange, routingKey, body})
	return nil
}

func (p *fakePublisher) published() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage(nil), p.messages...)
}
