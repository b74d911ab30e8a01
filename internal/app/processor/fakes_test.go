package processor

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"orderflow/internal/apperr"
	"orderflow/internal/domain/processing"
)

func newDeterministicRand() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

// fakeUoW runs the function directly; the in-memory fakes need no real tx.
type fakeUoW struct{}

func (fakeUoW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeProcessingRepo is an in-memory substitute for the Postgres ledger,
// enforcing the unique order_id constraint the way the real table does.
type fakeProcessingRepo struct {
	mu   sync.Mutex
	rows map[string]*processing.Record

	insertErr error
	finishErr error

	// beforeFinish runs at the top of FinishCAS, letting a test interleave a
	// concurrent writer between claim and finish.
	beforeFinish func()
}

func newFakeProcessingRepo() *fakeProcessingRepo {
	return &fakeProcessingRepo{rows: map[string]*processing.Record{}}
}

func (r *fakeProcessingRepo) Insert(_ context.Context, rec *processing.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.insertErr != nil {
		return r.insertErr
	}
	if _, exists := r.rows[rec.OrderID]; exists {
		return apperr.ErrDuplicate
	}
	now := time.Now().UTC()
	rec.ID = int64(len(r.rows) + 1)
	rec.CreatedAt = now
	rec.UpdatedAt = now
	cp := *rec
	r.rows[rec.OrderID] = &cp
	return nil
}

func (r *fakeProcessingRepo) GetByOrderID(_ context.Context, orderID string) (*processing.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rows[orderID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeProcessingRepo) SetProcessing(_ context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.rows[orderID]
	if !ok || rec.Status.IsTerminal() {
		return nil
	}
	rec.Status = processing.StatusProcessing
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeProcessingRepo) FinishCAS(_ context.Context, orderID string, status processing.Status, errorMessage *string, processedAt time.Time) (bool, error) {
	if r.beforeFinish != nil {
		r.beforeFinish()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finishErr != nil {
		return false, r.finishErr
	}
	rec, ok := r.rows[orderID]
	if !ok || rec.Status.IsTerminal() {
		return false, nil
	}
	rec.Status = status
	rec.ErrorMessage = errorMessage
	rec.ProcessedAt = &processedAt
	rec.UpdatedAt = time.Now().UTC()
	return true, nil
}

// seed installs a record directly, bypassing the service.
func (r *fakeProcessingRepo) seed(rec processing.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[rec.OrderID] = &rec
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
