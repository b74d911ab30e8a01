package orderservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"orderflow/internal/apperr"
	"orderflow/internal/domain/orders"
	"orderflow/internal/ports"
)

// HTTPHandler adapts HTTP requests to the OrderService.
type HTTPHandler struct {
	svc    ports.OrderService
	logger zerolog.Logger
}

// NewHTTPHandler wires an HTTP handler around the OrderService.
func NewHTTPHandler(svc ports.OrderService, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

// Register mounts the order routes on the provided router.
func (handler *HTTPHandler) Register(r chi.Router) {
	r.Post("/orders", handler.handleCreateOrder)
	r.Get("/orders/{id}", handler.handleGetOrder)
}

// --- Request/Response DTOs (HTTP boundary) ---

type createOrderRequest struct {
	CustomerID string                   `json:"customer_id"`
	Items      []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"` // unit price in dollars
}

type orderResponse struct {
	ID           string                   `json:"id"`
	CustomerID   string                   `json:"customer_id"`
	Items        []createOrderItemRequest `json:"items"`
	TotalAmount  float64                  `json:"total_amount"`
	Status       string                   `json:"status"`
	ErrorMessage *string                  `json:"error_message"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// --- Handlers ---

func (handler *HTTPHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// guard: content type + size
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", errors.New("unsupported content type: "+ct))
		return
	}

	// decode strictly
	var req createOrderRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	items := make([]ports.ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = ports.ItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     orders.MoneyFromDollars(it.Price), // cents; service re-validates
		}
	}

	// bound request time
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	order, err := handler.svc.CreateOrder(ctxWithTimeout, ports.CreateOrderCommand{
		CustomerID: req.CustomerID,
		Items:      items,
	})
	if err != nil {
		if apperr.IsValidation(err) {
			handler.httpError(ctxWithTimeout, w, http.StatusBadRequest, err.Error(), err)
			return
		}
		handler.httpError(ctxWithTimeout, w, http.StatusInternalServerError, "internal error", err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, toOrderResponse(order))
}

func (handler *HTTPHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "id")

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	order, err := handler.svc.GetOrder(ctxWithTimeout, orderID)
	if errors.Is(err, apperr.ErrNotFound) {
		handler.httpError(ctxWithTimeout, w, http.StatusNotFound, "order not found", err)
		return
	}
	if err != nil {
		handler.httpError(ctxWithTimeout, w, http.StatusInternalServerError, "internal error", err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, toOrderResponse(order))
}

// --- Helpers ---

func toOrderResponse(order *orders.Order) orderResponse {
	items := make([]createOrderItemRequest, len(order.Items))
	for i, it := range order.Items {
		items[i] = createOrderItemRequest{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.Dollars(),
		}
	}
	return orderResponse{
		ID:           order.ID,
		CustomerID:   order.CustomerID,
		Items:        items,
		TotalAmount:  order.TotalAmount.Dollars(),
		Status:       string(order.Status),
		ErrorMessage: order.ErrorMessage,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
}

// httpError sends a JSON error response with a message.
func (handler *HTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	evt := handler.logger.Error()
	if status == http.StatusBadRequest || status == http.StatusNotFound {
		evt = handler.logger.Debug()
	}
	evt.Err(err).Int("status", status).Msg(msg)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// jsonResponse encodes data to the HTTP response.
func (handler *HTTPHandler) jsonResponse(_ context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	buf, err := json.Marshal(data)
	if err != nil {
		handler.logger.Error().Err(err).Msg("failed to encode response")
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}
