package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
	"github.com/vladislavdragonenkov/homeserve/internal/service/checkout"
	"github.com/vladislavdragonenkov/homeserve/internal/service/settlement"
)

const (
	maxNotifyBody     = 64 << 10
	defaultOrderLimit = 50
)

// Handler связывает HTTP-запросы с сервисами корзины, оформления и сверки.
type Handler struct {
	checkout   *checkout.Service
	settlement *settlement.Service
	orders     domain.OrderRepository
	payments   domain.PaymentRepository
	logger     *log.Entry
}

// NewHandler создаёт набор HTTP-обработчиков.
func NewHandler(co *checkout.Service, st *settlement.Service, orders domain.OrderRepository, payments domain.PaymentRepository, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "rest")
	}
	return &Handler{checkout: co, settlement: st, orders: orders, payments: payments, logger: logger}
}

type addItemRequest struct {
	ServiceID string `json:"service_id"`
	Qty       int32  `json:"qty"`
}

type setQuantityRequest struct {
	Qty int32 `json:"qty"`
}

type checkoutRequest struct {
	CustomerName  string `json:"customer_name"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	PaymentMethod string `json:"payment_method"`
	Kind          string `json:"kind"`
	ScheduledFor  string `json:"scheduled_for"`
}

type checkoutResponse struct {
	OrderID            string `json:"order_id"`
	Reference          string `json:"reference"`
	PaymentRedirectURL string `json:"payment_redirect_url"`
}

type cartItemResponse struct {
	ServiceID   string `json:"service_id"`
	ServiceName string `json:"service_name"`
	Qty         int32  `json:"qty"`
	UnitPrice   string `json:"unit_price"`
}

type orderItemResponse struct {
	ServiceID   string `json:"service_id"`
	ServiceName string `json:"service_name"`
	Qty         int32  `json:"qty"`
	UnitPrice   string `json:"unit_price"`
}

type orderPaymentResponse struct {
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	TransactionID string `json:"transaction_id"`
}

type orderResponse struct {
	ID                string                `json:"id"`
	Reference         string                `json:"reference"`
	Kind              string                `json:"kind"`
	FulfillmentStatus string                `json:"fulfillment_status"`
	PaymentStatus     string                `json:"payment_status"`
	Currency          string                `json:"currency"`
	Subtotal          string                `json:"subtotal"`
	Tax               string                `json:"tax"`
	Total             string                `json:"total"`
	Items             []orderItemResponse   `json:"items"`
	Payment           *orderPaymentResponse `json:"payment,omitempty"`
	DeliveryEstimate  string                `json:"delivery_estimate,omitempty"`
	CreatedAt         string                `json:"created_at"`
	UpdatedAt         string                `json:"updated_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// AddCartItem обрабатывает POST /api/v1/cart/items.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "service_id is required")
		return
	}

	entries, err := h.checkout.AddItem(r.Context(), userID(r), req.ServiceID, req.Qty)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(entries))
}

// SetCartItemQuantity обрабатывает PUT /api/v1/cart/items/{serviceID}.
func (h *Handler) SetCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entries, err := h.checkout.SetQuantity(r.Context(), userID(r), chi.URLParam(r, "serviceID"), req.Qty)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(entries))
}

// RemoveCartItem обрабатывает DELETE /api/v1/cart/items/{serviceID}.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	entries, err := h.checkout.RemoveItem(r.Context(), userID(r), chi.URLParam(r, "serviceID"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(entries))
}

// GetCart обрабатывает GET /api/v1/cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	entries, err := h.checkout.Cart(r.Context(), userID(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(entries))
}

// Checkout обрабатывает POST /api/v1/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := checkout.CheckoutInput{
		CustomerName:    req.CustomerName,
		CustomerAddress: req.Address,
		CustomerPhone:   req.Phone,
		PaymentMethod:   req.PaymentMethod,
		Kind:            domain.OrderKind(req.Kind),
	}
	if req.ScheduledFor != "" {
		ts, err := time.Parse(time.RFC3339, req.ScheduledFor)
		if err != nil {
			writeError(w, http.StatusBadRequest, "scheduled_for must be RFC3339")
			return
		}
		input.ScheduledFor = ts
	}

	result, err := h.checkout.Checkout(r.Context(), userID(r), input)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{
		OrderID:            result.OrderID,
		Reference:          result.Reference,
		PaymentRedirectURL: result.RedirectURL,
	})
}

// PaymentNotify обрабатывает POST /api/v1/payments/notify — webhook шлюза.
// Тело читается целиком: сырой payload без изменений уходит в журнал
// расчётов. Ответ намеренно бедный: шлюзу сообщается только success/failed,
// детали остаются в журнале и логах.
func (h *Handler) PaymentNotify(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxNotifyBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "failed"})
		return
	}

	n := settlement.Notification{Raw: raw}
	if values, err := url.ParseQuery(string(raw)); err == nil {
		n.TransactionID = values.Get("tran_id")
		n.CorrelationID = values.Get("val_id")
	}
	if n.TransactionID == "" && n.CorrelationID == "" {
		// Шлюзы шлют и JSON-уведомления, пробуем второе представление.
		var body struct {
			TranID string `json:"tran_id"`
			ValID  string `json:"val_id"`
		}
		if err := json.Unmarshal(raw, &body); err == nil {
			n.TransactionID = body.TranID
			n.CorrelationID = body.ValID
		}
	}

	result, err := h.settlement.HandleNotification(r.Context(), n)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if domain.IsRetryable(err) {
			status = http.StatusServiceUnavailable
		}
		h.logger.WithError(err).WithField("tran_id", n.TransactionID).Warn("notification rejected")
		writeJSON(w, status, map[string]string{"status": "failed"})
		return
	}

	if result.Duplicate {
		h.logger.WithField("tran_id", n.TransactionID).Info("duplicate notification acknowledged")
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// GetOrder обрабатывает GET /api/v1/orders/{id}. Заказ видит только его
// владелец; чужой идентификатор неотличим от несуществующего.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if order.CustomerID != userID(r) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	resp := buildOrderResponse(order)
	if payment, err := h.payments.GetByOrderID(order.ID); err == nil {
		resp.Payment = &orderPaymentResponse{
			Status:        string(payment.Status),
			Amount:        payment.Amount.StringFixed(2),
			Currency:      payment.Currency,
			TransactionID: payment.TransactionID,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListOrders обрабатывает GET /api/v1/orders — заказы клиента, новые первыми.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.checkout.Orders(r.Context(), userID(r), defaultOrderLimit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, buildOrderResponse(order))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": resp})
}

// CancelOrder обрабатывает POST /api/v1/orders/{id}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.checkout.Cancel(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buildOrderResponse(order))
}

func buildOrderResponse(order domain.Order) orderResponse {
	resp := orderResponse{
		ID:                order.ID,
		Reference:         order.Reference,
		Kind:              string(order.Kind),
		FulfillmentStatus: string(order.FulfillmentStatus),
		PaymentStatus:     string(order.PaymentStatus),
		Currency:          order.Currency,
		Subtotal:          order.Subtotal.StringFixed(2),
		Tax:               order.Tax.StringFixed(2),
		Total:             order.Total.StringFixed(2),
		CreatedAt:         order.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         order.UpdatedAt.Format(time.RFC3339),
	}
	if order.FulfillmentStatus != domain.FulfillmentDraft {
		resp.DeliveryEstimate = order.DeliveryEstimate().Format(time.RFC3339)
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ServiceID:   item.ServiceID,
			ServiceName: item.ServiceName,
			Qty:         item.Qty,
			UnitPrice:   item.UnitPrice.StringFixed(2),
		})
	}
	return resp
}

// writeDomainError переводит ошибки домена в HTTP-статусы.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTransitionRefused), errors.Is(err, domain.ErrOrderNotDraft),
		domain.IsVersionConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrCartItemNotFound),
		errors.Is(err, domain.ErrUnknownTransaction):
		writeError(w, http.StatusNotFound, err.Error())
	case domain.IsRetryable(err):
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable, try again later")
	case errors.Is(err, domain.ErrGatewayRejected):
		writeError(w, http.StatusBadGateway, "payment gateway rejected the request")
	default:
		h.logger.WithError(err).Error("unhandled error in request")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func cartResponse(entries []domain.CartEntry) map[string]any {
	items := make([]cartItemResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, cartItemResponse{
			ServiceID:   e.ServiceID,
			ServiceName: e.ServiceName,
			Qty:         e.Qty,
			UnitPrice:   e.UnitPrice.StringFixed(2),
		})
	}
	return map[string]any{"items": items}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
