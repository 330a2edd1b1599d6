package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderflow/payment-service/internal/payment/application"
	"github.com/orderflow/payment-service/internal/payment/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler is the read/admin query surface over the orchestrator.
// Authentication and ownership checks are the caller's concern.
type Handler struct {
	log     *slog.Logger
	service *application.Service
	metrics http.Handler
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, metrics http.Handler) *Handler {
	return &Handler{
		log:     log,
		service: service,
		metrics: metrics,
		tracer:  otel.Tracer("payment-http"),
	}
}

type createPaymentReq struct {
	OrderID int64           `json:"orderId"`
	UserID  int64           `json:"userId"`
	Amount  decimal.Decimal `json:"paymentAmount"`
}

type paymentResp struct {
	ID        string          `json:"id"`
	OrderID   int64           `json:"orderId"`
	UserID    int64           `json:"userId"`
	Status    domain.Status   `json:"status"`
	Amount    decimal.Decimal `json:"paymentAmount"`
	Timestamp time.Time       `json:"timestamp"`
}

func toPaymentResp(p domain.Payment) paymentResp {
	return paymentResp{
		ID:        p.ID,
		OrderID:   p.OrderID,
		UserID:    p.UserID,
		Status:    p.Status,
		Amount:    p.Amount,
		Timestamp: p.Timestamp,
	}
}

func toPaymentResps(payments []domain.Payment) []paymentResp {
	out := make([]paymentResp, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResp(p))
	}
	return out
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Post("/", h.createPayment)
		r.Get("/order/{orderId}", h.getByOrderID)
		r.Get("/user/{userId}", h.listByUser)
		r.Get("/user/{userId}/paged", h.listByUserPaged)
		r.Get("/user/{userId}/summary", h.userSummary)
		r.Get("/status/{status}", h.listByStatus)
		r.Get("/status/{status}/paged", h.listByStatusPaged)
		r.Get("/summary", h.globalSummary)
	})
	r.Get("/healthz", h.healthz)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	return r
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreatePayment")
	defer span.End()

	var req createPaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Join(domain.ErrInvalidInput, err))
		return
	}

	p, err := h.service.CreatePayment(ctx, req.OrderID, req.UserID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toPaymentResp(p))
}

func (h *Handler) getByOrderID(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathInt64(r, "orderId")
	if err != nil {
		h.writeError(w, err)
		return
	}
	p, err := h.service.GetByOrderID(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toPaymentResp(p))
}

func (h *Handler) listByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userId")
	if err != nil {
		h.writeError(w, err)
		return
	}
	payments, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toPaymentResps(payments))
}

func (h *Handler) listByUserPaged(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userId")
	if err != nil {
		h.writeError(w, err)
		return
	}
	page, size := pageParams(r)
	result, err := h.service.ListByUserPaged(r.Context(), userID, page, size)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writePage(w, result)
}

func (h *Handler) listByStatus(w http.ResponseWriter, r *http.Request) {
	status, err := domain.ParseStatus(chi.URLParam(r, "status"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	payments, err := h.service.ListByStatus(r.Context(), status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toPaymentResps(payments))
}

func (h *Handler) listByStatusPaged(w http.ResponseWriter, r *http.Request) {
	status, err := domain.ParseStatus(chi.URLParam(r, "status"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	page, size := pageParams(r)
	result, err := h.service.ListByStatusPaged(r.Context(), status, page, size)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writePage(w, result)
}

func (h *Handler) userSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userId")
	if err != nil {
		h.writeError(w, err)
		return
	}
	from, to, err := rangeParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	summary, err := h.service.SummaryForUser(r.Context(), userID, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) globalSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := rangeParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	summary, err := h.service.SummaryGlobal(r.Context(), from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type pageResp struct {
	Items []paymentResp `json:"items"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
	Total int64         `json:"total"`
}

func (h *Handler) writePage(w http.ResponseWriter, p application.PagedPayments) {
	h.writeJSON(w, http.StatusOK, pageResp{
		Items: toPaymentResps(p.Items),
		Page:  p.Page,
		Size:  p.Size,
		Total: p.Total,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("response encoding failed", "err", err)
	}
}

// writeError maps the error taxonomy to status codes. Unclassified failures
// return a generic body so internals never leak to callers.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var status int
	message := err.Error()

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrExternalService):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
		message = "internal error"
		h.log.Error("request failed", "err", err)
	}

	h.writeJSON(w, status, map[string]string{"error": message})
}

func pathInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, errors.Join(domain.ErrInvalidInput, err)
	}
	return v, nil
}

func pageParams(r *http.Request) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 0 {
		page = 0
	}
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func rangeParams(r *http.Request) (from, to time.Time, err error) {
	from, err = time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		return from, to, errors.Join(domain.ErrInvalidInput, err)
	}
	to, err = time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		return from, to, errors.Join(domain.ErrInvalidInput, err)
	}
	return from, to, nil
}
