package payments

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pharmaflow/pharmaflow/internal/platform/httpx"
	"github.com/pharmaflow/pharmaflow/internal/shared"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

func paymentID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "paymentID"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.svc.Record(r.Context(), req, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentID(r)
	if !ok {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid payment id")
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orderID, _ := strconv.ParseInt(q.Get("order_id"), 10, 64)
	customerID, _ := strconv.ParseInt(q.Get("customer_id"), 10, 64)
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	list, total, err := h.svc.List(r.Context(), ListPaymentsRequest{
		OrderID:    orderID,
		CustomerID: customerID,
		Status:     q.Get("status"),
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": list, "pagination": shared.NewPagination(page, perPage, total)})
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentID(r)
	if !ok {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid payment id")
		return
	}
	p, err := h.svc.Complete(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Fail(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentID(r)
	if !ok {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid payment id")
		return
	}
	var req FailPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.svc.Fail(r.Context(), id, req.Reason, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentID(r)
	if !ok {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid payment id")
		return
	}
	p, err := h.svc.Cancel(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentID(r)
	if !ok {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid payment id")
		return
	}
	var req FailPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.svc.Refund(r.Context(), id, req.Reason, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func MountRoutes(r chi.Router, h *Handler) {
	r.Route("/payments", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Record)
		r.Route("/{paymentID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Post("/complete", h.Complete)
			r.Post("/fail", h.Fail)
			r.Post("/cancel", h.Cancel)
			r.Post("/refund", h.Refund)
		})
	})
}
