package deliveries

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

func deliveryID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "deliveryID"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleDeliveryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	dl, err := h.svc.Schedule(r.Context(), req, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dl)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := deliveryID(r)
	if !ok {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid delivery id")
		return
	}
	dl, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dl)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orderID, _ := strconv.ParseInt(q.Get("order_id"), 10, 64)
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	list, total, err := h.svc.List(r.Context(), ListDeliveriesRequest{
		Status:  q.Get("status"),
		OrderID: orderID,
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": list, "pagination": shared.NewPagination(page, perPage, total)})
}

func (h *Handler) Overdue(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListOverdue(r.Context())
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": list})
}

func (h *Handler) InTransit(w http.ResponseWriter, r *http.Request) {
	id, ok := deliveryID(r)
	if !ok {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid delivery id")
		return
	}
	dl, err := h.svc.MarkInTransit(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dl)
}

func (h *Handler) OutForDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := deliveryID(r)
	if !ok {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid delivery id")
		return
	}
	dl, err := h.svc.MarkOutForDelivery(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dl)
}

func (h *Handler) Delivered(w http.ResponseWriter, r *http.Request) {
	id, ok := deliveryID(r)
	if !ok {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid delivery id")
		return
	}
	dl, err := h.svc.MarkDelivered(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dl)
}

func (h *Handler) Failed(w http.ResponseWriter, r *http.Request) {
	id, ok := deliveryID(r)
	if !ok {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid delivery id")
		return
	}
	var req FailDeliveryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	dl, err := h.svc.MarkFailed(r.Context(), id, req.Reason)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dl)
}

func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := deliveryID(r)
	if !ok {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid delivery id")
		return
	}
	var req RescheduleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	dl, err := h.svc.Reschedule(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dl)
}

func (h *Handler) Returned(w http.ResponseWriter, r *http.Request) {
	id, ok := deliveryID(r)
	if !ok {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid delivery id")
		return
	}
	var req FailDeliveryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	dl, err := h.svc.MarkReturned(r.Context(), id, req.Reason)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dl)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := deliveryID(r)
	if !ok {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid delivery id")
		return
	}
	dl, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dl)
}

func MountRoutes(r chi.Router, h *Handler) {
	r.Route("/deliveries", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Schedule)
		r.Get("/overdue", h.Overdue)
		r.Route("/{deliveryID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Post("/in-transit", h.InTransit)
			r.Post("/out-for-delivery", h.OutForDelivery)
			r.Post("/delivered", h.Delivered)
			r.Post("/failed", h.Failed)
			r.Post("/reschedule", h.Reschedule)
			r.Post("/returned", h.Returned)
			r.Post("/cancel", h.Cancel)
		})
	})
}
