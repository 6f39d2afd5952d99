package finance

import (
	"net/http"
	"strconv"
	"time"

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

func activityID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "activityID"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	var req RecordActivityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.svc.Record(r.Context(), req, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := activityID(r)
	if !ok {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid activity id")
		return
	}
	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	req := ListActivitiesRequest{
		Type:     q.Get("type"),
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Page:     page,
		PerPage:  perPage,
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, r, http.StatusBadRequest, "invalid from date")
			return
		}
		req.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, r, http.StatusBadRequest, "invalid to date")
			return
		}
		req.To = &t
	}
	list, total, err := h.svc.List(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": list, "pagination": shared.NewPagination(req.Page, req.PerPage, total)})
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := activityID(r)
	if !ok {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid activity id")
		return
	}
	a, err := h.svc.Approve(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := activityID(r)
	if !ok {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid activity id")
		return
	}
	a, err := h.svc.Reject(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, r, http.StatusBadRequest, "invalid from date")
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, r, http.StatusBadRequest, "invalid to date")
			return
		}
		to = t
	}
	sum, err := h.svc.Summary(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}

func MountRoutes(r chi.Router, h *Handler) {
	r.Route("/finance", func(r chi.Router) {
		r.Get("/activities", h.List)
		r.Post("/activities", h.Record)
		r.Get("/summary", h.Summary)
		r.Route("/activities/{activityID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Post("/approve", h.Approve)
			r.Post("/reject", h.Reject)
		})
	})
}
