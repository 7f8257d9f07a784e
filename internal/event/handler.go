// AngelaMos | 2026
// handler.go

package event

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/angelamos/gatherly/internal/core"
	"github.com/angelamos/gatherly/internal/middleware"
	"github.com/angelamos/gatherly/internal/policy"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	optionalAuth func(http.Handler) http.Handler,
) {
	r.Route("/events", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/", h.List)
			r.Get("/{eventID}", h.GetByID)
			r.Get("/slug/{slug}", h.GetBySlug)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Post("/", h.Create)
			r.Put("/{eventID}", h.Update)
			r.Delete("/{eventID}", h.Delete)
			r.Post("/{eventID}/publish", h.Publish)
			r.Post("/{eventID}/cancel", h.Cancel)
			r.Post("/{eventID}/complete", h.Complete)
		})
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequestFields(
			w,
			"validation failed",
			core.ValidationFieldErrors(err),
		)
		return
	}

	event, err := h.service.Create(r.Context(), subjectFrom(r), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.Created(w, ToEventResponse(event))
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.GetByID(
		r.Context(), subjectFrom(r), chi.URLParam(r, "eventID"),
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToEventResponse(event))
}

func (h *Handler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.GetBySlug(
		r.Context(), subjectFrom(r), chi.URLParam(r, "slug"),
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToEventResponse(event))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListEventsParams{
		Page:        parseIntQuery(r, "page", 1),
		PageSize:    parseIntQuery(r, "page_size", 20),
		Status:      r.URL.Query().Get("status"),
		Category:    r.URL.Query().Get("category"),
		OrganizerID: r.URL.Query().Get("organizer_id"),
	}

	if params.Status != "" && !ValidStatus(params.Status) {
		core.BadRequest(w, "unknown status filter")
		return
	}

	events, total, err := h.service.List(r.Context(), subjectFrom(r), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w, ToEventResponseList(events), params.Page, params.PageSize, total,
	)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequestFields(
			w,
			"validation failed",
			core.ValidationFieldErrors(err),
		)
		return
	}

	event, err := h.service.Update(
		r.Context(), subjectFrom(r), chi.URLParam(r, "eventID"), req,
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToEventResponse(event))
}

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Publish)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Cancel)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Complete)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(
		r.Context(), subjectFrom(r), chi.URLParam(r, "eventID"),
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) changeStatus(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, policy.Subject, string) (*Event, error),
) {
	event, err := op(r.Context(), subjectFrom(r), chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToEventResponse(event))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "event")
		return
	}
	if errors.Is(err, core.ErrDuplicateKey) {
		core.Conflict(w, "event slug already exists")
		return
	}
	core.InternalServerError(w, err)
}

func subjectFrom(r *http.Request) policy.Subject {
	return policy.Subject{
		ID:   middleware.GetUserID(r.Context()),
		Role: middleware.GetUserRole(r.Context()),
	}
}

func parseIntQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
