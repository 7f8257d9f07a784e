// AngelaMos | 2026
// handler.go

package booking

import (
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
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.Create)
			r.Get("/", h.ListMine)
			r.Get("/event/{eventID}", h.ListByEvent)
			r.Get("/{bookingID}", h.GetByID)
			r.Patch("/{bookingID}/cancel", h.Cancel)
		})
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
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

	booking, err := h.service.Create(r.Context(), subjectFrom(r), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.Created(w, ToBookingResponse(booking))
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.GetByID(
		r.Context(), subjectFrom(r), chi.URLParam(r, "bookingID"),
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToBookingResponse(booking))
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.Cancel(
		r.Context(), subjectFrom(r), chi.URLParam(r, "bookingID"),
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToBookingResponse(booking))
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)

	bookings, total, err := h.service.ListMine(
		r.Context(), subjectFrom(r), params,
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.Paginated(
		w, ToBookingResponseList(bookings), params.Page, params.PageSize, total,
	)
}

func (h *Handler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)

	bookings, total, err := h.service.ListByEvent(
		r.Context(), subjectFrom(r), chi.URLParam(r, "eventID"), params,
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.Paginated(
		w, ToBookingResponseList(bookings), params.Page, params.PageSize, total,
	)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "booking")
	case errors.Is(err, core.ErrInsufficientCapacity),
		errors.Is(err, core.ErrBookingClosed):
		core.Conflict(w, err.Error())
	default:
		core.InternalServerError(w, err)
	}
}

func subjectFrom(r *http.Request) policy.Subject {
	return policy.Subject{
		ID:   middleware.GetUserID(r.Context()),
		Role: middleware.GetUserRole(r.Context()),
	}
}

func listParams(r *http.Request) ListBookingsParams {
	return ListBookingsParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Status:   r.URL.Query().Get("status"),
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
