package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

type Handler struct {
	bookings *booking.Manager
	catalog  *catalog.Service
	logger   *slog.Logger
}

func New(bookings *booking.Manager, catalog *catalog.Service, logger *slog.Logger) *Handler {
	return &Handler{bookings: bookings, catalog: catalog, logger: logger}
}

// Router mounts the JSON API plus health endpoints.
func (h *Handler) Router(checks ...runtime.ReadyCheck) chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Get("/healthz", runtime.Healthz)
	r.Get("/readyz", runtime.Readyz(checks...))

	r.Route("/api", func(r chi.Router) {
		r.Route("/event-types", func(r chi.Router) {
			r.Get("/", h.ListEventTypes)
			r.Post("/", h.CreateEventType)
			r.Get("/{id}", h.GetEventType) // slug or id
			r.Put("/{id}", h.UpdateEventType)
			r.Delete("/{id}", h.DeleteEventType)
		})
		r.Route("/availability", func(r chi.Router) {
			r.Get("/", h.ListAvailability)
			r.Post("/", h.CreateAvailability)
			r.Post("/bulk", h.ReplaceAvailability)
			r.Get("/windows", h.Windows)
			r.Put("/{id}", h.UpdateAvailability)
			r.Delete("/{id}", h.DeleteAvailability)
		})
		r.Route("/date-overrides", func(r chi.Router) {
			r.Get("/", h.ListOverrides)
			r.Post("/", h.CreateOverride)
			r.Put("/{id}", h.UpdateOverride)
			r.Delete("/{id}", h.DeleteOverride)
		})
		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", h.ListBookings)
			r.Post("/", h.CreateBooking)
			r.Get("/slots", h.Slots)
			r.Get("/{id}", h.GetBooking)
			r.Get("/{id}/invite.ics", h.Invite)
			r.Patch("/{id}/cancel", h.CancelBooking)
			r.Patch("/{id}/reschedule", h.RescheduleBooking)
		})
	})

	return r
}

// fail maps domain errors onto status codes.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		httpx.WriteError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, model.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrSlotConflict):
		httpx.WriteError(w, http.StatusConflict, "This time slot is already booked")
	case errors.Is(err, httpx.ErrBodyTooLarge):
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, httpx.ErrInvalidJSON):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
