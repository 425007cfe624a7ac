package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/catalog"
)

func includeInactive(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("includeInactive"))
	return v
}

func (h *Handler) ListEventTypes(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.ListEventTypes(r.Context(), includeInactive(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) GetEventType(w http.ResponseWriter, r *http.Request) {
	et, err := h.catalog.EventType(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, et)
}

func (h *Handler) CreateEventType(w http.ResponseWriter, r *http.Request) {
	var in catalog.EventTypeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	et, err := h.catalog.CreateEventType(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, et)
}

func (h *Handler) UpdateEventType(w http.ResponseWriter, r *http.Request) {
	var in catalog.EventTypeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	et, err := h.catalog.UpdateEventType(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, et)
}

func (h *Handler) DeleteEventType(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteEventType(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Event type deleted successfully"})
}

func (h *Handler) ListAvailability(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.ListAvailability(r.Context(), includeInactive(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateAvailability(w http.ResponseWriter, r *http.Request) {
	var in catalog.AvailabilityInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	wa, err := h.catalog.CreateAvailability(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, wa)
}

func (h *Handler) ReplaceAvailability(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Availabilities []catalog.AvailabilityInput `json:"availabilities"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.catalog.ReplaceAvailability(r.Context(), req.Availabilities)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":      "Availability updated successfully",
		"count":        len(rows),
		"availability": rows,
	})
}

func (h *Handler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	var in catalog.AvailabilityInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	wa, err := h.catalog.UpdateAvailability(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, wa)
}

func (h *Handler) DeleteAvailability(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteAvailability(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Availability deleted successfully"})
}

// Windows shows the effective windows of one date after overrides.
func (h *Handler) Windows(w http.ResponseWriter, r *http.Request) {
	windows, err := h.bookings.Windows(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if windows == nil {
		windows = []availability.Window{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"windows": windows})
}

func (h *Handler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.ListOverrides(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateOverride(w http.ResponseWriter, r *http.Request) {
	var in catalog.OverrideInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.catalog.CreateOverride(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) UpdateOverride(w http.ResponseWriter, r *http.Request) {
	var in catalog.OverrideInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.catalog.UpdateOverride(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteOverride(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Date override deleted successfully"})
}
