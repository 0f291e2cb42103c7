package booking

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/solhealth/availability-engine/pkg/logging"
)

// Handler exposes booking confirmation over HTTP.
type Handler struct {
	coordinator *Coordinator
	logger      *logging.Logger
}

// NewHandler creates the booking HTTP handler.
func NewHandler(coordinator *Coordinator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{coordinator: coordinator, logger: logger}
}

// Routes returns a chi router with the booking routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/confirm", h.Confirm)
	return r
}

// ConfirmBody is the request body for booking confirmation.
type ConfirmBody struct {
	CalendarID     string    `json:"calendar_id"`
	ClientName     string    `json:"client_name,omitempty"`
	ClientEmail    string    `json:"client_email,omitempty"`
	Start          time.Time `json:"start"`
	SessionMinutes int       `json:"session_minutes"`
	PaymentType    string    `json:"payment_type,omitempty"`
	Timezone       string    `json:"timezone,omitempty"`
	CreateMeetLink bool      `json:"create_meet_link,omitempty"`
}

// Confirm writes the calendar event for an already-booked session and
// invalidates cached availability.
// POST /bookings/confirm
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var body ConfirmBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	if body.CalendarID == "" {
		http.Error(w, `{"error": "calendar_id required"}`, http.StatusBadRequest)
		return
	}
	if body.Start.IsZero() || body.SessionMinutes <= 0 {
		http.Error(w, `{"error": "start and session_minutes required"}`, http.StatusBadRequest)
		return
	}

	result, err := h.coordinator.ConfirmBooking(r.Context(), ConfirmRequest{
		CalendarID:     body.CalendarID,
		ClientName:     body.ClientName,
		ClientEmail:    body.ClientEmail,
		Start:          body.Start,
		SessionMinutes: body.SessionMinutes,
		PaymentType:    body.PaymentType,
		TimezoneName:   body.Timezone,
		CreateMeetLink: body.CreateMeetLink,
	})
	if err != nil {
		h.logger.Error("booking confirmation failed", "calendar_id", body.CalendarID, "error", err)
		http.Error(w, `{"error": "booking confirmation failed"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("failed to encode booking result", "error", err)
	}
}
