package availability

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/solhealth/availability-engine/internal/policy"
	"github.com/solhealth/availability-engine/pkg/logging"
)

// Handler exposes the availability engine over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the availability HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger.Component("availability_http")}
}

// Routes returns a chi router with the therapist availability routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{calendarID}/availability", h.GetAvailability)
	r.Get("/{calendarID}/availability-status", h.GetAvailabilityStatus)
	r.Post("/availability/batch", h.PostBatch)
	return r
}

// GetAvailability returns availability for one therapist across one or
// more months, in raw, compact, or text form.
// GET /therapists/{calendarID}/availability
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	calendarID := chi.URLParam(r, "calendarID")
	if calendarID == "" {
		writeError(w, http.StatusBadRequest, "calendar ID required")
		return
	}

	q := r.URL.Query()
	nowLocal := time.Now().In(h.service.cfg.HomeLocation)

	year, err := intParam(q.Get("year"), nowLocal.Year())
	if err != nil || year < 2000 || year > 2100 {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	monthNum, err := intParam(q.Get("month"), int(nowLocal.Month()))
	if err != nil || monthNum < 1 || monthNum > 12 {
		writeError(w, http.StatusBadRequest, "invalid month, want 1-12")
		return
	}
	monthsCount, err := intParam(q.Get("months"), 1)
	if err != nil || monthsCount < 1 || monthsCount > 12 {
		writeError(w, http.StatusBadRequest, "invalid months count, want 1-12")
		return
	}

	overrides, err := parseOverrides(q.Get("payment_type"), q.Get("pmt"), q.Get("session_minutes"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var hours *BusinessHours
	if ws, we := q.Get("work_start"), q.Get("work_end"); ws != "" || we != "" {
		if ws == "" {
			ws = "07:00"
		}
		if we == "" {
			we = "22:00"
		}
		parsed, err := ParseBusinessHours(ws, we)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		hours = &parsed
	}

	// Timezone affects display metadata only; business hours stay in
	// the calendar owner's home timezone.
	tzName := q.Get("timezone")
	if tzName == "" {
		tzName = h.service.cfg.HomeLocation.String()
	} else if _, err := time.LoadLocation(tzName); err != nil {
		writeError(w, http.StatusBadRequest, "unknown timezone")
		return
	}

	mode := ParseViewMode(q.Get("mode"))
	live := boolParam(q.Get("live"))
	debug := boolParam(q.Get("debug"))

	req := MonthRequest{
		CalendarID: calendarID,
		Year:       year,
		Month:      time.Month(monthNum),
		Overrides:  overrides,
		Hours:      hours,
		Live:       live,
		Debug:      debug,
	}
	months, err := h.service.Months(r.Context(), req, monthsCount)
	if err != nil {
		h.logger.Error("availability computation failed", "calendar_id", calendarID, "error", err)
		writeError(w, http.StatusBadGateway, "calendar provider unavailable")
		return
	}

	meta := CompactMeta{
		Timezone:       tzName,
		SessionMinutes: months[0].Policy.SessionMinutes,
		PaymentType:    string(months[0].Policy.PaymentType),
		Therapist:      calendarID,
	}

	switch strings.ToLower(q.Get("view")) {
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(BuildText(months, mode, nowLocal, meta)))
	case "compact":
		writeJSON(w, h.logger, BuildCompact(months, mode, nowLocal, meta))
	default:
		writeJSON(w, h.logger, map[string]any{
			"therapist": calendarID,
			"meta":      meta,
			"months":    months,
		})
	}
}

// GetAvailabilityStatus returns the fast existence check for one
// therapist and month. A provider failure is reported as unknown, not as
// an HTTP error.
// GET /therapists/{calendarID}/availability-status
func (h *Handler) GetAvailabilityStatus(w http.ResponseWriter, r *http.Request) {
	calendarID := chi.URLParam(r, "calendarID")
	if calendarID == "" {
		writeError(w, http.StatusBadRequest, "calendar ID required")
		return
	}

	q := r.URL.Query()
	nowLocal := time.Now().In(h.service.cfg.HomeLocation)

	year, err := intParam(q.Get("year"), nowLocal.Year())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	monthNum, err := intParam(q.Get("month"), int(nowLocal.Month()))
	if err != nil || monthNum < 1 || monthNum > 12 {
		writeError(w, http.StatusBadRequest, "invalid month, want 1-12")
		return
	}
	overrides, err := parseOverrides(q.Get("payment_type"), q.Get("pmt"), "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := h.service.Status(r.Context(), StatusRequest{
		CalendarID: calendarID,
		Year:       year,
		Month:      time.Month(monthNum),
		Overrides:  overrides,
		Live:       boolParam(q.Get("live")),
	})
	writeJSON(w, h.logger, status)
}

// BatchRequestBody is the request body for the batch scan.
type BatchRequestBody struct {
	Emails      []string `json:"emails"`
	PaymentType string   `json:"payment_type,omitempty"`
	Live        bool     `json:"live,omitempty"`
}

// PostBatch scans up to the batch limit of therapists over the rolling
// matching window in a single provider round-trip.
// POST /therapists/availability/batch
func (h *Handler) PostBatch(w http.ResponseWriter, r *http.Request) {
	var body BatchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(body.Emails) == 0 {
		writeError(w, http.StatusBadRequest, "emails required")
		return
	}
	if len(body.Emails) > h.service.cfg.MaxBatchCalendars {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("at most %d emails per batch", h.service.cfg.MaxBatchCalendars))
		return
	}

	var overrides policy.Overrides
	if body.PaymentType != "" {
		overrides.PaymentType = policy.ParsePaymentType(body.PaymentType)
	}

	results, err := h.service.Batch(r.Context(), BatchRequest{
		CalendarIDs: body.Emails,
		Overrides:   overrides,
		Live:        body.Live,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, h.logger, map[string]any{"results": results})
}

func parseOverrides(paymentType, pmt, sessionMinutes string) (policy.Overrides, error) {
	var ov policy.Overrides
	hint := paymentType
	if hint == "" {
		hint = pmt
	}
	if hint != "" {
		ov.PaymentType = policy.ParsePaymentType(hint)
	}
	if sessionMinutes != "" {
		minutes, err := strconv.Atoi(sessionMinutes)
		if err != nil || minutes < 15 || minutes > 180 {
			return ov, fmt.Errorf("invalid session_minutes, want 15-180")
		}
		ov.SessionMinutes = minutes
	}
	return ov, nil
}

func intParam(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	return strconv.Atoi(s)
}

func boolParam(s string) bool {
	return strings.EqualFold(s, "true") || s == "1"
}

func writeJSON(w http.ResponseWriter, logger *logging.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
