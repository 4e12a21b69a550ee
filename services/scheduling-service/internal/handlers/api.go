package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/httpx"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/engine"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/metrics"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/policy"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
)

// API exposes the engine over HTTP. The caller's identity comes from the
// X-User-Id header set by the gateway.
type API struct {
	engine   *engine.Engine
	policies policy.Provider
	logger   *slog.Logger
}

func NewAPI(e *engine.Engine, policies policy.Provider, logger *slog.Logger) *API {
	return &API{engine: e, policies: policies, logger: logger}
}

func (h *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/availability/check", h.CheckAvailability)
	mux.HandleFunc("/api/v1/availability/slots", h.ListSlots)
	mux.HandleFunc("/api/v1/availability/calendar", h.Calendar)

	mux.HandleFunc("/api/v1/bookings", h.Bookings)
	mux.HandleFunc("/api/v1/bookings/get", h.GetBooking)
	mux.HandleFunc("/api/v1/bookings/cancel", h.CancelBooking)
	mux.HandleFunc("/api/v1/bookings/status", h.ChangeStatus)

	mux.HandleFunc("/api/v1/blackouts", h.Blackouts)
}

type conflictBody struct {
	Error     string `json:"error"`
	Cause     string `json:"cause"`
	RequestID string `json:"request_id,omitempty"`
}

// writeEngineError maps engine errors onto HTTP statuses. Anything that is
// not a domain error is logged and hidden behind a 500.
func (h *API) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *engine.ValidationError
		cerr *engine.ConflictError
		serr *engine.StateError
	)
	switch {
	case errors.As(err, &verr):
		httpx.WriteError(w, r, http.StatusBadRequest, verr.Error())
	case errors.Is(err, engine.ErrForbidden):
		httpx.WriteError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrNotFound):
		httpx.WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.As(err, &cerr):
		httpx.WriteJSON(w, http.StatusConflict, conflictBody{
			Error:     cerr.Reason,
			Cause:     string(cerr.Cause),
			RequestID: httpx.RequestIDFromContext(r.Context()),
		})
	case errors.As(err, &serr):
		httpx.WriteError(w, r, http.StatusConflict, serr.Error())
	default:
		h.logger.Error("request failed", "err", err, "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()))
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	httpx.WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func query(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func callerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(httpx.UserIDHeader))
}

func parseDateParam(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, &engine.ValidationError{Field: field, Msg: "is required"}
	}
	d, err := schedule.ParseDate(raw)
	if err != nil {
		return time.Time{}, &engine.ValidationError{Field: field, Msg: err.Error()}
	}
	return d, nil
}

func parseOptionalDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return parseDateParam(field, raw)
}

func parseInterval(start, end string) (schedule.Interval, error) {
	if start == "" || end == "" {
		return schedule.Interval{}, &engine.ValidationError{Field: "start", Msg: "start and end are required"}
	}
	iv, err := schedule.ParseInterval(start, end)
	if err != nil {
		return schedule.Interval{}, &engine.ValidationError{Field: "interval", Msg: err.Error()}
	}
	return iv, nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, &engine.ValidationError{Field: "limit", Msg: "must be a positive integer"}
	}
	return n, nil
}

type bookingView struct {
	model.Booking
	Date string `json:"date"`
}

func viewBooking(b model.Booking) bookingView {
	return bookingView{Booking: b, Date: schedule.FormatDate(b.Date)}
}

func viewBookings(list []model.Booking) []bookingView {
	out := make([]bookingView, 0, len(list))
	for _, b := range list {
		out = append(out, viewBooking(b))
	}
	return out
}

type blackoutView struct {
	model.BlackoutDay
	Date string `json:"date"`
}

func viewBlackouts(list []model.BlackoutDay) []blackoutView {
	out := make([]blackoutView, 0, len(list))
	for _, b := range list {
		out = append(out, blackoutView{BlackoutDay: b, Date: schedule.FormatDate(b.Date)})
	}
	return out
}

func recordConflict(err error) {
	var cerr *engine.ConflictError
	if errors.As(err, &cerr) {
		metrics.IncBookingRejected(string(cerr.Cause))
	}
}
