package handlers

import (
	"net/http"
	"strings"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/httpx"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/engine"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/metrics"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
)

type createBookingRequest struct {
	ProviderID string `json:"provider_id"`
	ClientID   string `json:"client_id"`
	Date       string `json:"date"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Reason     string `json:"reason"`
	Note       string `json:"note"`
}

type cancelBookingRequest struct {
	BookingID string `json:"booking_id"`
	ClientID  string `json:"client_id"`
}

type changeStatusRequest struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

// Bookings creates a booking on POST and lists bookings on GET: the
// provider's when provider_id is given, the caller's otherwise.
func (h *API) Bookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.CreateBooking(w, r)
	case http.MethodGet:
		h.ListBookings(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (h *API) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	clientID := callerID(r)
	if clientID == "" {
		clientID = strings.TrimSpace(req.ClientID)
	}
	date, err := parseDateParam("date", strings.TrimSpace(req.Date))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	iv, err := parseInterval(strings.TrimSpace(req.Start), strings.TrimSpace(req.End))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	b, err := h.engine.TryCreateBooking(r.Context(), engine.BookingRequest{
		ProviderID: strings.TrimSpace(req.ProviderID),
		ClientID:   clientID,
		Date:       date,
		Interval:   iv,
		Reason:     req.Reason,
		Note:       req.Note,
	})
	if err != nil {
		recordConflict(err)
		h.writeEngineError(w, r, err)
		return
	}
	metrics.IncBookingCreated()
	httpx.WriteJSON(w, http.StatusCreated, viewBooking(b))
}

func (h *API) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(query(r, "limit"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	var list []model.Booking
	if providerID := query(r, "provider_id"); providerID != "" {
		list, err = h.engine.ListProviderBookings(r.Context(), providerID, limit)
	} else {
		list, err = h.engine.ListClientBookings(r.Context(), callerID(r), limit)
	}
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"bookings": viewBookings(list)})
}

func (h *API) GetBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	b, err := h.engine.GetBooking(r.Context(), query(r, "id"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewBooking(b))
}

// CancelBooking cancels one of the caller's own pending bookings.
func (h *API) CancelBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req cancelBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	clientID := callerID(r)
	if clientID == "" {
		clientID = strings.TrimSpace(req.ClientID)
	}
	if clientID == "" {
		httpx.WriteError(w, r, http.StatusBadRequest, "client_id: is required")
		return
	}

	b, err := h.engine.CancelBooking(r.Context(), strings.TrimSpace(req.BookingID), clientID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	metrics.IncStatusChanged(string(b.Status))
	httpx.WriteJSON(w, http.StatusOK, viewBooking(b))
}

// ChangeStatus applies a provider decision (confirm, reject, complete).
func (h *API) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req changeStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	to, ok := model.ParseBookingStatus(strings.TrimSpace(req.Status))
	if !ok {
		httpx.WriteError(w, r, http.StatusBadRequest, "status: unknown value "+req.Status)
		return
	}

	b, err := h.engine.TransitionStatus(r.Context(), strings.TrimSpace(req.BookingID), to)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	metrics.IncStatusChanged(string(b.Status))
	httpx.WriteJSON(w, http.StatusOK, viewBooking(b))
}
