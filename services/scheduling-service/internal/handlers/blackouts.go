package handlers

import (
	"net/http"
	"strings"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/httpx"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/metrics"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
)

// blackoutRequest takes either a single date or a date_from/date_to range.
type blackoutRequest struct {
	ProviderID string `json:"provider_id"`
	Date       string `json:"date"`
	DateFrom   string `json:"date_from"`
	DateTo     string `json:"date_to"`
	Reason     string `json:"reason"`
}

func (h *API) Blackouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.SetBlackouts(w, r)
	case http.MethodGet:
		h.ListBlackouts(w, r)
	case http.MethodDelete:
		h.ClearBlackouts(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

func (h *API) SetBlackouts(w http.ResponseWriter, r *http.Request) {
	var req blackoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	fromRaw, toRaw := strings.TrimSpace(req.DateFrom), strings.TrimSpace(req.DateTo)
	if single := strings.TrimSpace(req.Date); single != "" {
		if fromRaw != "" || toRaw != "" {
			httpx.WriteError(w, r, http.StatusBadRequest, "use either date or date_from/date_to")
			return
		}
		fromRaw, toRaw = single, single
	}
	from, err := parseDateParam("date_from", fromRaw)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	to, err := parseDateParam("date_to", toRaw)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	days, err := h.engine.BlackoutRange(r.Context(), strings.TrimSpace(req.ProviderID), from, to, req.Reason)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	metrics.AddBlackoutChanged("set", len(days))
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"count":     len(days),
		"blackouts": viewBlackouts(days),
	})
}

func (h *API) ListBlackouts(w http.ResponseWriter, r *http.Request) {
	from, err := parseOptionalDate("date_from", query(r, "date_from"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	to, err := parseOptionalDate("date_to", query(r, "date_to"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	days, err := h.engine.ListBlackouts(r.Context(), query(r, "provider_id"), from, to)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	if days == nil {
		days = []model.BlackoutDay{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"blackouts": viewBlackouts(days)})
}

// ClearBlackouts removes one marker by id, or every marker of a provider in a range.
func (h *API) ClearBlackouts(w http.ResponseWriter, r *http.Request) {
	if id := query(r, "id"); id != "" {
		if err := h.engine.RestoreDay(r.Context(), id); err != nil {
			h.writeEngineError(w, r, err)
			return
		}
		metrics.AddBlackoutChanged("cleared", 1)
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"count": 1})
		return
	}

	from, err := parseDateParam("date_from", query(r, "date_from"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	to, err := parseDateParam("date_to", query(r, "date_to"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	n, err := h.engine.RestoreRange(r.Context(), query(r, "provider_id"), from, to)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	metrics.AddBlackoutChanged("cleared", int(n))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"count": n})
}
