package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/httpx"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/engine"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
)

type checkResponse struct {
	ProviderID string `json:"provider_id"`
	Date       string `json:"date"`
	Start      string `json:"start"`
	End        string `json:"end"`
	engine.Availability
}

func (h *API) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	date, err := parseDateParam("date", query(r, "date"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	iv, err := parseInterval(query(r, "start"), query(r, "end"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	providerID := query(r, "provider_id")
	av, err := h.engine.CheckAvailability(r.Context(), providerID, date, iv)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, checkResponse{
		ProviderID:   providerID,
		Date:         schedule.FormatDate(date),
		Start:        iv.Start.String(),
		End:          iv.End.String(),
		Availability: av,
	})
}

type slotsResponse struct {
	engine.DaySlots
	Date string `json:"date"`
}

// ListSlots lists free slots. `profile` picks named working hours instead of
// the provider's own, and `all=true` adds the full grid with taken slots.
func (h *API) ListSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	date, err := parseDateParam("date", query(r, "date"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	providerID := query(r, "provider_id")
	var slots engine.DaySlots
	if name := query(r, "profile"); name != "" {
		pol, ok := h.policies.Profile(name)
		if !ok {
			httpx.WriteError(w, r, http.StatusBadRequest, "unknown profile "+strconv.Quote(name))
			return
		}
		slots, err = h.engine.ListFreeSlotsWithPolicy(r.Context(), providerID, date, pol)
	} else {
		slots, err = h.engine.ListFreeSlots(r.Context(), providerID, date)
	}
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	if all, _ := strconv.ParseBool(query(r, "all")); !all {
		slots.Grid = nil
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{DaySlots: slots, Date: schedule.FormatDate(slots.Date)})
}

// Calendar projects a month; month and year default to the current ones.
func (h *API) Calendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	today := h.engine.Today()
	year, month := today.Year(), today.Month()
	if raw := query(r, "year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, "year: must be an integer")
			return
		}
		year = y
	}
	if raw := query(r, "month"); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, "month: must be an integer")
			return
		}
		month = time.Month(m)
	}

	cal, err := h.engine.ProjectMonth(r.Context(), query(r, "provider_id"), year, month)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cal)
}
