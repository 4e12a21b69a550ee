package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/libs/httpx"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/engine"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/policy"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2031, 1, 2, 9, 0, 0, 0, time.UTC)

func newServer(t *testing.T) http.Handler {
	t.Helper()
	return newServerWith(t, engine.Options{Now: func() time.Time { return fixedNow }})
}

func newServerWith(t *testing.T, opts engine.Options) http.Handler {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "scheduling.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	policies, err := policy.NewStaticProvider(policy.ProfileStandard)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := engine.New(store, policies, logger, opts)

	api := NewAPI(e, policies, logger)
	mux := http.NewServeMux()
	api.Register(mux)
	return httpx.WithRequestID(mux)
}

type response struct {
	code int
	body map[string]any
}

func do(t *testing.T, h http.Handler, method, path, body string, user string) response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set(httpx.UserIDHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := response{code: rec.Code}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out.body), rec.Body.String())
	}
	return out
}

func book(t *testing.T, h http.Handler, user, date, start, end string) response {
	t.Helper()
	body := `{"provider_id":"prov-1","date":"` + date + `","start":"` + start + `","end":"` + end + `"}`
	return do(t, h, http.MethodPost, "/api/v1/bookings", body, user)
}

func TestCreateBookingAndCheck(t *testing.T) {
	h := newServer(t)

	created := book(t, h, "client-1", "2031-03-10", "10:00", "10:30")
	require.Equal(t, http.StatusCreated, created.code, created.body)
	assert.Equal(t, "pending", created.body["status"])
	assert.Equal(t, "client-1", created.body["client_id"])
	assert.Equal(t, "2031-03-10", created.body["date"])
	assert.Equal(t, map[string]any{"start": "10:00", "end": "10:30"}, created.body["interval"])

	check := do(t, h, http.MethodGet, "/api/v1/availability/check?provider_id=prov-1&date=2031-03-10&start=10:15&end=10:45", "", "")
	require.Equal(t, http.StatusOK, check.code)
	assert.Equal(t, false, check.body["available"])
	assert.Equal(t, "booking", check.body["cause"])

	adjacent := do(t, h, http.MethodGet, "/api/v1/availability/check?provider_id=prov-1&date=2031-03-10&start=10:30&end=11:00", "", "")
	assert.Equal(t, true, adjacent.body["available"])

	conflict := book(t, h, "client-2", "2031-03-10", "10:15", "10:45")
	assert.Equal(t, http.StatusConflict, conflict.code)
	assert.Equal(t, "booking", conflict.body["cause"])
	assert.Equal(t, engine.ReasonSlotBooked, conflict.body["error"])
}

func TestCreateBookingValidation(t *testing.T) {
	h := newServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"bad date", `{"provider_id":"prov-1","date":"10/03/2031","start":"10:00","end":"10:30"}`},
		{"bad time", `{"provider_id":"prov-1","date":"2031-03-10","start":"25:00","end":"26:00"}`},
		{"reversed", `{"provider_id":"prov-1","date":"2031-03-10","start":"11:00","end":"10:00"}`},
		{"past date", `{"provider_id":"prov-1","date":"2030-12-31","start":"10:00","end":"10:30"}`},
		{"missing provider", `{"date":"2031-03-10","start":"10:00","end":"10:30"}`},
		{"unknown field", `{"provider_id":"prov-1","date":"2031-03-10","start":"10:00","end":"10:30","x":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := do(t, h, http.MethodPost, "/api/v1/bookings", tc.body, "client-1")
			assert.Equal(t, http.StatusBadRequest, res.code, res.body)
			assert.NotEmpty(t, res.body["error"])
		})
	}

	noClient := book(t, h, "", "2031-03-10", "10:00", "10:30")
	assert.Equal(t, http.StatusBadRequest, noClient.code)
}

func TestSlots(t *testing.T) {
	h := newServer(t)
	require.Equal(t, http.StatusCreated, book(t, h, "c", "2031-03-10", "08:00", "09:00").code)

	res := do(t, h, http.MethodGet, "/api/v1/availability/slots?provider_id=prov-1&date=2031-03-10", "", "")
	require.Equal(t, http.StatusOK, res.code)
	slots := res.body["slots"].([]any)
	assert.Len(t, slots, 18)
	assert.Equal(t, map[string]any{"start": "09:00", "end": "09:30"}, slots[0])
	assert.Nil(t, res.body["grid"])

	hourly := do(t, h, http.MethodGet, "/api/v1/availability/slots?provider_id=prov-1&date=2031-03-10&profile=hourly&all=true", "", "")
	require.Equal(t, http.StatusOK, hourly.code)
	assert.Len(t, hourly.body["slots"], 9)
	assert.Len(t, hourly.body["grid"], 9)

	unknown := do(t, h, http.MethodGet, "/api/v1/availability/slots?provider_id=prov-1&date=2031-03-10&profile=night", "", "")
	assert.Equal(t, http.StatusBadRequest, unknown.code)
}

func TestCancelBooking(t *testing.T) {
	h := newServer(t)
	created := book(t, h, "client-1", "2031-03-10", "10:00", "10:30")
	require.Equal(t, http.StatusCreated, created.code)
	id := created.body["id"].(string)

	forbidden := do(t, h, http.MethodPost, "/api/v1/bookings/cancel", `{"booking_id":"`+id+`"}`, "client-2")
	assert.Equal(t, http.StatusForbidden, forbidden.code)

	ok := do(t, h, http.MethodPost, "/api/v1/bookings/cancel", `{"booking_id":"`+id+`"}`, "client-1")
	require.Equal(t, http.StatusOK, ok.code)
	assert.Equal(t, "cancelled", ok.body["status"])

	again := do(t, h, http.MethodPost, "/api/v1/bookings/cancel", `{"booking_id":"`+id+`"}`, "client-1")
	assert.Equal(t, http.StatusConflict, again.code)

	missing := do(t, h, http.MethodPost, "/api/v1/bookings/cancel", `{"booking_id":"nope"}`, "client-1")
	assert.Equal(t, http.StatusNotFound, missing.code)

	rebooked := book(t, h, "client-2", "2031-03-10", "10:00", "10:30")
	assert.Equal(t, http.StatusCreated, rebooked.code)
}

func TestChangeStatusAndQueries(t *testing.T) {
	h := newServer(t)
	created := book(t, h, "client-1", "2031-03-10", "10:00", "10:30")
	require.Equal(t, http.StatusCreated, created.code)
	id := created.body["id"].(string)

	confirmed := do(t, h, http.MethodPost, "/api/v1/bookings/status", `{"booking_id":"`+id+`","status":"confirmed"}`, "")
	require.Equal(t, http.StatusOK, confirmed.code)
	assert.Equal(t, "confirmed", confirmed.body["status"])

	back := do(t, h, http.MethodPost, "/api/v1/bookings/status", `{"booking_id":"`+id+`","status":"pending"}`, "")
	assert.Equal(t, http.StatusConflict, back.code)

	unknown := do(t, h, http.MethodPost, "/api/v1/bookings/status", `{"booking_id":"`+id+`","status":"archived"}`, "")
	assert.Equal(t, http.StatusBadRequest, unknown.code)

	got := do(t, h, http.MethodGet, "/api/v1/bookings/get?id="+id, "", "")
	require.Equal(t, http.StatusOK, got.code)
	assert.Equal(t, "confirmed", got.body["status"])

	mine := do(t, h, http.MethodGet, "/api/v1/bookings", "", "client-1")
	require.Equal(t, http.StatusOK, mine.code)
	assert.Len(t, mine.body["bookings"], 1)

	providers := do(t, h, http.MethodGet, "/api/v1/bookings?provider_id=prov-1&limit=5", "", "")
	require.Equal(t, http.StatusOK, providers.code)
	assert.Len(t, providers.body["bookings"], 1)

	anonymous := do(t, h, http.MethodGet, "/api/v1/bookings", "", "")
	assert.Equal(t, http.StatusBadRequest, anonymous.code)

	badLimit := do(t, h, http.MethodGet, "/api/v1/bookings?provider_id=prov-1&limit=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, badLimit.code)
}

func TestBlackouts(t *testing.T) {
	h := newServer(t)

	set := do(t, h, http.MethodPost, "/api/v1/blackouts", `{"provider_id":"prov-1","date_from":"2031-03-10","date_to":"2031-03-12","reason":"vacation"}`, "")
	require.Equal(t, http.StatusCreated, set.code, set.body)
	assert.EqualValues(t, 3, set.body["count"])

	slots := do(t, h, http.MethodGet, "/api/v1/availability/slots?provider_id=prov-1&date=2031-03-11", "", "")
	require.Equal(t, http.StatusOK, slots.code)
	assert.Equal(t, false, slots.body["available"])
	assert.Empty(t, slots.body["slots"])

	blocked := book(t, h, "c", "2031-03-11", "10:00", "10:30")
	assert.Equal(t, http.StatusConflict, blocked.code)
	assert.Equal(t, "blackout", blocked.body["cause"])

	cal := do(t, h, http.MethodGet, "/api/v1/availability/calendar?provider_id=prov-1&year=2031&month=3", "", "")
	require.Equal(t, http.StatusOK, cal.code)
	assert.EqualValues(t, 31, cal.body["total_days"])
	assert.EqualValues(t, 3, cal.body["blocked_days"])
	assert.EqualValues(t, 28, cal.body["available_days"])

	list := do(t, h, http.MethodGet, "/api/v1/blackouts?provider_id=prov-1", "", "")
	require.Equal(t, http.StatusOK, list.code)
	items := list.body["blackouts"].([]any)
	require.Len(t, items, 3)
	first := items[0].(map[string]any)
	assert.Equal(t, "2031-03-10", first["date"])

	byID := do(t, h, http.MethodDelete, "/api/v1/blackouts?id="+first["id"].(string), "", "")
	assert.Equal(t, http.StatusOK, byID.code)

	cleared := do(t, h, http.MethodDelete, "/api/v1/blackouts?provider_id=prov-1&date_from=2031-03-01&date_to=2031-03-31", "", "")
	require.Equal(t, http.StatusOK, cleared.code)
	assert.EqualValues(t, 2, cleared.body["count"])

	require.Equal(t, http.StatusCreated, book(t, h, "c", "2031-03-11", "10:00", "10:30").code)
	refused := do(t, h, http.MethodPost, "/api/v1/blackouts", `{"provider_id":"prov-1","date":"2031-03-11"}`, "")
	assert.Equal(t, http.StatusConflict, refused.code)
	assert.Equal(t, "bookings", refused.body["cause"])

	both := do(t, h, http.MethodPost, "/api/v1/blackouts", `{"provider_id":"prov-1","date":"2031-03-11","date_from":"2031-03-11"}`, "")
	assert.Equal(t, http.StatusBadRequest, both.code)
}

func TestCalendarDefaultsToCurrentMonth(t *testing.T) {
	h := newServer(t)
	res := do(t, h, http.MethodGet, "/api/v1/availability/calendar?provider_id=prov-1", "", "")
	require.Equal(t, http.StatusOK, res.code)
	assert.EqualValues(t, 2031, res.body["year"])
	assert.EqualValues(t, 1, res.body["month"])

	bad := do(t, h, http.MethodGet, "/api/v1/availability/calendar?provider_id=prov-1&month=13", "", "")
	assert.Equal(t, http.StatusBadRequest, bad.code)
}

func TestCalendarDefaultUsesEngineLocation(t *testing.T) {
	lima := time.FixedZone("PET", -5*60*60)
	h := newServerWith(t, engine.Options{
		Location: lima,
		Now:      func() time.Time { return time.Date(2031, 2, 1, 2, 0, 0, 0, time.UTC) },
	})

	res := do(t, h, http.MethodGet, "/api/v1/availability/calendar?provider_id=prov-1", "", "")
	require.Equal(t, http.StatusOK, res.code)
	assert.EqualValues(t, 2031, res.body["year"])
	assert.EqualValues(t, 1, res.body["month"])
}

func TestMethodNotAllowed(t *testing.T) {
	h := newServer(t)
	res := do(t, h, http.MethodPut, "/api/v1/bookings", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, res.code)

	res = do(t, h, http.MethodPost, "/api/v1/availability/check", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, res.code)
}
