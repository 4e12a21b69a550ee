package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(bookingRejected.WithLabelValues("booking"))
	IncBookingRejected("booking")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingRejected.WithLabelValues("booking")))

	before = testutil.ToFloat64(blackoutChanged.WithLabelValues("set"))
	AddBlackoutChanged("set", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(blackoutChanged.WithLabelValues("set")))
}

func TestHandlerExposesCounters(t *testing.T) {
	Register()
	IncBookingCreated()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "scheduling_booking_created_total"))
}
