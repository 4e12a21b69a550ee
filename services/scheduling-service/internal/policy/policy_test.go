package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	p, err := NewStaticProvider("Hourly")
	require.NoError(t, err)

	pol, err := p.PolicyFor(context.Background(), "any")
	require.NoError(t, err)
	assert.Equal(t, schedule.HourlyPolicy, pol)

	std, ok := p.Profile(ProfileStandard)
	require.True(t, ok)
	assert.Equal(t, schedule.StandardPolicy, std)

	_, err = NewStaticProvider("weekly")
	assert.Error(t, err)
}

const sample = `
default: standard
profiles:
  late:
    work_start: "${LATE_START}"
    work_end: "20:00"
    step_minutes: 45
providers:
  prov-hourly: hourly
  prov-late: late
`

func TestLoadFile(t *testing.T) {
	t.Setenv("LATE_START", "12:00")
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	p, err := LoadFile(path)
	require.NoError(t, err)

	ctx := context.Background()
	pol, err := p.PolicyFor(ctx, "prov-late")
	require.NoError(t, err)
	assert.Equal(t, schedule.Policy{WorkStart: 12 * 60, WorkEnd: 20 * 60, StepMinutes: 45}, pol)

	pol, err = p.PolicyFor(ctx, "prov-hourly")
	require.NoError(t, err)
	assert.Equal(t, schedule.HourlyPolicy, pol)

	pol, err = p.PolicyFor(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, schedule.StandardPolicy, pol)

	_, ok := p.Profile("LATE")
	assert.True(t, ok)
}

func TestParseRejectsBadFiles(t *testing.T) {
	cases := map[string]string{
		"unknown default":  "default: nightly\n",
		"undefined ref":    "providers:\n  p1: nightly\n",
		"bad time":         "profiles:\n  x:\n    work_start: \"8:00\"\n    work_end: \"18:00\"\n    step_minutes: 30\n",
		"reversed hours":   "profiles:\n  x:\n    work_start: \"18:00\"\n    work_end: \"08:00\"\n    step_minutes: 30\n",
		"zero step":        "profiles:\n  x:\n    work_start: \"08:00\"\n    work_end: \"18:00\"\n    step_minutes: 0\n",
		"not yaml mapping": "- a\n- b\n",
	}
	for name, body := range cases {
		_, err := Parse([]byte(body))
		assert.Error(t, err, name)
	}
}
