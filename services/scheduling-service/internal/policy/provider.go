package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
)

const (
	ProfileStandard = "standard"
	ProfileHourly   = "hourly"
)

// Provider resolves the working hours of a provider.
type Provider interface {
	PolicyFor(ctx context.Context, providerID string) (schedule.Policy, error)
	// Profile returns a named profile, for callers that pick one explicitly.
	Profile(name string) (schedule.Policy, bool)
}

// Profiles maps profile names to policies; it always knows the built-in ones.
type Profiles map[string]schedule.Policy

func BuiltinProfiles() Profiles {
	return Profiles{
		ProfileStandard: schedule.StandardPolicy,
		ProfileHourly:   schedule.HourlyPolicy,
	}
}

type staticProvider struct {
	profiles Profiles
	current  schedule.Policy
}

// NewStaticProvider applies the named built-in profile to every provider.
func NewStaticProvider(profile string) (Provider, error) {
	profiles := BuiltinProfiles()
	p, ok := profiles[strings.ToLower(strings.TrimSpace(profile))]
	if !ok {
		return nil, fmt.Errorf("unknown slot policy %q", profile)
	}
	return &staticProvider{profiles: profiles, current: p}, nil
}

func (p *staticProvider) PolicyFor(_ context.Context, _ string) (schedule.Policy, error) {
	return p.current, nil
}

func (p *staticProvider) Profile(name string) (schedule.Policy, bool) {
	pol, ok := p.profiles[strings.ToLower(strings.TrimSpace(name))]
	return pol, ok
}
