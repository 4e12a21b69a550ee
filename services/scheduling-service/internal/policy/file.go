package policy

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a policy file:
//
//	default: standard
//	profiles:
//	  late:
//	    work_start: "12:00"
//	    work_end: "20:00"
//	    step_minutes: 30
//	providers:
//	  prov-42: hourly
type File struct {
	Default   string                 `yaml:"default"`
	Profiles  map[string]ProfileConfig `yaml:"profiles"`
	Providers map[string]string      `yaml:"providers"`
}

type ProfileConfig struct {
	WorkStart   string `yaml:"work_start"`
	WorkEnd     string `yaml:"work_end"`
	StepMinutes int    `yaml:"step_minutes"`
}

func (s ProfileConfig) policy() (schedule.Policy, error) {
	start, err := schedule.ParseTimeOfDay(s.WorkStart)
	if err != nil {
		return schedule.Policy{}, fmt.Errorf("work_start: %w", err)
	}
	end, err := schedule.ParseTimeOfDay(s.WorkEnd)
	if err != nil {
		return schedule.Policy{}, fmt.Errorf("work_end: %w", err)
	}
	p := schedule.Policy{WorkStart: start, WorkEnd: end, StepMinutes: s.StepMinutes}
	return p, p.Validate()
}

type fileProvider struct {
	profiles    Profiles
	fallback    schedule.Policy
	assignments map[string]schedule.Policy
}

// LoadFile reads a YAML policy file. Environment references such as
// ${CLINIC_OPENS} are expanded before parsing.
func LoadFile(path string) (Provider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(raw))))
}

// Parse builds a provider from YAML. Custom profiles may override the built-in names.
func Parse(data []byte) (Provider, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}

	profiles := BuiltinProfiles()
	for name, pc := range f.Profiles {
		p, err := pc.policy()
		if err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		profiles[strings.ToLower(name)] = p
	}

	def := strings.ToLower(strings.TrimSpace(f.Default))
	if def == "" {
		def = ProfileStandard
	}
	fallback, ok := profiles[def]
	if !ok {
		return nil, fmt.Errorf("default profile %q is not defined", f.Default)
	}

	assignments := make(map[string]schedule.Policy, len(f.Providers))
	for providerID, name := range f.Providers {
		p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("provider %q uses undefined profile %q", providerID, name)
		}
		assignments[providerID] = p
	}

	return &fileProvider{profiles: profiles, fallback: fallback, assignments: assignments}, nil
}

func (p *fileProvider) PolicyFor(_ context.Context, providerID string) (schedule.Policy, error) {
	if pol, ok := p.assignments[providerID]; ok {
		return pol, nil
	}
	return p.fallback, nil
}

func (p *fileProvider) Profile(name string) (schedule.Policy, bool) {
	pol, ok := p.profiles[strings.ToLower(strings.TrimSpace(name))]
	return pol, ok
}
