package plugins

import (
	"slices"
	"time"
)

// Descriptor is a plugin's self-reported identity, captured by the
// identity probe and never modified afterwards.
type Descriptor struct {
	Name           string
	Version        string
	Description    string
	SupportedViews []string
}

// SupportsView reports whether the plugin contributes fields to view.
func (d Descriptor) SupportsView(view string) bool {
	return slices.Contains(d.SupportedViews, view)
}

func (d Descriptor) clone() Descriptor {
	d.SupportedViews = slices.Clone(d.SupportedViews)
	return d
}

// HealthStatus is the result of the most recent probe of an entry.
type HealthStatus struct {
	Healthy   bool
	Reason    string // failure reason when not healthy
	CheckedAt time.Time
}

func healthy(at time.Time) *HealthStatus {
	return &HealthStatus{Healthy: true, CheckedAt: at}
}

func unhealthy(reason string, at time.Time) *HealthStatus {
	return &HealthStatus{Reason: reason, CheckedAt: at}
}

// EntryInfo is a read-only snapshot of one registry entry.
type EntryInfo struct {
	Name       string
	Path       string
	Descriptor Descriptor
	Enabled    bool
	Health     *HealthStatus // nil until probed
	State      State
	LoadedAt   time.Time
}

// IsHealthy reports whether the entry passed its last probe.
func (e EntryInfo) IsHealthy() bool {
	return e.Health != nil && e.Health.Healthy
}

// IsUnhealthy reports whether the entry was probed and failed.
func (e EntryInfo) IsUnhealthy() bool {
	return e.Health != nil && !e.Health.Healthy
}

// LoadOutcome reports what happened to one discovery candidate.
type LoadOutcome struct {
	Name  string
	Path  string
	State State
	Err   error // nil when the candidate is healthy
}

// CleanOutcome reports what Clean did with one candidate or entry.
type CleanOutcome struct {
	Name        string
	Path        string
	Evicted     bool
	Reason      string
	FileRemoved bool
}
