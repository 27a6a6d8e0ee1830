package collector

import (
	"sort"
	"sync"
	"time"
)

// CountryStatus is a read-only snapshot of one country's last outcome.
type CountryStatus struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Fetched   int       `json:"fetched"`
	Inserted  int       `json:"inserted"`
	Critical  int       `json:"critical"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Scheduler holds the mutable state of the scan loop: the time of the
// last completed cycle and each country's most recent outcome. It is
// created once in main and passed explicitly to the collector and the
// dashboard server; cycle state never lives in package-level variables.
type Scheduler struct {
	mu        sync.Mutex
	lastCycle time.Time
	cycles    int
	countries map[string]CountryStatus
}

// NewScheduler returns a scheduler with no recorded cycles.
func NewScheduler() *Scheduler {
	return &Scheduler{countries: make(map[string]CountryStatus)}
}

// RecordCycle stores the outcome of a completed cycle.
func (s *Scheduler) RecordCycle(report CycleReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCycle = report.StartedAt
	s.cycles++
	for _, res := range report.Countries {
		status := CountryStatus{
			Code:      res.Code,
			Name:      res.Name,
			Fetched:   res.Fetched,
			Inserted:  res.Inserted,
			Critical:  res.Critical,
			UpdatedAt: report.StartedAt,
		}
		if res.Err != nil {
			status.LastError = res.Err.Error()
		}
		s.countries[res.Code] = status
	}
}

// LastCycle returns the start time of the most recent cycle, or the
// zero time if no cycle has run yet.
func (s *Scheduler) LastCycle() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCycle
}

// Cycles returns the number of completed cycles.
func (s *Scheduler) Cycles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycles
}

// Snapshot returns the per-country statuses sorted by country code.
func (s *Scheduler) Snapshot() []CountryStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	statuses := make([]CountryStatus, 0, len(s.countries))
	for _, st := range s.countries {
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Code < statuses[j].Code })
	return statuses
}

// Stale reports whether the last cycle finished more than maxAge ago.
// A scheduler that has never run is always stale.
func (s *Scheduler) Stale(now time.Time, maxAge time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastCycle.IsZero() {
		return true
	}
	return now.Sub(s.lastCycle) > maxAge
}
