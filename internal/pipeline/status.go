package pipeline

import (
	"time"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

// Status is a point-in-time view of the poller for the operational API.
type Status struct {
	Renderer        string    `json:"renderer"`
	Cycles          int64     `json:"cycles"`
	LastCycleAt     time.Time `json:"last_cycle_at"`
	SeenReleases    int       `json:"seen_releases"`
	CachedDetails   int       `json:"cached_details"`
	CachedDocuments int       `json:"cached_documents"`
	Announced       int64     `json:"announced"`
	Skipped         int64     `json:"skipped"`
	LastRelease     string    `json:"last_release,omitempty"`
	LastOutcome     string    `json:"last_outcome,omitempty"`
	LastStage       string    `json:"last_stage,omitempty"`
}

// Status returns a copy of the current status. It is safe to call from any goroutine.
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *Poller) recordCycle() {
	details, documents := p.store.Sizes()
	seen := p.dedup.Len()
	now := time.Now().UTC()
	if p.clock != nil {
		now = p.clock.Now()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Cycles++
	p.status.LastCycleAt = now
	p.status.SeenReleases = seen
	p.status.CachedDetails = details
	p.status.CachedDocuments = documents
}

func (p *Poller) recordOutcome(name string, outcome release.Outcome) {
	details, documents := p.store.Sizes()

	p.mu.Lock()
	defer p.mu.Unlock()
	if outcome.Announced() {
		p.status.Announced++
	} else {
		p.status.Skipped++
	}
	p.status.LastRelease = name
	p.status.LastOutcome = string(outcome.Status)
	p.status.LastStage = string(outcome.Stage)
	p.status.CachedDetails = details
	p.status.CachedDocuments = documents
}
