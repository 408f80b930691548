// Package sla watches unresolved incidents and fires warning and escalation
// notifications when they stay open past the configured thresholds.
package sla

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opsdesk/incident-desk/internal/domain"
	"github.com/opsdesk/incident-desk/internal/incidents"
)

// The note attached when an incident is auto-reassigned on escalation.
const autoEscalationNote = "Auto-escalated due to SLA expiration"

// Config contains monitor configuration.
type Config struct {
	CheckInterval time.Duration
	WarnAfter     time.Duration
	EscalateAfter time.Duration
}

// DefaultConfig returns default monitor configuration.
func DefaultConfig() Config {
	return Config{
		CheckInterval: 60 * time.Second,
		WarnAfter:     2 * time.Hour,
		EscalateAfter: 4 * time.Hour,
	}
}

// Notifier receives SLA threshold events.
type Notifier interface {
	SLAWarning(ctx context.Context, inc domain.Incident, age time.Duration)
	SLAEscalated(ctx context.Context, inc domain.Incident, age time.Duration)
}

// NopNotifier discards all threshold events.
type NopNotifier struct{}

func (NopNotifier) SLAWarning(context.Context, domain.Incident, time.Duration)   {}
func (NopNotifier) SLAEscalated(context.Context, domain.Incident, time.Duration) {}

// IncidentLister lists incidents for sweeping.
type IncidentLister interface {
	List() []domain.Incident
}

// TeamAssigner reassigns incidents during escalation.
type TeamAssigner interface {
	AssignTeam(ctx context.Context, id string, input incidents.AssignTeamInput) (domain.Incident, error)
}

// Monitor periodically sweeps unresolved incidents against the SLA
// thresholds.
type Monitor struct {
	config   Config
	store    IncidentLister
	ledger   *Ledger
	notifier Notifier
	assigner TeamAssigner
	now      func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Option customizes a Monitor. Used by tests to pin time.
type Option func(*Monitor)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor creates a new SLA monitor.
func NewMonitor(config Config, store IncidentLister, ledger *Ledger, notifier Notifier, assigner TeamAssigner, opts ...Option) *Monitor {
	m := &Monitor{
		config:   config,
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		assigner: assigner,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the monitor goroutine. One sweep runs immediately, then on
// every tick.
func (m *Monitor) Start(ctx context.Context) {
	slog.Info("starting sla monitor",
		"check_interval", m.config.CheckInterval,
		"warn_after", m.config.WarnAfter,
		"escalate_after", m.config.EscalateAfter,
	)

	m.wg.Add(1)
	go m.run(ctx)
}

// Stop gracefully stops the monitor.
func (m *Monitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	slog.Info("sla monitor stopped")
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	m.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs a single sweep over all unresolved incidents.
func (m *Monitor) Check(ctx context.Context) {
	start := time.Now()
	breached := 0

	for _, inc := range m.store.List() {
		if inc.IsResolved() {
			continue
		}

		age := m.now().Sub(inc.OpenedAt)

		if age >= m.config.EscalateAfter {
			breached++
			m.escalate(ctx, inc, age)
			continue
		}

		if age >= m.config.WarnAfter {
			m.warn(ctx, inc, age)
		}
	}

	recordCheck(time.Since(start), breached)
}

func (m *Monitor) warn(ctx context.Context, inc domain.Incident, age time.Duration) {
	if m.ledger.Warned(inc.ID) {
		return
	}

	if err := m.ledger.MarkWarned(ctx, inc.ID, m.now()); err != nil {
		slog.Error("failed to persist sla ledger", "incident_id", inc.ID, "error", err)
		return
	}

	slog.Warn("incident approaching sla breach",
		"incident_id", inc.ID,
		"ticket", inc.InternalTicketNumber,
		"age", age,
	)

	m.notifier.SLAWarning(ctx, inc, age)
	recordNotification("warning")
}

func (m *Monitor) escalate(ctx context.Context, inc domain.Incident, age time.Duration) {
	if m.ledger.Escalated(inc.ID) {
		return
	}

	if err := m.ledger.MarkEscalated(ctx, inc.ID, m.now()); err != nil {
		slog.Error("failed to persist sla ledger", "incident_id", inc.ID, "error", err)
		return
	}

	slog.Error("incident breached sla",
		"incident_id", inc.ID,
		"ticket", inc.InternalTicketNumber,
		"age", age,
	)

	// First-line technicians hand over to engineering once the SLA expires.
	if inc.CurrentTeam != nil && *inc.CurrentTeam == domain.TeamTechnicians {
		reassigned, err := m.assigner.AssignTeam(ctx, inc.ID, incidents.AssignTeamInput{
			Team:  domain.TeamEngineering,
			Notes: autoEscalationNote,
		})
		if err != nil {
			slog.Error("failed to auto-reassign incident", "incident_id", inc.ID, "error", err)
		} else {
			inc = reassigned
		}
	}

	m.notifier.SLAEscalated(ctx, inc, age)
	recordNotification("escalation")
}
