// Package memory is an in-process implementation of the repository
// interfaces. Conditional updates hold the store mutex, so they have the same
// compare-and-set semantics as their SQL counterparts. Tickets read with
// GetForUpdate stay locked until the surrounding WithinTx returns.
package memory

import (
	"context"
	"sync"

	"github.com/ownerdesk/ticket-engine/internal/domain"
	"github.com/ownerdesk/ticket-engine/internal/repository"
)

// Store holds every aggregate behind a single mutex.
type Store struct {
	mu sync.RWMutex

	tickets      map[string]domain.Ticket
	envelopes    map[string]domain.Envelope
	agents       map[string]domain.Agent
	teams        map[string]domain.Team
	contacts     map[string]domain.Contact
	companies    map[string]domain.Company
	flags        map[string]domain.CaseFlag
	resolutions  map[string]domain.Resolution
	calibrations map[string]domain.CalibrationItem
	alerts       map[string]domain.Alert
	timeline     []domain.TimelineEntry

	// insertion order for stable listings
	ticketOrder      []string
	envelopeOrder    []string
	agentOrder       []string
	flagOrder        []string
	resolutionOrder  []string
	calibrationOrder []string
	alertOrder       []string

	rowMu    sync.Mutex
	rowLocks map[string]*sync.Mutex
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		tickets:      make(map[string]domain.Ticket),
		envelopes:    make(map[string]domain.Envelope),
		agents:       make(map[string]domain.Agent),
		teams:        make(map[string]domain.Team),
		contacts:     make(map[string]domain.Contact),
		companies:    make(map[string]domain.Company),
		flags:        make(map[string]domain.CaseFlag),
		resolutions:  make(map[string]domain.Resolution),
		calibrations: make(map[string]domain.CalibrationItem),
		alerts:       make(map[string]domain.Alert),
		rowLocks:     make(map[string]*sync.Mutex),
	}
}

func (s *Store) Tickets() repository.TicketRepository           { return ticketRepo{s} }
func (s *Store) Envelopes() repository.EnvelopeRepository       { return envelopeRepo{s} }
func (s *Store) Agents() repository.AgentRepository             { return agentRepo{s} }
func (s *Store) Teams() repository.TeamRepository               { return teamRepo{s} }
func (s *Store) Customers() repository.CustomerRepository       { return customerRepo{s} }
func (s *Store) CaseFlags() repository.CaseFlagRepository       { return caseFlagRepo{s} }
func (s *Store) Resolutions() repository.ResolutionRepository   { return resolutionRepo{s} }
func (s *Store) Calibrations() repository.CalibrationRepository { return calibrationRepo{s} }
func (s *Store) Alerts() repository.AlertRepository             { return alertRepo{s} }
func (s *Store) Timeline() repository.TimelineRepository        { return timelineRepo{s} }

// Transactor scopes row locks taken by GetForUpdate. Writes are not rolled
// back on failure; callers compensate.
func (s *Store) Transactor() repository.Transactor { return transactor{s} }

type transactor struct{ s *Store }

type txState struct {
	held map[string]*sync.Mutex
}

type txKey struct{}

// WithinTx joins an outer transaction when one is already in ctx.
func (t transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}
	st := &txState{held: make(map[string]*sync.Mutex)}
	defer func() {
		for _, mu := range st.held {
			mu.Unlock()
		}
	}()
	return fn(context.WithValue(ctx, txKey{}, st))
}

// lockRow takes the row lock for key on behalf of the transaction in ctx.
// Without a transaction it is a no-op.
func (s *Store) lockRow(ctx context.Context, key string) {
	st, ok := ctx.Value(txKey{}).(*txState)
	if !ok {
		return
	}
	if _, held := st.held[key]; held {
		return
	}
	s.rowMu.Lock()
	mu, ok := s.rowLocks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.rowLocks[key] = mu
	}
	s.rowMu.Unlock()
	mu.Lock()
	st.held[key] = mu
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
