package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Manager owns the schedulers of all configured accounts.
type Manager struct {
	schedulers map[string]*Scheduler
}

// NewManager indexes schedulers by account id.
func NewManager(schedulers ...*Scheduler) (*Manager, error) {
	m := &Manager{schedulers: make(map[string]*Scheduler, len(schedulers))}
	for _, s := range schedulers {
		if _, dup := m.schedulers[s.AccountID()]; dup {
			return nil, fmt.Errorf("duplicate scheduler for account %q", s.AccountID())
		}
		m.schedulers[s.AccountID()] = s
	}
	return m, nil
}

// Get returns the scheduler of accountID.
func (m *Manager) Get(accountID string) (*Scheduler, bool) {
	s, ok := m.schedulers[accountID]
	return s, ok
}

// AccountIDs returns the managed account ids in sorted order.
func (m *Manager) AccountIDs() []string {
	ids := make([]string, 0, len(m.schedulers))
	for id := range m.schedulers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Requesters returns every scheduler as a Requester, for use with a Trigger.
func (m *Manager) Requesters() []Requester {
	out := make([]Requester, 0, len(m.schedulers))
	for _, id := range m.AccountIDs() {
		out = append(out, m.schedulers[id])
	}
	return out
}

// Run runs every scheduler's worker and blocks until all have stopped.
func (m *Manager) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, s := range m.schedulers {
		wg.Add(1)
		go func(s *Scheduler) {
			defer wg.Done()
			s.Run(ctx)
		}(s)
	}
	wg.Wait()
}
