package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockRequester struct {
	id    string
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockRequester) AccountID() string { return m.id }

func (m *mockRequester) RequestSync(ctx context.Context) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return Started, m.err
}

func (m *mockRequester) getCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestNewTrigger_InvalidSpec(t *testing.T) {
	if _, err := NewTrigger("every now and then"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTrigger_FireRequestsEveryTarget(t *testing.T) {
	a := &mockRequester{id: "a", err: errors.New("persist failed")}
	b := &mockRequester{id: "b"}
	tr, err := NewTrigger("@every 1h", a, b)
	if err != nil {
		t.Fatal(err)
	}

	tr.fire()

	if a.getCalls() != 1 || b.getCalls() != 1 {
		t.Errorf("calls = %d, %d; want 1, 1", a.getCalls(), b.getCalls())
	}
}

func TestTrigger_RunFiresOnSchedule(t *testing.T) {
	r := &mockRequester{id: "a"}
	tr, err := NewTrigger("@every 1s", r)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.Run(ctx)
	}()

	waitFor(t, 3*time.Second, func() bool { return r.getCalls() >= 1 })
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestManager(t *testing.T) {
	mk := func(id string) *Scheduler {
		f := newFixture(t, func(c *Config) { c.AccountID = id })
		return f.sched
	}
	b, a := mk("b"), mk("a")

	m, err := NewManager(b, a)
	if err != nil {
		t.Fatal(err)
	}
	if ids := m.AccountIDs(); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("AccountIDs() = %v", ids)
	}
	if got, ok := m.Get("a"); !ok || got != a {
		t.Error("Get(a) failed")
	}
	if len(m.Requesters()) != 2 {
		t.Error("expected two requesters")
	}

	if _, err := NewManager(a, a); err == nil {
		t.Error("expected duplicate account error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx)
	}()
	if outcome, _ := a.RequestSync(context.Background()); outcome != Started {
		t.Errorf("outcome = %v", outcome)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Manager.Run did not return")
	}
}
