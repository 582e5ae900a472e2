package workers

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/camden-git/attendancebackend/session"
)

type countingAdvancer struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
	ticks chan struct{}
}

func (a *countingAdvancer) Advance(now time.Time) (session.State, error) {
	a.mu.Lock()
	a.calls = append(a.calls, now)
	a.mu.Unlock()
	if a.ticks != nil {
		select {
		case a.ticks <- struct{}{}:
		default:
		}
	}
	return session.State{Phase: session.PhaseIdle}, a.err
}

func (a *countingAdvancer) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func TestSessionClockTicks(t *testing.T) {
	adv := &countingAdvancer{ticks: make(chan struct{}, 1)}
	clock := NewSessionClock(adv, 5*time.Millisecond)
	clock.Start()

	for i := 0; i < 3; i++ {
		select {
		case <-adv.ticks:
		case <-time.After(5 * time.Second):
			t.Fatalf("tick %d never arrived", i)
		}
	}
	clock.Stop()

	after := adv.count()
	time.Sleep(20 * time.Millisecond)
	if adv.count() != after {
		t.Fatal("clock kept ticking after Stop")
	}
	clock.Stop()
}

func TestSessionClockTickUsesClockAndSurvivesErrors(t *testing.T) {
	fixed := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)
	adv := &countingAdvancer{err: errors.New("database is locked")}
	clock := NewSessionClock(adv, 0)
	clock.Now = func() time.Time { return fixed }

	if clock.Interval != time.Second {
		t.Fatalf("default interval = %s", clock.Interval)
	}
	clock.Tick()
	clock.Tick()

	if adv.count() != 2 {
		t.Fatalf("calls = %d, want 2", adv.count())
	}
	if !adv.calls[0].Equal(fixed) {
		t.Fatalf("advance time = %s, want %s", adv.calls[0], fixed)
	}
}
