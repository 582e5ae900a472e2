package workers

import (
	"sync"
	"time"

	"github.com/camden-git/attendancebackend/session"
	"go.uber.org/zap"
)

// Advancer moves the active session forward to a point in time.
type Advancer interface {
	Advance(now time.Time) (session.State, error)
}

// SessionClock drives the session controller from a ticker so phase changes
// and auto-close happen without a scan or request arriving.
type SessionClock struct {
	Advancer Advancer
	Interval time.Duration
	Now      func() time.Time
	Wg       sync.WaitGroup
	StopChan chan struct{}

	stopOnce sync.Once
}

func NewSessionClock(advancer Advancer, interval time.Duration) *SessionClock {
	if interval <= 0 {
		interval = time.Second
	}
	return &SessionClock{
		Advancer: advancer,
		Interval: interval,
		Now:      time.Now,
		StopChan: make(chan struct{}),
	}
}

// Start launches the ticking goroutine.
func (c *SessionClock) Start() {
	c.Wg.Add(1)
	go c.run()
	zap.S().Infof("Started session clock with interval %s", c.Interval)
}

func (c *SessionClock) run() {
	defer c.Wg.Done()

	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Tick()
		case <-c.StopChan:
			zap.S().Info("Session clock stopping: Stop signal received")
			return
		}
	}
}

// Tick advances the controller once. Errors are logged; the next tick
// retries.
func (c *SessionClock) Tick() {
	if _, err := c.Advancer.Advance(c.Now()); err != nil {
		zap.S().Errorf("Session clock: advance failed: %v", err)
	}
}

// Stop halts the clock and waits for the goroutine to exit. Safe to call
// more than once.
func (c *SessionClock) Stop() {
	c.stopOnce.Do(func() {
		close(c.StopChan)
	})
	c.Wg.Wait()
}
