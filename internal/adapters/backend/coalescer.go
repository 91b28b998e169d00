package backend

import (
	"sync"
	"time"

	"github.com/dkeye/proximity/internal/domain"
)

// poseCoalescer forwards at most one pose per participant per interval. The first pose
// of a window arms a timer and the latest pose seen when it fires is emitted.
type poseCoalescer struct {
	interval time.Duration
	emit     func(domain.ClientID, domain.Pose)

	mu      sync.Mutex
	pending map[domain.ClientID]domain.Pose
	timers  map[domain.ClientID]*time.Timer
	stopped bool
}

func newPoseCoalescer(interval time.Duration, emit func(domain.ClientID, domain.Pose)) *poseCoalescer {
	return &poseCoalescer{
		interval: interval,
		emit:     emit,
		pending:  make(map[domain.ClientID]domain.Pose),
		timers:   make(map[domain.ClientID]*time.Timer),
	}
}

func (c *poseCoalescer) Push(id domain.ClientID, pose domain.Pose) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.pending[id] = pose
	if _, armed := c.timers[id]; !armed {
		c.timers[id] = time.AfterFunc(c.interval, func() { c.flush(id) })
	}
}

func (c *poseCoalescer) flush(id domain.ClientID) {
	c.mu.Lock()
	pose, ok := c.pending[id]
	delete(c.pending, id)
	delete(c.timers, id)
	stopped := c.stopped
	c.mu.Unlock()

	if ok && !stopped {
		c.emit(id, pose)
	}
}

// Stop cancels every armed timer. Pending poses are discarded.
func (c *poseCoalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	clear(c.pending)
}
