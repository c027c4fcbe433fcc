package chat

import (
	"sync"
	"time"
)

// DefaultHeartbeatInterval sits well inside the client inactivity timeout.
const DefaultHeartbeatInterval = 15 * time.Second

// heartbeat emits heartbeat events on a ticker until stopped. A failed
// write means the client is gone; onFail is called once and the ticker
// stops.
type heartbeat struct {
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func startHeartbeat(em Emitter, every time.Duration, onFail func(error)) *heartbeat {
	h := &heartbeat{stopCh: make(chan struct{})}
	if every <= 0 {
		return h
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		t := time.NewTicker(every)
		defer t.Stop()

		for {
			select {
			case <-h.stopCh:
				return
			case <-t.C:
				if err := em.Emit(heartbeatEvent()); err != nil {
					onFail(err)
					return
				}
			}
		}
	}()
	return h
}

// stop blocks until the ticker goroutine has exited, so nothing is written
// after the caller's terminal event.
func (h *heartbeat) stop() {
	h.once.Do(func() { close(h.stopCh) })
	h.wg.Wait()
}
