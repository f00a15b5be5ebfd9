// Package polling runs a function on a fixed interval in the background.
package polling

import (
	"sync"
	"time"
)

type Routine struct {
	ticker   *time.Ticker
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// Start launches a goroutine that invokes fn every interval until Stop is
// called.
func Start(interval time.Duration, fn func()) *Routine {
	r := &Routine{
		ticker:   time.NewTicker(interval),
		stopChan: make(chan struct{}),
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.ticker.Stop()
		for {
			select {
			case <-r.ticker.C:
				fn()
			case <-r.stopChan:
				return
			}
		}
	}()

	return r
}

// Stop terminates the routine and waits for it to exit. It must be called
// at most once.
func (r *Routine) Stop() {
	close(r.stopChan)
	r.wg.Wait()
}
