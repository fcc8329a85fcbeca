package core

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedMutexSerialisesSameKey(t *testing.T) {
	locks := newKeyedMutex()
	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("farm/a")
			defer unlock()
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()
	if peak != 1 {
		t.Fatalf("expected exclusive access, saw %d holders", peak)
	}
	if locks.size() != 0 {
		t.Fatalf("expected entries released, got %d", locks.size())
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	locks := newKeyedMutex()
	unlockA := locks.Lock("farm/a")
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("farm/b")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("different keys must not contend")
	}
	if locks.size() != 1 {
		t.Fatalf("expected one held entry, got %d", locks.size())
	}
	unlockA()
}
