package recordings

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoomLocksSerializeSameRoom(t *testing.T) {
	l := newRoomLocks()
	unlock := l.lock("r1")

	acquired := make(chan struct{})
	go func() {
		u := l.lock("r1")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestRoomLocksIndependentRooms(t *testing.T) {
	l := newRoomLocks()
	unlock := l.lock("r1")
	defer unlock()

	done := make(chan struct{})
	go func() {
		l.lock("r2")()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another room blocked")
	}
}

func TestRoomLocksReleaseEntries(t *testing.T) {
	l := newRoomLocks()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.lock("r1")()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, l.len())
}
