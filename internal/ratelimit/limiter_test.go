package ratelimit

import (
	"sync"
	"testing"
	"time"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return base.Add(time.Duration(seconds) * time.Second)
}

func TestAdmitSequence(t *testing.T) {
	l := New(2, 60*time.Second)

	if !l.Admit(1, at(0)) {
		t.Error("first request should be admitted")
	}
	if !l.Admit(1, at(1)) {
		t.Error("second request should be admitted")
	}
	if l.Admit(1, at(2)) {
		t.Error("third request within window should be denied")
	}
	if !l.Admit(1, at(61)) {
		t.Error("request after the burst aged out should be admitted")
	}
}

func TestFirstCallAdmits(t *testing.T) {
	l := New(1, time.Minute)
	if !l.Admit(42, at(0)) {
		t.Fatal("empty window must admit")
	}
}

func TestDeniedRequestsNotRecorded(t *testing.T) {
	l := New(1, 60*time.Second)

	if !l.Admit(1, at(0)) {
		t.Fatal("first request should be admitted")
	}
	for s := 1; s <= 5; s++ {
		if l.Admit(1, at(s)) {
			t.Fatalf("request at t=%d should be denied", s)
		}
	}
	if got := l.Count(1, at(5)); got != 1 {
		t.Errorf("denied attempts must not consume quota: count = %d, want 1", got)
	}
	// Only the t=0 event is recorded, so quota frees at t=61 even
	// though denials happened later.
	if !l.Admit(1, at(61)) {
		t.Error("window should be free once the single recorded event ages out")
	}
}

func TestBoundaryTimestampEvicts(t *testing.T) {
	l := New(1, 60*time.Second)
	l.Admit(1, at(0))

	if got := l.Count(1, at(60)); got != 0 {
		t.Errorf("timestamp exactly window-old is stale: count = %d, want 0", got)
	}
	if !l.Admit(1, at(60)) {
		t.Error("request at the boundary should be admitted")
	}
}

func TestCountDoesNotRecord(t *testing.T) {
	l := New(3, time.Minute)
	l.Admit(1, at(0))

	for range 10 {
		if got := l.Count(1, at(1)); got != 1 {
			t.Fatalf("count = %d, want 1", got)
		}
	}
}

func TestCountUnknownUser(t *testing.T) {
	l := New(3, time.Minute)
	if got := l.Count(99, at(0)); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
}

func TestReset(t *testing.T) {
	l := New(1, time.Minute)
	l.Admit(1, at(0))

	if l.Admit(1, at(1)) {
		t.Fatal("quota should be exhausted")
	}
	l.Reset(1)
	if !l.Admit(1, at(2)) {
		t.Error("reset should free the quota immediately")
	}

	// Idempotent, including for users never seen.
	l.Reset(1)
	l.Reset(1)
	l.Reset(777)
}

func TestUsersIndependent(t *testing.T) {
	l := New(1, time.Minute)

	if !l.Admit(1, at(0)) {
		t.Fatal("user 1 should be admitted")
	}
	if !l.Admit(2, at(0)) {
		t.Error("user 2 has their own window")
	}
	if l.Admit(1, at(1)) {
		t.Error("user 1 should be denied")
	}
	if got := l.Count(2, at(1)); got != 1 {
		t.Errorf("user 2 count = %d, want 1", got)
	}
}

func TestConcurrentAdmitsStayWithinQuota(t *testing.T) {
	const workers = 50
	const max = 10
	l := New(max, time.Minute)

	var wg sync.WaitGroup
	admitted := make(chan bool, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			admitted <- l.Admit(1, at(0))
		}()
	}
	wg.Wait()
	close(admitted)

	var count int
	for ok := range admitted {
		if ok {
			count++
		}
	}
	if count != max {
		t.Errorf("admitted %d concurrent requests, want exactly %d", count, max)
	}
}

func TestWindowSlidesGradually(t *testing.T) {
	l := New(3, 60*time.Second)
	l.Admit(1, at(0))
	l.Admit(1, at(20))
	l.Admit(1, at(40))

	if l.Admit(1, at(59)) {
		t.Fatal("window full at t=59")
	}
	if !l.Admit(1, at(61)) {
		t.Error("t=0 event aged out, one slot free at t=61")
	}
	if l.Admit(1, at(62)) {
		t.Error("window full again at t=62")
	}
	if !l.Admit(1, at(81)) {
		t.Error("t=20 event aged out at t=81")
	}
}

func TestAccessors(t *testing.T) {
	l := New(7, 42*time.Second)
	if l.Max() != 7 {
		t.Errorf("Max() = %d, want 7", l.Max())
	}
	if l.Window() != 42*time.Second {
		t.Errorf("Window() = %s, want 42s", l.Window())
	}
}
