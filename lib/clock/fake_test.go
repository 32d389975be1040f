// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockAdvanceMovesNow(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)
	clock.Advance(5 * time.Second)
	if got, want := clock.Now(), epoch.Add(5*time.Second); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockAfterFiresAtDeadline(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)
	channel := clock.After(3 * time.Second)

	clock.Advance(2 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	clock.Advance(time.Second)
	select {
	case <-channel:
	default:
		t.Fatal("After did not fire at its deadline")
	}
}

func TestFakeClockAfterNonPositive(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)
	select {
	case <-clock.After(0):
	default:
		t.Fatal("After(0) should be ready immediately")
	}
	if clock.PendingCount() != 0 {
		t.Fatalf("PendingCount = %d, want 0", clock.PendingCount())
	}
}

func TestFakeClockTimerStop(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)
	timer := clock.NewTimer(time.Second)
	if clock.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want 1", clock.PendingCount())
	}
	if !timer.Stop() {
		t.Fatal("Stop on a pending timer should return true")
	}
	if timer.Stop() {
		t.Fatal("second Stop should return false")
	}
	if clock.PendingCount() != 0 {
		t.Fatalf("PendingCount after Stop = %d, want 0", clock.PendingCount())
	}

	clock.Advance(2 * time.Second)
	select {
	case <-timer.C:
		t.Fatal("stopped timer fired")
	default:
	}
}

func TestFakeClockSleepWithWaitForTimers(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)
	done := make(chan struct{})
	go func() {
		clock.Sleep(10 * time.Millisecond)
		close(done)
	}()

	clock.WaitForTimers(1)
	clock.Advance(10 * time.Millisecond)

	select {
	case <-done:
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("Sleep did not return after Advance")
	}
}

func TestFakeClockAdvanceFiresAllExpired(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)
	late := clock.After(2 * time.Second)
	early := clock.After(time.Second)

	clock.Advance(3 * time.Second)

	for name, channel := range map[string]<-chan time.Time{"early": early, "late": late} {
		select {
		case fired := <-channel:
			if !fired.Equal(epoch.Add(3 * time.Second)) {
				t.Errorf("%s fired with %v, want advance target", name, fired)
			}
		default:
			t.Errorf("%s did not fire", name)
		}
	}
}
