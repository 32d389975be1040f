// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for the monitor
// loop and anything else that waits.
//
// Production code takes a Clock instead of calling time.Now,
// time.After, time.NewTimer, or time.Sleep directly. Real() wraps the
// time package. Fake() returns a FakeClock whose time moves only when a
// test calls Advance, so a polling loop can be stepped one cycle at a
// time without real sleeping.
//
// # FakeClock Synchronization
//
// A goroutine that calls After, NewTimer, or Sleep on a FakeClock
// registers a pending waiter. Tests call WaitForTimers(n) to block until
// n waiters are pending before advancing:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go loop.Run(ctx, fake)
//	fake.WaitForTimers(1)          // the loop is now sleeping
//	fake.Advance(50 * time.Millisecond) // wake it for one cycle
//
// Because registration and WaitForTimers share the clock's mutex,
// state the loop wrote before it went to sleep is visible to the test
// once WaitForTimers returns.
package clock
