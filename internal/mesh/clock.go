// ABOUTME: Clock abstraction with an adjustable system-time implementation.
// ABOUTME: Time only moves forward; setting an earlier epoch is rejected.

package mesh

import (
	"errors"
	"sync"
	"time"
)

// ErrClockBackwards is returned when a clock set would move time backwards.
var ErrClockBackwards = errors.New("mesh: clock cannot go backwards")

// Clock supplies epoch seconds for message timestamps and supports manual
// adjustment from received clock-sync messages.
type Clock interface {
	Now() uint32
	Set(epoch uint32) error
}

// SystemClock tracks wall time plus an adjustable offset. The zero value is
// ready to use.
type SystemClock struct {
	mu     sync.Mutex
	offset int64
}

func (c *SystemClock) Now() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint32(time.Now().Unix() + c.offset)
}

// Set adjusts the clock so Now reports epoch. Setting a time at or before
// the current reading fails with ErrClockBackwards.
func (c *SystemClock) Set(epoch uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().Unix() + c.offset
	if int64(epoch) <= now {
		return ErrClockBackwards
	}
	c.offset += int64(epoch) - now
	return nil
}
