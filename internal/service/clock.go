package service

import "time"

// SystemClock implements ports.Clock using the wall clock.
type SystemClock struct{}

// NewSystemClock creates a system clock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
