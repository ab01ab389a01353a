package models

import "time"

// RateCounter is a fixed-window hit counter kept in SQL when no Redis server is configured.
type RateCounter struct {
	Key       string    `gorm:"column:counter_key;primaryKey;size:191"`
	Hits      int64     `gorm:"not null;default:0"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// WindowClosed reports whether the counter's window has ended at now.
func (c *RateCounter) WindowClosed(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
