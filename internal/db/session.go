package db

import "time"

// WebSession backs the browser cookie used for flash messages.
type WebSession struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Flash     string    `gorm:"size:280"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
