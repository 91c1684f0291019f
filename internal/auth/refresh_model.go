package auth

import "time"

type RefreshToken struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       uint   `gorm:"index"`
	EscritorioID uint   `gorm:"index"`
	FamilyID     string `gorm:"index"`
	Hash         string `gorm:"uniqueIndex"`
	IsAdmin      bool
	ExpiresAt    time.Time `gorm:"index"`
	RevokedAt    *time.Time
	CreatedAt    time.Time
}
