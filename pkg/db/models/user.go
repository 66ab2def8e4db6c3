package models

import "time"

// User represents the canonical identity entity.
type User struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Username         string    `gorm:"column:username;not null;uniqueIndex"`
	PasswordHash     string    `gorm:"column:password_hash;not null"`
	Mobile           string    `gorm:"column:mobile;not null;uniqueIndex"`
	Email            string    `gorm:"column:email;not null;default:''"`
	EmailActive      bool      `gorm:"column:email_active;not null;default:false"`
	DefaultAddressID *int64    `gorm:"column:default_address_id"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
