package models

import "time"

// Address is a shipping address owned by one user. Deletes are soft.
type Address struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64     `gorm:"column:user_id;not null;index"`
	Title     string    `gorm:"column:title;not null"`
	Receiver  string    `gorm:"column:receiver;not null"`
	Province  string    `gorm:"column:province;not null"`
	City      string    `gorm:"column:city;not null"`
	District  string    `gorm:"column:district;not null"`
	Place     string    `gorm:"column:place;not null"`
	Mobile    string    `gorm:"column:mobile;not null"`
	Tel       *string   `gorm:"column:tel"`
	Email     *string   `gorm:"column:email"`
	IsDeleted bool      `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
