package users

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	Mobile           string    `json:"mobile"`
	Email            string    `json:"email"`
	EmailActive      bool      `json:"email_active"`
	DefaultAddressID *int64    `json:"default_address_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Username     string
	PasswordHash string
	Mobile       string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:               u.ID,
		Username:         u.Username,
		Mobile:           u.Mobile,
		Email:            u.Email,
		EmailActive:      u.EmailActive,
		DefaultAddressID: u.DefaultAddressID,
		CreatedAt:        u.CreatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Username:     c.Username,
		PasswordHash: c.PasswordHash,
		Mobile:       c.Mobile,
	}
}
