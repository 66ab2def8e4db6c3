package address

import "github.com/angelmondragon/storefront-backend/pkg/db/models"

// Input carries the editable address fields.
type Input struct {
	Title    string  `json:"title"`
	Receiver string  `json:"receiver" validate:"required,max=20"`
	Province string  `json:"province" validate:"required,max=20"`
	City     string  `json:"city" validate:"required,max=20"`
	District string  `json:"district" validate:"required,max=20"`
	Place    string  `json:"place" validate:"required,max=50"`
	Mobile   string  `json:"mobile" validate:"required"`
	Tel      *string `json:"tel,omitempty"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
}

// AddressDTO is the owner-facing address shape.
type AddressDTO struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Receiver string  `json:"receiver"`
	Province string  `json:"province"`
	City     string  `json:"city"`
	District string  `json:"district"`
	Place    string  `json:"place"`
	Mobile   string  `json:"mobile"`
	Tel      *string `json:"tel,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// Book is the address listing plus the caller's default.
type Book struct {
	DefaultAddressID *int64       `json:"default_address_id"`
	Limit            int          `json:"limit"`
	Addresses        []AddressDTO `json:"addresses"`
}

func toDTO(addr models.Address) AddressDTO {
	return AddressDTO{
		ID:       addr.ID,
		Title:    addr.Title,
		Receiver: addr.Receiver,
		Province: addr.Province,
		City:     addr.City,
		District: addr.District,
		Place:    addr.Place,
		Mobile:   addr.Mobile,
		Tel:      addr.Tel,
		Email:    addr.Email,
	}
}
