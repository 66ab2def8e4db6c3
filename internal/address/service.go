package address

import (
	"context"
	stdErrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/errors"
	"gorm.io/gorm"
)

// MaxAddresses is the default cap on live addresses per user.
const MaxAddresses = 20

var (
	mobilePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)
	telPattern    = regexp.MustCompile(`^(0[0-9]{2,3}-)?([2-9][0-9]{6,7})+(-[0-9]{1,4})?$`)
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Service interface {
	Get(ctx context.Context, id, ownerID int64) (*models.Address, error)
	List(ctx context.Context, ownerID int64) (*Book, error)
	Create(ctx context.Context, ownerID int64, input Input) (*AddressDTO, error)
	Update(ctx context.Context, ownerID, id int64, input Input) (*AddressDTO, error)
	Delete(ctx context.Context, ownerID, id int64) error
	SetDefault(ctx context.Context, ownerID, id int64) error
	UpdateTitle(ctx context.Context, ownerID, id int64, title string) error
}

type service struct {
	repo  *Repository
	tx    txRunner
	limit int
}

// Option customizes the address service.
type Option func(*service)

// WithLimit overrides the live-address cap. Non-positive values keep the default.
func WithLimit(n int) Option {
	return func(s *service) {
		if n > 0 {
			s.limit = n
		}
	}
}

func NewService(repo *Repository, tx txRunner, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	svc := &service{repo: repo, tx: tx, limit: MaxAddresses}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Get returns a live address owned by ownerID. Deleted or missing addresses are
// NOT_FOUND; another user's address is FORBIDDEN.
func (s *service) Get(ctx context.Context, id, ownerID int64) (*models.Address, error) {
	return s.owned(ctx, s.repo, id, ownerID)
}

func (s *service) owned(ctx context.Context, repo *Repository, id, ownerID int64) (*models.Address, error) {
	if id <= 0 {
		return nil, errors.New(errors.CodeValidation, "address id required")
	}
	addr, err := repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "address not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "load address")
	}
	if addr.IsDeleted {
		return nil, errors.New(errors.CodeNotFound, "address not found")
	}
	if addr.UserID != ownerID {
		return nil, errors.New(errors.CodeForbidden, "address belongs to another user")
	}
	return addr, nil
}

func (s *service) List(ctx context.Context, ownerID int64) (*Book, error) {
	addrs, err := s.repo.ListLive(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "list addresses")
	}
	defaultID, err := s.repo.DefaultID(ctx, ownerID)
	if err != nil && !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(errors.CodeDependency, err, "load default address")
	}

	book := &Book{DefaultAddressID: defaultID, Limit: s.limit, Addresses: make([]AddressDTO, 0, len(addrs))}
	for _, addr := range addrs {
		book.Addresses = append(book.Addresses, toDTO(addr))
	}
	return book, nil
}

// Create adds an address and makes it the default when the user has none.
func (s *service) Create(ctx context.Context, ownerID int64, input Input) (*AddressDTO, error) {
	input, err := normalize(input)
	if err != nil {
		return nil, err
	}

	addr := &models.Address{
		UserID:   ownerID,
		Title:    input.Title,
		Receiver: input.Receiver,
		Province: input.Province,
		City:     input.City,
		District: input.District,
		Place:    input.Place,
		Mobile:   input.Mobile,
		Tel:      input.Tel,
		Email:    input.Email,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountLive(ctx, ownerID)
		if err != nil {
			return errors.Wrap(errors.CodeDependency, err, "count addresses")
		}
		if count >= int64(s.limit) {
			return errors.New(errors.CodeValidation, "address limit reached").
				WithDetails(map[string]any{"limit": s.limit})
		}
		if err := repo.Create(ctx, addr); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "create address")
		}

		defaultID, err := repo.DefaultID(ctx, ownerID)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "user not found")
			}
			return errors.Wrap(errors.CodeDependency, err, "load default address")
		}
		if defaultID == nil {
			if err := repo.SetDefault(ctx, ownerID, addr.ID); err != nil {
				return errors.Wrap(errors.CodeDependency, err, "set default address")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(*addr)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, ownerID, id int64, input Input) (*AddressDTO, error) {
	input, err := normalize(input)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, s.repo, id, ownerID); err != nil {
		return nil, err
	}

	updates := map[string]any{
		"title":    input.Title,
		"receiver": input.Receiver,
		"province": input.Province,
		"city":     input.City,
		"district": input.District,
		"place":    input.Place,
		"mobile":   input.Mobile,
		"tel":      input.Tel,
		"email":    input.Email,
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "update address")
	}
	addr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "reload address")
	}
	dto := toDTO(*addr)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, ownerID, id int64) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.owned(ctx, repo, id, ownerID); err != nil {
			return err
		}
		if err := repo.SoftDelete(ctx, ownerID, id); err != nil {
			return errors.Wrap(errors.CodeDependency, err, "delete address")
		}
		return nil
	})
}

func (s *service) SetDefault(ctx context.Context, ownerID, id int64) error {
	if _, err := s.owned(ctx, s.repo, id, ownerID); err != nil {
		return err
	}
	if err := s.repo.SetDefault(ctx, ownerID, id); err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New(errors.CodeNotFound, "user not found")
		}
		return errors.Wrap(errors.CodeDependency, err, "set default address")
	}
	return nil
}

func (s *service) UpdateTitle(ctx context.Context, ownerID, id int64, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New(errors.CodeValidation, "title is required")
	}
	if _, err := s.owned(ctx, s.repo, id, ownerID); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, map[string]any{"title": title}); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "update address title")
	}
	return nil
}

func normalize(input Input) (Input, error) {
	input.Receiver = strings.TrimSpace(input.Receiver)
	input.Province = strings.TrimSpace(input.Province)
	input.City = strings.TrimSpace(input.City)
	input.District = strings.TrimSpace(input.District)
	input.Place = strings.TrimSpace(input.Place)
	input.Mobile = strings.TrimSpace(input.Mobile)
	input.Title = strings.TrimSpace(input.Title)

	if input.Receiver == "" || input.Province == "" || input.City == "" || input.District == "" || input.Place == "" || input.Mobile == "" {
		return input, errors.New(errors.CodeValidation, "missing required address fields")
	}
	if !mobilePattern.MatchString(input.Mobile) {
		return input, errors.New(errors.CodeValidation, "invalid mobile")
	}
	if input.Tel != nil {
		tel := strings.TrimSpace(*input.Tel)
		if tel == "" {
			input.Tel = nil
		} else if !telPattern.MatchString(tel) {
			return input, errors.New(errors.CodeValidation, "invalid tel")
		} else {
			input.Tel = &tel
		}
	}
	if input.Email != nil && strings.TrimSpace(*input.Email) == "" {
		input.Email = nil
	}
	if input.Title == "" {
		input.Title = input.Receiver
	}
	return input, nil
}
