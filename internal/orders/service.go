package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Service exposes owner-scoped order reads.
type Service interface {
	Get(ctx context.Context, userID int64, orderID string) (*OrderDTO, error)
	List(ctx context.Context, userID int64, params pagination.Params) (*pagination.Page[OrderDTO], error)
}

type service struct {
	repo Repository
}

// NewService builds an order read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

// Get returns NOT_FOUND for orders owned by someone else so ids cannot be enumerated.
func (s *service) Get(ctx context.Context, userID int64, orderID string) (*OrderDTO, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	dto := FromModel(*order)
	return &dto, nil
}

func (s *service) List(ctx context.Context, userID int64, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	params = params.Normalize()
	rows, total, err := s.repo.ListForUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	page := &pagination.Page[OrderDTO]{
		Count:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
		Results:  make([]OrderDTO, 0, len(rows)),
	}
	for _, row := range rows {
		page.Results = append(page.Results, FromModel(row))
	}
	return page, nil
}
