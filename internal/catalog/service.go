package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Orderings accepted by ListByCategory; a leading "-" sorts descending.
var orderingColumns = map[string]string{
	"create_time": "created_at",
	"price":       "price",
	"sales":       "sales",
}

type skuRepository interface {
	FindByID(ctx context.Context, id int64) (*models.SKU, error)
	FindByIDs(ctx context.Context, ids []int64) ([]models.SKU, error)
	ListLaunchedByCategory(ctx context.Context, categoryID int64, orderBy string, params pagination.Params) ([]models.SKU, int64, error)
}

// Service is the catalog collaborator consumed by the cart, settlement and HTTP layers.
type Service interface {
	GetSKU(ctx context.Context, id int64) (*models.SKU, error)
	ListByIDs(ctx context.Context, ids []int64) ([]models.SKU, error)
	ListByCategory(ctx context.Context, categoryID int64, ordering string, params pagination.Params) (*pagination.Page[SKUDTO], error)
	Detail(ctx context.Context, id int64) (*SKUDTO, error)
}

type service struct {
	repo skuRepository
}

// NewService builds the catalog service.
func NewService(repo skuRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sku repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetSKU(ctx context.Context, id int64) (*models.SKU, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku id must be positive")
	}
	sku, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sku not found").WithDetails(map[string]any{"sku_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sku")
	}
	return sku, nil
}

// ListByIDs returns the skus that still exist, ordered by id. Missing ids are skipped.
func (s *service) ListByIDs(ctx context.Context, ids []int64) ([]models.SKU, error) {
	skus, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load skus")
	}
	return skus, nil
}

func (s *service) ListByCategory(ctx context.Context, categoryID int64, ordering string, params pagination.Params) (*pagination.Page[SKUDTO], error) {
	if categoryID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id must be positive")
	}
	orderBy, err := parseOrdering(ordering)
	if err != nil {
		return nil, err
	}

	params = params.Normalize()
	skus, total, err := s.repo.ListLaunchedByCategory(ctx, categoryID, orderBy, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list skus")
	}

	results := make([]SKUDTO, 0, len(skus))
	for _, sku := range skus {
		results = append(results, mapSKU(sku))
	}
	return &pagination.Page[SKUDTO]{
		Count:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
		Results:  results,
	}, nil
}

func (s *service) Detail(ctx context.Context, id int64) (*SKUDTO, error) {
	sku, err := s.GetSKU(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapSKU(*sku)
	return &dto, nil
}

func parseOrdering(ordering string) (string, error) {
	value := strings.TrimSpace(ordering)
	if value == "" {
		value = "create_time"
	}
	direction := "ASC"
	if strings.HasPrefix(value, "-") {
		direction = "DESC"
		value = strings.TrimPrefix(value, "-")
	}
	column, ok := orderingColumns[value]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported ordering").
			WithDetails(map[string]any{"ordering": ordering})
	}
	return column + " " + direction, nil
}
