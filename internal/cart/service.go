package cart

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Identity picks the cart form: a positive UserID selects the redis cart,
// otherwise Cookie carries the anonymous cart.
type Identity struct {
	UserID int64
	Cookie string
}

// Authenticated reports whether the redis cart applies.
func (i Identity) Authenticated() bool {
	return i.UserID > 0
}

// LineInput is a requested add or set.
type LineInput struct {
	SKUID    int64
	Quantity int
	Selected bool
}

// Item is a cart line enriched with catalog data for display.
type Item struct {
	SKUID           int64           `json:"id"`
	Name            string          `json:"name"`
	DefaultImageURL string          `json:"default_image_url"`
	Price           decimal.Decimal `json:"price"`
	Count           int             `json:"count"`
	Selected        bool            `json:"selected"`
}

// View is the cart after an operation. Cookie is set only for anonymous
// carts and holds the re-encoded cookie value.
type View struct {
	Lines  Lines  `json:"-"`
	Items  []Item `json:"items"`
	Cookie string `json:"-"`
}

type skuReader interface {
	GetSKU(ctx context.Context, id int64) (*models.SKU, error)
	ListByIDs(ctx context.Context, ids []int64) ([]models.SKU, error)
}

// Service manages both cart forms and reconciles them at login.
type Service interface {
	Get(ctx context.Context, identity Identity) (*View, error)
	Add(ctx context.Context, identity Identity, input LineInput) (*View, error)
	Update(ctx context.Context, identity Identity, input LineInput) (*View, error)
	Remove(ctx context.Context, identity Identity, skuID int64) (*View, error)
	SelectAll(ctx context.Context, identity Identity, selected bool) (*View, error)
	MergeOnLogin(ctx context.Context, userID int64, rawCookie string) (bool, error)
	SelectedLines(ctx context.Context, userID int64) ([]Line, error)
	Consume(ctx context.Context, userID int64, skuIDs []int64) error
}

type service struct {
	redis   RedisBackend
	codec   *CookieCodec
	catalog skuReader
	logg    *logger.Logger
}

// NewService builds the cart service.
func NewService(backend RedisBackend, codec *CookieCodec, catalog skuReader, logg *logger.Logger) (Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("redis backend required")
	}
	if codec == nil {
		return nil, fmt.Errorf("cookie codec required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{redis: backend, codec: codec, catalog: catalog, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, identity Identity) (*View, error) {
	store := s.storeFor(ctx, identity)
	return s.view(ctx, store)
}

func (s *service) Add(ctx context.Context, identity Identity, input LineInput) (*View, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "count must be positive")
	}
	sku, err := s.lookupSKU(ctx, input.SKUID)
	if err != nil {
		return nil, err
	}
	store := s.storeFor(ctx, identity)
	added, err := store.AddWithin(ctx, input.SKUID, input.Quantity, sku.Stock, input.Selected)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart line")
	}
	if !added {
		return nil, exceedsStock(sku)
	}
	return s.view(ctx, store)
}

// Update replaces a line's quantity and selection. A zero quantity removes the line.
func (s *service) Update(ctx context.Context, identity Identity, input LineInput) (*View, error) {
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "count must not be negative")
	}
	if input.Quantity == 0 {
		return s.Remove(ctx, identity, input.SKUID)
	}
	sku, err := s.lookupSKU(ctx, input.SKUID)
	if err != nil {
		return nil, err
	}
	if input.Quantity > sku.Stock {
		return nil, exceedsStock(sku)
	}
	store := s.storeFor(ctx, identity)
	if err := store.Set(ctx, input.SKUID, input.Quantity, input.Selected); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set cart line")
	}
	return s.view(ctx, store)
}

func (s *service) Remove(ctx context.Context, identity Identity, skuID int64) (*View, error) {
	store := s.storeFor(ctx, identity)
	if err := store.Remove(ctx, skuID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
	}
	return s.view(ctx, store)
}

func (s *service) SelectAll(ctx context.Context, identity Identity, selected bool) (*View, error) {
	store := s.storeFor(ctx, identity)
	if err := store.SelectAll(ctx, selected); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart selection")
	}
	return s.view(ctx, store)
}

// SelectedLines reads the server-side selection for checkout and settlement.
func (s *service) SelectedLines(ctx context.Context, userID int64) ([]Line, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	lines, err := NewRedisStore(s.redis, userID).SelectedLines(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read selected cart lines")
	}
	return lines, nil
}

// Consume removes purchased skus from the user's cart.
func (s *service) Consume(ctx context.Context, userID int64, skuIDs []int64) error {
	return NewRedisStore(s.redis, userID).Consume(ctx, skuIDs)
}

func (s *service) storeFor(ctx context.Context, identity Identity) Store {
	if identity.Authenticated() {
		return NewRedisStore(s.redis, identity.UserID)
	}
	lines, err := s.codec.decode(identity.Cookie)
	if err != nil {
		s.logg.WarnErr(ctx, "cart.cookie_discarded", err)
		lines = Lines{}
	}
	return NewCookieStore(s.codec, lines)
}

// lookupSKU turns an unknown sku into a validation failure.
func (s *service) lookupSKU(ctx context.Context, skuID int64) (*models.SKU, error) {
	sku, err := s.catalog.GetSKU(ctx, skuID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku does not exist").WithDetails(map[string]any{"sku_id": skuID})
		}
		return nil, err
	}
	return sku, nil
}

func exceedsStock(sku *models.SKU) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "count exceeds stock").
		WithDetails(map[string]any{"sku_id": sku.ID, "stock": sku.Stock})
}

func (s *service) view(ctx context.Context, store Store) (*View, error) {
	lines, err := store.Lines(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart")
	}

	view := &View{Lines: lines, Items: []Item{}}
	if cookieStore, ok := store.(*CookieStore); ok {
		cookie, err := cookieStore.Encode()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart cookie")
		}
		view.Cookie = cookie
	}
	if len(lines) == 0 {
		return view, nil
	}

	skus, err := s.catalog.ListByIDs(ctx, lines.SKUIDs())
	if err != nil {
		return nil, err
	}
	for _, sku := range skus {
		line := lines[sku.ID]
		view.Items = append(view.Items, Item{
			SKUID:           sku.ID,
			Name:            sku.Name,
			DefaultImageURL: sku.DefaultImageURL,
			Price:           sku.Price,
			Count:           line.Quantity,
			Selected:        line.Selected,
		})
	}
	return view, nil
}
