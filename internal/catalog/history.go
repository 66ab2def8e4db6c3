package catalog

import (
	"context"
	"fmt"
	"strconv"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// HistoryLimit is how many recently viewed skus a user keeps.
const HistoryLimit = 5

type historyStore interface {
	BrowseHistoryKey(userID int64) string
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) error
}

// History remembers the skus a signed-in user viewed, newest first and
// without duplicates.
type History interface {
	Record(ctx context.Context, userID, skuID int64) error
	Recent(ctx context.Context, userID int64) ([]SKUDTO, error)
}

type history struct {
	store historyStore
	skus  Service
}

// NewHistory builds the browse history on a redis list per user.
func NewHistory(store historyStore, skus Service) (History, error) {
	if store == nil {
		return nil, fmt.Errorf("history store required")
	}
	if skus == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	return &history{store: store, skus: skus}, nil
}

// Record moves skuID to the front of the user's history and drops whatever
// falls past HistoryLimit.
func (h *history) Record(ctx context.Context, userID, skuID int64) error {
	if userID <= 0 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if _, err := h.skus.GetSKU(ctx, skuID); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "sku does not exist").WithDetails(map[string]any{"sku_id": skuID})
		}
		return err
	}

	key := h.store.BrowseHistoryKey(userID)
	member := strconv.FormatInt(skuID, 10)
	err := h.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, key, 0, member)
		pipe.LPush(ctx, key, member)
		pipe.LTrim(ctx, key, 0, HistoryLimit-1)
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record browse history")
	}
	return nil
}

// Recent returns the remembered skus in viewing order. Skus removed from the
// catalog since they were viewed are left out.
func (h *history) Recent(ctx context.Context, userID int64) ([]SKUDTO, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	members, err := h.store.LRange(ctx, h.store.BrowseHistoryKey(userID), 0, HistoryLimit-1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read browse history")
	}

	ids := make([]int64, 0, len(members))
	for _, member := range members {
		if id, err := strconv.ParseInt(member, 10, 64); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	out := make([]SKUDTO, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	skus, err := h.skus.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]SKUDTO, len(skus))
	for _, sku := range skus {
		byID[sku.ID] = mapSKU(sku)
	}
	for _, id := range ids {
		if dto, ok := byID[id]; ok {
			out = append(out, dto)
		}
	}
	return out, nil
}
