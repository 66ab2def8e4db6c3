package cart

import (
	"context"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// MergeOnLogin folds the anonymous cookie cart into the user's redis cart.
// Cookie quantities overwrite stored ones and each cookie line's selection
// wins. The returned flag tells the caller to expire the cookie; it is false
// when no cookie was sent so a cookie that was never set is left alone.
func (s *service) MergeOnLogin(ctx context.Context, userID int64, rawCookie string) (bool, error) {
	if userID <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if strings.TrimSpace(rawCookie) == "" {
		return false, nil
	}

	ctx = s.logg.WithUserID(ctx, userID)
	lines, err := s.codec.decode(rawCookie)
	if err != nil {
		s.logg.WarnErr(ctx, "cart.merge_cookie_discarded", err)
		return true, nil
	}
	if len(lines) == 0 {
		return true, nil
	}

	if err := NewRedisStore(s.redis, userID).Merge(ctx, lines); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart")
	}
	ctx = s.logg.WithField(ctx, "merged_lines", len(lines))
	s.logg.Info(ctx, "cart.merged")
	return true, nil
}
