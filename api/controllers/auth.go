package controllers

import (
	"net/http"

	cartctl "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// AuthLogin issues an access token and folds any anonymous cart into the
// user's stored cart. A failed merge never fails the login.
func AuthLogin(svc auth.Service, carts cartsvc.Service, cookie cartctl.Cookie, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if carts != nil && result.User != nil {
			expire, err := carts.MergeOnLogin(r.Context(), result.User.ID, cookie.Read(r))
			if err != nil && logg != nil {
				logg.WarnErr(logg.WithUserID(r.Context(), result.User.ID), "login.cart_merge_failed", err)
			}
			if expire {
				cookie.Expire(w)
			}
		}

		w.Header().Set("X-SF-Token", result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}
