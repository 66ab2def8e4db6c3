package cart

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type addRequest struct {
	SKUID    int64 `json:"sku_id" validate:"required,min=1"`
	Count    int   `json:"count" validate:"required,min=1"`
	Selected *bool `json:"selected,omitempty"`
}

type updateRequest struct {
	SKUID    int64 `json:"sku_id" validate:"required,min=1"`
	Count    int   `json:"count" validate:"min=0"`
	Selected bool  `json:"selected"`
}

type removeRequest struct {
	SKUID int64 `json:"sku_id" validate:"required,min=1"`
}

type selectionRequest struct {
	Selected bool `json:"selected"`
}

// CartFetch returns the caller's cart. Anonymous callers get their cookie refreshed.
func CartFetch(svc cartsvc.Service, cookie Cookie, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		view, err := svc.Get(r.Context(), identity(r, cookie))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeView(w, cookie, view, http.StatusOK)
	}
}

// CartAdd adds count units of a sku. Lines are selected unless the body says otherwise.
func CartAdd(svc cartsvc.Service, cookie Cookie, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload addRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		selected := true
		if payload.Selected != nil {
			selected = *payload.Selected
		}

		view, err := svc.Add(r.Context(), identity(r, cookie), cartsvc.LineInput{
			SKUID:    payload.SKUID,
			Quantity: payload.Count,
			Selected: selected,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeView(w, cookie, view, http.StatusCreated)
	}
}

// CartUpdate replaces the quantity and selection of one line.
func CartUpdate(svc cartsvc.Service, cookie Cookie, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload updateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Update(r.Context(), identity(r, cookie), cartsvc.LineInput{
			SKUID:    payload.SKUID,
			Quantity: payload.Count,
			Selected: payload.Selected,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeView(w, cookie, view, http.StatusOK)
	}
}

// CartRemove drops one sku from the cart. Removing a sku that is not in the
// cart succeeds.
func CartRemove(svc cartsvc.Service, cookie Cookie, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload removeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Remove(r.Context(), identity(r, cookie), payload.SKUID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeView(w, cookie, view, http.StatusOK)
	}
}

// CartSelectAll selects or deselects every line.
func CartSelectAll(svc cartsvc.Service, cookie Cookie, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload selectionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.SelectAll(r.Context(), identity(r, cookie), payload.Selected)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeView(w, cookie, view, http.StatusOK)
	}
}

func identity(r *http.Request, cookie Cookie) cartsvc.Identity {
	if userID := middleware.UserIDFromContext(r.Context()); userID > 0 {
		return cartsvc.Identity{UserID: userID}
	}
	return cartsvc.Identity{Cookie: cookie.Read(r)}
}

func writeView(w http.ResponseWriter, cookie Cookie, view *cartsvc.View, status int) {
	if view.Cookie != "" {
		cookie.Write(w, view.Cookie)
	}
	responses.WriteSuccessStatus(w, status, view)
}
