package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogStatuses(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:   http.StatusBadRequest,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeForbidden:    http.StatusForbidden,
		CodeNotFound:     http.StatusNotFound,
		CodeConflict:     http.StatusConflict,
		CodeEmptyCart:    http.StatusBadRequest,
		CodeOutOfStock:   http.StatusConflict,
		CodeIdempotency:  http.StatusConflict,
		CodeRateLimit:    http.StatusTooManyRequests,
		CodeInternal:     http.StatusInternalServerError,
		CodeDependency:   http.StatusServiceUnavailable,
	}
	for code, status := range cases {
		assert.Equal(t, status, MetadataFor(code).HTTPStatus, code)
	}
}

func TestCatalogFlags(t *testing.T) {
	stock := MetadataFor(CodeOutOfStock)
	assert.True(t, stock.Retryable)
	assert.True(t, stock.DetailsAllowed)
	assert.True(t, stock.ExposeMessage)

	internal := MetadataFor(CodeInternal)
	assert.True(t, internal.Retryable)
	assert.False(t, internal.ExposeMessage)
	assert.False(t, internal.DetailsAllowed)

	assert.False(t, MetadataFor(CodeDependency).ExposeMessage)
	assert.False(t, MetadataFor(CodeUnauthorized).DetailsAllowed)
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("NOPE"))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("boom")
	err := Wrap(CodeDependency, cause, "redis down")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "DEPENDENCY_ERROR: redis down: boom", err.Error())
	assert.Equal(t, "NOT_FOUND: gone", New(CodeNotFound, "gone").Error())
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "missing sku")
	assert.Nil(t, err.Details())

	err.WithDetails(map[string]any{"field": "sku_id"})
	assert.Equal(t, map[string]any{"field": "sku_id"}, err.Details())

	var nilErr *Error
	assert.Nil(t, nilErr.WithDetails("x"))
	assert.Equal(t, CodeInternal, nilErr.Code())
}

func TestAsAndHasCodeWalkTheChain(t *testing.T) {
	inner := New(CodeForbidden, "not your address")
	outer := fmt.Errorf("update address: %w", inner)

	got := As(outer)
	require.NotNil(t, got)
	assert.Same(t, inner, got)
	assert.True(t, HasCode(outer, CodeForbidden))
	assert.False(t, HasCode(outer, CodeNotFound))

	assert.Nil(t, As(nil))
	assert.Nil(t, As(stdErrors.New("plain")))
	assert.False(t, HasCode(nil, CodeInternal))
}
