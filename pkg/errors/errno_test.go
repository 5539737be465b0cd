package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeCode(t *testing.T) {
	assert.Equal(t, 3004001, MakeCode(ServiceConfig, CategoryNotFound, 1))
	assert.Equal(t, 1002, MakeCode(ServiceCommon, CategoryRequest, 2))
}

func TestWithCausePreservesIdentity(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := ErrDatabase.WithCause(cause)

	assert.True(t, IsCode(err, ErrDatabase.Code))
	assert.ErrorIs(t, err, cause, "the cause must stay unwrappable")
	assert.NotSame(t, ErrDatabase, err, "wrapping must not mutate the registered errno")
}

func TestWithMessageDoesNotMutateOriginal(t *testing.T) {
	original := ErrItemNotFound.Message
	err := ErrItemNotFound.WithMessagef("config item %q not found", "i1")

	assert.Equal(t, `config item "i1" not found`, err.Message)
	assert.Equal(t, original, ErrItemNotFound.Message)
	assert.True(t, IsCode(err, ErrItemNotFound.Code))
}

func TestWithDetails(t *testing.T) {
	err := ErrVersionConflict.WithDetails("i1", "i2")
	assert.Equal(t, []string{"i1", "i2"}, err.Details)
	assert.Empty(t, ErrVersionConflict.Details)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	e := FromError(ErrAppNotFound)
	assert.Same(t, ErrAppNotFound, e)

	plain := fmt.Errorf("something broke")
	e = FromError(plain)
	assert.Equal(t, ErrInternal.Code, e.Code)
	assert.ErrorIs(t, e, plain)
}

func TestLookup(t *testing.T) {
	e, ok := Lookup(ErrVersionConflict.Code)
	require.True(t, ok)
	assert.Same(t, ErrVersionConflict, e)

	_, ok = Lookup(9999999)
	assert.False(t, ok)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusConflict, ErrVersionConflict.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, ErrAppNotFound.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, ErrAppExists.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, ErrTokenInvalid.HTTPStatus())
}
