package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestDeriveKeepsIdentity(t *testing.T) {
	err := ErrInvalidRange.Derive().WithContext("l", 3).WithDetail("l=%d r=%d n=%d", 3, 2, 5)

	assert.True(t, errors.Is(err, ErrInvalidRange))
	assert.False(t, errors.Is(err, ErrMagnitudeExceeded))
	assert.Equal(t, 3, err.Context["l"])
	assert.Empty(t, ErrInvalidRange.Context, "sentinel must not be mutated")
	assert.Equal(t, "require 0 <= l <= r <= n", ErrInvalidRange.Detail)
	assert.NotEmpty(t, err.Stack)
}

func TestFromErrorWalksChain(t *testing.T) {
	wrapped := fmt.Errorf("create tree: %w", ErrTreeExists.Derive())
	e, ok := FromError(wrapped)
	require.True(t, ok)
	assert.Equal(t, 409101, e.Code)

	_, ok = FromError(errors.New("plain"))
	assert.False(t, ok)
	_, ok = FromError(nil)
	assert.False(t, ok)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrInternal, "x"))

	cause := errors.New("disk gone")
	w := WrapInternal(cause, "load failed")
	assert.Equal(t, ErrInternal, w.Type)
	assert.ErrorIs(t, w, cause)

	re := Wrap(ErrTreeNotFound, ErrInternal, "lookup")
	assert.Equal(t, ErrNotFound, re.Type)
	assert.Equal(t, "lookup", re.Message)
	assert.True(t, errors.Is(re, ErrTreeNotFound))
}

func TestProtocolMapping(t *testing.T) {
	tests := []struct {
		err  *Error
		http int
		grpc codes.Code
	}{
		{ErrInvalidRange, http.StatusBadRequest, codes.InvalidArgument},
		{ErrTreeNotFound, http.StatusNotFound, codes.NotFound},
		{ErrTreeExists, http.StatusConflict, codes.AlreadyExists},
		{ErrTooManyTrees, http.StatusTooManyRequests, codes.ResourceExhausted},
		{ErrVerifyMismatch, http.StatusInternalServerError, codes.Internal},
		{New(ErrUnavailable, 503, "down", "", nil), http.StatusServiceUnavailable, codes.Unavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.http, tt.err.HTTPStatus(), tt.err.Message)
		assert.Equal(t, tt.grpc, tt.err.GRPCCode(), tt.err.Message)
		assert.Equal(t, tt.grpc, tt.err.ToGRPCStatus().Code())
	}
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "[InvalidArg] 400101: invalid range", ErrInvalidRange.Error())
	assert.Equal(t, "Unknown", ErrorType(99).String())
	e := Internal("boom", errors.New("root"))
	assert.Contains(t, e.Error(), "Cause: root")
}
