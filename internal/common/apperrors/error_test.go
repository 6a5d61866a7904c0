package apperrors

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Run("TestError", func(t *testing.T) {
		ErrBaseErr := New("base error")
		assert.Equal(t, "base error", ErrBaseErr.Error())
		assert.Equal(t, "msg", ErrBaseErr.New("msg").Error())
		assert.ErrorIs(t, ErrBaseErr, ErrBaseErr)

		ErrFirstLevel := ErrBaseErr.New("first level")
		assert.Equal(t, "first level", ErrFirstLevel.Error())
		assert.ErrorIs(t, ErrFirstLevel, ErrBaseErr)

		ErrAnotherErr := New("another error")
		ErrWrappedErr := ErrFirstLevel.Err(ErrAnotherErr)
		assert.Equal(t, "first level", ErrWrappedErr.Error())
		assert.ErrorIs(t, ErrWrappedErr, ErrBaseErr)
		assert.ErrorIs(t, ErrWrappedErr, ErrAnotherErr)

		err := errors.New("error")
		ErrWrappedErr = ErrFirstLevel.Err(err)
		assert.Equal(t, "first level", ErrWrappedErr.Error())
		assert.ErrorIs(t, ErrWrappedErr, ErrBaseErr)
		assert.ErrorIs(t, ErrWrappedErr, err)

		ErrWrappedErr = ErrFirstLevel.MsgErr("msg", err)
		assert.Equal(t, "msg", ErrWrappedErr.Error())
		assert.ErrorIs(t, ErrWrappedErr, ErrBaseErr)
		assert.ErrorIs(t, ErrWrappedErr, err)
	})
}

func TestAnnotationsDoNotMutateSentinel(t *testing.T) {
	ErrNotFound := New("not found").SetStatusCode(http.StatusNotFound)

	annotated := ErrNotFound.Msg("tenant not found").Prefix("lookup")
	assert.Equal(t, "lookup: tenant not found", annotated.Error())
	assert.Equal(t, "not found", ErrNotFound.Error())
	assert.Equal(t, http.StatusNotFound, annotated.StatusCode())
	assert.ErrorIs(t, annotated, ErrNotFound)

	// repeated calls must not accumulate prefixes
	assert.Equal(t, annotated.Error(), annotated.Error())
}

func TestErrorAllExpandsWrappedErrors(t *testing.T) {
	ErrBase := New("base").SetExpandError(true)
	err := ErrBase.Err(errors.New("first"), errors.New("second"))
	assert.Equal(t, "base: first;second", err.ErrorAll())
	assert.Equal(t, "base", New("quiet").Msg("base").ErrorAll())
}
