package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/apperr"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(sample{Name: "Alice"}))
	require.NoError(t, Struct(sample{Name: "Alice", Email: "alice@school.test"}))

	err := Struct(sample{})
	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name", verr.Field)

	err = Struct(sample{Name: "Bob", Email: "not-an-email"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Field)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
