package validate

import (
	"testing"

	pkgerrors "github.com/angelmondragon/fitconnect-client/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
	Kind     string `json:"kind" validate:"omitempty,oneof=a b"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Quantity: 0, Kind: "c"})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["name"])
	assert.Equal(t, "must be at least 1", details["quantity"])
	assert.Equal(t, "must be one of a b", details["kind"])
	assert.Contains(t, typed.Message(), "name is required")
}

func TestStructAcceptsValid(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "x", Quantity: 2}))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abc  ", 0))
	assert.Equal(t, "ab", SanitizeString(" abc", 2))
}
