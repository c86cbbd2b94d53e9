package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var calcSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"precision": map[string]any{"type": "integer", "minimum": 0, "default": 4},
		"binary":    map[string]any{"type": "string"},
	},
	"required":             []any{"binary"},
	"additionalProperties": false,
}

func TestValidateAcceptsConformingConfig(t *testing.T) {
	require.NoError(t, Validate(calcSchema, map[string]any{"binary": "qalc", "precision": 2}))
	require.NoError(t, Validate(nil, map[string]any{"anything": true}))
}

func TestValidateReportsEveryViolation(t *testing.T) {
	err := Validate(calcSchema, map[string]any{"precision": -1, "extra": 1})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Details, 3)
	assert.Contains(t, err.Error(), "binary")
}

func TestValidateRejectsBrokenSchema(t *testing.T) {
	err := Validate(map[string]any{"type": 12}, nil)
	require.Error(t, err)
	var verr *ValidationError
	assert.NotErrorAs(t, err, &verr)
}

func TestApplyDefaults(t *testing.T) {
	in := map[string]any{"binary": "qalc"}
	out := ApplyDefaults(calcSchema, in)
	assert.Equal(t, 4, out["precision"])
	assert.NotContains(t, in, "precision")

	out = ApplyDefaults(calcSchema, map[string]any{"precision": 9})
	assert.Equal(t, 9, out["precision"])
}
