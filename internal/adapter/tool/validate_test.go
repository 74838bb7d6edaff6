package tool

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ValidateAll ---

func TestValidateAll_AllNil(t *testing.T) {
	assert.NoError(t, ValidateAll(nil, nil, nil))
}

func TestValidateAll_Empty(t *testing.T) {
	assert.NoError(t, ValidateAll())
}

func TestValidateAll_ReturnsFirst(t *testing.T) {
	first := fmt.Errorf("first")
	second := fmt.Errorf("second")
	err := ValidateAll(nil, first, second)
	assert.Equal(t, first, err)
}

func TestValidateAll_IntegrationWithRequireField(t *testing.T) {
	err := ValidateAll(
		RequireField("query", "ok"),
		RequireField("place_id", ""),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'place_id' is required")
}

// --- ValidateMaxLength ---

func TestValidateMaxLength(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		max     int
		wantErr bool
	}{
		{"empty", "", 10, false},
		{"at limit", strings.Repeat("a", 2048), 2048, false},
		{"over limit", strings.Repeat("a", 2049), 2048, true},
		{"multibyte counts bytes", "ééé", 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMaxLength("query", tt.value, tt.max)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// --- Edge case tests for validators ---

func TestRequireField_EdgeCases(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"", true},
		{"   ", true},
		{"\t\n", true},
		{"coffee", false},
		{" coffee ", false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.value), func(t *testing.T) {
			err := RequireField("query", tt.value)
			if tt.wantErr {
				assert.EqualError(t, err, "'query' is required")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRange_EdgeCases(t *testing.T) {
	assert.NoError(t, ValidateRange("num", 1, 1, 100))
	assert.NoError(t, ValidateRange("num", 100, 1, 100))
	assert.EqualError(t, ValidateRange("num", 0, 1, 100), "num must be 1-100")
	assert.EqualError(t, ValidateRange("num", 101, 1, 100), "num must be 1-100")
}

func TestValidateOptionalRange(t *testing.T) {
	assert.NoError(t, ValidateOptionalRange("num", 0, 1, 100), "zero means unset")
	assert.NoError(t, ValidateOptionalRange("num", 50, 1, 100))
	assert.Error(t, ValidateOptionalRange("num", -1, 1, 100))
	assert.Error(t, ValidateOptionalRange("num", 101, 1, 100))
}

func TestValidateNonNegative(t *testing.T) {
	assert.NoError(t, ValidateNonNegative("start", 0))
	assert.NoError(t, ValidateNonNegative("start", 20))
	assert.EqualError(t, ValidateNonNegative("start", -1), "start must be >= 0")
}

func TestValidateEnum_EdgeCases(t *testing.T) {
	assert.NoError(t, ValidateEnum("format", "", "json", "text"), "empty is unset")
	assert.NoError(t, ValidateEnum("format", "text", "json", "text"))

	err := ValidateEnum("format", "xml", "json", "text")
	require.Error(t, err)
	assert.Equal(t, `invalid format "xml" (want: json, text)`, err.Error())

	assert.Error(t, ValidateEnum("format", "JSON", "json", "text"), "enum match is case-sensitive")
}

func TestExactlyOne(t *testing.T) {
	tests := []struct {
		name    string
		placeID string
		dataID  string
		wantErr string
	}{
		{"place only", "ChIJ", "", ""},
		{"data only", "", "0x89c2:0x1", ""},
		{"neither", "", "", "one of place_id, data_id is required"},
		{"blank counts as unset", "  ", "", "one of place_id, data_id is required"},
		{"both", "ChIJ", "0x89c2:0x1", "only one of place_id, data_id may be given"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ExactlyOne("place_id", tt.placeID, "data_id", tt.dataID)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestExactlyOne_OddArgs(t *testing.T) {
	assert.Error(t, ExactlyOne("place_id"))
}

func TestValidateExtraParams(t *testing.T) {
	assert.NoError(t, ValidateExtraParams(nil))
	assert.NoError(t, ValidateExtraParams(map[string]string{"tbm": "nws", "device": "mobile"}))

	for _, k := range []string{"api_key", "engine", "output"} {
		err := ValidateExtraParams(map[string]string{k: "x"})
		require.Error(t, err, k)
		assert.Contains(t, err.Error(), "params."+k)
	}
}
