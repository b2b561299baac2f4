package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleCase(t *testing.T) {
	cases := map[string]string{
		"":            "",
		"item":        "Item",
		"PROCESS":     "Process",
		"custom_type": "Custom_Type",
		"two words":   "Two Words",
		"v2beta":      "V2Beta",
		"élan-vital":  "Élan-Vital",
	}
	for in, want := range cases {
		assert.Equal(t, want, TitleCase(in), in)
	}
}

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "Road_Map", SafeFileName("  Road Map? "))
	assert.Equal(t, "quoted", SafeFileName("'quoted'"))
	assert.Equal(t, "", SafeFileName("***"))
}

func TestParseUintList(t *testing.T) {
	ids, err := ParseUintList(" 3, 1,,2 ")
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 1, 2}, ids)

	ids, err = ParseUintList("")
	require.NoError(t, err)
	assert.Nil(t, ids)

	_, err = ParseUintList("1,x")
	assert.Error(t, err)
}
