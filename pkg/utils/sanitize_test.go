package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "DEV-1", want: true},
		{input: "imei:356938035643809", want: true},
		{input: "pixel_8.a", want: true},
		{input: "", want: false},
		{input: "DEV/1", want: false},
		{input: "DEV 1", want: false},
		{input: "DEV+1", want: false},
		{input: "DEV#1", want: false},
		{input: "<b>", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidIdentifier(tt.input))
		})
	}
}

func TestDeviceIDValidationTag(t *testing.T) {
	type request struct {
		DeviceID string `validate:"required,deviceid"`
	}

	assert.NoError(t, ValidateStruct(&request{DeviceID: "DEV-1"}))
	assert.Error(t, ValidateStruct(&request{DeviceID: "DEV/1"}))
}

func TestSanitizeStringKeepsTextVerbatim(t *testing.T) {
	assert.Equal(t, "AT&T", SanitizeString("  AT&T "))
	assert.Equal(t, "Galaxy <A15>", SanitizeString("Galaxy <A15>\x00"))
	assert.Equal(t, "paid & verified", SanitizeText(" paid & verified\x07 "))
}
