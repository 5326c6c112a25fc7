package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"9876543210":      "919876543210",
		"+91 98765 43210": "919876543210",
		"098765 43210":    "919876543210",
		"0098765 43210":   "919876543210",
		"919876543210":    "919876543210",
		"+91-98765-43210": "919876543210",
	}

	for input, want := range cases {
		assert.Equal(t, want, NormalizePhone(input), input)
	}
}
