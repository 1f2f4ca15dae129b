package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPassword(t *testing.T) {
	cases := map[string]bool{
		"Abcdef12":              true,
		"abcdef12":              false,
		"ABCDEF12":              false,
		"Abcdefgh":              false,
		"Ab1":                   false,
		"Abcdefghijklmnopqrs12": false,
	}
	for in, want := range cases {
		assert.Equal(t, want, Password(in), in)
	}
}

func TestStruct(t *testing.T) {
	type req struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,password"`
	}

	assert.NoError(t, Struct(req{Email: "a@example.com", Password: "Abcdef12"}))

	err := Struct(req{Email: "nope", Password: "short"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "field 'Email' failed 'email'")
		assert.Contains(t, err.Error(), "field 'Password' failed 'password'")
	}
}
