package validator

import (
	"errors"
	"testing"

	gvalidator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatError(t *testing.T) {
	t.Run("formats validation errors", func(t *testing.T) {
		type input struct {
			CallbackURL string `validate:"required,url"`
		}

		err := gvalidator.New().Struct(input{})
		require.Error(t, err)

		formatted := formatError(err)

		assert.ErrorIs(t, formatted, ErrValidationFailed)
		assert.Contains(t, formatted.Error(), "'CallbackURL': value '' does not meet the requirements for the 'required' validation")
	})

	t.Run("passes other errors through", func(t *testing.T) {
		original := errors.New("not a validation error")

		assert.Same(t, original, formatError(original))
	})
}

func TestValidate(t *testing.T) {
	type settings struct {
		Mode     string `validate:"required,oneof=native token"`
		Contract string `validate:"required_if=Mode token"`
		Address  string `validate:"omitempty,eth_addr"`
	}

	t.Run("valid struct", func(t *testing.T) {
		assert.NoError(t, Validate(settings{Mode: "native"}))
		assert.NoError(t, Validate(settings{Mode: "token", Contract: "0xdAC17F958D2ee523a2206206994597C13D831ec7"}))
	})

	t.Run("reports every failing field", func(t *testing.T) {
		err := Validate(settings{Mode: "bitcoin", Address: "0x1"})

		require.ErrorIs(t, err, ErrValidationFailed)
		assert.Contains(t, err.Error(), "'Mode'")
		assert.Contains(t, err.Error(), "'Address'")
	})

	t.Run("conditional requirement", func(t *testing.T) {
		err := Validate(settings{Mode: "token"})

		require.ErrorIs(t, err, ErrValidationFailed)
		assert.Contains(t, err.Error(), "required_if")
	})

	t.Run("non struct input", func(t *testing.T) {
		err := Validate("not a struct")

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrValidationFailed)
	})
}

func TestVar(t *testing.T) {
	t.Run("accepts a valid address", func(t *testing.T) {
		assert.NoError(t, Var("0x52908400098527886e0f7030069857d2e4169ee7", "required,eth_addr"))
	})

	t.Run("rejects a short address", func(t *testing.T) {
		err := Var("0x5290", "required,eth_addr")

		require.ErrorIs(t, err, ErrValidationFailed)
		assert.Contains(t, err.Error(), "'eth_addr'")
	})
}
