package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateNameRule(t *testing.T) {
	v := New()

	assert.NoError(t, v.Var("Contacted", "statename"))
	assert.NoError(t, v.Var("Follow up 2", "statename"))
	assert.Error(t, v.Var("   ", "statename"))
	assert.Error(t, v.Var("bad\nname", "statename"))
}

func TestStructUsesTags(t *testing.T) {
	type req struct {
		Name  string `validate:"required,statename,max=10"`
		Color string `validate:"omitempty,hexcolor"`
	}
	v := New()

	assert.NoError(t, v.Struct(req{Name: "Won", Color: "#16A34A"}))
	assert.Error(t, v.Struct(req{Name: "Won", Color: "green"}))
	assert.Error(t, v.Struct(req{Name: "this name is too long"}))
}
