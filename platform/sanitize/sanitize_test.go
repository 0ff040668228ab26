package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextStripsMarkupAndControls(t *testing.T) {
	assert.Equal(t, "called back", Text("  <b>called</b> back\u0007 "))
	assert.Equal(t, "alert(1)", Text("&lt;script&gt;alert(1)&lt;/script&gt;"))
	assert.Equal(t, "line one\nline two", Text("line one\nline two"))
	assert.Equal(t, "5 < 6", Text("5 < 6"))
}

func TestOptionalText(t *testing.T) {
	assert.Nil(t, OptionalText(nil))

	blank := "  <br/> "
	assert.Nil(t, OptionalText(&blank))

	reason := " budget approved "
	got := OptionalText(&reason)
	if assert.NotNil(t, got) {
		assert.Equal(t, "budget approved", *got)
	}
}

func TestNameComposesAndTrims(t *testing.T) {
	assert.Equal(t, "Caf\u00e9", Name("  Cafe\u0301 "))
	assert.Equal(t, "Contacted", Name("Contacted"))
	assert.Equal(t, "", Name("   "))
}
