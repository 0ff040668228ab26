package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPipeline(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)

	require.Len(t, p.States, 4)
	assert.Equal(t, "New", p.States[0].Name)
	assert.True(t, p.States[0].Initial)
	assert.True(t, p.States[2].Final)
	assert.Len(t, p.Transitions, 4)
}

func TestParseRejectsUnknownEdgeEndpoint(t *testing.T) {
	_, err := Parse([]byte(`
states:
  - name: New
transitions:
  - from: New
    to: Won
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Won")
}

func TestParseRejectsTwoInitialStates(t *testing.T) {
	_, err := Parse([]byte(`
states:
  - name: A
    initial: true
  - name: B
    initial: true
`))
	require.Error(t, err)
}
