package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrecedence(t *testing.T) {
	tableTmpl, err := New([]TemplatePart{TagValue("a")})
	require.NoError(t, err)
	nsTmpl, err := New([]TemplatePart{TagValue("b")})
	require.NoError(t, err)

	var none TableOverride
	var noneNS NamespaceOverride

	assert.Equal(t, Default, Resolve(none, noneNS))
	assert.Equal(t, nsTmpl, Resolve(none, NewNamespaceOverride(nsTmpl)))
	assert.Equal(t, tableTmpl, Resolve(NewTableOverride(tableTmpl), NewNamespaceOverride(nsTmpl)))
}

func TestOverrideHasOverride(t *testing.T) {
	var none TableOverride
	assert.False(t, none.HasOverride())
	assert.True(t, NewTableOverride(Default).HasOverride())
}
