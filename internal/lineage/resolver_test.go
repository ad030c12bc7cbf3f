package lineage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DIM_NOC", "dim_noc"},
		{"dim noc", "dim_noc"},
		{"  Dim_Noc  ", "dim_noc"},
		{"dim\t \nnoc", "dim_noc"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestResolver_Resolve_PrefersMostDownstream(t *testing.T) {
	g := buildFixture(t)
	r := NewResolver(g)

	// raw_x exists at staged and bronze; no gold entry, so the latest
	// layer present wins.
	id, ok := r.Resolve("raw_x", "")
	require.True(t, ok)
	assert.Equal(t, "bronze.raw_x", id)

	id, ok = r.Resolve("dim_x", "")
	require.True(t, ok)
	assert.Equal(t, "gold.dim_x", id)
}

func TestResolver_Resolve_ExplicitLayer(t *testing.T) {
	g := buildFixture(t)
	r := NewResolver(g)

	id, ok := r.Resolve("raw_x", "staged")
	require.True(t, ok)
	assert.Equal(t, "staged.raw_x", id)

	_, ok = r.Resolve("raw_x", "gold")
	assert.False(t, ok, "explicit layer with no match resolves to nothing")
}

func TestResolver_Resolve_CaseAndWhitespaceInsensitive(t *testing.T) {
	g := buildFixture(t)
	r := NewResolver(g)

	a, okA := r.Resolve("DIM_X", "")
	b, okB := r.Resolve("dim x", "")
	c, okC := r.Resolve("  Dim_X  ", "")

	require.True(t, okA && okB && okC)
	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
}

func TestResolver_Resolve_NotFound(t *testing.T) {
	g := buildFixture(t)
	r := NewResolver(g)

	_, ok := r.Resolve("zzz_unknown", "")
	assert.False(t, ok)

	_, ok = r.Resolve("", "")
	assert.False(t, ok)
}

func TestResolver_ResolveAll_UpstreamFirst(t *testing.T) {
	g := buildFixture(t)
	r := NewResolver(g)

	assert.Equal(t, []string{"staged.raw_x", "bronze.raw_x"}, r.ResolveAll("raw_x"))
	assert.Equal(t, []string{"gold.dim_x"}, r.ResolveAll("dim_x"))
	assert.Empty(t, r.ResolveAll("zzz_unknown"))
}
