package projection

import (
	"testing"

	iface "DetOverlay/interface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func named(name string, conf float64) iface.Detection {
	return iface.Detection{ClassName: &name, Confidence: conf}
}

func TestList_SortsDescendingStable(t *testing.T) {
	in := []iface.Detection{
		named("a", 0.5),
		named("b", 0.9),
		named("c", 0.5),
		{ClassID: 7, Confidence: 0.7},
		named("e", 0.5),
	}
	got := List(in, 0)
	require.Len(t, got, 5)
	names := make([]string, len(got))
	for i, e := range got {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"b", "7", "a", "c", "e"}, names)
	assert.Equal(t, "0.90", got[0].Score())

	// input order untouched
	assert.Equal(t, "a", in[0].Name())
	assert.Equal(t, "b", in[1].Name())
}

func TestList_Truncates(t *testing.T) {
	in := make([]iface.Detection, 120)
	for i := range in {
		in[i] = iface.Detection{ClassID: i, Confidence: float64(i) / 120}
	}
	got := List(in, DefaultLimit)
	require.Len(t, got, DefaultLimit)
	assert.Equal(t, "119", got[0].Name)
	assert.Equal(t, "70", got[DefaultLimit-1].Name)
}

func TestList_EmptyGivesPlaceholder(t *testing.T) {
	got := List(nil, DefaultLimit)
	require.Len(t, got, 1)
	assert.True(t, got[0].Placeholder)
	assert.Equal(t, "", got[0].Score())
	assert.NotEmpty(t, got[0].Hint)
}

func TestVisible(t *testing.T) {
	in := []iface.Detection{named("x", 0.2), named("y", 0.25), named("z", 1.0)}

	assert.Len(t, Visible(in, 0), 3)
	assert.Empty(t, Visible(in, 1.01))

	got := Visible(in, 0.25)
	require.Len(t, got, 2)
	assert.Equal(t, "y", got[0].Name())
	assert.Equal(t, "z", got[1].Name())
}
