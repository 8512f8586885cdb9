package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlapMap(t *testing.T) {
	m := NewOverlapMap([]string{"b", "a"})
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []string{"b", "a"}, m.IDs())
	assert.Empty(t, m.Records("a"))

	assert.True(t, m.Append("a", Record{SourceID: "S1", Score: 0.2, Basis: BasisArea}))
	assert.True(t, m.Append("a", Record{SourceID: "S2", Score: 0.8, Basis: BasisArea}))
	assert.False(t, m.Append("zz", Record{SourceID: "S1"}))

	recs := m.Records("a")
	assert.Len(t, recs, 2)
	assert.Equal(t, "S1", recs[0].SourceID)
	assert.Equal(t, "S2", recs[1].SourceID)
}

func TestSeenSet(t *testing.T) {
	s := SeenSet{"24": {}}
	assert.True(t, s.Has("24"))
	assert.False(t, s.Has("04"))

	var empty SeenSet
	assert.False(t, empty.Has("24"))
}
