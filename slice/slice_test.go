package slice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapFilter(t *testing.T) {
	in := []int{1, 2, 3, 4}
	assert.Equal(t, []int{2, 4, 6, 8}, Map(in, func(v int) int { return v * 2 }))
	assert.Equal(t, []int{2, 4}, Filter(in, func(v int) bool { return v%2 == 0 }))
	assert.Empty(t, Filter(in, func(v int) bool { return v > 10 }))
}

func TestAllFind(t *testing.T) {
	in := []string{"a", "bb", "ccc"}
	assert.True(t, All(in, func(s string) bool { return s != "" }))
	assert.False(t, All(in, func(s string) bool { return len(s) < 3 }))

	v, ok := Find(in, func(s string) bool { return len(s) == 2 })
	assert.True(t, ok)
	assert.Equal(t, "bb", v)

	_, ok = Find(in, func(s string) bool { return len(s) == 5 })
	assert.False(t, ok)
}

func TestMean(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{4}, 4},
		{"several", []float64{10, 5, 20, 5}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mean(tt.in, func(v float64) float64 { return v }))
		})
	}
}
