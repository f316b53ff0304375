package poller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingBuffer(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		push   []float64
		count  int
		expect []float64
	}{
		{"empty", 3, nil, 3, nil},
		{"partial", 3, []float64{1, 2}, 3, []float64{1, 2}},
		{"full", 3, []float64{1, 2, 3}, 3, []float64{1, 2, 3}},
		{"wrapped", 3, []float64{1, 2, 3, 4, 5}, 3, []float64{3, 4, 5}},
		{"last two after wrap", 3, []float64{1, 2, 3, 4}, 2, []float64{3, 4}},
		{"zero count", 3, []float64{1}, 0, nil},
		{"default size", 0, []float64{7}, 1, []float64{7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRingBuffer(tt.size)
			for _, v := range tt.push {
				r.push(v)
			}
			assert.Equal(t, tt.expect, r.last(tt.count))
		})
	}
}

func TestRingBufferAll(t *testing.T) {
	r := newRingBuffer(DefaultHistorySize)
	for i := 0; i < DefaultHistorySize+5; i++ {
		r.push(float64(i))
	}
	all := r.all()
	assert.Len(t, all, DefaultHistorySize)
	assert.Equal(t, 5.0, all[0])
	assert.Equal(t, float64(DefaultHistorySize+4), all[len(all)-1])
}
