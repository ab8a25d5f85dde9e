package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinMax(t *testing.T) {
	min, max := MinMax([]float64{3, 1, 4, 1, 5})
	assert.Equal(t, 1.0, min)
	assert.Equal(t, 5.0, max)

	min, max = MinMax(nil)
	assert.Equal(t, 0.0, min)
	assert.Equal(t, 0.0, max)
}

func TestClampInt(t *testing.T) {
	assert.Equal(t, 0, ClampInt(-3, 0, 10))
	assert.Equal(t, 10, ClampInt(12, 0, 10))
	assert.Equal(t, 4, ClampInt(4, 0, 10))
	assert.Equal(t, 0, ClampInt(4, 0, -2))
}

func TestPctChange(t *testing.T) {
	assert.InDelta(t, 10.0, PctChange(100, 110), 1e-9)
	assert.Equal(t, 0.0, PctChange(0, 110))
}

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient(0)
	assert.NotNil(t, client.Transport)
}
