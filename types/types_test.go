package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	s := SetWith(1, 2, 3)
	assert.True(t, s.Has(2))
	assert.False(t, s.Has(4))
	s.Insert(4)
	assert.True(t, s.Has(4))
	assert.Len(t, s, 4)
}

func TestMaxOf(t *testing.T) {
	assert.Equal(t, 7, MaxOf([]int{3, 7, 1}))
	assert.Equal(t, 0, MaxOf[int](nil))
	assert.Equal(t, -1, MaxOf([]int{-5, -1, -3}))
}

func TestProd(t *testing.T) {
	assert.Equal(t, int64(24), Prod([]int64{2, 3, 4}))
	assert.Equal(t, int64(1), Prod[int64](nil))
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, 3, CeilDiv(10, 4))
	assert.Equal(t, 2, CeilDiv(8, 4))
	assert.Equal(t, 1, CeilDiv(1, 128))
}

func TestLastPow2(t *testing.T) {
	assert.Equal(t, 8, LastPow2(11))
	assert.Equal(t, 8, LastPow2(8))
	assert.Equal(t, 1, LastPow2(1))
	assert.Equal(t, 0, LastPow2(0))
	assert.Equal(t, 0, LastPow2(-3))
}
