//go:build amd64 || arm64

package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntToUint32(t *testing.T) {
	t.Run("valid zero", func(t *testing.T) {
		got, err := IntToUint32(0)
		assert.NoError(t, err)
		assert.Equal(t, uint32(0), got)
	})

	t.Run("valid positive", func(t *testing.T) {
		got, err := IntToUint32(123)
		assert.NoError(t, err)
		assert.Equal(t, uint32(123), got)
	})

	t.Run("invalid negative", func(t *testing.T) {
		_, err := IntToUint32(-1)
		assert.Error(t, err)
	})

	t.Run("valid max int32", func(t *testing.T) {
		got, err := IntToUint32(math.MaxInt32)
		assert.NoError(t, err)
		assert.Equal(t, uint32(math.MaxInt32), got)
	})
}

func TestIntToInt32(t *testing.T) {
	got, err := IntToInt32(-1)
	assert.NoError(t, err)
	assert.Equal(t, int32(-1), got)

	got, err = IntToInt32(math.MaxInt32)
	assert.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), got)

	_, err = IntToInt32(math.MaxInt32 + 1)
	assert.Error(t, err)
}

func TestMulInt(t *testing.T) {
	got, err := MulInt(8, 16)
	assert.NoError(t, err)
	assert.Equal(t, 128, got)

	got, err = MulInt(0, math.MaxInt)
	assert.NoError(t, err)
	assert.Equal(t, 0, got)

	_, err = MulInt(math.MaxInt/2+1, 2)
	assert.Error(t, err)

	_, err = MulInt(-1, 2)
	assert.Error(t, err)
}
