package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckMultiplyOverflow(t *testing.T) {
	assert.NoError(t, CheckMultiplyOverflow(0, math.MaxUint64))
	assert.NoError(t, CheckMultiplyOverflow(100, 100))
	assert.Error(t, CheckMultiplyOverflow(math.MaxUint64, 2))
}

func TestSafeMultiply(t *testing.T) {
	v, err := SafeMultiply(1024, 64)
	assert.NoError(t, err)
	assert.Equal(t, uint64(65536), v)

	_, err = SafeMultiply(math.MaxUint64, 2)
	assert.Error(t, err)
}

func TestValidateBufferSize(t *testing.T) {
	assert.NoError(t, ValidateBufferSize(10, 100, "chunk"))
	assert.Error(t, ValidateBufferSize(0, 100, "chunk"))
	assert.Error(t, ValidateBufferSize(200, 100, "chunk"))
}
