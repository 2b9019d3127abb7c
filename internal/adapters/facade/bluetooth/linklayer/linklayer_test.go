package linklayer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveLTKIsDeterministic(t *testing.T) {
	addr := [6]byte{0xc0, 0, 0, 0, 1, 0xde}
	entropy := []byte("rand+ediv")

	a, err := DeriveLTK(addr, entropy)
	require.NoError(t, err)
	b, err := DeriveLTK(addr, entropy)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDeriveLTKDiffersByAddress(t *testing.T) {
	entropy := []byte("rand+ediv")
	a, err := DeriveLTK([6]byte{1}, entropy)
	require.NoError(t, err)
	b, err := DeriveLTK([6]byte{2}, entropy)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
