package planar

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

func clean(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func TestUnplanarize(t *testing.T) {
	b := must(hex.DecodeString(clean("00010203 04050607 08090A0B 0C0D0E0F 10111213 14151617 18191A1B 1C1D1E1F")))
	r := make([]byte, len(b))
	err := Unplanarize(2, 4, r, b)
	require.NoError(t, err)
	require.Equal(t, must(hex.DecodeString(clean("00010203 10111213 04050607 14151617 08090A0B 18191A1B 0C0D0E0F 1C1D1E1F"))), r, spew.Sdump(b))
}

func TestPlanarize(t *testing.T) {
	b := []byte{1, 2, 5, 6, 3, 4, 7, 8}
	r := make([]byte, len(b))
	err := Planarize(2, 2, r, b)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, r, spew.Sdump(b))

	back := make([]byte, len(r))
	require.NoError(t, Unplanarize(2, 2, back, r))
	require.Equal(t, b, back)
}

func TestPlanarizeErrors(t *testing.T) {
	require.Error(t, Planarize(2, 2, make([]byte, 2), make([]byte, 2)))
	require.Error(t, Planarize(2, 2, make([]byte, 6), make([]byte, 6)))
	require.Error(t, Planarize(2, 2, make([]byte, 4), make([]byte, 8)))
	require.Error(t, Planarize(0, 2, make([]byte, 4), make([]byte, 4)))
}
