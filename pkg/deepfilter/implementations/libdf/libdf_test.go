//go:build !libdf
// +build !libdf

package libdf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWithoutTag(t *testing.T) {
	engine, err := New()
	require.Error(t, err)
	require.Nil(t, engine)
}
