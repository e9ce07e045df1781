//go:build !libdf
// +build !libdf

package libdf

import (
	"fmt"

	"github.com/xaionaro-go/noisefilter/pkg/deepfilter"
)

type Engine struct {
	deepfilter.Engine
}

func New() (*Engine, error) {
	return nil, fmt.Errorf("built without tag 'libdf'")
}
