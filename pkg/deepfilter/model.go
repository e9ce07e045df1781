package deepfilter

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// LoadModelFile reads a packaged model (for example "DeepFilterNet3_onnx.tar.gz").
// The content is passed to the engine as is.
func LoadModelFile(
	ctx context.Context,
	path string,
) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open the model file '%s': %w", path, err)
	}
	defer f.Close()

	model, err := ReadModel(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("unable to read the model file '%s': %w", path, err)
	}
	return model, nil
}

func ReadModel(
	ctx context.Context,
	r io.Reader,
) ([]byte, error) {
	model, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(model) == 0 {
		return nil, ArgumentError{Argument: "model", Reason: "is empty"}
	}
	logger.Debugf(ctx, "read a model of %d bytes", len(model))
	return model, nil
}
