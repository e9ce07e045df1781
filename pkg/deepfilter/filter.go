package deepfilter

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// ProcessingFailed is returned by RemoveNoise instead of a metric if the
// frame was not processed.
const ProcessingFailed = float64(-1)

// Filter is a single noise suppression session. It owns at most one engine
// state, from a successful Configure until Close.
//
// Filter does not lock: calls to the same Filter must not overlap.
type Filter struct {
	engine               Engine
	state                State
	released             bool
	supportedFrameLength int
}

// New returns a Filter that is not configured yet.
func New(engine Engine) *Filter {
	return &Filter{
		engine: engine,
	}
}

func NewWithModel(
	ctx context.Context,
	engine Engine,
	model []byte,
	opts ...Option,
) (*Filter, error) {
	f := New(engine)
	if err := f.Configure(ctx, model, opts...); err != nil {
		return nil, err
	}
	return f, nil
}

func NewFromFile(
	ctx context.Context,
	engine Engine,
	modelPath string,
	opts ...Option,
) (*Filter, error) {
	model, err := LoadModelFile(ctx, modelPath)
	if err != nil {
		return nil, err
	}
	return NewWithModel(ctx, engine, model, opts...)
}

// Configure creates the engine state from the model. A Filter can be
// configured only once.
func (f *Filter) Configure(
	ctx context.Context,
	model []byte,
	opts ...Option,
) (_err error) {
	logger.Tracef(ctx, "Configure, len:%d", len(model))
	defer func() { logger.Tracef(ctx, "/Configure, len:%d: %v", len(model), _err) }()

	switch {
	case f.released:
		return ConfigurationError{Err: ErrReleased}
	case f.state != nil:
		return ConfigurationError{Err: ErrAlreadyConfigured}
	}

	if len(model) == 0 {
		return ArgumentError{Argument: "model", Reason: "is empty"}
	}
	if len(model) > math.MaxInt32 {
		return ArgumentError{Argument: "model", Reason: fmt.Sprintf("is too large: %d bytes", len(model))}
	}
	cfg := Options(opts).Config()
	if cfg.Channels < 1 || cfg.Channels > math.MaxInt32 {
		return ArgumentError{Argument: "channels", Reason: fmt.Sprintf("expected a positive value, received %d", cfg.Channels)}
	}

	state := f.engine.CreateState(model, int32(cfg.Channels), cfg.AttenuationLimitDB)
	if state == nil {
		return ConfigurationError{Err: ErrInvalidModel}
	}
	f.state = state
	f.supportedFrameLength = int(f.engine.GetFrameLength(state))
	if cfg.PostFilterBeta != nil {
		f.engine.SetPostFilterBeta(state, *cfg.PostFilterBeta)
	}
	runtime.SetFinalizer(f, func(f *Filter) { f.release() })

	logger.Debugf(ctx,
		"configured the filter: channels:%d, attenuation limit:%vdB, frame length:%d",
		cfg.Channels, cfg.AttenuationLimitDB, f.supportedFrameLength,
	)
	return nil
}

func (f *Filter) IsConfigured() bool {
	return f.state != nil
}

// SupportedFrameLength is the amount of samples the engine expects in each
// frame passed to RemoveNoise. It is zero unless the filter is configured.
func (f *Filter) SupportedFrameLength() int {
	return f.supportedFrameLength
}

// RemoveNoise denoises the frame in place and returns the metric reported by
// the engine. It returns ProcessingFailed without touching the frame if the
// filter is not configured or the frame is empty.
//
// The frame is expected to have SupportedFrameLength samples; splitting the
// audio into such frames is the caller's job.
func (f *Filter) RemoveNoise(
	ctx context.Context,
	frame []int16,
) float64 {
	if f.state == nil {
		logger.Tracef(ctx, "RemoveNoise: the filter is not configured")
		return ProcessingFailed
	}
	if len(frame) == 0 || len(frame) > math.MaxInt32 {
		logger.Tracef(ctx, "RemoveNoise: invalid frame length %d", len(frame))
		return ProcessingFailed
	}

	metric := f.engine.ProcessFrame(f.state, frame)
	runtime.KeepAlive(f)
	return float64(metric)
}

func (f *Filter) SetAttenuationLimit(
	ctx context.Context,
	limDB float32,
) error {
	if f.state == nil {
		return ConfigurationError{Err: ErrNotConfigured}
	}
	logger.Debugf(ctx, "SetAttenuationLimit: %vdB", limDB)
	f.engine.SetAttenLim(f.state, limDB)
	runtime.KeepAlive(f)
	return nil
}

func (f *Filter) SetPostFilterBeta(
	ctx context.Context,
	beta float32,
) error {
	if f.state == nil {
		return ConfigurationError{Err: ErrNotConfigured}
	}
	logger.Debugf(ctx, "SetPostFilterBeta: %v", beta)
	f.engine.SetPostFilterBeta(f.state, beta)
	runtime.KeepAlive(f)
	return nil
}

// Close releases the engine state. It is safe to call Close multiple times;
// the state is freed only once.
func (f *Filter) Close() error {
	runtime.SetFinalizer(f, nil)
	f.release()
	return nil
}

func (f *Filter) release() {
	f.released = true
	state := f.state
	if state == nil {
		return
	}
	f.state = nil
	f.supportedFrameLength = 0
	f.engine.FreeState(state)
}
