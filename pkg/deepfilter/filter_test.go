package deepfilter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testModel = []byte("not really a model, but the spy does not care")

func newConfiguredFilter(t *testing.T, spy *engineSpy, opts ...Option) *Filter {
	f, err := NewWithModel(context.Background(), spy, testModel, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestNewWithModelCreatesState(t *testing.T) {
	spy := newEngineSpy()
	f := newConfiguredFilter(t, spy)

	require.Len(t, spy.CreateStateInvocations, 1)
	inv := spy.CreateStateInvocations[0]
	assert.Equal(t, int32(1), inv.Channels)
	assert.Equal(t, float32(33.0), inv.AttenLimDB)
	assert.Equal(t, testModel, inv.Model)
	assert.True(t, f.IsConfigured())
	assert.Empty(t, spy.SetPostFilterBetaInvocations)
}

func TestNewIsNotConfigured(t *testing.T) {
	spy := newEngineSpy()
	f := New(spy)

	assert.False(t, f.IsConfigured())
	assert.Zero(t, f.SupportedFrameLength())
	assert.Empty(t, spy.CreateStateInvocations)
}

func TestSupportedFrameLength(t *testing.T) {
	spy := newEngineSpy()
	f := newConfiguredFilter(t, spy)

	assert.Equal(t, []State{spy.MockedState()}, spy.GetFrameLengthInvocations)
	assert.Equal(t, 512, f.SupportedFrameLength())
}

func TestConfigureOptions(t *testing.T) {
	spy := newEngineSpy()
	newConfiguredFilter(t, spy,
		OptionChannels(2),
		OptionAttenuationLimit(12.5),
		OptionPostFilterBeta(0.02),
	)

	require.Len(t, spy.CreateStateInvocations, 1)
	assert.Equal(t, int32(2), spy.CreateStateInvocations[0].Channels)
	assert.Equal(t, float32(12.5), spy.CreateStateInvocations[0].AttenLimDB)
	assert.Equal(t, []floatInvocation{{State: spy.MockedState(), Value: 0.02}}, spy.SetPostFilterBetaInvocations)
}

func TestConfigure(t *testing.T) {
	ctx := context.Background()

	t.Run("unconfigured", func(t *testing.T) {
		spy := newEngineSpy()
		f := New(spy)
		defer f.Close()

		require.NoError(t, f.Configure(ctx, testModel))
		require.Len(t, spy.CreateStateInvocations, 1)
		assert.True(t, f.IsConfigured())
		assert.Equal(t, []State{spy.MockedState()}, spy.GetFrameLengthInvocations)
		assert.Equal(t, 512, f.SupportedFrameLength())
	})

	t.Run("already_configured", func(t *testing.T) {
		spy := newEngineSpy()
		f := newConfiguredFilter(t, spy)

		err := f.Configure(ctx, testModel)
		require.ErrorIs(t, err, ErrAlreadyConfigured)
		var cfgErr ConfigurationError
		require.ErrorAs(t, err, &cfgErr)

		// the old state is kept, not replaced
		require.Len(t, spy.CreateStateInvocations, 1)
		require.Empty(t, spy.FreeStateInvocations)
		assert.True(t, f.IsConfigured())
	})

	t.Run("invalid_model", func(t *testing.T) {
		spy := newEngineSpy()
		spy.FailCreate = true
		f := New(spy)

		err := f.Configure(ctx, testModel)
		require.ErrorIs(t, err, ErrInvalidModel)
		assert.False(t, f.IsConfigured())
		assert.Zero(t, f.SupportedFrameLength())
		assert.Empty(t, spy.GetFrameLengthInvocations)

		// a failed attempt does not lock the filter
		spy.FailCreate = false
		require.NoError(t, f.Configure(ctx, testModel))
		require.NoError(t, f.Close())
	})

	t.Run("empty_model", func(t *testing.T) {
		spy := newEngineSpy()
		f := New(spy)

		err := f.Configure(ctx, nil)
		var argErr ArgumentError
		require.ErrorAs(t, err, &argErr)
		assert.Equal(t, "model", argErr.Argument)
		assert.Empty(t, spy.CreateStateInvocations)
	})

	t.Run("invalid_channels", func(t *testing.T) {
		spy := newEngineSpy()
		f := New(spy)

		err := f.Configure(ctx, testModel, OptionChannels(0))
		var argErr ArgumentError
		require.ErrorAs(t, err, &argErr)
		assert.Equal(t, "channels", argErr.Argument)
		assert.Empty(t, spy.CreateStateInvocations)
	})

	t.Run("released", func(t *testing.T) {
		spy := newEngineSpy()
		f := New(spy)
		require.NoError(t, f.Close())

		err := f.Configure(ctx, testModel)
		require.ErrorIs(t, err, ErrReleased)
		assert.Empty(t, spy.CreateStateInvocations)
	})
}

func TestRemoveNoise(t *testing.T) {
	ctx := context.Background()

	t.Run("configured", func(t *testing.T) {
		spy := newEngineSpy()
		f := newConfiguredFilter(t, spy)

		frame := make([]int16, f.SupportedFrameLength())
		for idx := range frame {
			frame[idx] = int16(idx + 1)
		}
		result := f.RemoveNoise(ctx, frame)

		require.Len(t, spy.ProcessFrameInvocations, 1)
		inv := spy.ProcessFrameInvocations[0]
		assert.Equal(t, spy.MockedState(), inv.State)
		assert.Same(t, unsafe.SliceData(frame), inv.FramePtr)
		assert.Equal(t, 512, inv.FrameSize)
		assert.Equal(t, float64(spyMetric), result)
		assert.Equal(t, make([]int16, 512), frame, "the frame is expected to be processed in place")
	})

	t.Run("unconfigured", func(t *testing.T) {
		spy := newEngineSpy()
		f := New(spy)

		frame := make([]int16, 512)
		assert.Equal(t, ProcessingFailed, f.RemoveNoise(ctx, frame))
		assert.Equal(t, float64(-1), f.RemoveNoise(ctx, nil))
		assert.Empty(t, spy.ProcessFrameInvocations)
	})

	t.Run("empty_frame", func(t *testing.T) {
		spy := newEngineSpy()
		f := newConfiguredFilter(t, spy)

		assert.Equal(t, ProcessingFailed, f.RemoveNoise(ctx, nil))
		assert.Equal(t, ProcessingFailed, f.RemoveNoise(ctx, []int16{}))
		assert.Empty(t, spy.ProcessFrameInvocations)
	})

	t.Run("released", func(t *testing.T) {
		spy := newEngineSpy()
		f := newConfiguredFilter(t, spy)
		require.NoError(t, f.Close())

		assert.Equal(t, ProcessingFailed, f.RemoveNoise(ctx, make([]int16, 512)))
		assert.Empty(t, spy.ProcessFrameInvocations)
	})
}

func TestSetters(t *testing.T) {
	ctx := context.Background()
	spy := newEngineSpy()
	f := New(spy)

	require.ErrorIs(t, f.SetAttenuationLimit(ctx, 20), ErrNotConfigured)
	require.ErrorIs(t, f.SetPostFilterBeta(ctx, 0.01), ErrNotConfigured)
	require.Empty(t, spy.SetAttenLimInvocations)
	require.Empty(t, spy.SetPostFilterBetaInvocations)

	require.NoError(t, f.Configure(ctx, testModel))
	defer f.Close()
	require.NoError(t, f.SetAttenuationLimit(ctx, 20))
	require.NoError(t, f.SetPostFilterBeta(ctx, 0.01))
	assert.Equal(t, []floatInvocation{{State: spy.MockedState(), Value: 20}}, spy.SetAttenLimInvocations)
	assert.Equal(t, []floatInvocation{{State: spy.MockedState(), Value: 0.01}}, spy.SetPostFilterBetaInvocations)
}

func TestClose(t *testing.T) {
	t.Run("frees_once", func(t *testing.T) {
		spy := newEngineSpy()
		f := newConfiguredFilter(t, spy)

		require.NoError(t, f.Close())
		require.NoError(t, f.Close())
		require.NoError(t, f.Close())

		assert.Equal(t, []State{spy.MockedState()}, spy.FreeStateInvocations)
		assert.False(t, f.IsConfigured())
		assert.Zero(t, f.SupportedFrameLength())
	})

	t.Run("unconfigured", func(t *testing.T) {
		spy := newEngineSpy()
		f := New(spy)

		require.NoError(t, f.Close())
		assert.Empty(t, spy.FreeStateInvocations)
	})
}

func TestFinalizerFreesLeakedState(t *testing.T) {
	spy := newEngineSpy()
	func() {
		f := New(spy)
		require.NoError(t, f.Configure(context.Background(), testModel))
	}()

	for i := 0; i < 100 && spy.FreeStateCount() == 0; i++ {
		runtime.GC()
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, 1, spy.FreeStateCount())
	assert.Equal(t, []State{spy.MockedState()}, spy.FreeStateInvocations)
}

func TestNewFromFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	modelPath := filepath.Join(dir, "model.tar.gz")
	require.NoError(t, os.WriteFile(modelPath, testModel, 0640))

	spy := newEngineSpy()
	f, err := NewFromFile(ctx, spy, modelPath)
	require.NoError(t, err)
	defer f.Close()
	require.True(t, f.IsConfigured())
	require.Equal(t, testModel, spy.CreateStateInvocations[0].Model)

	_, err = NewFromFile(ctx, spy, filepath.Join(dir, "missing.tar.gz"))
	require.True(t, errors.Is(err, os.ErrNotExist), "%v", err)

	emptyPath := filepath.Join(dir, "empty.tar.gz")
	require.NoError(t, os.WriteFile(emptyPath, nil, 0640))
	_, err = NewFromFile(ctx, spy, emptyPath)
	var argErr ArgumentError
	require.ErrorAs(t, err, &argErr)
}
