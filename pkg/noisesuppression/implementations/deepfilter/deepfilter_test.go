package deepfilter

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/noisefilter/pkg/audio"
	"github.com/xaionaro-go/noisefilter/pkg/deepfilter"
)

const fakeFrameLength = 4

// fakeEngine halves every sample and reports the index of the state as
// the metric.
type fakeEngine struct {
	Locker     sync.Mutex
	States     []*int
	FreedCount int
}

var _ deepfilter.Engine = (*fakeEngine)(nil)

func (e *fakeEngine) CreateState(model []byte, channels int32, attenLimDB float32) deepfilter.State {
	e.Locker.Lock()
	defer e.Locker.Unlock()
	idx := len(e.States)
	e.States = append(e.States, &idx)
	return deepfilter.State(unsafe.Pointer(&idx))
}

func (e *fakeEngine) ProcessFrame(state deepfilter.State, frame []int16) float32 {
	for idx := range frame {
		frame[idx] /= 2
	}
	return float32(*(*int)(state))
}

func (e *fakeEngine) GetFrameLength(state deepfilter.State) int32 {
	return fakeFrameLength
}

func (e *fakeEngine) SetAttenLim(state deepfilter.State, limDB float32)     {}
func (e *fakeEngine) SetPostFilterBeta(state deepfilter.State, beta float32) {}

func (e *fakeEngine) FreeState(state deepfilter.State) {
	e.Locker.Lock()
	defer e.Locker.Unlock()
	e.FreedCount++
}

func samplesToBytes(samples ...int16) []byte {
	result := make([]byte, 0, len(samples)*2)
	for _, sample := range samples {
		result = binary.NativeEndian.AppendUint16(result, uint16(sample))
	}
	return result
}

func TestDeepFilterOneChannel(t *testing.T) {
	ctx := context.Background()
	engine := &fakeEngine{}
	s, err := New(ctx, engine, []byte{1}, 1)
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, uint(fakeFrameLength*2), s.ChunkSize())

	enc, err := s.Encoding(ctx)
	require.NoError(t, err)
	assert.Equal(t, audio.EncodingPCM{
		PCMFormat:  audio.PCMFormatS16Native(),
		SampleRate: DefaultSampleRate,
	}, enc)

	input := samplesToBytes(2, 4, 6, 8, -2, -4, -6, -8)
	output := make([]byte, len(input))
	metric, err := s.SuppressNoise(ctx, input, output)
	require.NoError(t, err)
	assert.Equal(t, float64(0), metric)
	assert.Equal(t, samplesToBytes(1, 2, 3, 4, -1, -2, -3, -4), output)
	assert.Equal(t, samplesToBytes(2, 4, 6, 8, -2, -4, -6, -8), input)
}

func TestDeepFilterMultipleChannels(t *testing.T) {
	ctx := context.Background()
	engine := &fakeEngine{}
	s, err := New(ctx, engine, []byte{1}, 2)
	require.NoError(t, err)
	require.Len(t, engine.States, 2)
	require.Equal(t, uint(2*fakeFrameLength*2), s.ChunkSize())

	input := samplesToBytes(2, 20, 4, 40, 6, 60, 8, 80)
	output := make([]byte, len(input))
	metric, err := s.SuppressNoise(ctx, input, output)
	require.NoError(t, err)
	assert.Equal(t, float64(1), metric)
	assert.Equal(t, samplesToBytes(1, 10, 2, 20, 3, 30, 4, 40), output)

	require.NoError(t, s.Close())
	assert.Equal(t, 2, engine.FreedCount)
	assert.Error(t, s.Close())
	assert.Equal(t, 2, engine.FreedCount)
}

func TestDeepFilterInvalidInput(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, &fakeEngine{}, []byte{1}, 1)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.SuppressNoise(ctx, make([]byte, 8), make([]byte, 16))
	assert.Error(t, err)
	_, err = s.SuppressNoise(ctx, make([]byte, 4), make([]byte, 4))
	assert.Error(t, err)
	_, err = s.SuppressNoise(ctx, make([]byte, 12), make([]byte, 12))
	assert.Error(t, err)
}

func TestDeepFilterNew(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, &fakeEngine{}, []byte{1}, 0)
	assert.Error(t, err)

	engine := &fakeEngine{}
	_, err = New(ctx, engine, nil, 2)
	assert.Error(t, err)
	assert.Empty(t, engine.States)
}

func TestDeepFilterClosed(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, &fakeEngine{}, []byte{1}, 1)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.SuppressNoise(ctx, make([]byte, 8), make([]byte, 8))
	assert.Error(t, err)
}
