package noisesuppressionstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/noisefilter/pkg/audio"
	"github.com/xaionaro-go/noisefilter/pkg/noisesuppression"
)

type invertingNoiseSuppression struct {
	*noisesuppression.Dummy
	Err error
}

func (s *invertingNoiseSuppression) SuppressNoise(ctx context.Context, input, output []byte) (float64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	for idx := range input {
		output[idx] = ^input[idx]
	}
	return 0.5, nil
}

func newDummy(chunkSize uint) *noisesuppression.Dummy {
	d := noisesuppression.NewDummy(audio.EncodingPCM{
		PCMFormat:  audio.PCMFormatS16LE,
		SampleRate: 48000,
	}, 1)
	d.ChunkSizeValue = chunkSize
	return d
}

func TestStream(t *testing.T) {
	for _, inputSize := range []int{0, 1, 8, 10, 1000} {
		t.Run(fmt.Sprintf("size%d", inputSize), func(t *testing.T) {
			ctx := context.Background()
			input := make([]byte, inputSize)
			expected := make([]byte, inputSize)
			for idx := range input {
				input[idx] = byte(idx)
				expected[idx] = ^byte(idx)
			}

			ns := &invertingNoiseSuppression{Dummy: newDummy(4)}
			s, err := New(ctx, bytes.NewReader(input), ns, 16, 8)
			require.NoError(t, err)
			defer s.Close()

			output, err := io.ReadAll(s)
			require.NoError(t, err)
			assert.Equal(t, expected, output)
			if inputSize > 0 {
				assert.Equal(t, 0.5, s.LastMetric())
			} else {
				assert.True(t, math.IsNaN(s.LastMetric()))
			}
		})
	}
}

func TestStreamDummy(t *testing.T) {
	ctx := context.Background()
	input := bytes.Repeat([]byte{1, 2, 3, 4}, 100)
	s, err := New(ctx, bytes.NewReader(input), newDummy(4), 64, 64)
	require.NoError(t, err)
	defer s.Close()

	output, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, input, output)
	assert.Equal(t, float64(1), s.LastMetric())
}

func TestStreamBackPressure(t *testing.T) {
	ctx := context.Background()
	input := make([]byte, 4000)
	for idx := range input {
		input[idx] = byte(idx * 7)
	}

	for i := 0; i < 50; i++ {
		s, err := New(ctx, bytes.NewReader(input), newDummy(4), 64, 64)
		require.NoError(t, err)

		output, err := io.ReadAll(s)
		require.NoError(t, err)
		require.NoError(t, s.Close())
		require.Equal(t, input, output, "iteration %d", i)
	}
}

func TestStreamSlowReader(t *testing.T) {
	ctx := context.Background()
	input := make([]byte, 1000)
	for idx := range input {
		input[idx] = byte(idx)
	}

	s, err := New(ctx, bytes.NewReader(input), newDummy(4), 8, 8)
	require.NoError(t, err)
	defer s.Close()

	var output []byte
	buf := make([]byte, 3)
	for {
		n, err := s.Read(buf)
		output = append(output, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, input, output)
}

func TestStreamSuppressionError(t *testing.T) {
	ctx := context.Background()
	ns := &invertingNoiseSuppression{Dummy: newDummy(4), Err: fmt.Errorf("unit-test")}
	s, err := New(ctx, bytes.NewReader(make([]byte, 100)), ns, 16, 16)
	require.NoError(t, err)
	defer s.Close()

	_, err = io.ReadAll(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit-test")
}

func TestStreamClose(t *testing.T) {
	ctx := context.Background()
	pipeReader, pipeWriter := io.Pipe()
	defer pipeWriter.Close()

	s, err := New(ctx, pipeReader, newDummy(4), 16, 16)
	require.NoError(t, err)

	_, err = pipeWriter.Write([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	buf := make([]byte, 4)
	n, err := io.ReadFull(s, buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)

	require.NoError(t, s.Close())
	_, err = s.Read(buf)
	assert.Error(t, err)
}

func TestStreamInvalidBuffers(t *testing.T) {
	_, err := New(context.Background(), bytes.NewReader(nil), newDummy(16), 8, 32)
	assert.Error(t, err)
}

func TestStreamMisalignedChunk(t *testing.T) {
	_, err := New(context.Background(), bytes.NewReader(nil), newDummy(3), 64, 64)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame size")
}
