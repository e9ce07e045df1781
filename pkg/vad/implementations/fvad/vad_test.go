package fvad

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/noisefilter/pkg/audio"
)

func TestNewVAD(t *testing.T) {
	ctx := context.Background()
	v, err := NewVAD(ctx, DefaultSampleRate, ModeAggressive, DefaultFrameDuration)
	require.NoError(t, err)
	defer v.Close()

	assert.Equal(t, uint64(960), v.FrameSize)
	assert.Len(t, v.Frame, 480)

	enc, err := v.Encoding(ctx)
	require.NoError(t, err)
	assert.Equal(t, audio.EncodingPCM{
		PCMFormat:  audio.PCMFormatS16Native(),
		SampleRate: DefaultSampleRate,
	}, enc)
	channels, err := v.Channels(ctx)
	require.NoError(t, err)
	assert.Equal(t, audio.Channel(1), channels)
}

func TestNewVADInvalid(t *testing.T) {
	ctx := context.Background()
	_, err := NewVAD(ctx, 44100, ModeQuality, DefaultFrameDuration)
	assert.Error(t, err)
	_, err = NewVAD(ctx, DefaultSampleRate, ModeQuality, 25*time.Millisecond)
	assert.Error(t, err)
	_, err = NewVAD(ctx, DefaultSampleRate, Mode(4), DefaultFrameDuration)
	assert.Error(t, err)
}

func TestFindNextVoiceSilence(t *testing.T) {
	ctx := context.Background()
	v, err := NewVAD(ctx, 8000, ModeVeryAggressive, 10*time.Millisecond)
	require.NoError(t, err)
	defer v.Close()

	// 1 second of silence plus a tail shorter than a frame
	samples := make([]byte, 16000+7)
	maxMetric, firstVoice, err := v.FindNextVoice(ctx, samples, 0.5, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, float64(0), maxMetric)
	assert.Equal(t, time.Duration(-1), firstVoice)
}

func TestFindNextVoiceClosed(t *testing.T) {
	ctx := context.Background()
	v, err := NewVAD(ctx, DefaultSampleRate, ModeQuality, DefaultFrameDuration)
	require.NoError(t, err)
	require.NoError(t, v.Close())

	_, _, err = v.FindNextVoice(ctx, make([]byte, 960), 0.5, time.Millisecond)
	assert.Error(t, err)
}
