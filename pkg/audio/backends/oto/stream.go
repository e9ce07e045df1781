package oto

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/xaionaro-go/noisefilter/pkg/audio/types"
)

const drainCheckInterval = 10 * time.Millisecond

type Stream struct {
	Player *oto.Player
}

var _ types.PlayStream = (*Stream)(nil)

func newStream(player *oto.Player) *Stream {
	return &Stream{
		Player: player,
	}
}

// Drain blocks until the player consumed the whole reader.
func (s *Stream) Drain() error {
	for s.Player.IsPlaying() {
		time.Sleep(drainCheckInterval)
	}
	if err := s.Player.Err(); err != nil {
		return fmt.Errorf("an error occurred during playback: %w", err)
	}
	return nil
}

func (s *Stream) Close() error {
	return s.Player.Close()
}
