package codec

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Format uint

const (
	FormatUndefined = Format(iota)
	FormatRaw
	FormatWAV
	FormatMP3
	FormatVorbis
	EndOfFormat
)

func (f Format) String() string {
	switch f {
	case FormatUndefined:
		return "undefined"
	case FormatRaw:
		return "raw"
	case FormatWAV:
		return "wav"
	case FormatMP3:
		return "mp3"
	case FormatVorbis:
		return "vorbis"
	}
	return fmt.Sprintf("unknown_format_%d", uint(f))
}

func FormatFromString(s string) Format {
	s = strings.ToLower(strings.TrimSpace(s))
	for f := FormatUndefined; f < EndOfFormat; f++ {
		if f.String() == s {
			return f
		}
	}
	return FormatUndefined
}

// FormatFromPath guesses the format by the file extension. Unknown
// extensions are treated as raw PCM.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".mp3":
		return FormatMP3
	case ".ogg", ".oga":
		return FormatVorbis
	default:
		return FormatRaw
	}
}
