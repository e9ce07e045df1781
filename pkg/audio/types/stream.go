package types

import (
	"io"
)

type Stream interface {
	io.Closer
	Drain() error
}

type PlayStream interface {
	Stream
}

type RecordStream interface {
	Stream
}
