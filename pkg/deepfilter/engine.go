package deepfilter

import (
	"unsafe"
)

// State is an opaque handle to a native filtering state. It is only ever
// produced and consumed by an Engine.
type State unsafe.Pointer

// Engine is the native noise suppression library.
//
// Implementations are not expected to be safe for concurrent use on the same
// State.
type Engine interface {
	// CreateState parses the model and returns a new state, or nil if the
	// model could not be loaded. The model slice is not retained.
	CreateState(model []byte, channels int32, attenLimDB float32) State

	// ProcessFrame denoises the frame in place and returns the metric
	// reported by the engine for this frame.
	ProcessFrame(state State, frame []int16) float32

	GetFrameLength(state State) int32
	SetAttenLim(state State, limDB float32)
	SetPostFilterBeta(state State, beta float32)
	FreeState(state State)
}
