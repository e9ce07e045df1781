package deepfilter

import (
	"sync"
	"unsafe"
)

const (
	spyFrameLength = 512
	spyMetric      = float32(0.75)
)

type createStateInvocation struct {
	Model      []byte
	Channels   int32
	AttenLimDB float32
}

type processFrameInvocation struct {
	State     State
	FramePtr  *int16
	FrameSize int
}

type floatInvocation struct {
	State State
	Value float32
}

type engineSpy struct {
	Locker      sync.Mutex
	stateMarker [8]byte
	FailCreate  bool

	CreateStateInvocations       []createStateInvocation
	ProcessFrameInvocations      []processFrameInvocation
	GetFrameLengthInvocations    []State
	SetAttenLimInvocations       []floatInvocation
	SetPostFilterBetaInvocations []floatInvocation
	FreeStateInvocations         []State
}

var _ Engine = (*engineSpy)(nil)

func newEngineSpy() *engineSpy {
	return &engineSpy{}
}

func (s *engineSpy) MockedState() State {
	return State(unsafe.Pointer(&s.stateMarker))
}

func (s *engineSpy) CreateState(model []byte, channels int32, attenLimDB float32) State {
	s.Locker.Lock()
	defer s.Locker.Unlock()
	s.CreateStateInvocations = append(s.CreateStateInvocations, createStateInvocation{
		Model:      model,
		Channels:   channels,
		AttenLimDB: attenLimDB,
	})
	if s.FailCreate {
		return nil
	}
	return s.MockedState()
}

// ProcessFrame imitates the engine by zeroing the frame.
func (s *engineSpy) ProcessFrame(state State, frame []int16) float32 {
	s.Locker.Lock()
	defer s.Locker.Unlock()
	s.ProcessFrameInvocations = append(s.ProcessFrameInvocations, processFrameInvocation{
		State:     state,
		FramePtr:  unsafe.SliceData(frame),
		FrameSize: len(frame),
	})
	for idx := range frame {
		frame[idx] = 0
	}
	return spyMetric
}

func (s *engineSpy) GetFrameLength(state State) int32 {
	s.Locker.Lock()
	defer s.Locker.Unlock()
	s.GetFrameLengthInvocations = append(s.GetFrameLengthInvocations, state)
	return spyFrameLength
}

func (s *engineSpy) SetAttenLim(state State, limDB float32) {
	s.Locker.Lock()
	defer s.Locker.Unlock()
	s.SetAttenLimInvocations = append(s.SetAttenLimInvocations, floatInvocation{State: state, Value: limDB})
}

func (s *engineSpy) SetPostFilterBeta(state State, beta float32) {
	s.Locker.Lock()
	defer s.Locker.Unlock()
	s.SetPostFilterBetaInvocations = append(s.SetPostFilterBetaInvocations, floatInvocation{State: state, Value: beta})
}

func (s *engineSpy) FreeState(state State) {
	s.Locker.Lock()
	defer s.Locker.Unlock()
	s.FreeStateInvocations = append(s.FreeStateInvocations, state)
}

func (s *engineSpy) FreeStateCount() int {
	s.Locker.Lock()
	defer s.Locker.Unlock()
	return len(s.FreeStateInvocations)
}
