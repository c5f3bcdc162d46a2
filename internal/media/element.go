package media

import (
	"slices"
	"sync"
)

// CaptureStream is an in-process Stream fed by a producer through Write.
type CaptureStream struct {
	mu     sync.Mutex
	active bool
	tracks []Track

	// wmu serializes writes with data subscriptions taken by OnDataFrom.
	wmu  sync.Mutex
	head initTracker

	activeEv emitter[struct{}]
	trackEv  emitter[Track]
	dataEv   emitter[[]byte]
}

func NewCaptureStream() *CaptureStream {
	return &CaptureStream{}
}

func (s *CaptureStream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *CaptureStream) Tracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tracks)
}

func (s *CaptureStream) OnActive(fn func()) func() {
	return s.activeEv.subscribe(func(struct{}) { fn() })
}

func (s *CaptureStream) OnAddTrack(fn func(Track)) func() {
	return s.trackEv.subscribe(fn)
}

func (s *CaptureStream) OnData(fn func([]byte)) func() {
	return s.dataEv.subscribe(fn)
}

// OnDataFrom subscribes fn and returns the init segment written so far. No
// write is split between the two.
func (s *CaptureStream) OnDataFrom(fn func([]byte)) (InitSegment, func()) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.head.snapshot(), s.dataEv.subscribe(fn)
}

// ResetInit forgets the init segment, for a producer about to restart the
// stream with a new header.
func (s *CaptureStream) ResetInit() {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.head.reset()
}

func (s *CaptureStream) Activate() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.mu.Unlock()
	s.activeEv.emit(struct{}{})
}

// Deactivate marks the stream inactive and drops its tracks and init segment.
func (s *CaptureStream) Deactivate() {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.head.reset()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.tracks = nil
}

// AddTrack registers t; a track id is only announced once.
func (s *CaptureStream) AddTrack(t Track) {
	s.mu.Lock()
	if slices.ContainsFunc(s.tracks, func(o Track) bool { return o.ID == t.ID }) {
		s.mu.Unlock()
		return
	}
	s.tracks = append(s.tracks, t)
	s.mu.Unlock()
	s.trackEv.emit(t)
}

// Write pushes encoded media to the data subscribers and keeps track of the
// stream header. Writes on an inactive stream are discarded.
func (s *CaptureStream) Write(p []byte) (int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if !s.Active() {
		return len(p), nil
	}
	s.head.write(p)
	s.dataEv.emit(p)
	return len(p), nil
}

// Element is an in-process playable Source.
type Element struct {
	mu      sync.Mutex
	playing bool
	stream  *CaptureStream

	playEv  emitter[struct{}]
	pauseEv emitter[struct{}]
}

func NewElement() *Element {
	return &Element{stream: NewCaptureStream()}
}

func (e *Element) CaptureStream() Stream {
	return e.stream
}

// Output gives producers write access to the capture stream.
func (e *Element) Output() *CaptureStream {
	return e.stream
}

func (e *Element) OnPlay(fn func()) func() {
	return e.playEv.subscribe(func(struct{}) { fn() })
}

func (e *Element) OnPause(fn func()) func() {
	return e.pauseEv.subscribe(func(struct{}) { fn() })
}

func (e *Element) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// Play emits a play event on the paused to playing transition.
func (e *Element) Play() {
	if e.setPlaying(true) {
		e.playEv.emit(struct{}{})
	}
}

// Pause emits a pause event on the playing to paused transition.
func (e *Element) Pause() {
	if e.setPlaying(false) {
		e.pauseEv.emit(struct{}{})
	}
}

func (e *Element) setPlaying(v bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playing == v {
		return false
	}
	e.playing = v
	return true
}

// Listeners reports the number of play and pause subscribers.
func (e *Element) Listeners() (play, pause int) {
	return e.playEv.size(), e.pauseEv.size()
}
