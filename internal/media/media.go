// Package media models the capture and record capabilities a recording
// session is built on: a playable Source exposing a capture Stream, and a
// Recorder turning that stream into encoded fragments.
package media

import (
	"errors"

	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("pkg", "media")

var ErrInvalidState = errors.New("recorder is not in a valid state for this operation")

type Source interface {
	CaptureStream() Stream
	OnPlay(fn func()) (unsubscribe func())
	OnPause(fn func()) (unsubscribe func())
}

type Track struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

type Stream interface {
	Active() bool
	Tracks() []Track
	// OnActive fires on every inactive to active transition.
	OnActive(fn func()) (unsubscribe func())
	OnAddTrack(fn func(Track)) (unsubscribe func())
	// OnData delivers encoded media as it flows through the stream. The slice
	// is only valid during the call.
	OnData(fn func([]byte)) (unsubscribe func())
	// OnDataFrom is OnData that also hands out the init segment seen before
	// the subscription.
	OnDataFrom(fn func([]byte)) (InitSegment, func())
}

type RecorderState int

const (
	RecorderInactive RecorderState = iota
	RecorderRecording
	// RecorderStopping covers the window between Stop and the return of the
	// stop handler.
	RecorderStopping
)

func (s RecorderState) String() string {
	switch s {
	case RecorderInactive:
		return "inactive"
	case RecorderRecording:
		return "recording"
	case RecorderStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

type Recorder interface {
	State() RecorderState
	Start() error
	Stop() error
	// OnData sets the fragment handler. The fragment is owned by the handler.
	OnData(fn func(fragment []byte))
	// OnStop sets the handler invoked once per Stop, after the last fragment.
	OnStop(fn func())
}

type RecorderFactory func(stream Stream) (Recorder, error)
