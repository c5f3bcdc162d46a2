package session

import "github.com/eric2788/webmrec/internal/services/recorder"

type (
	CreateRequest struct {
		URL  string        `json:"url"`
		Name string        `json:"name"`
		Mode recorder.Mode `json:"mode"`
	}

	EngineStatus struct {
		Initialized bool   `json:"initialized"`
		Loaded      bool   `json:"loaded"`
		Version     string `json:"version,omitempty"`
		Error       string `json:"error,omitempty"`
		Loads       int    `json:"loads"`
	}
)
