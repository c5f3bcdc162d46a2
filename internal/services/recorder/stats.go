package recorder

import (
	"time"
)

type Stats struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Mode           Mode   `json:"mode"`
	State          State  `json:"state"`
	BytesRecorded  uint64 `json:"bytes_recorded"`
	Fragments      uint64 `json:"fragments"`
	Pending        int    `json:"pending_chunks"`
	Recordings     int64  `json:"recordings"`
	LastOutput     string `json:"last_output,omitempty"`
	LastError      string `json:"last_error,omitempty"`
	CreatedAt      int64  `json:"created_at"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
}

func (s *Session) Stats() *Stats {
	st := &Stats{
		ID:             s.id,
		Name:           s.name,
		Mode:           s.mode,
		State:          s.State(),
		BytesRecorded:  s.bytes.Load(),
		Fragments:      s.fragments.Load(),
		Pending:        s.chunks.Len(),
		Recordings:     s.recordings.Value(),
		CreatedAt:      s.createdAt.Unix(),
		ElapsedSeconds: int64(time.Since(s.createdAt).Seconds()),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st.LastOutput = s.lastOutput
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (r *Service) GetStats(id string) (*Stats, bool) {
	session, ok := r.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return session.Stats(), true
}

func (r *Service) ListStats() []*Stats {
	stats := make([]*Stats, 0, r.sessions.Size())
	r.sessions.Range(func(_ string, session *Session) bool {
		stats = append(stats, session.Stats())
		return true
	})
	return stats
}
