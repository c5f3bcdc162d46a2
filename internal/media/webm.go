package media

import (
	"bytes"
	"slices"
)

var (
	// EBMLMagic opens every webm stream.
	EBMLMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}
	// ClusterID marks the start of a webm cluster.
	ClusterID = []byte{0x1F, 0x43, 0xB6, 0x75}
)

// MaxInitSegment bounds how much of a stream is kept while looking for its
// first cluster.
const MaxInitSegment = 1 << 20

// InitSegment is the part of a webm stream in front of its first cluster.
type InitSegment struct {
	Data []byte
	// Complete is set once the first cluster has been seen.
	Complete bool
}

// initTracker accumulates the init segment of a stream across writes.
type initTracker struct {
	seg     InitSegment
	givenUp bool
}

func (t *initTracker) reset() {
	*t = initTracker{}
}

func (t *initTracker) write(p []byte) {
	if t.seg.Complete || t.givenUp || len(p) == 0 {
		return
	}
	if len(t.seg.Data) < len(EBMLMagic) {
		head := append(slices.Clone(t.seg.Data), p[:min(len(p), len(EBMLMagic)-len(t.seg.Data))]...)
		if !bytes.HasPrefix(EBMLMagic, head) {
			t.seg.Data = nil
			t.givenUp = true
			return
		}
	}
	from := max(0, len(t.seg.Data)-len(ClusterID)+1)
	t.seg.Data = append(t.seg.Data, p...)
	if i := bytes.Index(t.seg.Data[from:], ClusterID); i >= 0 {
		t.seg.Data = t.seg.Data[:from+i]
		t.seg.Complete = true
	} else if len(t.seg.Data) > MaxInitSegment {
		t.seg.Data = nil
		t.givenUp = true
	}
}

func (t *initTracker) snapshot() InitSegment {
	return InitSegment{Data: slices.Clone(t.seg.Data), Complete: t.seg.Complete}
}

// clusterAligner drops data until the next cluster starts.
type clusterAligner struct {
	carry []byte
}

// align returns the part of p from the first cluster on, or nil while no
// cluster has started yet.
func (a *clusterAligner) align(p []byte) ([]byte, bool) {
	data := append(a.carry, p...)
	if i := bytes.Index(data, ClusterID); i >= 0 {
		a.carry = nil
		return data[i:], true
	}
	keep := min(len(data), len(ClusterID)-1)
	a.carry = slices.Clone(data[len(data)-keep:])
	return nil, false
}
