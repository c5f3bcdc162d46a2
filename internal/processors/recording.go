package processors

import "github.com/eric2788/webmrec/internal/media"

// Recording is the item flowing through the finalization pipeline.
type Recording struct {
	Name     string
	Blob     *media.Blob
	Raw      int
	Repaired bool
	Location string
}
