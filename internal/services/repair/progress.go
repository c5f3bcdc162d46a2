package repair

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

type Progress struct {
	OutTimeUs int64   `json:"out_time_us"`
	TotalSize int64   `json:"total_size"`
	Speed     string  `json:"speed"`
	Done      bool    `json:"done"`
	Ratio     float64 `json:"ratio"`
}

// ParseProgress reads ffmpeg "-progress" key=value blocks from r and calls fn
// at the end of every block.
func ParseProgress(r io.Reader, fn func(Progress)) error {
	scanner := bufio.NewScanner(r)
	var current Progress
	for scanner.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		switch key {
		case "out_time_us":
			if v, err := strconv.ParseInt(val, 10, 64); err == nil {
				current.OutTimeUs = v
			}
		case "total_size":
			if v, err := strconv.ParseInt(val, 10, 64); err == nil {
				current.TotalSize = v
			}
		case "speed":
			current.Speed = val
		case "progress":
			current.Done = val == "end"
			if fn != nil {
				fn(current)
			}
		}
	}
	return scanner.Err()
}
