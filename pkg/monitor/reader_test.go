package monitor_test

import (
	"io"
	"strings"
	"testing"

	"github.com/eric2788/webmrec/pkg/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReader(t *testing.T) {
	var reported []int64
	r := monitor.NewProgressReader(io.NopCloser(strings.NewReader("0123456789")), func(read int64) {
		reported = append(reported, read)
	})

	buf := make([]byte, 4)
	for {
		_, err := r.Read(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, []int64{4, 8, 10}, reported)
	assert.EqualValues(t, 10, r.BytesRead())
	assert.NoError(t, r.Close())
}
