package charts

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineProducesSVG(t *testing.T) {
	var buf bytes.Buffer
	err := Line(&buf, 400, 200, []float64{100, 200, 150}, []string{"01 Oct", "02 Oct", "03 Oct"}, Options{
		Title:    "Revenue <daily>",
		ShowDots: true,
	})
	require.NoError(t, err)
	out := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<?xml"))
	assert.Contains(t, out, "<polyline")
	assert.Contains(t, out, "Revenue &lt;daily&gt;")
	assert.Equal(t, 3, strings.Count(out, "<circle"))
}

func TestBarsDrawOneRectPerBucket(t *testing.T) {
	series := make([]float64, 24)
	labels := make([]string, 24)
	for i := range series {
		series[i] = float64(i)
		labels[i] = string(rune('a' + i))
	}
	var buf bytes.Buffer
	require.NoError(t, Bars(&buf, 0, 0, series, labels, Options{Title: "Hourly"}))
	assert.Equal(t, 24, strings.Count(buf.String(), "<rect"))
}

func TestRejectsBadInput(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Line(&buf, 0, 0, nil, nil, Options{}), ErrNoData)
	assert.ErrorIs(t, Bars(&buf, 0, 0, []float64{1}, []string{"a", "b"}, Options{}), ErrLabelMismatch)
	assert.ErrorIs(t, Line(&buf, 40, 40, []float64{1}, []string{"a"}, Options{}), ErrViewport)
}

func TestFormatTick(t *testing.T) {
	assert.Equal(t, "0", FormatTick(0))
	assert.Equal(t, "2.5k", FormatTick(2500))
	assert.Equal(t, "1.2L", FormatTick(120000))
	assert.Equal(t, "3.0Cr", FormatTick(30_000_000))
	assert.Equal(t, "12.50", FormatTick(12.5))
}
