package barcode

import (
	"bytes"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProducesThirteenDigits(t *testing.T) {
	src := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		code := Generate(src)
		require.Len(t, code, 13)
		assert.NotEqual(t, byte('0'), code[0])
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9', code)
		}
	}
}

type fixedSource int64

func (f fixedSource) Int64N(int64) int64 { return int64(f) }

func TestGenerateBounds(t *testing.T) {
	assert.Equal(t, "1000000000000", Generate(fixedSource(0)))
	assert.Equal(t, "9999999999999", Generate(fixedSource(codeRange-1)))
}

func TestPatternTable(t *testing.T) {
	require.Len(t, patterns, 107)
	for i, p := range patterns[:106] {
		assert.Equal(t, 11, patternWidth(p), "symbol %d", i)
	}
	assert.Equal(t, 13, patternWidth(patterns[stop]))
}

func TestChecksum(t *testing.T) {
	// "A" is value 33: (104 + 33) mod 103.
	assert.Equal(t, 34, Checksum([]int{33}))

	symbols, err := Encode("AB")
	require.NoError(t, err)
	// (104 + 33*1 + 34*2) mod 103 = 205 mod 103
	assert.Equal(t, []int{startB, 33, 34, 102}, symbols)
}

func TestEncodeRejectsNonASCII(t *testing.T) {
	_, err := Encode("₹10")
	require.ErrorIs(t, err, ErrUnencodable)
	_, err = Encode("")
	require.ErrorIs(t, err, ErrUnencodable)
}

func TestCode128SVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Code128SVG(&buf, "1234567890123", Options{ShowText: true}))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, "1234567890123")
	assert.Contains(t, out, "</svg>")
}
