// Package barcode generates product barcodes and renders them as CODE128 SVG.
package barcode

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"

	svg "github.com/ajstarks/svgo"
)

const (
	minCode   = 1_000_000_000_000
	codeRange = 9_000_000_000_000
)

// ErrUnencodable indicates a character outside CODE128 set B.
var ErrUnencodable = errors.New("barcode: value not encodable in code set B")

// Source supplies randomness for Generate.
type Source interface {
	Int64N(n int64) int64
}

// Generate returns a random 13 digit numeric barcode. A nil source uses the global generator.
func Generate(src Source) string {
	var n int64
	if src == nil {
		n = rand.Int64N(codeRange)
	} else {
		n = src.Int64N(codeRange)
	}
	return strconv.FormatInt(minCode+n, 10)
}

// Options controls SVG output.
type Options struct {
	ModuleWidth int
	Height      int
	QuietZone   int // in modules
	ShowText    bool
}

func (o Options) withDefaults() Options {
	if o.ModuleWidth <= 0 {
		o.ModuleWidth = 2
	}
	if o.Height <= 0 {
		o.Height = 80
	}
	if o.QuietZone <= 0 {
		o.QuietZone = 10
	}
	return o
}

const (
	startB = 104
	stop   = 106
)

// Encode returns the symbol values for value including start code and checksum, excluding stop.
func Encode(value string) ([]int, error) {
	if value == "" {
		return nil, ErrUnencodable
	}
	symbols := make([]int, 0, len(value)+2)
	symbols = append(symbols, startB)
	for _, r := range value {
		if r < 32 || r > 126 {
			return nil, fmt.Errorf("%w: %q", ErrUnencodable, r)
		}
		symbols = append(symbols, int(r)-32)
	}
	return append(symbols, Checksum(symbols[1:])), nil
}

// Checksum computes the modulo 103 check symbol for set B data values.
func Checksum(values []int) int {
	sum := startB
	for i, v := range values {
		sum += v * (i + 1)
	}
	return sum % 103
}

// Code128SVG writes value as a CODE128 set B barcode.
func Code128SVG(w io.Writer, value string, opts Options) error {
	symbols, err := Encode(value)
	if err != nil {
		return err
	}
	opts = opts.withDefaults()
	symbols = append(symbols, stop)

	modules := 2 * opts.QuietZone
	for _, s := range symbols {
		modules += patternWidth(patterns[s])
	}
	width := modules * opts.ModuleWidth
	height := opts.Height
	barHeight := height
	if opts.ShowText {
		height += 18
	}

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:white")
	x := opts.QuietZone * opts.ModuleWidth
	for _, s := range symbols {
		for i, ch := range patterns[s] {
			span := int(ch-'0') * opts.ModuleWidth
			if i%2 == 0 {
				canvas.Rect(x, 0, span, barHeight, "fill:black")
			}
			x += span
		}
	}
	if opts.ShowText {
		canvas.Text(width/2, height-4, value, "text-anchor:middle;font-family:monospace;font-size:14px")
	}
	canvas.End()
	return nil
}

func patternWidth(p string) int {
	total := 0
	for _, ch := range p {
		total += int(ch - '0')
	}
	return total
}

// patterns holds bar/space module widths for symbol values 0..106.
var patterns = [...]string{
	"212222", "222122", "222221", "121223", "121322", "131222", "122213", "122312", "132212", "221213",
	"221312", "231212", "112232", "122132", "122231", "113222", "123122", "123221", "223211", "221132",
	"221231", "213212", "223112", "312131", "311222", "321122", "321221", "312212", "322112", "322211",
	"212123", "212321", "232121", "111323", "131123", "131321", "112313", "132113", "132311", "211313",
	"231113", "231311", "112133", "112331", "132131", "113123", "113321", "133121", "313121", "211331",
	"231131", "213113", "213311", "213131", "311123", "311321", "331121", "312113", "312311", "332111",
	"314111", "221411", "431111", "111224", "111422", "121124", "121421", "141122", "141221", "112214",
	"112412", "122114", "122411", "142112", "142211", "241211", "221114", "413111", "241112", "134111",
	"111242", "121142", "121241", "114212", "124112", "124211", "411212", "421112", "421211", "212141",
	"214121", "412121", "111143", "111341", "131141", "114113", "114311", "411113", "411311", "113141",
	"114131", "311141", "411131", "211412", "211214", "211232", "2331112",
}
