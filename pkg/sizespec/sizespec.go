// Package sizespec parses the size arguments accepted by diskio and expands
// them into the concrete byte sizes a sweep iterates over.
//
// Three textual forms are understood:
//
//	4k         a single size
//	1k..1m     every canonical size s with 1k <= s <= 1m
//	4k,64k,1m  an explicit list, kept in the given order
//
// Unit suffixes k, m, g and t (either case) scale by powers of 1024.
package sizespec

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidSize is returned for size text that cannot be parsed.
var ErrInvalidSize = errors.New("invalid size argument")

const (
	KiB int64 = 1 << 10
	MiB int64 = 1 << 20
	GiB int64 = 1 << 30
	TiB int64 = 1 << 40
)

// BlockSizes is the canonical menu used to expand a block size range.
var BlockSizes = []int64{
	128,
	256,
	512,
	KiB,
	10 * KiB,
	100 * KiB,
	MiB,
	10 * MiB,
	100 * MiB,
}

// DataSizes is the canonical menu used to expand a data size range.
var DataSizes = []int64{
	MiB,
	10 * MiB,
	100 * MiB,
	GiB,
	10 * GiB,
	100 * GiB,
}

// Kind tags the shape of a Spec.
type Kind int

const (
	None Kind = iota
	Single
	Range
	List
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Single:
		return "single"
	case Range:
		return "range"
	case List:
		return "list"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Spec is a parsed size argument. Low holds the value of a Single spec and
// the lower bound of a Range; High is math.MaxInt64 for an open range ("4k..").
type Spec struct {
	Kind   Kind
	Low    int64
	High   int64
	Values []int64
}

// Parse parses text into a Spec. Empty text, or text without any digits,
// yields a None spec that expands to nothing.
func Parse(text string) (Spec, error) {
	text = strings.TrimSpace(text)
	if !strings.ContainsAny(text, "0123456789") {
		return Spec{Kind: None}, nil
	}

	if strings.Contains(text, ",") {
		var values []int64
		for _, item := range strings.Split(text, ",") {
			v, err := ParseSize(item)
			if err != nil {
				return Spec{}, errors.Wrapf(err, "list %q", text)
			}
			values = append(values, v)
		}
		return Spec{Kind: List, Values: values}, nil
	}

	if i := strings.Index(text, ".."); i >= 0 {
		lo, hi := strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+2:])
		if lo == "" {
			return Spec{}, errors.Wrapf(ErrInvalidSize, "range %q has an upper bound but no lower bound", text)
		}
		low, err := ParseSize(lo)
		if err != nil {
			return Spec{}, errors.Wrapf(err, "range %q", text)
		}
		high := int64(math.MaxInt64)
		if hi != "" {
			if high, err = ParseSize(hi); err != nil {
				return Spec{}, errors.Wrapf(err, "range %q", text)
			}
		}
		if low > high {
			return Spec{}, errors.Wrapf(ErrInvalidSize, "range %q is inverted", text)
		}
		return Spec{Kind: Range, Low: low, High: high}, nil
	}

	v, err := ParseSize(text)
	if err != nil {
		return Spec{}, err
	}
	return Spec{Kind: Single, Low: v}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level defaults.
func MustParse(text string) Spec {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseSize parses one positive integer with an optional k/m/g/t suffix.
func ParseSize(text string) (int64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, errors.Wrap(ErrInvalidSize, "empty size")
	}
	mult := int64(1)
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = KiB
	case 'm', 'M':
		mult = MiB
	case 'g', 'G':
		mult = GiB
	case 't', 'T':
		mult = TiB
	}
	if mult != 1 {
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidSize, "size %q", text)
	}
	if n <= 0 {
		return 0, errors.Wrapf(ErrInvalidSize, "size %q must be positive", text)
	}
	if n > math.MaxInt64/mult {
		return 0, errors.Wrapf(ErrInvalidSize, "size %q overflows", text)
	}
	return n * mult, nil
}

// Expand returns the concrete sizes described by s. A Range selects the
// entries of menu that fall inside the bounds; menu must be ascending.
func (s Spec) Expand(menu []int64) []int64 {
	switch s.Kind {
	case Single:
		return []int64{s.Low}
	case List:
		return append([]int64(nil), s.Values...)
	case Range:
		var out []int64
		for _, v := range menu {
			if v >= s.Low && v <= s.High {
				out = append(out, v)
			}
		}
		return out
	}
	return nil
}

// Blocks expands s against BlockSizes.
func (s Spec) Blocks() []int64 { return s.Expand(BlockSizes) }

// Datas expands s against DataSizes.
func (s Spec) Datas() []int64 { return s.Expand(DataSizes) }

func (s Spec) String() string {
	switch s.Kind {
	case Single:
		return Humanize(uint64(s.Low))
	case Range:
		if s.High == math.MaxInt64 {
			return Humanize(uint64(s.Low)) + ".."
		}
		return Humanize(uint64(s.Low)) + ".." + Humanize(uint64(s.High))
	case List:
		parts := make([]string, len(s.Values))
		for i, v := range s.Values {
			parts[i] = Humanize(uint64(v))
		}
		return strings.Join(parts, ",")
	}
	return ""
}

// Humanize renders n in the largest unit that keeps the integer part
// non-zero, truncating. Sizes below 1KB are shown in bytes.
func Humanize(n uint64) string {
	switch {
	case n < uint64(KiB):
		return fmt.Sprintf("%dB", n)
	case n < uint64(MiB):
		return fmt.Sprintf("%dKB", n/uint64(KiB))
	case n < uint64(GiB):
		return fmt.Sprintf("%dMB", n/uint64(MiB))
	case n < uint64(TiB):
		return fmt.Sprintf("%dGB", n/uint64(GiB))
	}
	return fmt.Sprintf("%dTB", n/uint64(TiB))
}
