// Package cv models the decoder's configuration variable address space and
// scans it through a session: the base range, the extended range behind the
// CV31/CV32 page selectors, and the RailCom identification block.
package cv

import (
	"fmt"
	"strconv"
	"strings"
)

// CV ranges.
const (
	BaseFirst     = 1
	BaseLast      = 256
	ExtendedFirst = 257
	ExtendedLast  = 512
)

// PageSelector is the (CV31, CV32) pair that picks what CV 257-512 mean.
type PageSelector struct {
	Low  uint8 // CV31
	High uint8 // CV32
}

var (
	// DefaultPage is the decoder's own extended CV page.
	DefaultPage = PageSelector{Low: 16, High: 0}
	// RailcomPage exposes the manufacturer/product/serial/date block.
	RailcomPage = PageSelector{Low: 0, High: 255}
)

func (p PageSelector) String() string {
	return fmt.Sprintf("(%d,%d)", p.Low, p.High)
}

// Name returns "default", "railcom" or "unmodelled".
func (p PageSelector) Name() string {
	switch p {
	case DefaultPage:
		return "default"
	case RailcomPage:
		return "railcom"
	default:
		return "unmodelled"
	}
}

// ParsePage accepts "default", "railcom" or "<cv31>,<cv32>".
func ParsePage(s string) (PageSelector, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "default":
		return DefaultPage, nil
	case "railcom":
		return RailcomPage, nil
	}
	lo, hi, ok := strings.Cut(s, ",")
	if !ok {
		return PageSelector{}, fmt.Errorf("invalid page %q: want default, railcom or <cv31>,<cv32>", s)
	}
	l, err := strconv.ParseUint(strings.TrimSpace(lo), 10, 8)
	if err != nil {
		return PageSelector{}, fmt.Errorf("invalid CV31 value %q: %w", lo, err)
	}
	h, err := strconv.ParseUint(strings.TrimSpace(hi), 10, 8)
	if err != nil {
		return PageSelector{}, fmt.Errorf("invalid CV32 value %q: %w", hi, err)
	}
	return PageSelector{Low: uint8(l), High: uint8(h)}, nil
}

// Offset translates cv into an index on the page.
func Offset(cv int) int {
	return cv - ExtendedFirst
}
