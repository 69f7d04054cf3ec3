// Package signature collapses freehand strokes into a single signature
// artifact: an SVG image encoded as a data URL.
package signature

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/aiimpactmedia/casting/internal/model"
)

const (
	DefaultWidth  = 500
	DefaultHeight = 200

	dataURLPrefix = "data:image/svg+xml;base64,"
	strokeStyle   = `fill="none" stroke="#000" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"`
)

// Pad accumulates strokes until confirmed. The confirmed value is either
// empty or a non-empty data URL.
type Pad struct {
	mu        sync.Mutex
	width     int
	height    int
	strokes   [][]model.Point
	confirmed string
}

// NewPad creates an empty pad of the given canvas size. Non-positive sizes
// fall back to the defaults.
func NewPad(width, height int) *Pad {
	p := &Pad{}
	p.resize(width, height)
	return p
}

// Draw adds strokes to the canvas. Strokes with no points are ignored.
func (p *Pad) Draw(strokes [][]model.Point) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range strokes {
		if len(s) == 0 {
			continue
		}
		p.strokes = append(p.strokes, append([]model.Point(nil), s...))
	}
}

// Confirm renders the current strokes and stores the result. An empty
// canvas confirms to the empty value.
func (p *Pad) Confirm() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.strokes) == 0 {
		p.confirmed = ""
		return ""
	}
	svg := render(p.width, p.height, p.strokes)
	p.confirmed = dataURLPrefix + base64.StdEncoding.EncodeToString([]byte(svg))
	return p.confirmed
}

// Capture replaces the canvas with a request's strokes and confirms it
func (p *Pad) Capture(req model.SignatureRequest) string {
	p.mu.Lock()
	p.resize(req.Width, req.Height)
	p.strokes = nil
	p.mu.Unlock()

	p.Draw(req.Strokes)
	return p.Confirm()
}

// Clear wipes the canvas and the confirmed value
func (p *Pad) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.strokes = nil
	p.confirmed = ""
}

// Value returns the last confirmed signature, or empty
func (p *Pad) Value() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.confirmed
}

// IsDataURL reports whether v looks like a value produced by Confirm
func IsDataURL(v string) bool {
	return strings.HasPrefix(v, dataURLPrefix) && len(v) > len(dataURLPrefix)
}

func (p *Pad) resize(width, height int) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	p.width = width
	p.height = height
}

func render(width, height int, strokes [][]model.Point) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height)
	for _, s := range strokes {
		b.WriteString(`<path d="`)
		for i, pt := range s {
			cmd := "L"
			if i == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&b, "%s%.1f %.1f ", cmd, clamp(pt.X, width), clamp(pt.Y, height))
		}
		// a single tap still leaves a visible dot
		if len(s) == 1 {
			b.WriteString("l0.1 0 ")
		}
		b.WriteString(`" `)
		b.WriteString(strokeStyle)
		b.WriteString(`/>`)
	}
	b.WriteString(`</svg>`)
	return b.String()
}

func clamp(v float64, max int) float64 {
	if v < 0 {
		return 0
	}
	if v > float64(max) {
		return float64(max)
	}
	return v
}
