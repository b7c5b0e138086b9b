package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"
)

// ============================================================================
// Render primitive builders
// ============================================================================
//
// Pure functions from a fully-resolved visual snapshot to an SVG document.
// No state, no clocks, no side effects: the same face always yields the same
// bytes, which keeps these directly testable and keeps all timing decisions
// in the state machines and the throttle.
//
// Free-text labels are escaped before they reach the markup. Geometry that
// falls outside the canvas is clamped, never rejected; a diagnostic display
// that refuses to draw is worse than one that draws at the edge.
// ============================================================================

// keyPhase is the discrete visual state of a key canvas.
type keyPhase int

const (
	keyPhaseIdle keyPhase = iota
	keyPhaseDown
	keyPhaseHold
	keyPhaseUp
)

// keyFace is the resolved visual snapshot for a key canvas.
type keyFace struct {
	Phase    keyPhase
	Title    string
	HoldSecs float64 // live or frozen hold duration
	ShowHold bool    // whether HoldSecs is displayed
	Downs    int
	Ups      int
}

// dialFace is the resolved visual snapshot for a dial/touch-strip segment.
type dialFace struct {
	Label        string
	Kind         inputKind
	Presses      int
	RotateMag    int
	Touches      int
	HasDot       bool
	DotX, DotY   float64 // canvas coordinates, clamped at draw time
	DotHold      bool
	ColumnOffset int
}

// inputKind classifies the most recent dial interaction; it selects the
// accent color on the segment.
type inputKind int

const (
	kindIdle inputKind = iota
	kindPress
	kindRelease
	kindRotate
	kindTap
	kindHold
)

func (k inputKind) accent() string {
	switch k {
	case kindPress:
		return colorAccentPress
	case kindRelease:
		return colorAccentRelease
	case kindRotate:
		return colorAccentRotate
	case kindTap:
		return colorAccentTap
	case kindHold:
		return colorAccentHold
	default:
		return colorAccentIdle
	}
}

// labelEscaper neutralizes markup metacharacters in free text before it is
// embedded in the generated SVG.
var labelEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeLabel(s string) string {
	return labelEscaper.Replace(s)
}

// formatHoldSeconds renders a hold duration with one decimal place.
func formatHoldSeconds(secs float64) string {
	if !isFinite(secs) || secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%.1fs", secs)
}

// clampDot pins a dot center so the full dot stays inside [0, extent].
func clampDot(v, extent, radius float64) float64 {
	if !isFinite(v) {
		v = 0
	}
	if v < radius {
		return radius
	}
	if v > extent-radius {
		return extent - radius
	}
	return v
}

// svgDataURI wraps a rendered SVG document as a transmissible image blob.
func svgDataURI(doc string) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(doc))
}

// buildKeySVG renders the square key canvas: background by phase, a
// highlight ring while the key is engaged, the control title, an optional
// centered hold timer, and the down/up counters in the bottom corners.
func buildKeySVG(f keyFace) string {
	const w, h = keyCanvasSize, keyCanvasSize

	bg := colorCanvas
	if f.Phase == keyPhaseDown || f.Phase == keyPhaseHold {
		bg = colorCanvasH
	}

	var buf bytes.Buffer
	c := svg.New(&buf)
	c.Start(w, h)
	c.Roundrect(0, 0, w, h, 12, 12, "fill:"+bg)

	switch f.Phase {
	case keyPhaseDown:
		c.Roundrect(4, 4, w-8, h-8, 10, 10, "fill:none;stroke:"+colorRing+";stroke-width:3")
	case keyPhaseHold:
		c.Roundrect(4, 4, w-8, h-8, 10, 10, "fill:none;stroke:"+colorAccentHold+";stroke-width:5")
	case keyPhaseUp:
		c.Roundrect(4, 4, w-8, h-8, 10, 10, "fill:none;stroke:"+colorAccentPress+";stroke-width:3")
	}

	c.Text(w/2, 34, escapeLabel(f.Title),
		"fill:"+colorText+";font-size:22px;font-family:sans-serif;text-anchor:middle;font-weight:bold")

	if f.ShowHold {
		c.Text(w/2, h/2+12, escapeLabel(formatHoldSeconds(f.HoldSecs)),
			"fill:"+colorText+";font-size:30px;font-family:sans-serif;text-anchor:middle")
	}

	c.Text(10, h-12, "D:"+strconv.Itoa(clampCount(f.Downs)),
		"fill:"+colorDim+";font-size:16px;font-family:sans-serif;text-anchor:start")
	c.Text(w-10, h-12, "U:"+strconv.Itoa(clampCount(f.Ups)),
		"fill:"+colorDim+";font-size:16px;font-family:sans-serif;text-anchor:end")

	c.End()
	return buf.String()
}

// buildKeyImage is buildKeySVG wrapped as a data URI for transmission.
func buildKeyImage(f keyFace) string {
	return svgDataURI(buildKeySVG(f))
}

// buildDialSVG renders the wide touch-strip segment: a phase-shifted dot
// grid so adjacent segments read as one continuous strip, an accent bar
// colored by the last input kind, the big event label, the last tap marker,
// and the three counters along the bottom.
func buildDialSVG(f dialFace) string {
	const w, h = dialCanvasW, dialCanvasH

	var buf bytes.Buffer
	c := svg.New(&buf)
	c.Start(w, h)
	c.Rect(0, 0, w, h, "fill:"+colorCanvas)

	// Background pattern. The per-column offset shifts the grid phase so the
	// pattern lines up across physically adjacent segments.
	phase := f.ColumnOffset % patternPitch
	if phase < 0 {
		phase += patternPitch
	}
	for x := -phase; x < w; x += patternPitch {
		for y := patternPitch / 2; y < h; y += patternPitch {
			c.Circle(x+patternPitch/2, y, 1, "fill:"+colorAccentIdle)
		}
	}

	c.Rect(0, 0, w, 4, "fill:"+f.Kind.accent())

	c.Text(w/2, 46, escapeLabel(f.Label),
		"fill:"+colorText+";font-size:24px;font-family:sans-serif;text-anchor:middle;font-weight:bold")

	if f.HasDot {
		x := int(clampDot(f.DotX, w, tapDotRadius))
		y := int(clampDot(f.DotY, h, tapDotRadius))
		glow := colorAccentTap
		if f.DotHold {
			glow = colorAccentHold
		}
		c.Circle(x, y, tapDotRadius, "fill:"+glow+";fill-opacity:0.35")
		c.Circle(x, y, tapDotRadius-3, "fill:"+glow)
	}

	footer := "fill:" + colorDim + ";font-size:13px;font-family:sans-serif;text-anchor:middle"
	c.Text(w/6, h-10, "P:"+strconv.Itoa(clampCount(f.Presses)), footer)
	c.Text(w/2, h-10, "R:"+strconv.Itoa(clampCount(f.RotateMag)), footer)
	c.Text(5*w/6, h-10, "T:"+strconv.Itoa(clampCount(f.Touches)), footer)

	c.End()
	return buf.String()
}

// buildDialImage is buildDialSVG wrapped as a data URI for transmission.
func buildDialImage(f dialFace) string {
	return svgDataURI(buildDialSVG(f))
}

// clampCount keeps counters displayable. Counters are monotone and start at
// zero, so anything negative can only come from a corrupted snapshot.
func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// isFinite reports whether f is an ordinary number (not NaN or ±Inf).
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
