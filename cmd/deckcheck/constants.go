package main

import "time"

// Interaction timing. These are fixed: the plugin is a diagnostic surface and
// deliberately has no user-facing tuning knobs for visuals.
const (
	// renderInterval bounds how often a single control is redrawn. Sixteen
	// milliseconds tracks the hardware's own refresh cadence.
	renderInterval = 16 * time.Millisecond

	// holdTickPeriod is how often a held key re-checks its elapsed time and
	// refreshes the live hold display.
	holdTickPeriod = 100 * time.Millisecond

	// holdThreshold separates a tap from a hold.
	holdThreshold = 500 * time.Millisecond

	// revertDelay is how long the post-release flash stays up before the key
	// falls back to idle.
	revertDelay = 2000 * time.Millisecond
)

// Canvas geometry (pixels).
const (
	keyCanvasSize = 144

	dialCanvasW = 200
	dialCanvasH = 100

	// tapDotRadius is the radius of the tap marker on the touch strip.
	tapDotRadius = 7

	// patternPitch is the spacing of the background dot grid on dial
	// canvases. Adjacent segments share the pattern phase via the per-column
	// offset so the grid reads as one continuous strip.
	patternPitch = 20
)

// Palette. Accent colors are keyed to the most recent input kind so a glance
// tells you what the hardware last reported.
const (
	colorCanvas  = "#1a1a24"
	colorCanvasH = "#2d2d44" // pressed/held key background
	colorDim     = "#5a5a72"
	colorText    = "#e8e8f0"
	colorRing    = "#f2b807"

	colorAccentIdle    = "#44445a"
	colorAccentPress   = "#38c172"
	colorAccentRelease = "#e8913a"
	colorAccentRotate  = "#3ba2e0"
	colorAccentTap     = "#f2d024"
	colorAccentHold    = "#e0483b"
)

// Deck host transport defaults.
const (
	defaultHandshakeTimeoutMS = 2000
	defaultEventBuffer        = 64
)

// feedbackLayout is the touch-strip layout installed once per dial at
// appearance. It exposes a single full-segment pixmap item named "canvas".
const feedbackLayout = "layouts/diag-canvas.json"
