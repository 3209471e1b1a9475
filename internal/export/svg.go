// Package export renders stored flights into standalone files.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

const (
	svgBackground = "#0a0a0a"
	flownColor    = "#00d787"
	refColor      = "#5f87ff"
)

// PathSVG writes a top-down view of a flown path against its reference. Both
// series share one frame; the reference is drawn dashed underneath. The
// reference may be empty, the flown path needs at least two points.
func PathSVG(w io.Writer, flown, reference []uav.Vec2, width, height int) error {
	if len(flown) < 2 {
		return fmt.Errorf("export: need at least two flown points, have %d", len(flown))
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("export: invalid canvas %dx%d", width, height)
	}

	minX, maxX := flown[0].X, flown[0].X
	minY, maxY := flown[0].Y, flown[0].Y
	expand := func(pts []uav.Vec2) {
		for _, p := range pts {
			if p.X < minX {
				minX = p.X
			}
			if p.X > maxX {
				maxX = p.X
			}
			if p.Y < minY {
				minY = p.Y
			}
			if p.Y > maxY {
				maxY = p.Y
			}
		}
	}
	expand(flown)
	expand(reference)

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	// World to canvas, with y flipped so +Y points up on the page.
	toCanvas := func(p uav.Vec2) (float64, float64) {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)
		return x, y
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, svgBackground)

	writePath := func(pts []uav.Vec2, color string, dashed bool) {
		if len(pts) < 2 {
			return
		}
		dash := ""
		if dashed {
			dash = ` stroke-dasharray="6 4"`
		}
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5"%s d="M`, color, dash)
		for i, p := range pts {
			x, y := toCanvas(p)
			if i == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}

	writePath(reference, refColor, true)
	writePath(flown, flownColor, false)

	// Start and end markers for the flown path.
	sx, sy := toCanvas(flown[0])
	ex, ey := toCanvas(flown[len(flown)-1])
	fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="3" fill="none" stroke="%s"/>
<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>
</svg>
`, sx, sy, flownColor, ex, ey, flownColor)

	_, err := io.WriteString(w, sb.String())
	return err
}
