// Package transform maps raw device touch coordinates into the logical
// surface coordinate space the engine renders in. It stands in for the
// graphics subsystem the adapter collaborates with.
package transform

import "fmt"

// Identity passes raw coordinates through unchanged. Used when the device
// and surface spaces already agree, and in tests.
type Identity struct{}

func (Identity) Transform(rawX, rawY float64) (float64, float64) {
	return rawX, rawY
}

// Viewport maps device coordinates onto a logical surface that is scaled
// aspect-preserving onto the screen (letterboxed when the ratios differ)
// and possibly rotated relative to the device's natural orientation.
type Viewport struct {
	deviceW  float64
	deviceH  float64
	surfaceW float64
	surfaceH float64
	rotation int

	// content placement of the surface on the (unrotated) device
	scale   float64
	offsetX float64
	offsetY float64
}

// NewViewport builds a viewport for a device of deviceW x deviceH raw units
// showing a logical surface of surfaceW x surfaceH, rotated by rotation
// degrees clockwise (0, 90, 180 or 270).
func NewViewport(deviceW, deviceH, surfaceW, surfaceH float64, rotation int) (*Viewport, error) {
	if deviceW <= 0 || deviceH <= 0 {
		return nil, fmt.Errorf("invalid device size %.0fx%.0f", deviceW, deviceH)
	}
	if surfaceW <= 0 || surfaceH <= 0 {
		return nil, fmt.Errorf("invalid surface size %.0fx%.0f", surfaceW, surfaceH)
	}
	switch rotation {
	case 0, 90, 180, 270:
	default:
		return nil, fmt.Errorf("invalid rotation %d, must be 0/90/180/270", rotation)
	}

	v := &Viewport{
		deviceW:  deviceW,
		deviceH:  deviceH,
		surfaceW: surfaceW,
		surfaceH: surfaceH,
		rotation: rotation,
	}

	// Effective device extent in the surface's orientation.
	w, h := deviceW, deviceH
	if rotation == 90 || rotation == 270 {
		w, h = h, w
	}

	v.scale = w / surfaceW
	if s := h / surfaceH; s < v.scale {
		v.scale = s
	}
	v.offsetX = (w - surfaceW*v.scale) / 2
	v.offsetY = (h - surfaceH*v.scale) / 2
	return v, nil
}

// Transform maps one raw device coordinate pair into logical surface
// coordinates, clamped to the surface bounds so letterbox touches land on
// the nearest edge.
func (v *Viewport) Transform(rawX, rawY float64) (float64, float64) {
	x, y := rawX, rawY
	switch v.rotation {
	case 90:
		x, y = rawY, v.deviceW-rawX
	case 180:
		x, y = v.deviceW-rawX, v.deviceH-rawY
	case 270:
		x, y = v.deviceH-rawY, rawX
	}

	sx := (x - v.offsetX) / v.scale
	sy := (y - v.offsetY) / v.scale
	return clamp(sx, v.surfaceW), clamp(sy, v.surfaceH)
}

func clamp(val, max float64) float64 {
	if val < 0 {
		return 0
	}
	if val > max {
		return max
	}
	return val
}
