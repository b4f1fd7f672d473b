// CLAUDE:SUMMARY Pure placement math for overlays: scale-to-fit, centering, rotation compensation, PDF cm matrices.
// Package geometry computes where a one-page overlay lands on a target page.
//
// All functions are pure. Coordinates are PDF user space units (points) with
// the origin at the lower-left corner of the page's media box.
//
// The placement of an overlay on a page is built in two steps:
//
//	Fit        uniform scale-to-fit plus centering offsets
//	Compensate rotation that counters the page's own /Rotate entry
//
// Place combines both into a single cm matrix.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidPage is returned for non-positive sizes or rotations that are not
// a multiple of 90 degrees.
var ErrInvalidPage = errors.New("geometry: invalid page geometry")

// Page is the geometry of one page as declared by the document.
type Page struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation int     `json:"rotation"` // 0, 90, 180 or 270 (clockwise, as in /Rotate)
}

// NormalizeRotation maps any multiple of 90 onto 0, 90, 180 or 270.
func NormalizeRotation(deg int) (int, error) {
	if deg%90 != 0 {
		return 0, fmt.Errorf("%w: rotation %d is not a multiple of 90", ErrInvalidPage, deg)
	}
	r := deg % 360
	if r < 0 {
		r += 360
	}
	return r, nil
}

// Validate checks sizes and normalizes the rotation in place.
func (p *Page) Validate() error {
	if !(p.Width > 0) || !(p.Height > 0) || math.IsInf(p.Width, 0) || math.IsInf(p.Height, 0) {
		return fmt.Errorf("%w: size %gx%g", ErrInvalidPage, p.Width, p.Height)
	}
	r, err := NormalizeRotation(p.Rotation)
	if err != nil {
		return err
	}
	p.Rotation = r
	return nil
}

// Visual returns the frame a viewer displays: width and height swap for
// quarter turns.
func (p Page) Visual() Page {
	if p.Rotation == 90 || p.Rotation == 270 {
		return Page{Width: p.Height, Height: p.Width}
	}
	return Page{Width: p.Width, Height: p.Height}
}

func (p Page) String() string {
	return fmt.Sprintf("%gx%g@%d", p.Width, p.Height, p.Rotation)
}

// FitResult is a uniform scale plus the offsets that center the scaled
// overlay inside the target.
type FitResult struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// Fit scales overlay uniformly so it fits inside target without cropping and
// centers it. Rotation is ignored: the fit works on the sizes it is given.
func Fit(target, overlay Page) FitResult {
	scale := math.Min(target.Width/overlay.Width, target.Height/overlay.Height)
	return FitResult{
		Scale:   scale,
		OffsetX: (target.Width - overlay.Width*scale) / 2,
		OffsetY: (target.Height - overlay.Height*scale) / 2,
	}
}

// Matrix returns the scale-then-translate matrix of the fit.
func (f FitResult) Matrix() Matrix {
	return Scale(f.Scale).Multiply(Translate(f.OffsetX, f.OffsetY))
}

// Compensate returns the transform applied after the fit so an overlay laid
// out in the page's visual frame shows upright once the viewer applies the
// page rotation:
//
//	 90: rotate +90, translate (w, 0)
//	180: rotate +180, translate (w, h)
//	270: rotate +270, translate (0, h)
//
// w and h are the declared (unrotated) page sizes.
func Compensate(target Page) Matrix {
	switch target.Rotation {
	case 90:
		return Rotate(90).Multiply(Translate(target.Width, 0))
	case 180:
		return Rotate(180).Multiply(Translate(target.Width, target.Height))
	case 270:
		return Rotate(270).Multiply(Translate(0, target.Height))
	default:
		return Identity()
	}
}

// Upright maps the media space of p onto its visual frame, anchored at the
// origin. It is the inverse of Compensate: content drawn through it appears
// the way a viewer shows p.
//
//	 90: rotate +270, translate (0, w)
//	180: rotate +180, translate (w, h)
//	270: rotate +90, translate (h, 0)
func Upright(p Page) Matrix {
	switch p.Rotation {
	case 90:
		return Rotate(270).Multiply(Translate(0, p.Width))
	case 180:
		return Rotate(180).Multiply(Translate(p.Width, p.Height))
	case 270:
		return Rotate(90).Multiply(Translate(p.Height, 0))
	default:
		return Identity()
	}
}

// Place returns the full cm matrix mapping overlay space onto target space.
// The fit is computed against the visual frame of target so the compensated
// overlay stays inside the media box for quarter-turned pages. This is the
// only place where the fit frame differs from Fit's declared-size contract.
// overlay is expected upright already (see Upright); its rotation is ignored.
func Place(target, overlay Page) (Matrix, error) {
	if err := target.Validate(); err != nil {
		return Matrix{}, fmt.Errorf("target: %w", err)
	}
	if err := overlay.Validate(); err != nil {
		return Matrix{}, fmt.Errorf("overlay: %w", err)
	}
	fit := Fit(target.Visual(), Page{Width: overlay.Width, Height: overlay.Height})
	return fit.Matrix().Multiply(Compensate(target)), nil
}
