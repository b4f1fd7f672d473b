package geometry

import (
	"errors"
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func TestFit_ExactDouble(t *testing.T) {
	got := Fit(Page{Width: 800, Height: 600}, Page{Width: 400, Height: 300})
	if got.Scale != 2.0 || got.OffsetX != 0 || got.OffsetY != 0 {
		t.Fatalf("Fit = %+v, want scale 2 at origin", got)
	}
}

func TestFit_NonUniform(t *testing.T) {
	// WHAT: the smaller ratio wins and the overlay is centered on the long axis.
	// WHY: scale-to-fit must never crop the overlay.
	got := Fit(Page{Width: 1000, Height: 500}, Page{Width: 200, Height: 200})
	if got.Scale != 2.5 {
		t.Fatalf("scale = %v, want 2.5", got.Scale)
	}
	if got.OffsetX != 250 || got.OffsetY != 0 {
		t.Fatalf("offsets = (%v, %v), want (250, 0)", got.OffsetX, got.OffsetY)
	}
}

func TestFit_IgnoresRotation(t *testing.T) {
	a := Fit(Page{Width: 595, Height: 842}, Page{Width: 595, Height: 842})
	b := Fit(Page{Width: 595, Height: 842, Rotation: 90}, Page{Width: 595, Height: 842})
	if a != b {
		t.Fatalf("rotation changed fit: %+v vs %+v", a, b)
	}
}

func TestFit_A4OnLetterLandscape(t *testing.T) {
	got := Fit(Page{Width: 792, Height: 612}, Page{Width: 595, Height: 842})
	want := 612.0 / 842.0
	if !near(got.Scale, want) {
		t.Fatalf("scale = %v, want %v", got.Scale, want)
	}
	if !near(got.OffsetY, 0) {
		t.Fatalf("offsetY = %v, want 0", got.OffsetY)
	}
	if !near(got.OffsetX, (792-595*want)/2) {
		t.Fatalf("offsetX = %v", got.OffsetX)
	}
}

func TestNormalizeRotation(t *testing.T) {
	tests := []struct {
		in, want int
		wantErr  bool
	}{
		{0, 0, false},
		{90, 90, false},
		{-90, 270, false},
		{450, 90, false},
		{-180, 180, false},
		{45, 0, true},
	}
	for _, tt := range tests {
		got, err := NormalizeRotation(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeRotation(%d) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("NormalizeRotation(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPlace_InvalidGeometry(t *testing.T) {
	_, err := Place(Page{Width: 0, Height: 100}, Page{Width: 10, Height: 10})
	if !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
	_, err = Place(Page{Width: 100, Height: 100, Rotation: 30}, Page{Width: 10, Height: 10})
	if !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage for rotation 30, got %v", err)
	}
	_, err = Place(Page{Width: 100, Height: 100}, Page{Width: -1, Height: 10})
	if !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage for overlay, got %v", err)
	}
}

func TestCompensate_Rule(t *testing.T) {
	target := Page{Width: 600, Height: 800}
	tests := []struct {
		rot  int
		want Matrix
	}{
		{0, Identity()},
		{90, Matrix{A: 0, B: 1, C: -1, D: 0, E: 600, F: 0}},
		{180, Matrix{A: -1, B: 0, C: 0, D: -1, E: 600, F: 800}},
		{270, Matrix{A: 0, B: -1, C: 1, D: 0, E: 0, F: 800}},
	}
	for _, tt := range tests {
		target.Rotation = tt.rot
		if got := Compensate(target); got != tt.want {
			t.Errorf("Compensate(rot %d) = %+v, want %+v", tt.rot, got, tt.want)
		}
	}
}

func TestUpright_InvertsCompensate(t *testing.T) {
	// WHAT: a watermark page stored with /Rotate lands in its visual frame
	// and Compensate brings it straight back.
	for _, rot := range []int{0, 90, 180, 270} {
		p := Page{Width: 800, Height: 600, Rotation: rot}
		u := Upright(p)
		if got := u.Multiply(Compensate(p)); got != Identity() {
			t.Errorf("rot %d: Upright then Compensate = %+v, want identity", rot, got)
		}
		v := p.Visual()
		llx, lly, urx, ury := u.Bounds(p.Width, p.Height)
		if llx != 0 || lly != 0 || urx != v.Width || ury != v.Height {
			t.Errorf("rot %d: bounds = [%v %v %v %v], want [0 0 %v %v]", rot, llx, lly, urx, ury, v.Width, v.Height)
		}
	}
}

func TestPlace_RotationRoundTrip(t *testing.T) {
	// WHAT: for every page rotation the placed overlay covers the media box
	// exactly and its "up" direction points up once the viewer rotates the page.
	// WHY: watermarks on rotated scans must not come out sideways or off-page.
	const w, h = 600.0, 800.0
	for _, rot := range []int{0, 90, 180, 270} {
		target := Page{Width: w, Height: h, Rotation: rot}
		ov := target.Visual()
		m, err := Place(target, ov)
		if err != nil {
			t.Fatalf("rot %d: %v", rot, err)
		}

		llx, lly, urx, ury := m.Bounds(ov.Width, ov.Height)
		if !near(llx, 0) || !near(lly, 0) || !near(urx, w) || !near(ury, h) {
			t.Errorf("rot %d: bounds = [%v %v %v %v], want [0 0 %v %v]", rot, llx, lly, urx, ury, w, h)
		}

		// The viewer turns the page clockwise by rot; undo that on the
		// overlay's up vector and it must point straight up.
		ux, uy := m.ApplyVector(0, 1)
		vx, vy := Rotate(-rot).ApplyVector(ux, uy)
		if !near(vx, 0) || !(vy > 0) {
			t.Errorf("rot %d: overlay up vector shows as (%v, %v), want (0, +)", rot, vx, vy)
		}
	}
}

func TestPlace_CenteredOnRotatedPage(t *testing.T) {
	// Square overlay on a quarter-turned portrait page: centered along the
	// visual width, which is the declared height.
	target := Page{Width: 600, Height: 800, Rotation: 90}
	m, err := Place(target, Page{Width: 100, Height: 100})
	if err != nil {
		t.Fatal(err)
	}
	llx, lly, urx, ury := m.Bounds(100, 100)
	// Visual frame 800x600: scale 6, overlay 600x600, offsetX 100 on the
	// visual x axis which maps onto the declared y axis.
	if !near(llx, 0) || !near(urx, 600) || !near(lly, 100) || !near(ury, 700) {
		t.Fatalf("bounds = [%v %v %v %v]", llx, lly, urx, ury)
	}
}

func TestVisual(t *testing.T) {
	p := Page{Width: 595, Height: 842, Rotation: 270}
	if v := p.Visual(); v.Width != 842 || v.Height != 595 || v.Rotation != 0 {
		t.Fatalf("Visual = %+v", v)
	}
	p.Rotation = 180
	if v := p.Visual(); v.Width != 595 || v.Height != 842 {
		t.Fatalf("Visual = %+v", v)
	}
}
