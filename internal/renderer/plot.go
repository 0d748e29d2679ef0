package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/ivlev/timeline/internal/keyframe"
	"github.com/ivlev/timeline/internal/system"
)

// Plot layout in pixels.
const (
	marginLeft   = 56
	marginRight  = 16
	marginTop    = 24
	marginBottom = 28
	markerSize   = 3
	strokeWidth  = 2
)

// MaxPlotSize bounds both plot dimensions.
const MaxPlotSize = 4096

var ErrPlotSize = errors.New("invalid plot size")

var (
	BackgroundColor = color.RGBA{0x16, 0x18, 0x1d, 0xff}
	FillColor       = color.RGBA{0x1f, 0x3a, 0x5f, 0xff}
	LineColor       = colornames.Deepskyblue
	MarkerColor     = colornames.Orange
	AxisColor       = colornames.Gray
	TextColor       = colornames.White
)

// PlotOptions configures Plot.
type PlotOptions struct {
	Width     int
	Height    int
	Title     string
	Component int // tuple element to plot
	Samples   int // curve resolution, default one per horizontal pixel
	Interp    keyframe.Interpolator
}

// Plot draws a numeric track as a filled curve with keyframe markers. The
// image comes from the shared pool; callers may hand it back with
// system.PutImage once written.
func Plot(seq *keyframe.Sequence, opts PlotOptions) (*image.RGBA, error) {
	switch {
	case opts.Width <= marginLeft+marginRight || opts.Height <= marginTop+marginBottom:
		return nil, fmt.Errorf("%w: %dx%d too small", ErrPlotSize, opts.Width, opts.Height)
	case opts.Width > MaxPlotSize || opts.Height > MaxPlotSize:
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrPlotSize, opts.Width, opts.Height, MaxPlotSize)
	}
	start, end, err := seq.Span()
	if err != nil {
		return nil, err
	}
	if start == end {
		start, end = start-0.5, end+0.5
	}

	plotW := opts.Width - marginLeft - marginRight
	plotH := opts.Height - marginTop - marginBottom
	samples := opts.Samples
	if samples < 2 {
		samples = plotW
	}
	if samples > 4*MaxPlotSize {
		samples = 4 * MaxPlotSize
	}

	times := make([]float64, samples)
	values := make([]float64, samples)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range times {
		t := start + (end-start)*float64(i)/float64(samples-1)
		v, err := seq.ValueAt(t, opts.Interp)
		if err != nil {
			return nil, err
		}
		f, err := component(v, opts.Component)
		if err != nil {
			return nil, err
		}
		times[i], values[i] = t, f
		lo, hi = math.Min(lo, f), math.Max(hi, f)
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}

	px := func(t float64) float32 {
		return float32(marginLeft) + float32((t-start)/(end-start))*float32(plotW)
	}
	py := func(v float64) float32 {
		return float32(marginTop) + float32(1-(v-lo)/(hi-lo))*float32(plotH)
	}
	baseline := float32(marginTop + plotH)

	img := system.GetImage(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(BackgroundColor), image.Point{}, draw.Src)

	// Area under the curve.
	z := vector.NewRasterizer(opts.Width, opts.Height)
	z.MoveTo(px(times[0]), baseline)
	for i := range times {
		z.LineTo(px(times[i]), py(values[i]))
	}
	z.LineTo(px(times[len(times)-1]), baseline)
	z.ClosePath()
	z.Draw(img, img.Bounds(), image.NewUniform(FillColor), image.Point{})

	// Axes.
	z.Reset(opts.Width, opts.Height)
	rect(z, marginLeft-1, marginTop, marginLeft, baseline)
	rect(z, marginLeft-1, baseline, float32(marginLeft+plotW), baseline+1)
	z.Draw(img, img.Bounds(), image.NewUniform(AxisColor), image.Point{})

	// Curve.
	z.Reset(opts.Width, opts.Height)
	for i := 1; i < len(times); i++ {
		segment(z, px(times[i-1]), py(values[i-1]), px(times[i]), py(values[i]), strokeWidth)
	}
	z.Draw(img, img.Bounds(), image.NewUniform(LineColor), image.Point{})

	// Keyframe markers.
	z.Reset(opts.Width, opts.Height)
	for _, kf := range seq.Keyframes() {
		f, err := component(kf.Value, opts.Component)
		if err != nil {
			continue
		}
		x, y := px(kf.Time), py(f)
		rect(z, x-markerSize, y-markerSize, x+markerSize, y+markerSize)
	}
	z.Draw(img, img.Bounds(), image.NewUniform(MarkerColor), image.Point{})

	label(img, 4, marginTop+10, fmt.Sprintf("%.3g", hi))
	label(img, 4, marginTop+plotH, fmt.Sprintf("%.3g", lo))
	label(img, marginLeft, opts.Height-8, fmt.Sprintf("%.3gs", start))
	endText := fmt.Sprintf("%.3gs", end)
	label(img, opts.Width-marginRight-7*len(endText), opts.Height-8, endText)
	if opts.Title != "" {
		label(img, marginLeft, marginTop-8, opts.Title)
	}

	return img, nil
}

func rect(z *vector.Rasterizer, x0, y0, x1, y1 float32) {
	z.MoveTo(x0, y0)
	z.LineTo(x1, y0)
	z.LineTo(x1, y1)
	z.LineTo(x0, y1)
	z.ClosePath()
}

// segment adds a line of the given width as a quad.
func segment(z *vector.Rasterizer, x0, y0, x1, y1, width float32) {
	dx, dy := x1-x0, y1-y0
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	z.MoveTo(x0+nx, y0+ny)
	z.LineTo(x1+nx, y1+ny)
	z.LineTo(x1-nx, y1-ny)
	z.LineTo(x0-nx, y0-ny)
	z.ClosePath()
}

func label(img draw.Image, x, y int, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(TextColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodePNG(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
