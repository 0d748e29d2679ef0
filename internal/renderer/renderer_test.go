package renderer

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/timeline/internal/keyframe"
	"github.com/ivlev/timeline/internal/system"
)

func scalarSeq(frames ...keyframe.Keyframe) *keyframe.Sequence {
	return keyframe.NewSequence(frames)
}

func TestExpressionLinear(t *testing.T) {
	seq := scalarSeq(
		keyframe.Keyframe{Time: 0, Value: keyframe.Scalar(1)},
		keyframe.Keyframe{Time: 2, Value: keyframe.Scalar(1.5)},
	)

	expr, err := Expression(seq, ExprOptions{Variable: "on", FPS: 30})
	if err != nil {
		t.Fatalf("Expression failed: %v", err)
	}
	want := "if(lt(on,0.000000),1.000000,if(lte(on,60.000000),1.000000+(on-0.000000)*0.008333,1.500000))"
	if expr != want {
		t.Errorf("Expected %s, got %s", want, expr)
	}
}

func TestExpressionHold(t *testing.T) {
	seq := scalarSeq(
		keyframe.Keyframe{Time: 1, Value: keyframe.Scalar(5), Ease: "hold"},
		keyframe.Keyframe{Time: 3, Value: keyframe.Scalar(7)},
	)

	expr, err := Expression(seq, ExprOptions{})
	if err != nil {
		t.Fatalf("Expression failed: %v", err)
	}
	want := "if(lt(t,1.000000),5.000000,if(lt(t,3.000000),5.000000,7.000000))"
	if expr != want {
		t.Errorf("Expected %s, got %s", want, expr)
	}
}

func TestExpressionEased(t *testing.T) {
	seq := scalarSeq(
		keyframe.Keyframe{Time: 0, Value: keyframe.Scalar(0), Ease: "quadIn"},
		keyframe.Keyframe{Time: 1, Value: keyframe.Scalar(100)},
	)

	expr, err := Expression(seq, ExprOptions{Segments: 4})
	if err != nil {
		t.Fatalf("Expression failed: %v", err)
	}
	// Leading clamp plus one piece per segment.
	if n := strings.Count(expr, "if("); n != 5 {
		t.Errorf("Expected 5 pieces, got %d: %s", n, expr)
	}
	// Quarter point of quadIn is 6.25.
	if !strings.Contains(expr, "if(lte(t,0.250000),0.000000+(t-0.000000)*25.000000") {
		t.Errorf("Missing first eased piece: %s", expr)
	}
	if !strings.HasSuffix(expr, ",100.000000)))))") {
		t.Errorf("Unexpected tail: %s", expr)
	}
}

func TestExpressionTupleComponent(t *testing.T) {
	seq := scalarSeq(
		keyframe.Keyframe{Time: 0, Value: keyframe.Tuple(0, 10)},
		keyframe.Keyframe{Time: 1, Value: keyframe.Tuple(5, 20)},
	)

	expr, err := Expression(seq, ExprOptions{Component: 1})
	if err != nil {
		t.Fatalf("Expression failed: %v", err)
	}
	if !strings.HasPrefix(expr, "if(lt(t,0.000000),10.000000,") {
		t.Errorf("Expected second component, got %s", expr)
	}

	if _, err := Expression(seq, ExprOptions{Component: 2}); !errors.Is(err, keyframe.ErrIndexOutOfRange) {
		t.Errorf("Expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestExpressionErrors(t *testing.T) {
	if _, err := Expression(scalarSeq(), ExprOptions{}); !errors.Is(err, keyframe.ErrEmptySequence) {
		t.Errorf("Expected ErrEmptySequence, got %v", err)
	}

	opaque := scalarSeq(keyframe.Keyframe{Time: 0, Value: keyframe.Opaque("#fff")})
	if _, err := Expression(opaque, ExprOptions{}); !errors.Is(err, keyframe.ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}

	single := scalarSeq(keyframe.Keyframe{Time: 4, Value: keyframe.Scalar(2)})
	if expr, _ := Expression(single, ExprOptions{}); expr != "2.000000" {
		t.Errorf("Expected constant, got %s", expr)
	}
}

func TestZoomPanFilter(t *testing.T) {
	filter := ZoomPanFilter("1", "0", "0", 1920, 1080, 30)

	for _, want := range []string{"zoompan", "z='1'", "x='0'", "y='0'", "s=1920x1080", "fps=30"} {
		if !strings.Contains(filter, want) {
			t.Errorf("Filter should contain %q: %s", want, filter)
		}
	}
	t.Logf("Generated filter: %s", filter)
}

func TestPlot(t *testing.T) {
	seq := scalarSeq(
		keyframe.Keyframe{Time: 0, Value: keyframe.Scalar(10)},
		keyframe.Keyframe{Time: 1, Value: keyframe.Scalar(0)},
	)

	img, err := Plot(seq, PlotOptions{Width: 320, Height: 200, Title: "opacity"})
	if err != nil {
		t.Fatalf("Plot failed: %v", err)
	}
	defer system.PutImage(img)

	if img.Bounds() != image.Rect(0, 0, 320, 200) {
		t.Fatalf("Unexpected bounds %v", img.Bounds())
	}

	left, right := marginLeft, 320-marginRight
	top, bottom := marginTop, 200-marginBottom

	// The curve falls from top-left to bottom-right, so the lower-left corner
	// of the plot area is filled and the upper-right is not.
	if got := img.RGBAAt(left+5, bottom-5); got != FillColor {
		t.Errorf("Expected fill at lower left, got %v", got)
	}
	if got := img.RGBAAt(right-5, top+5); got != BackgroundColor {
		t.Errorf("Expected background at upper right, got %v", got)
	}
}

func TestPlotErrors(t *testing.T) {
	if _, err := Plot(scalarSeq(), PlotOptions{Width: 200, Height: 100}); !errors.Is(err, keyframe.ErrEmptySequence) {
		t.Errorf("Expected ErrEmptySequence, got %v", err)
	}

	seq := scalarSeq(keyframe.Keyframe{Time: 0, Value: keyframe.Scalar(1)})
	for _, size := range [][2]int{{10, 10}, {MaxPlotSize + 1, 100}, {200, 200000}} {
		if _, err := Plot(seq, PlotOptions{Width: size[0], Height: size[1]}); !errors.Is(err, ErrPlotSize) {
			t.Errorf("Plot %dx%d: expected ErrPlotSize, got %v", size[0], size[1], err)
		}
	}
}

func TestWritePNG(t *testing.T) {
	seq := scalarSeq(
		keyframe.Keyframe{Time: 0, Value: keyframe.Tuple(0, 1)},
		keyframe.Keyframe{Time: 2, Value: keyframe.Tuple(3, 4)},
	)
	img, err := Plot(seq, PlotOptions{Width: 160, Height: 120, Component: 1})
	if err != nil {
		t.Fatalf("Plot failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "plot.png")
	if err := WritePNG(path, img); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Errorf("Expected non-empty PNG, got %v, %v", info, err)
	}
}
