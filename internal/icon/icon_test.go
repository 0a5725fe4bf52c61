package icon_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/msomdec/stitchworks/internal/icon"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{A: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func decode(t *testing.T, b []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#ff0000", color.NRGBA{R: 0xff, A: 0xff}, false},
		{"00ff0080", color.NRGBA{G: 0xff, A: 0x80}, false},
		{"#fff", color.NRGBA{}, true},
		{"#zzzzzz", color.NRGBA{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := icon.ParseHexColor(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHexColor: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestRasterRenderer_RotateQuarterTurn(t *testing.T) {
	fs := memfs.New()
	if err := util.WriteFile(fs, "/art/ch.png", testPNG(t), 0o644); err != nil {
		t.Fatalf("write art: %v", err)
	}
	r := icon.NewRasterRenderer(fs)

	out, err := r.Render(icon.Source{Path: "/art/ch.png"}, 90, icon.DefaultColorContext())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	img := decode(t, out)
	if img.Bounds().Dx() != 1 || img.Bounds().Dy() != 2 {
		t.Fatalf("expected 1x2 image, got %v", img.Bounds())
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a == 0 {
		t.Fatal("expected opaque pixel at (0,0) after rotation")
	}
	if _, _, _, a := img.At(0, 1).RGBA(); a != 0 {
		t.Fatal("expected transparent pixel at (0,1) after rotation")
	}
}

func TestRasterRenderer_Recolor(t *testing.T) {
	r := icon.NewRasterRenderer(memfs.New())
	red := color.NRGBA{R: 0xff, A: 0xff}
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	out, err := r.Render(icon.Source{Data: testPNG(t)}, 0, icon.ColorContext{Foreground: red, Background: white})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	img := decode(t, out)
	if got := color.NRGBAModel.Convert(img.At(0, 0)); got != red {
		t.Fatalf("expected foreground %v, got %v", red, got)
	}
	if got := color.NRGBAModel.Convert(img.At(1, 0)); got != white {
		t.Fatalf("expected background %v, got %v", white, got)
	}
}

func TestRasterRenderer_FallsBackToEmbeddedData(t *testing.T) {
	r := icon.NewRasterRenderer(memfs.New())

	if _, err := r.Render(icon.Source{Path: "/missing.png", Data: testPNG(t)}, 0, icon.DefaultColorContext()); err != nil {
		t.Fatalf("Render with fallback: %v", err)
	}

	_, err := r.Render(icon.Source{Path: "/art/dc.svg"}, 0, icon.DefaultColorContext())
	if !errors.Is(err, icon.ErrUnsupportedSource) {
		t.Fatalf("expected ErrUnsupportedSource, got %v", err)
	}

	_, err = r.Render(icon.Source{}, 0, icon.DefaultColorContext())
	if !errors.Is(err, icon.ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
}

func TestRasterRenderer_RenderingsAreOnlyTurned(t *testing.T) {
	fs := memfs.New()
	r := icon.NewRasterRenderer(fs)
	rendered := testPNG(t)
	red := icon.ColorContext{Foreground: color.NRGBA{R: 0xff, A: 0xff}}

	out, err := r.Render(icon.Source{Path: "/gone.png", Data: rendered, Baked: 90}, 90, red)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Equal(out, rendered) {
		t.Fatal("expected a rendering at the requested rotation to be returned as is")
	}

	out, err = r.Render(icon.Source{Data: rendered, Baked: 90}, 180, red)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	img := decode(t, out)
	if b := img.Bounds(); b.Dx() != 1 || b.Dy() != 2 {
		t.Fatalf("expected a quarter turn to 1x2, got %dx%d", b.Dx(), b.Dy())
	}
	if got := color.NRGBAModel.Convert(img.At(0, 0)); got != (color.NRGBA{A: 0xff}) {
		t.Fatalf("expected the rendering not to be recolored, got %v", got)
	}

	if err := util.WriteFile(fs, "/icons/dc.png", rendered, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	out, err = r.Render(icon.Source{Path: "/icons/dc.png", PathRendered: true, Baked: 45}, 45, red)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Equal(out, rendered) {
		t.Fatal("expected an extracted rendering to be returned as is")
	}
}

func TestEntry_KeyChangeRerenders(t *testing.T) {
	var e icon.Entry
	calls := 0
	render := func() ([]byte, error) {
		calls++
		return []byte{byte(calls)}, nil
	}

	k1 := icon.Key{Source: "a.png"}
	if _, err := e.Get(k1, render); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := e.Get(k1, render); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 render for identical key, got %d", calls)
	}

	k2 := icon.Key{Source: "a.png", Rotation: 90}
	got, err := e.Get(k2, render)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if calls != 2 || got[0] != 2 {
		t.Fatalf("expected re-render after rotation change, calls=%d", calls)
	}

	e.Invalidate()
	if _, ok := e.Cached(); ok {
		t.Fatal("expected empty entry after Invalidate")
	}
}

func TestEntry_FailedRenderLeavesEntryEmpty(t *testing.T) {
	var e icon.Entry
	e.Preload(icon.Key{Source: "a.png"}, []byte{1})

	_, err := e.Get(icon.Key{Source: "b.png"}, func() ([]byte, error) { return nil, icon.ErrNoSource })
	if !errors.Is(err, icon.ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
	if _, ok := e.Cached(); ok {
		t.Fatal("expected empty entry after failed render")
	}
}
