package icon

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// RasterRenderer renders PNG, JPEG and GIF stitch art. Dark opaque pixels are
// painted with the foreground color and fully transparent pixels with the
// background color. Vector sources are only rendered from their embedded
// fallback bitmap; a vector rasterizer can be plugged in as another Renderer.
// Bitmaps that are already renderings are returned unchanged when the
// requested rotation matches the one they were made at.
type RasterRenderer struct {
	fs billy.Filesystem
}

// NewRasterRenderer creates a RasterRenderer reading source art from fs.
func NewRasterRenderer(fs billy.Filesystem) *RasterRenderer {
	return &RasterRenderer{fs: fs}
}

func (r *RasterRenderer) Render(src Source, rotation float64, cc ColorContext) ([]byte, error) {
	data, rendered, err := r.sourceBytes(src)
	if err != nil {
		return nil, err
	}
	if rendered && normalize(rotation-src.Baked) == 0 {
		return bytes.Clone(data), nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode icon %q: %w", src.Path, err)
	}

	var out *image.NRGBA
	if rendered {
		out = rotate(img, rotation-src.Baked)
	} else {
		out = rotate(img, rotation)
		recolor(out, cc)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode icon %q: %w", src.Path, err)
	}
	return buf.Bytes(), nil
}

// sourceBytes reads the art to draw and reports whether it is already a
// rendering.
func (r *RasterRenderer) sourceBytes(src Source) ([]byte, bool, error) {
	if src.Path != "" && !src.IsVector() && r.fs != nil {
		data, err := util.ReadFile(r.fs, src.Path)
		if err == nil {
			return data, src.PathRendered, nil
		}
		if len(src.Data) == 0 {
			return nil, false, fmt.Errorf("read icon source: %w", err)
		}
	}
	if len(src.Data) > 0 {
		return src.Data, true, nil
	}
	if src.IsVector() {
		return nil, false, fmt.Errorf("%w: %s", ErrUnsupportedSource, src.Path)
	}
	return nil, false, ErrNoSource
}

// normalize maps degrees into [0, 360).
func normalize(degrees float64) float64 {
	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// rotate turns src clockwise by degrees. Quarter turns are exact; other angles
// use nearest-neighbour sampling into the rotated bounding box.
func rotate(src image.Image, degrees float64) *image.NRGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	d := normalize(degrees)

	at := func(x, y int) color.NRGBA {
		return color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
	}

	switch d {
	case 0:
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	case 90:
		dst := image.NewNRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.SetNRGBA(h-1-y, x, at(x, y))
			}
		}
		return dst
	case 180:
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.SetNRGBA(w-1-x, h-1-y, at(x, y))
			}
		}
		return dst
	case 270:
		dst := image.NewNRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.SetNRGBA(y, w-1-x, at(x, y))
			}
		}
		return dst
	}

	rad := d * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	nw := int(math.Ceil(math.Abs(float64(w)*cos) + math.Abs(float64(h)*sin)))
	nh := int(math.Ceil(math.Abs(float64(w)*sin) + math.Abs(float64(h)*cos)))
	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))

	cx, cy := float64(w)/2, float64(h)/2
	ncx, ncy := float64(nw)/2, float64(nh)/2
	for y := 0; y < nh; y++ {
		for x := 0; x < nw; x++ {
			ux := float64(x) + 0.5 - ncx
			uy := float64(y) + 0.5 - ncy
			sx := int(math.Floor(ux*cos + uy*sin + cx))
			sy := int(math.Floor(-ux*sin + uy*cos + cy))
			if sx < 0 || sy < 0 || sx >= w || sy >= h {
				continue
			}
			dst.SetNRGBA(x, y, at(sx, sy))
		}
	}
	return dst
}

func recolor(img *image.NRGBA, cc ColorContext) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			switch {
			case c.A == 0:
				if cc.Background.A > 0 {
					img.SetNRGBA(x, y, cc.Background)
				}
			case c.R < 0x80 && c.G < 0x80 && c.B < 0x80:
				fg := cc.Foreground
				fg.A = uint8(uint16(c.A) * uint16(fg.A) / 0xff)
				img.SetNRGBA(x, y, fg)
			}
		}
	}
}
