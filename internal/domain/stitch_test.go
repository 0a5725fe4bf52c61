package domain_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/msomdec/stitchworks/internal/domain"
	"github.com/msomdec/stitchworks/internal/icon"
)

type countingRenderer struct {
	calls int
}

func (r *countingRenderer) Render(src icon.Source, rotation float64, cc icon.ColorContext) ([]byte, error) {
	r.calls++
	return append([]byte(src.Path), byte(rotation)), nil
}

func TestStitch_BitmapCachesUntilKeyChanges(t *testing.T) {
	r := &countingRenderer{}
	cc := icon.DefaultColorContext()
	s := domain.NewStitch("dc")
	s.File = "dc.png"

	if _, err := s.Bitmap(r, cc); err != nil {
		t.Fatalf("Bitmap: %v", err)
	}
	if _, err := s.Bitmap(r, cc); err != nil {
		t.Fatalf("Bitmap: %v", err)
	}
	if r.calls != 1 {
		t.Fatalf("expected one render, got %d", r.calls)
	}

	s.Rotation = 90
	if _, err := s.Bitmap(r, cc); err != nil {
		t.Fatalf("Bitmap: %v", err)
	}
	if r.calls != 2 {
		t.Fatalf("expected rotation change to re-render, got %d renders", r.calls)
	}

	s.InvalidateIcon()
	if _, err := s.Bitmap(r, cc); err != nil {
		t.Fatalf("Bitmap: %v", err)
	}
	if r.calls != 3 {
		t.Fatalf("expected invalidation to re-render, got %d renders", r.calls)
	}
}

func TestStitch_BitmapWithoutRenderer(t *testing.T) {
	s := domain.NewStitch("sc")
	if _, err := s.Bitmap(nil, icon.DefaultColorContext()); !errors.Is(err, icon.ErrNoRenderer) {
		t.Fatalf("expected ErrNoRenderer, got %v", err)
	}
}

func TestStitch_EmbeddedIconSeedsCache(t *testing.T) {
	r := &countingRenderer{}
	cc := icon.DefaultColorContext()
	s := domain.NewStitch("bob")
	s.SetEmbeddedIcon([]byte("png"), cc)

	b, err := s.Bitmap(r, cc)
	if err != nil {
		t.Fatalf("Bitmap: %v", err)
	}
	if string(b) != "png" || r.calls != 0 {
		t.Fatalf("expected preloaded bitmap without rendering, got %q after %d renders", b, r.calls)
	}
}

func TestStitch_CloneCopiesAttributes(t *testing.T) {
	s := domain.NewStitch("FPdc")
	s.File = "fpdc.svg"
	s.Description = "Front Post Double Crochet"
	s.Category = "post"
	s.WrongSide = "BPdc"
	s.Rotation = 180
	s.SetEmbeddedIcon([]byte("icon"), icon.DefaultColorContext())

	c := s.Clone()
	if c.Name != s.Name || c.File != s.File || c.Description != s.Description ||
		c.Category != s.Category || c.WrongSide != s.WrongSide || c.Rotation != s.Rotation {
		t.Fatalf("clone differs: %+v", c)
	}
	if !c.IsVector() {
		t.Fatal("expected svg source to be vector")
	}

	c.EmbeddedIcon()[0] = 'X'
	if !bytes.Equal(s.EmbeddedIcon(), []byte("icon")) {
		t.Fatal("expected clone to own its embedded icon")
	}
}
