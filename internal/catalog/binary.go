package catalog

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/go-git/go-billy/v5/util"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"github.com/msomdec/stitchworks/internal/domain"
)

// Binary layout:
//
//	"SWST" | uint32 version (big endian) | zstd(body)
//
// body:
//
//	name author email org url     (uvarint length + bytes each)
//	uvarint stitch count
//	per stitch: name file description category wrongSide
//	            float64 rotation, float64 angle
//	            uvarint icon length + icon bytes, [32]byte BLAKE2b-256 of the icon
var binaryMagic = []byte("SWST")

const (
	maxFieldLen = 1 << 20
	maxIconLen  = 64 << 20
	maxStitches = 1 << 20
)

// SaveBinary writes the compact, self-contained form: every definition carries
// its rendered bitmap inline instead of a reference to source art.
func (c *Catalog) SaveBinary(path string) error {
	if path == "" {
		return ErrNoBackingFile
	}

	var body bytes.Buffer
	enc, err := zstd.NewWriter(&body)
	if err != nil {
		return fmt.Errorf("create compressor: %w", err)
	}

	w := &binWriter{w: bufio.NewWriter(enc)}
	w.strings(c.Name, c.Author, c.Email, c.Org, c.URL)
	stitches := c.Stitches()
	w.uvarint(uint64(len(stitches)))
	for _, s := range stitches {
		w.strings(s.Name, s.File, s.Description, s.Category, s.WrongSide)
		w.float(s.Rotation)
		w.float(s.Angle)
		blob := c.bitmap(s)
		w.bytes(blob)
		sum := blake2b.Sum256(blob)
		w.raw(sum[:])
	}
	if err := w.flush(); err != nil {
		enc.Close()
		return fmt.Errorf("encode catalog %q: %w", c.Name, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("compress catalog %q: %w", c.Name, err)
	}

	out := make([]byte, 0, len(binaryMagic)+4+body.Len())
	out = append(out, binaryMagic...)
	out = binary.BigEndian.AppendUint32(out, uint32(Version100))
	out = append(out, body.Bytes()...)

	if err := writeFile(c.fs, path, out); err != nil {
		return fmt.Errorf("save catalog %q: %w", c.Name, err)
	}
	slog.Debug("binary catalog saved", "catalog", c.Name, "file", path, "stitches", len(stitches))
	return nil
}

// LoadBinary reads a binary catalog. Icons always stay embedded in memory; when
// dest is non-empty they are additionally extracted to dest/<name>.png and
// each stitch's File points at its extracted copy. On error the previous
// contents are kept, and dest is only written once the file has been fully
// read and validated.
func (c *Catalog) LoadBinary(path, dest string) error {
	data, err := util.ReadFile(c.fs, path)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", path, err)
	}

	header := len(binaryMagic) + 4
	if len(data) < header || !bytes.Equal(data[:len(binaryMagic)], binaryMagic) {
		return fmt.Errorf("%w: %s is not a binary catalog", ErrWrongFormat, path)
	}
	if v := binary.BigEndian.Uint32(data[len(binaryMagic):header]); v != Version100 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	dec, err := zstd.NewReader(bytes.NewReader(data[header:]))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer dec.Close()

	r := &binReader{r: bufio.NewReader(dec)}
	meta := Manifest{Version: Version100}
	meta.Name = r.string()
	meta.Author = r.string()
	meta.Email = r.string()
	meta.Org = r.string()
	meta.URL = r.string()

	n := r.uvarint()
	if n > maxStitches {
		return fmt.Errorf("%w: %d stitches", ErrCorrupt, n)
	}

	var stitches []*domain.Stitch
	icons := make(map[*domain.Stitch][]byte)
	for i := uint64(0); i < n && r.err == nil; i++ {
		s := &domain.Stitch{
			Name:        r.string(),
			File:        r.string(),
			Description: r.string(),
			Category:    r.string(),
			WrongSide:   r.string(),
			Rotation:    r.float(),
			Angle:       r.float(),
		}
		blob := r.bytes(maxIconLen)
		var sum [blake2b.Size256]byte
		r.raw(sum[:])
		if r.err == nil && blake2b.Sum256(blob) != sum {
			return fmt.Errorf("%w: icon checksum mismatch for %q", ErrCorrupt, s.Name)
		}
		icons[s] = blob
		stitches = append(stitches, s)
	}
	if r.err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, path, r.err)
	}

	// Nothing may touch dest before the stitches are known to install.
	if err := validateStitches(stitches); err != nil {
		return fmt.Errorf("load catalog %s: %w", path, err)
	}
	if dest != "" {
		if err := c.extractIcons(dest, stitches, icons); err != nil {
			return err
		}
	}
	for _, s := range stitches {
		s.SetEmbeddedIcon(icons[s], c.colors)
	}

	if err := c.install(meta, stitches); err != nil {
		return fmt.Errorf("load catalog %s: %w", path, err)
	}
	slog.Debug("binary catalog loaded", "catalog", c.Name, "file", path, "stitches", len(stitches), "dest", dest)
	return nil
}

func (c *Catalog) extractIcons(dest string, stitches []*domain.Stitch, icons map[*domain.Stitch][]byte) error {
	used := make(map[string]bool)
	for _, s := range stitches {
		blob := icons[s]
		if len(blob) == 0 {
			continue
		}
		base := FileSafeName(s.Name)
		name := base + ".png"
		for i := 2; used[name]; i++ {
			name = fmt.Sprintf("%s-%d.png", base, i)
		}
		used[name] = true

		p := filepath.Join(dest, name)
		if err := writeFile(c.fs, p, blob); err != nil {
			return fmt.Errorf("extract icon %q: %w", s.Name, err)
		}
		s.SetRenderedFile(p)
	}
	return nil
}

type binWriter struct {
	w   *bufio.Writer
	err error
}

func (w *binWriter) raw(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}

func (w *binWriter) uvarint(v uint64) {
	w.raw(binary.AppendUvarint(nil, v))
}

func (w *binWriter) bytes(b []byte) {
	w.uvarint(uint64(len(b)))
	w.raw(b)
}

func (w *binWriter) strings(ss ...string) {
	for _, s := range ss {
		w.bytes([]byte(s))
	}
}

func (w *binWriter) float(f float64) {
	w.raw(binary.BigEndian.AppendUint64(nil, math.Float64bits(f)))
}

func (w *binWriter) flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

type binReader struct {
	r   *bufio.Reader
	err error
}

func (r *binReader) raw(b []byte) {
	if r.err != nil {
		return
	}
	_, r.err = io.ReadFull(r.r, b)
}

func (r *binReader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, err := binary.ReadUvarint(r.r)
	r.err = err
	return v
}

func (r *binReader) bytes(limit uint64) []byte {
	n := r.uvarint()
	if r.err != nil {
		return nil
	}
	if n > limit {
		r.err = fmt.Errorf("field length %d exceeds %d", n, limit)
		return nil
	}
	b := make([]byte, n)
	r.raw(b)
	return b
}

func (r *binReader) string() string {
	return string(r.bytes(maxFieldLen))
}

func (r *binReader) float() float64 {
	var b [8]byte
	r.raw(b[:])
	return math.Float64frombits(binary.BigEndian.Uint64(b[:]))
}
