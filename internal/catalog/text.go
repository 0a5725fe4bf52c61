package catalog

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"

	"github.com/msomdec/stitchworks/internal/domain"
)

// Manifest is the textual form of a catalog. Documents embed it for their
// custom stitches, so it is also the narrow door through which a codec fills
// a catalog (Populate) without reaching into its internals.
type Manifest struct {
	Version  int              `yaml:"version"`
	Name     string           `yaml:"name"`
	Author   string           `yaml:"author,omitempty"`
	Email    string           `yaml:"email,omitempty"`
	Org      string           `yaml:"org,omitempty"`
	URL      string           `yaml:"url,omitempty"`
	Stitches []ManifestStitch `yaml:"stitches"`
}

// ManifestStitch is one stitch entry of a Manifest.
type ManifestStitch struct {
	Name        string  `yaml:"name"`
	File        string  `yaml:"file,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Category    string  `yaml:"category,omitempty"`
	WrongSide   string  `yaml:"wrongSide,omitempty"`
	Rotation    float64 `yaml:"rotation"`
	Angle       float64 `yaml:"angle"`
	Rendered    bool    `yaml:"rendered,omitempty"` // file is a rendering, not source art
	Icon        string  `yaml:"icon,omitempty"`     // base64 encoded rendering at Rotation
}

// Manifest snapshots the catalog. With withIcons set, each entry carries its
// rendered icon (or the embedded copy when rendering is not possible).
func (c *Catalog) Manifest(withIcons bool) Manifest {
	m := Manifest{
		Version: Version100,
		Name:    c.Name,
		Author:  c.Author,
		Email:   c.Email,
		Org:     c.Org,
		URL:     c.URL,
	}
	for _, s := range c.Stitches() {
		e := ManifestStitch{
			Name:        s.Name,
			File:        s.File,
			Description: s.Description,
			Category:    s.Category,
			WrongSide:   s.WrongSide,
			Rotation:    s.Rotation,
			Angle:       s.Angle,
			Rendered:    s.FileIsRendering(),
		}
		if withIcons {
			if b := c.bitmap(s); len(b) > 0 {
				e.Icon = base64.StdEncoding.EncodeToString(b)
			}
		}
		m.Stitches = append(m.Stitches, e)
	}
	return m
}

// Populate replaces the catalog's metadata and definitions with m. On error
// the catalog is left exactly as it was.
func (c *Catalog) Populate(m Manifest) error {
	if m.Version != Version100 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, m.Version)
	}

	stitches := make([]*domain.Stitch, 0, len(m.Stitches))
	for _, e := range m.Stitches {
		s := &domain.Stitch{
			Name:        e.Name,
			File:        e.File,
			Description: e.Description,
			Category:    e.Category,
			WrongSide:   e.WrongSide,
			Rotation:    e.Rotation,
			Angle:       e.Angle,
		}
		if e.Rendered {
			s.SetRenderedFile(e.File)
		}
		if e.Icon != "" {
			b, err := base64.StdEncoding.DecodeString(e.Icon)
			if err != nil {
				return fmt.Errorf("%w: icon of %q: %v", ErrCorrupt, e.Name, err)
			}
			s.SetEmbeddedIcon(b, c.colors)
		}
		stitches = append(stitches, s)
	}

	meta := m
	meta.Stitches = nil
	return c.install(meta, stitches)
}

// LoadText reads a textual catalog file. Any error means the catalog is
// unavailable; the previous contents are kept.
func (c *Catalog) LoadText(path string) error {
	data, err := util.ReadFile(c.fs, path)
	if err != nil {
		return fmt.Errorf("read catalog %s: %w", path, err)
	}
	if bytes.HasPrefix(data, binaryMagic) {
		return fmt.Errorf("%w: %s is a binary catalog", ErrWrongFormat, path)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrongFormat, path, err)
	}

	if err := c.Populate(m); err != nil {
		return fmt.Errorf("load catalog %s: %w", path, err)
	}
	slog.Debug("catalog loaded", "catalog", c.Name, "file", path, "stitches", len(m.Stitches))
	return nil
}

// SaveText writes the textual form to path, or to FileName when path is empty.
// Writing FileName also creates its .orig snapshot the first time, which is
// what Reset restores from.
func (c *Catalog) SaveText(path string, withIcons bool) error {
	if c.IsTemporary {
		return ErrTemporary
	}
	canonical := path == ""
	if canonical {
		path = c.FileName
	}
	if path == "" {
		return ErrNoBackingFile
	}

	data, err := yaml.Marshal(c.Manifest(withIcons))
	if err != nil {
		return fmt.Errorf("encode catalog %q: %w", c.Name, err)
	}
	if err := writeFile(c.fs, path, data); err != nil {
		return fmt.Errorf("save catalog %q: %w", c.Name, err)
	}

	if canonical {
		orig := path + OrigSuffix
		if _, err := c.fs.Stat(orig); err != nil {
			if err := writeFile(c.fs, orig, data); err != nil {
				return fmt.Errorf("snapshot catalog %q: %w", c.Name, err)
			}
		}
	}
	slog.Debug("catalog saved", "catalog", c.Name, "file", path, "icons", withIcons)
	return nil
}

// Snapshot replaces the .orig snapshot of FileName with the current contents,
// so that Reset restores to this point from now on.
func (c *Catalog) Snapshot(withIcons bool) error {
	if c.FileName == "" {
		return ErrNoBackingFile
	}
	data, err := yaml.Marshal(c.Manifest(withIcons))
	if err != nil {
		return fmt.Errorf("encode catalog %q: %w", c.Name, err)
	}
	if err := writeFile(c.fs, c.FileName+OrigSuffix, data); err != nil {
		return fmt.Errorf("snapshot catalog %q: %w", c.Name, err)
	}
	return nil
}

func writeFile(fs billy.Filesystem, path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return util.WriteFile(fs, path, data, 0o644)
}
