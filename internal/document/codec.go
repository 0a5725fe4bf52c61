package document

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/msomdec/stitchworks/internal/catalog"
	"github.com/msomdec/stitchworks/internal/domain"
)

// State tracks the codec's progress through a save or load.
type State int

const (
	StateIdle State = iota
	StateSaving
	StateSaved
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSaving:
		return "saving"
	case StateSaved:
		return "saved"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Migration upgrades the parsed stream of an older document, in place, to
// SoftwareFileVersion. It runs before the document is decoded.
type Migration func(root *yaml.Node) error

type header struct {
	Type string `yaml:"type"`
}

type versionHeader struct {
	Version int `yaml:"version"`
}

type colorEntry struct {
	Value string `yaml:"value"`
	Name  string `yaml:"name,omitempty"`
	Added int    `yaml:"added"`
}

type fileBody struct {
	Type     string           `yaml:"type"`
	Version  int              `yaml:"version"`
	Colors   []colorEntry     `yaml:"colors"`
	Stitches catalog.Manifest `yaml:"stitches"`
	Charts   []yaml.Node      `yaml:"charts"`
}

// Codec reads and writes documents on a filesystem. A Codec handles one
// operation at a time.
type Codec struct {
	fs         billy.Filesystem
	newPage    PageFactory
	migrations map[int]Migration

	mu       sync.Mutex
	state    State
	tempFile string
}

// NewCodec creates a codec. A nil newPage decodes pages as charts.
func NewCodec(fs billy.Filesystem, newPage PageFactory) *Codec {
	if newPage == nil {
		newPage = DefaultPage
	}
	return &Codec{
		fs:         fs,
		newPage:    newPage,
		migrations: make(map[int]Migration),
	}
}

// RegisterMigration lets Load accept documents written as version from.
func (c *Codec) RegisterMigration(from int, m Migration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.migrations[from] = m
}

func (c *Codec) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TempFile returns the temporary file left behind by a failed save, if any.
func (c *Codec) TempFile() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tempFile
}

// Save writes doc to doc.FileName. The new contents go to a temporary file in
// the same directory first; the previous file is only removed once they are
// fully written, then the temporary file takes its name.
func (c *Codec) Save(doc *Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateSaving

	if err := c.save(doc); err != nil {
		c.state = StateFailed
		slog.Warn("document save failed", "file", doc.FileName, "kind", KindOf(err).String(), "error", err)
		return err
	}
	c.state = StateSaved
	doc.IsSaved = true
	slog.Info("document saved", "file", doc.FileName, "pages", len(doc.Pages))
	return nil
}

func (c *Codec) save(doc *Document) error {
	if len(doc.Pages) == 0 {
		return fileError(NoTabsToSave, doc.FileName, nil)
	}

	data, err := encode(doc)
	if err != nil {
		return fileError(GettingFileContents, doc.FileName, err)
	}

	tmp := doc.FileName + "." + uuid.NewString() + ".tmp"
	if err := c.writeTemp(tmp, data); err != nil {
		_ = c.fs.Remove(tmp)
		return fileError(OpeningFile, tmp, err)
	}
	c.tempFile = tmp

	if _, err := c.fs.Stat(doc.FileName); err == nil {
		if err := c.fs.Remove(doc.FileName); err != nil {
			c.removeTemp()
			return fileError(RemovingOrigFile, doc.FileName, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		c.removeTemp()
		return fileError(RemovingOrigFile, doc.FileName, err)
	}

	if err := c.fs.Rename(tmp, doc.FileName); err != nil {
		// The temporary file now holds the only copy; keep it for CleanUp.
		return fileError(RenamingTempFile, tmp, err)
	}
	c.tempFile = ""
	return nil
}

func (c *Codec) writeTemp(name string, data []byte) error {
	if dir := filepath.Dir(name); dir != "." {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := c.fs.Create(name)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (c *Codec) removeTemp() {
	if c.tempFile == "" {
		return
	}
	if err := c.fs.Remove(c.tempFile); err != nil {
		slog.Warn("failed to remove temp file", "file", c.tempFile, "error", err)
	}
	c.tempFile = ""
}

// CleanUp removes the temporary file a failed save left behind.
func (c *Codec) CleanUp() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tempFile == "" {
		return nil
	}
	if err := c.fs.Remove(c.tempFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove temp file %s: %w", c.tempFile, err)
	}
	c.tempFile = ""
	c.state = StateIdle
	return nil
}

// Load reads doc.FileName into doc. The document is only modified when the
// whole file has been read and decoded.
func (c *Codec) Load(doc *Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateLoading

	if err := c.load(doc); err != nil {
		c.state = StateFailed
		slog.Warn("document load failed", "file", doc.FileName, "kind", KindOf(err).String(), "error", err)
		return err
	}
	c.state = StateLoaded
	slog.Info("document loaded", "file", doc.FileName, "version", doc.CurrentFileVersion, "pages", len(doc.Pages))
	return nil
}

func (c *Codec) load(doc *Document) error {
	path := doc.FileName
	f, err := c.fs.Open(path)
	if err != nil {
		return fileError(OpeningFile, path, err)
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return fileError(GettingFileContents, path, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fileError(WrongFileType, path, err)
	}
	if root.Kind != yaml.DocumentNode {
		return fileError(WrongFileType, path, errors.New("empty file"))
	}
	var h header
	if err := root.Decode(&h); err != nil {
		return fileError(WrongFileType, path, err)
	}
	if h.Type != FileType {
		return fileError(WrongFileType, path, fmt.Errorf("type marker %q", h.Type))
	}

	var vh versionHeader
	if err := root.Decode(&vh); err != nil {
		return fileError(UnknownFileVersion, path, err)
	}
	if vh.Version != SoftwareFileVersion {
		migrate, ok := c.migrations[vh.Version]
		if !ok {
			return fileError(UnknownFileVersion, path, fmt.Errorf("version %d", vh.Version))
		}
		if err := migrate(&root); err != nil {
			return fileError(GettingFileContents, path, fmt.Errorf("upgrade from version %d: %w", vh.Version, err))
		}
	}

	var body fileBody
	if err := root.Decode(&body); err != nil {
		return fileError(GettingFileContents, path, err)
	}

	palette, err := decodePalette(body.Colors)
	if err != nil {
		return fileError(GettingFileContents, path, err)
	}

	manifest := body.Stitches
	if manifest.Version == 0 && len(manifest.Stitches) == 0 {
		manifest.Version = catalog.Version100
		manifest.Name = doc.Stitches.Name
	}
	scratch := catalog.New(nil, manifest.Name)
	if err := scratch.Populate(manifest); err != nil {
		return fileError(GettingFileContents, path, err)
	}

	pages := make([]Page, 0, len(body.Charts))
	for i := range body.Charts {
		p := c.newPage()
		if err := body.Charts[i].Decode(p); err != nil {
			return fileError(GettingFileContents, path, fmt.Errorf("page %d: %w", i+1, err))
		}
		pages = append(pages, p)
	}

	// Everything decoded; commit.
	if err := doc.Stitches.Populate(manifest); err != nil {
		return fileError(GettingFileContents, path, err)
	}
	doc.Palette = palette
	doc.Pages = pages
	doc.CurrentFileVersion = vh.Version
	doc.IsSaved = true
	return nil
}

func encode(doc *Document) ([]byte, error) {
	body := fileBody{
		Type:     FileType,
		Version:  SoftwareFileVersion,
		Stitches: doc.Stitches.Manifest(true),
	}
	for _, col := range doc.Palette.Colors {
		body.Colors = append(body.Colors, colorEntry(col))
	}
	for i, p := range doc.Pages {
		var n yaml.Node
		if err := n.Encode(p); err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		body.Charts = append(body.Charts, n)
	}
	return yaml.Marshal(&body)
}

func decodePalette(entries []colorEntry) (domain.Palette, error) {
	var p domain.Palette
	for i, e := range entries {
		if e.Value == "" {
			return domain.Palette{}, fmt.Errorf("%w: color %d has no value", domain.ErrInvalidInput, i+1)
		}
		if p.Has(e.Value) {
			continue
		}
		p.Colors = append(p.Colors, domain.Color(e))
	}
	return p, nil
}
