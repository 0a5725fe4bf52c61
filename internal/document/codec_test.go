package document_test

import (
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/msomdec/stitchworks/internal/chart"
	"github.com/msomdec/stitchworks/internal/document"
	"github.com/msomdec/stitchworks/internal/domain"
	"github.com/msomdec/stitchworks/internal/icon"
)

const docPath = "/patterns/granny.yaml"

type renameFailFS struct {
	billy.Filesystem
}

func (renameFailFS) Rename(from, to string) error {
	return errors.New("rename refused")
}

type removeFailFS struct {
	billy.Filesystem
}

func (removeFailFS) Remove(name string) error {
	return errors.New("remove refused")
}

func sampleDocument(t *testing.T, fs billy.Filesystem) *document.Document {
	t.Helper()
	doc := document.New(fs, docPath)

	c := chart.New("Round 1", chart.StyleRounds)
	c.SetCell(chart.Cell{Row: 0, Column: 0, Stitch: "ch", Color: "#000000"})
	c.SetCell(chart.Cell{Row: 0, Column: 1, Stitch: "bobble", Color: "#FF0000", Rotation: 90})
	doc.AddPage(c)
	doc.AddPage(chart.New("Border", chart.StyleRows))

	doc.Palette.Add("#000000", "Black")
	doc.Palette.Add("#FF0000", "Red")

	s := domain.NewStitch("bobble")
	s.Description = "Five dc bobble"
	s.Category = "Custom"
	s.SetEmbeddedIcon([]byte("bobble-icon"), icon.DefaultColorContext())
	if err := doc.Stitches.AddStitch(s); err != nil {
		t.Fatalf("AddStitch: %v", err)
	}
	return doc
}

func tempFiles(t *testing.T, fs billy.Filesystem) []string {
	t.Helper()
	matches, err := util.Glob(fs, "/patterns/*.tmp")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	return matches
}

func writeFile(t *testing.T, fs billy.Filesystem, body string) {
	t.Helper()
	if err := util.WriteFile(fs, docPath, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestCodec_SaveLoadRoundTrip(t *testing.T) {
	fs := memfs.New()
	want := sampleDocument(t, fs)
	codec := document.NewCodec(fs, nil)

	if err := codec.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !want.IsSaved {
		t.Fatal("expected document to be marked saved")
	}
	if codec.State() != document.StateSaved {
		t.Fatalf("expected saved state, got %v", codec.State())
	}
	if tmp := tempFiles(t, fs); len(tmp) != 0 {
		t.Fatalf("expected no temp files, got %v", tmp)
	}

	got := document.New(fs, docPath)
	if err := codec.Load(got); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if diff := cmp.Diff(want.Pages, got.Pages); diff != "" {
		t.Fatalf("pages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Palette, got.Palette); diff != "" {
		t.Fatalf("palette mismatch (-want +got):\n%s", diff)
	}
	s := got.Stitches.FindStitch("bobble")
	if s == nil || s.Description != "Five dc bobble" || s.Category != "Custom" {
		t.Fatalf("custom stitch not restored: %+v", s)
	}
	if string(s.EmbeddedIcon()) != "bobble-icon" {
		t.Fatalf("expected embedded icon to survive, got %q", s.EmbeddedIcon())
	}
	if got.CurrentFileVersion != document.SoftwareFileVersion || got.IsOldFileVersion() {
		t.Fatalf("unexpected version %d", got.CurrentFileVersion)
	}
	if !got.IsSaved {
		t.Fatal("expected loaded document to be marked saved")
	}
}

func TestCodec_SaveReplacesExistingFile(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "old contents")
	doc := sampleDocument(t, fs)

	if err := document.NewCodec(fs, nil).Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := util.ReadFile(fs, docPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var head struct {
		Type    string `yaml:"type"`
		Version int    `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if head.Type != document.FileType || head.Version != document.SoftwareFileVersion {
		t.Fatalf("unexpected header %+v", head)
	}
}

func TestCodec_SaveWithoutPagesWritesNothing(t *testing.T) {
	fs := memfs.New()
	doc := document.New(fs, docPath)
	doc.Palette.Add("#000000", "Black")

	err := document.NewCodec(fs, nil).Save(doc)
	if !errors.Is(err, document.ErrNoTabsToSave) {
		t.Fatalf("expected NoTabsToSave, got %v", err)
	}
	entries, err := fs.ReadDir("/")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no filesystem writes, found %d entries", len(entries))
	}
}

func TestCodec_RenameFailureKeepsTempFile(t *testing.T) {
	base := memfs.New()
	writeFile(t, base, "previous")
	fs := renameFailFS{base}
	doc := sampleDocument(t, fs)
	codec := document.NewCodec(fs, nil)

	err := codec.Save(doc)
	if document.KindOf(err) != document.RenamingTempFile {
		t.Fatalf("expected RenamingTempFile, got %v", err)
	}
	if doc.IsSaved {
		t.Fatal("expected document to stay unsaved")
	}
	if codec.State() != document.StateFailed {
		t.Fatalf("expected failed state, got %v", codec.State())
	}
	if _, err := base.Stat(docPath); err == nil {
		t.Fatal("expected previous file to be gone")
	}
	tmp := tempFiles(t, base)
	if len(tmp) != 1 || tmp[0] != codec.TempFile() {
		t.Fatalf("expected temp file %q to remain, got %v", codec.TempFile(), tmp)
	}

	if err := codec.CleanUp(); err != nil {
		t.Fatalf("CleanUp: %v", err)
	}
	if tmp := tempFiles(t, base); len(tmp) != 0 {
		t.Fatalf("expected temp file removed, got %v", tmp)
	}
}

func TestCodec_RemoveFailureLeavesOriginal(t *testing.T) {
	base := memfs.New()
	writeFile(t, base, "previous")
	doc := sampleDocument(t, base)

	err := document.NewCodec(removeFailFS{base}, nil).Save(doc)
	if !errors.Is(err, document.ErrRemovingOrigFile) {
		t.Fatalf("expected RemovingOrigFile, got %v", err)
	}
	data, err := util.ReadFile(base, docPath)
	if err != nil || string(data) != "previous" {
		t.Fatalf("expected original untouched, got %q (%v)", data, err)
	}
}

func TestCodec_LoadMissingFile(t *testing.T) {
	fs := memfs.New()
	err := document.NewCodec(fs, nil).Load(document.New(fs, docPath))
	if !errors.Is(err, document.ErrOpeningFile) {
		t.Fatalf("expected OpeningFile, got %v", err)
	}
}

func TestCodec_LoadRejectsAndLeavesDocument(t *testing.T) {
	tests := map[string]struct {
		body string
		want document.FileError
	}{
		"empty file":           {"", document.WrongFileType},
		"not yaml":             {"\t{{{", document.WrongFileType},
		"missing marker":       {"version: 100\ncharts: []\n", document.WrongFileType},
		"foreign marker":       {"type: someone/else\nversion: 100\n", document.WrongFileType},
		"marker beats version": {"type: someone/else\nversion: 999\n", document.WrongFileType},
		"unknown version":      {"type: stitchworks/pattern\nversion: 999\ncharts: []\n", document.UnknownFileVersion},
		"older, no migration":  {"type: stitchworks/pattern\nversion: 90\ncharts: []\n", document.UnknownFileVersion},
		"bad page": {
			"type: stitchworks/pattern\nversion: 100\ncharts:\n  - {name: Broken, style: spiral}\n",
			document.GettingFileContents,
		},
		"bad custom stitches": {
			"type: stitchworks/pattern\nversion: 100\nstitches:\n  version: 100\n  name: Custom\n  stitches:\n    - {name: ch}\n    - {name: ch}\n",
			document.GettingFileContents,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			fs := memfs.New()
			writeFile(t, fs, tc.body)
			doc := sampleDocument(t, fs)
			pages := len(doc.Pages)
			colors := doc.Palette.Len()
			doc.IsSaved = false

			err := document.NewCodec(fs, nil).Load(doc)
			if got := document.KindOf(err); got != tc.want {
				t.Fatalf("expected %v, got %v (%v)", tc.want, got, err)
			}
			if len(doc.Pages) != pages || doc.Palette.Len() != colors {
				t.Fatal("expected document to be left untouched")
			}
			if !doc.Stitches.HasStitch("bobble") {
				t.Fatal("expected custom stitches to be left untouched")
			}
			if doc.IsSaved {
				t.Fatal("expected saved flag unchanged")
			}
		})
	}
}

func TestCodec_LoadMigratesOlderVersion(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "type: stitchworks/pattern\nversion: 90\ntabs:\n  - {name: Old, style: rows}\n")
	codec := document.NewCodec(fs, nil)
	codec.RegisterMigration(90, func(root *yaml.Node) error {
		m := root.Content[0]
		for i := 0; i < len(m.Content); i += 2 {
			if m.Content[i].Value == "tabs" {
				m.Content[i].Value = "charts"
			}
		}
		return nil
	})

	doc := document.New(fs, docPath)
	if err := codec.Load(doc); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Pages) != 1 || doc.Pages[0].(*chart.Chart).Name != "Old" {
		t.Fatalf("expected migrated page, got %+v", doc.Pages)
	}
	if doc.CurrentFileVersion != 90 || !doc.IsOldFileVersion() {
		t.Fatalf("expected old version 90, got %d", doc.CurrentFileVersion)
	}
}

func TestDocument_TrackFollowsRenames(t *testing.T) {
	fs := memfs.New()
	doc := sampleDocument(t, fs)
	doc.IsSaved = true

	if err := doc.Stitches.RenameStitch("bobble", "popcorn"); err != nil {
		t.Fatalf("RenameStitch: %v", err)
	}
	cell := doc.Pages[0].(*chart.Chart).Cells[1]
	if cell.Stitch != "popcorn" {
		t.Fatalf("expected cell to follow rename, got %q", cell.Stitch)
	}
	if doc.IsSaved {
		t.Fatal("expected rename to mark the document modified")
	}

	doc.Close()
	if err := doc.Stitches.RenameStitch("popcorn", "puff"); err != nil {
		t.Fatalf("RenameStitch: %v", err)
	}
	if cell := doc.Pages[0].(*chart.Chart).Cells[1]; cell.Stitch != "popcorn" {
		t.Fatalf("expected closed document to stop following renames, got %q", cell.Stitch)
	}
}

func TestError_KindMatching(t *testing.T) {
	err := &document.Error{Kind: document.UnknownFileVersion, Path: "/x", Err: errors.New("version 7")}
	if !errors.Is(err, document.ErrUnknownFileVersion) {
		t.Fatal("expected kind sentinel to match")
	}
	if errors.Is(err, document.ErrWrongFileType) {
		t.Fatal("expected other kinds not to match")
	}
	if document.KindOf(nil) != document.NoError {
		t.Fatal("expected NoError for nil")
	}
	if got := err.Error(); got != "unknown file version /x: version 7" {
		t.Fatalf("unexpected message %q", got)
	}
}
