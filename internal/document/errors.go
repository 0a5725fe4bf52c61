package document

import (
	"errors"
	"fmt"
)

// FileError is the closed set of outcomes of a document save or load.
type FileError int

const (
	NoError FileError = iota
	// WrongFileType: the file lacks this application's type marker.
	WrongFileType
	// UnknownFileVersion: the marker matched but the version is not supported.
	UnknownFileVersion
	// OpeningFile: the file could not be opened or created.
	OpeningFile
	// GettingFileContents: the contents could not be read, decoded, or produced.
	GettingFileContents
	// NoTabsToSave: the document has no chart pages. Checked before any I/O.
	NoTabsToSave
	// RemovingOrigFile: the previous file could not be removed; it is untouched.
	RemovingOrigFile
	// RenamingTempFile: the previous file is gone and the new one is still
	// under its temporary name. The document is not safely on disk.
	RenamingTempFile
)

var fileErrorNames = [...]string{
	NoError:             "no error",
	WrongFileType:       "wrong file type",
	UnknownFileVersion:  "unknown file version",
	OpeningFile:         "opening file",
	GettingFileContents: "getting file contents",
	NoTabsToSave:        "no tabs to save",
	RemovingOrigFile:    "removing original file",
	RenamingTempFile:    "renaming temp file",
}

func (k FileError) String() string {
	if k < 0 || int(k) >= len(fileErrorNames) {
		return fmt.Sprintf("FileError(%d)", int(k))
	}
	return fileErrorNames[k]
}

// Error is returned by every failing Save and Load.
type Error struct {
	Kind FileError
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels below, so errors.Is(err, ErrWrongFileType) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Path == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrWrongFileType       = &Error{Kind: WrongFileType}
	ErrUnknownFileVersion  = &Error{Kind: UnknownFileVersion}
	ErrOpeningFile         = &Error{Kind: OpeningFile}
	ErrGettingFileContents = &Error{Kind: GettingFileContents}
	ErrNoTabsToSave        = &Error{Kind: NoTabsToSave}
	ErrRemovingOrigFile    = &Error{Kind: RemovingOrigFile}
	ErrRenamingTempFile    = &Error{Kind: RenamingTempFile}
)

// KindOf returns the FileError carried by err, NoError for nil.
func KindOf(err error) FileError {
	if err == nil {
		return NoError
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return GettingFileContents
}

func fileError(kind FileError, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}
