package story

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by lookups for IDs that are not in the store.
var ErrNotFound = errors.New("story: not found")

// ContentLoadError reports malformed or incomplete authored content.
// A store is never returned alongside one.
type ContentLoadError struct {
	Path   string // File that failed, relative paths as given to Load
	Reason string
	Err    error // Underlying decode or read error, if any
}

func (e *ContentLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("content load %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("content load %s: %s", e.Path, e.Reason)
}

func (e *ContentLoadError) Unwrap() error {
	return e.Err
}

// DuplicateSceneIDError reports two scenes sharing an ID.
type DuplicateSceneIDError struct {
	SceneID    string
	FirstPath  string
	SecondPath string
}

func (e *DuplicateSceneIDError) Error() string {
	return fmt.Sprintf("duplicate scene id %q in %s (first defined in %s)", e.SceneID, e.SecondPath, e.FirstPath)
}

func loadErr(path string, format string, args ...any) *ContentLoadError {
	return &ContentLoadError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
