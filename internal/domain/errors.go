package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema reports a row without exactly ColumnCount tokens.
	ErrSchema = errors.New("schema violation")
	// ErrTimestamp reports a first field that is not a recognizable timestamp.
	ErrTimestamp = errors.New("invalid timestamp")
	// ErrField reports a numeric field that could not be parsed.
	ErrField = errors.New("invalid field value")

	// ErrArchiveName reports an archive whose name carries no descriptor token.
	ErrArchiveName = errors.New("archive name has no descriptor")
	// ErrCorruptArchive reports a zip archive that could not be read.
	ErrCorruptArchive = errors.New("corrupt archive")
	// ErrUnsafePath reports an archive entry that would land outside its output directory.
	ErrUnsafePath = errors.New("archive entry escapes output directory")
	// ErrCollision reports a merge copy onto an existing file under the error policy.
	ErrCollision = errors.New("destination file already exists")
)

// ParseError locates a parse failure inside an hourly file.
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FileFailure records why a single file was rejected during a merge.
type FileFailure struct {
	Path string
	Err  error
}

// MergeError reports every file that failed during a merge.
type MergeError struct {
	Failures []FileFailure
}

func (e *MergeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "merge failed for %d file(s)", len(e.Failures))
	for _, f := range e.Failures {
		b.WriteString("; ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the per-file errors to errors.Is and errors.As.
func (e *MergeError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
