package domain

import (
	"fmt"
	"time"
)

// CollisionPolicy decides what a merge copy does when the destination exists.
type CollisionPolicy string

const (
	CollisionOverwrite CollisionPolicy = "overwrite"
	CollisionSkip      CollisionPolicy = "skip"
	CollisionError     CollisionPolicy = "error"
)

// ParseCollisionPolicy maps a config value to a CollisionPolicy. Empty means overwrite.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch p := CollisionPolicy(s); p {
	case "":
		return CollisionOverwrite, nil
	case CollisionOverwrite, CollisionSkip, CollisionError:
		return p, nil
	default:
		return "", fmt.Errorf("unknown collision policy %q", s)
	}
}

// ParseErrorPolicy decides how a merge treats files that fail to parse.
type ParseErrorPolicy string

const (
	// OnParseErrorFail parses every file, then fails with all offending files.
	OnParseErrorFail ParseErrorPolicy = "fail"
	// OnParseErrorSkip leaves failing files out and reports them in MergeResult.Failed.
	OnParseErrorSkip ParseErrorPolicy = "skip"
)

// ParseParseErrorPolicy maps a config value to a ParseErrorPolicy. Empty means fail.
func ParseParseErrorPolicy(s string) (ParseErrorPolicy, error) {
	switch p := ParseErrorPolicy(s); p {
	case "":
		return OnParseErrorFail, nil
	case OnParseErrorFail, OnParseErrorSkip:
		return p, nil
	default:
		return "", fmt.Errorf("unknown parse error policy %q", s)
	}
}

// Expansion describes the outcome of unzipping a kit's archives.
type Expansion struct {
	Kit        string
	OutputDirs []string
	// MergedDir is empty when merging was not requested.
	MergedDir  string
	Copied     int
	Skipped    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// MergeResult is the combined table of a directory of hourly files.
type MergeResult struct {
	Table  *Table
	Files  []string
	Failed []FileFailure
}

// HourlySuffix identifies 60-second hourly summary files.
const HourlySuffix = "smr.60s.txt"
