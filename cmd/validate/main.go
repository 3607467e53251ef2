// Command validate performs integrity checks on a directory of EZIE-Mag hourly
// summary files, typically the <kit>_merged directory produced by ezie. It
// verifies the 24-column schema, timestamp parsing, lossless re-serialization,
// per-file time ordering, and per-file station consistency, and reports every
// problem rather than stopping at the first.
//
// Usage:
//
//	go run ./cmd/validate -dir /data/ezie/geos1_merged
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/ezie-mag-etl/internal/adapter/textfile"
	"github.com/couchcryptid/ezie-mag-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "", "directory containing *smr.60s.txt hourly files")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*dir, os.Stdout))
}

// hourlyFile is one file's rows that passed schema checks.
type hourlyFile struct {
	path    string
	rows    int
	records []lineRecord
}

type lineRecord struct {
	line int
	rec  domain.Record
}

func run(dir string, out io.Writer) int {
	fmt.Fprintln(out, "=== EZIE-Mag Hourly File Validation ===")
	fmt.Fprintln(out)

	paths, err := textfile.FindHourly(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: list hourly files: %v\n", err)
		return 1
	}

	schema := &phase{name: "Phase 1: Schema (24 columns, timestamps)"}
	files := make([]hourlyFile, 0, len(paths))
	for _, path := range paths {
		hf, err := loadFile(path, schema)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", path, err)
			return 1
		}
		files = append(files, hf)
	}

	phases := []*phase{
		schema,
		validateRoundTrip(files),
		validateOrdering(files),
		validateStations(files),
	}

	// ── Report results ──
	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	rows, valid := 0, 0
	for _, f := range files {
		rows += f.rows
		valid += len(f.records)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Files: %d, rows: %d, valid rows: %d\n", len(files), rows, valid)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Schema ──
// Parses every line independently so that one bad row does not hide the next.

func loadFile(path string, p *phase) (hourlyFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return hourlyFile{}, err
	}
	defer f.Close()

	hf := hourlyFile{path: path}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), domain.MaxLineSize)
	line := 0
	for sc.Scan() {
		line++
		tokens := strings.Fields(sc.Text())
		if len(tokens) == 0 {
			continue
		}
		hf.rows++
		rec, err := domain.ParseRecord(tokens)
		if err != nil {
			p.errorf("%s:%d: %v", path, line, err)
			continue
		}
		hf.records = append(hf.records, lineRecord{line: line, rec: rec})
	}
	return hf, sc.Err()
}

// ── Phase 2: Round Trip ──
// Re-serializing a parsed row and parsing it again must give the same record.

func validateRoundTrip(files []hourlyFile) *phase {
	p := &phase{name: "Phase 2: Round Trip (format, re-parse)"}
	for _, f := range files {
		for _, lr := range f.records {
			again, err := domain.ParseRecord(strings.Fields(domain.FormatRecord(lr.rec)))
			if err != nil {
				p.errorf("%s:%d: re-parse failed: %v", f.path, lr.line, err)
				continue
			}
			if diff := cmp.Diff(lr.rec, again); diff != "" {
				p.errorf("%s:%d: round trip changed record:\n%s", f.path, lr.line, diff)
			}
		}
	}
	return p
}

// ── Phase 3: Ordering ──

func validateOrdering(files []hourlyFile) *phase {
	p := &phase{name: "Phase 3: Ordering (time non-decreasing)"}
	for _, f := range files {
		for i := 1; i < len(f.records); i++ {
			prev, cur := f.records[i-1], f.records[i]
			if cur.rec.Time.Before(prev.rec.Time) {
				p.errorf("%s:%d: time %s before line %d (%s)", f.path, cur.line,
					cur.rec.Time.Format("2006-01-02T15:04:05.000"), prev.line,
					prev.rec.Time.Format("2006-01-02T15:04:05.000"))
			}
		}
	}
	return p
}

// ── Phase 4: Stations ──
// An hourly file comes from a single kit, so stid must not change inside it.

func validateStations(files []hourlyFile) *phase {
	p := &phase{name: "Phase 4: Stations (one stid per file)"}
	for _, f := range files {
		if len(f.records) == 0 {
			continue
		}
		want := f.records[0].rec.StationID
		for _, lr := range f.records[1:] {
			if lr.rec.StationID != want {
				p.errorf("%s:%d: stid %q, file started with %q", f.path, lr.line, lr.rec.StationID, want)
			}
		}
	}
	return p
}
