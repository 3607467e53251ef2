package domain

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// MaxLineSize bounds a single hourly file line in bytes.
const MaxLineSize = 1 << 20

// ParseHourly reads an hourly summary file. source is recorded on every row and
// in errors; it is usually the file path. Blank lines are skipped.
func ParseHourly(r io.Reader, source string) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	t := &Table{}
	line := 0
	for sc.Scan() {
		line++
		tokens := strings.Fields(sc.Text())
		if len(tokens) == 0 {
			continue
		}
		rec, err := ParseRecord(tokens)
		if err != nil {
			return nil, &ParseError{Source: source, Line: line, Err: err}
		}
		t.Append(rec, source, t.Len())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return t, nil
}

// WriteHourly writes records in the hourly file format, one per line.
func WriteHourly(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		if _, err := bw.WriteString(FormatRecord(rec)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
