package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ColumnCount is the number of tokens on every hourly file row.
const ColumnCount = 24

// columns is the fixed hourly file schema, in file order.
var columns = [ColumnCount]string{
	"timeString", "tval", "intt", "nsamp", "stid", "fingerprint",
	"latitude", "longitude", "altitude", "tres", "ctemp", "ccr",
	"Bx", "By", "Bz", "afs_sel", "fs_sel",
	"Ax", "Ay", "Az", "Gx", "Gy", "Gz", "imu_ctemp",
}

// Columns returns the 24 column names of the hourly file schema.
func Columns() []string {
	out := make([]string, ColumnCount)
	copy(out, columns[:])
	return out
}

// Vector is a three-axis sensor reading.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Record is one row of an hourly summary file.
type Record struct {
	Time        time.Time `json:"time"`
	TVal        float64   `json:"tval"`
	IntT        float64   `json:"intt"`
	NSamp       int64     `json:"nsamp"`
	StationID   string    `json:"stid"`
	Fingerprint string    `json:"fingerprint"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Altitude    float64   `json:"altitude"`
	TRes        float64   `json:"tres"`
	CTemp       float64   `json:"ctemp"`
	CCR         float64   `json:"ccr"`

	// Magnetic field components.
	B Vector `json:"b"`

	AccelRangeSel int64 `json:"afs_sel"`
	GyroRangeSel  int64 `json:"fs_sel"`

	// IMU readings.
	Accel    Vector  `json:"accel"`
	Gyro     Vector  `json:"gyro"`
	IMUCTemp float64 `json:"imu_ctemp"`
}

// fieldParser accumulates the first conversion error so ParseRecord can read
// all 24 tokens without checking each one.
type fieldParser struct {
	tokens []string
	err    error
}

func (p *fieldParser) float(i int) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.tokens[i], 64)
	if err != nil {
		p.err = fmt.Errorf("%w: column %s=%q", ErrField, columns[i], p.tokens[i])
		return 0
	}
	return v
}

func (p *fieldParser) int(i int) int64 {
	if p.err != nil {
		return 0
	}
	if v, err := strconv.ParseInt(p.tokens[i], 10, 64); err == nil {
		return v
	}
	// Counters written by float-typed tools come out as "60.0" or "6e1".
	f, err := strconv.ParseFloat(p.tokens[i], 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		p.err = fmt.Errorf("%w: column %s=%q", ErrField, columns[i], p.tokens[i])
		return 0
	}
	return int64(f)
}

// ParseRecord converts the tokens of one row into a Record.
// It rejects rows that do not hold exactly ColumnCount tokens.
func ParseRecord(tokens []string) (Record, error) {
	if len(tokens) != ColumnCount {
		return Record{}, fmt.Errorf("%w: got %d tokens, want %d", ErrSchema, len(tokens), ColumnCount)
	}

	ts, err := ParseTimestamp(tokens[0])
	if err != nil {
		return Record{}, err
	}

	p := &fieldParser{tokens: tokens}
	rec := Record{
		Time:          ts,
		TVal:          p.float(1),
		IntT:          p.float(2),
		NSamp:         p.int(3),
		StationID:     tokens[4],
		Fingerprint:   tokens[5],
		Latitude:      p.float(6),
		Longitude:     p.float(7),
		Altitude:      p.float(8),
		TRes:          p.float(9),
		CTemp:         p.float(10),
		CCR:           p.float(11),
		B:             Vector{X: p.float(12), Y: p.float(13), Z: p.float(14)},
		AccelRangeSel: p.int(15),
		GyroRangeSel:  p.int(16),
		Accel:         Vector{X: p.float(17), Y: p.float(18), Z: p.float(19)},
		Gyro:          Vector{X: p.float(20), Y: p.float(21), Z: p.float(22)},
		IMUCTemp:      p.float(23),
	}
	if p.err != nil {
		return Record{}, p.err
	}
	return rec, nil
}

// Fields returns the record as 24 strings in schema order. Floats use the
// shortest representation that parses back to the same value.
func (r Record) Fields() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	i := func(v int64) string { return strconv.FormatInt(v, 10) }
	return []string{
		r.Time.Format(time.RFC3339Nano),
		f(r.TVal), f(r.IntT), i(r.NSamp), r.StationID, r.Fingerprint,
		f(r.Latitude), f(r.Longitude), f(r.Altitude), f(r.TRes), f(r.CTemp), f(r.CCR),
		f(r.B.X), f(r.B.Y), f(r.B.Z), i(r.AccelRangeSel), i(r.GyroRangeSel),
		f(r.Accel.X), f(r.Accel.Y), f(r.Accel.Z),
		f(r.Gyro.X), f(r.Gyro.Y), f(r.Gyro.Z), f(r.IMUCTemp),
	}
}

// FormatRecord renders a record as one hourly file line, without the newline.
func FormatRecord(r Record) string {
	return strings.Join(r.Fields(), " ")
}
