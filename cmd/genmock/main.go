// Command genmock writes synthetic EZIE-Mag kit archives for demos and local
// testing. Each day becomes one "<kit>.<YYYYMMDD>.zip" archive laid out like a
// real kit upload, with one hourly summary file per hour. Values are a
// deterministic function of the timestamp, so reruns produce identical data.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock \
//	  -kit geos1 \
//	  -start 2023-01-01 \
//	  -days 2
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/ezie-mag-etl/internal/domain"
	"github.com/klauspost/compress/zip"
)

type options struct {
	out   string
	kit   string
	start time.Time
	days  int
	hours int
	rows  int
}

func main() {
	out := flag.String("out", "data/mock", "directory to write archives into")
	kit := flag.String("kit", "geos1", "kit name used in archive and file names")
	start := flag.String("start", "2023-01-01", "first day (YYYY-MM-DD, UTC)")
	days := flag.Int("days", 2, "number of daily archives")
	hours := flag.Int("hours", 24, "hourly files per archive")
	rows := flag.Int("rows", 60, "rows per hourly file (one per minute)")
	flag.Parse()

	day, err := time.Parse("2006-01-02", *start)
	if err != nil {
		log.Fatalf("invalid -start: %v", err)
	}

	opts := options{out: *out, kit: *kit, start: day, days: *days, hours: *hours, rows: *rows}
	paths, err := run(opts)
	if err != nil {
		log.Fatal(err)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}

func run(opts options) ([]string, error) {
	if opts.hours < 1 || opts.hours > 24 {
		return nil, fmt.Errorf("hours must be in 1..24, got %d", opts.hours)
	}
	if opts.rows < 1 || opts.rows > 60 {
		return nil, fmt.Errorf("rows must be in 1..60, got %d", opts.rows)
	}
	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return nil, err
	}

	var paths []string
	for d := 0; d < opts.days; d++ {
		day := opts.start.AddDate(0, 0, d)
		path, err := writeArchive(opts, day)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeArchive(opts options, day time.Time) (string, error) {
	desc := day.Format("20060102")
	path := filepath.Join(opts.out, opts.kit+"."+desc+".zip")

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	zw := zip.NewWriter(f)

	for h := 0; h < opts.hours; h++ {
		hour := day.Add(time.Duration(h) * time.Hour)
		name := fmt.Sprintf("%s/%s/smr.60s/%02d/%s_%s_%s", opts.kit, desc, h, opts.kit, hour.Format("2006010215"), domain.HourlySuffix)
		w, err := zw.Create(name)
		if err != nil {
			f.Close()
			return "", err
		}
		if _, err := w.Write([]byte(hourlyFile(opts.kit, hour, opts.rows))); err != nil {
			f.Close()
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// hourlyFile renders rows one minute apart starting at hour.
func hourlyFile(kit string, hour time.Time, rows int) string {
	records := make([]string, rows)
	for i := range records {
		records[i] = domain.FormatRecord(mockRecord(kit, hour.Add(time.Duration(i)*time.Minute)))
	}
	return strings.Join(records, "\n") + "\n"
}

// mockRecord models a quiet-day field near Laurel, MD with a small diurnal swing.
func mockRecord(kit string, t time.Time) domain.Record {
	phase := 2 * math.Pi * float64(t.Hour()*60+t.Minute()) / (24 * 60)
	round := func(v float64) float64 { return math.Round(v*1000) / 1000 }

	return domain.Record{
		Time:          t,
		TVal:          float64(t.Unix()),
		IntT:          60,
		NSamp:         60,
		StationID:     kit,
		Fingerprint:   "mock" + kit,
		Latitude:      39.16,
		Longitude:     -76.89,
		Altitude:      45,
		TRes:          1,
		CTemp:         round(22 + 3*math.Sin(phase)),
		CCR:           200,
		B:             domain.Vector{X: round(20500 + 25*math.Sin(phase)), Y: round(-3900 + 10*math.Cos(phase)), Z: round(48500 - 15*math.Sin(phase))},
		AccelRangeSel: 0,
		GyroRangeSel:  0,
		Accel:         domain.Vector{X: 0.002, Y: -0.001, Z: 1},
		Gyro:          domain.Vector{X: 0.01, Y: -0.02, Z: 0.005},
		IMUCTemp:      round(24 + 3*math.Sin(phase)),
	}
}
