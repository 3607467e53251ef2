package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/ezie-mag-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/zip"
)

// Expander unzips EZIE-Mag archives and optionally gathers their hourly files.
// It implements pipeline.Expander.
type Expander struct {
	collision domain.CollisionPolicy
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewExpander creates an Expander. A nil clock uses real time.
func NewExpander(collision domain.CollisionPolicy, clock clockwork.Clock, logger *slog.Logger) *Expander {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if collision == "" {
		collision = domain.CollisionOverwrite
	}
	return &Expander{collision: collision, clock: clock, logger: logger}
}

// Expand extracts every .zip directly under baseDir into <baseDir>/<kit>_<descriptor>.
// When merge is set, hourly files from all extraction directories are copied
// into <baseDir>/<kit>_merged, whose path is returned in Expansion.MergedDir.
// A failure leaves earlier archives extracted.
func (e *Expander) Expand(ctx context.Context, kit, baseDir string, merge bool) (domain.Expansion, error) {
	res := domain.Expansion{Kit: kit, StartedAt: e.clock.Now()}

	archives, err := findArchives(baseDir)
	if err != nil {
		return res, err
	}

	for _, path := range archives {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		desc, err := Descriptor(filepath.Base(path))
		if err != nil {
			return res, err
		}
		out := filepath.Join(baseDir, kit+"_"+desc)
		e.logger.Info("extracting archive", "archive", path, "output", out)

		n, err := extract(path, out, e.logger)
		if err != nil {
			return res, err
		}
		e.logger.Debug("archive extracted", "archive", path, "entries", n)
		res.OutputDirs = append(res.OutputDirs, out)
	}

	if !merge {
		e.logger.Info("merge declined; set merge to combine hourly files under one folder",
			"kit", kit, "archives", len(archives))
		res.FinishedAt = e.clock.Now()
		return res, nil
	}

	merged := filepath.Join(baseDir, kit+"_merged")
	if err := os.MkdirAll(merged, 0o755); err != nil {
		return res, fmt.Errorf("create merged dir: %w", err)
	}
	res.MergedDir = merged
	e.logger.Info("merging hourly files", "merged_dir", merged)

	for _, dir := range res.OutputDirs {
		files := findHourly(dir)
		e.logger.Debug("hourly files found", "dir", dir, "count", len(files))
		for _, src := range files {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			copied, err := copyInto(src, merged, e.collision)
			if err != nil {
				return res, err
			}
			if copied {
				res.Copied++
			} else {
				res.Skipped++
				e.logger.Debug("hourly file exists, skipping", "file", src)
			}
		}
	}

	res.FinishedAt = e.clock.Now()
	return res, nil
}

// Descriptor returns the token between the first and second dot of an archive
// file name: "geos1.20230101.zip" -> "20230101".
func Descriptor(name string) (string, error) {
	parts := strings.Split(name, ".")
	if len(parts) < 3 || parts[1] == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrArchiveName, name)
	}
	return parts[1], nil
}

// findArchives lists .zip files directly under dir in sorted order.
func findArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read archive dir: %w", err)
	}
	var out []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".zip") {
			continue
		}
		out = append(out, filepath.Join(dir, ent.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// findHourly lists regular hourly files under an extraction directory.
// Archives place them either directly in <kit>/<desc>/smr.60s/ or in
// per-hour folders below it.
func findHourly(dir string) []string {
	var out []string
	for _, kit := range subdirs(dir) {
		for _, desc := range subdirs(kit) {
			smr := filepath.Join(desc, "smr.60s")
			out = append(out, hourlyIn(smr)...)
			for _, hour := range subdirs(smr) {
				out = append(out, hourlyIn(hour)...)
			}
		}
	}
	sort.Strings(out)
	return out
}

// subdirs lists the directories directly in dir. A missing or unreadable dir
// has none.
func subdirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, ent := range entries {
		path := filepath.Join(dir, ent.Name())
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			out = append(out, path)
		}
	}
	return out
}

// hourlyIn lists the regular hourly files directly in dir.
func hourlyIn(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, ent := range entries {
		if !strings.HasSuffix(ent.Name(), domain.HourlySuffix) {
			continue
		}
		path := filepath.Join(dir, ent.Name())
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			out = append(out, path)
		}
	}
	return out
}

// extract unpacks the archive at path into dest and returns the number of
// entries written. Existing files are overwritten.
func extract(path, dest string, logger *slog.Logger) (int, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return 0, wrapArchiveErr(path, err)
	}
	defer zr.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}

	n := 0
	for _, f := range zr.File {
		name := filepath.FromSlash(f.Name)
		if !filepath.IsLocal(name) {
			return n, fmt.Errorf("%w: %s in %s", domain.ErrUnsafePath, f.Name, path)
		}
		target := filepath.Join(dest, name)

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return n, err
			}
		case mode.IsRegular():
			if err := extractFile(f, target); err != nil {
				return n, wrapArchiveErr(path, err)
			}
		default:
			logger.Debug("skipping non-regular archive entry", "archive", path, "entry", f.Name)
			continue
		}
		n++
	}
	return n, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// wrapArchiveErr tags zip format and checksum failures as ErrCorruptArchive.
func wrapArchiveErr(path string, err error) error {
	if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrAlgorithm) {
		return fmt.Errorf("%w: %s: %w", domain.ErrCorruptArchive, path, err)
	}
	return fmt.Errorf("extract %s: %w", path, err)
}

// copyInto copies src into dir under its base name. It reports false when the
// destination exists and the policy is skip.
func copyInto(src, dir string, policy domain.CollisionPolicy) (bool, error) {
	dst := filepath.Join(dir, filepath.Base(src))

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	switch policy {
	case domain.CollisionSkip:
		if _, err := os.Lstat(dst); err == nil {
			return false, nil
		}
	case domain.CollisionError:
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	in, err := os.Open(src)
	if err != nil {
		return false, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, fmt.Errorf("%w: %s", domain.ErrCollision, dst)
		}
		return false, err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return false, fmt.Errorf("copy %s: %w", src, err)
	}
	return true, out.Close()
}
