package archive

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/ezie-mag-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeZip creates an archive at path holding the given name -> content entries.
func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func newTestExpander(policy domain.CollisionPolicy) (*Expander, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2023, 1, 3, 6, 0, 0, 0, time.UTC))
	return NewExpander(policy, clock, slog.Default()), clock
}

func TestDescriptor(t *testing.T) {
	d, err := Descriptor("geos1.20230101.zip")
	require.NoError(t, err)
	assert.Equal(t, "20230101", d)

	d, err = Descriptor("geos1.week02.extra.zip")
	require.NoError(t, err)
	assert.Equal(t, "week02", d)

	for _, name := range []string{"geos1.zip", "geos1..zip", "nodots"} {
		_, err := Descriptor(name)
		assert.ErrorIs(t, err, domain.ErrArchiveName, name)
	}
}

func TestExpand_MergeTwoDays(t *testing.T) {
	base := t.TempDir()
	writeZip(t, filepath.Join(base, "geos1.20230101.zip"), map[string]string{
		"geos1/20230101/smr.60s/00/geos1_2023010100_smr.60s.txt": "day1-h00\n",
		"geos1/20230101/smr.60s/01/geos1_2023010101_smr.60s.txt": "day1-h01\n",
		"geos1/20230101/raw/geos1_raw.bin":                       "raw",
	})
	writeZip(t, filepath.Join(base, "geos1.20230102.zip"), map[string]string{
		"geos1/20230102/smr.60s/geos1_2023010200_smr.60s.txt": "day2-h00\n",
	})
	require.NoError(t, os.WriteFile(filepath.Join(base, "notes.txt"), []byte("x"), 0o644))

	exp, clock := newTestExpander(domain.CollisionOverwrite)
	res, err := exp.Expand(context.Background(), "geos1", base, true)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(base, "geos1_20230101"),
		filepath.Join(base, "geos1_20230102"),
	}, res.OutputDirs)
	assert.Equal(t, filepath.Join(base, "geos1_merged"), res.MergedDir)
	assert.Equal(t, 3, res.Copied)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, clock.Now(), res.StartedAt)
	assert.Equal(t, clock.Now(), res.FinishedAt)

	// Internal structure is preserved inside each extraction directory.
	raw, err := os.ReadFile(filepath.Join(base, "geos1_20230101", "geos1", "20230101", "raw", "geos1_raw.bin"))
	require.NoError(t, err)
	assert.Equal(t, "raw", string(raw))

	entries, err := os.ReadDir(res.MergedDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{
		"geos1_2023010100_smr.60s.txt",
		"geos1_2023010101_smr.60s.txt",
		"geos1_2023010200_smr.60s.txt",
	}, names)
}

func TestExpand_BaseDirWithGlobMetacharacters(t *testing.T) {
	base := filepath.Join(t.TempDir(), "course[geos4]*?")
	require.NoError(t, os.Mkdir(base, 0o755))
	writeZip(t, filepath.Join(base, "geos4.20230101.zip"), map[string]string{
		"geos4/20230101/smr.60s/00/geos4_2023010100_smr.60s.txt": "h00\n",
		"geos4/20230101/smr.60s/geos4_2023010101_smr.60s.txt":    "h01\n",
		"geos4/20230101/smr.60s/00/notes.txt":                    "skip\n",
	})

	exp, _ := newTestExpander(domain.CollisionOverwrite)
	res, err := exp.Expand(context.Background(), "geos4", base, true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Copied)

	for _, name := range []string{"geos4_2023010100_smr.60s.txt", "geos4_2023010101_smr.60s.txt"} {
		_, err := os.Stat(filepath.Join(res.MergedDir, name))
		assert.NoError(t, err, name)
	}
}

func TestExpand_NoMerge(t *testing.T) {
	base := t.TempDir()
	writeZip(t, filepath.Join(base, "geos2.20230101.zip"), map[string]string{
		"a/b/smr.60s/x_smr.60s.txt": "data\n",
	})

	exp, _ := newTestExpander(domain.CollisionOverwrite)
	res, err := exp.Expand(context.Background(), "geos2", base, false)
	require.NoError(t, err)

	assert.Len(t, res.OutputDirs, 1)
	assert.Empty(t, res.MergedDir)
	assert.Zero(t, res.Copied)
	assert.NoDirExists(t, filepath.Join(base, "geos2_merged"))
	assert.FileExists(t, filepath.Join(base, "geos2_20230101", "a", "b", "smr.60s", "x_smr.60s.txt"))
}

func TestExpand_EmptyDir(t *testing.T) {
	base := t.TempDir()
	exp, _ := newTestExpander(domain.CollisionOverwrite)
	res, err := exp.Expand(context.Background(), "geos1", base, true)
	require.NoError(t, err)
	assert.Empty(t, res.OutputDirs)
	assert.DirExists(t, res.MergedDir)
}

func TestExpand_MissingDir(t *testing.T) {
	exp, _ := newTestExpander(domain.CollisionOverwrite)
	_, err := exp.Expand(context.Background(), "geos1", filepath.Join(t.TempDir(), "missing"), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExpand_CorruptArchive(t *testing.T) {
	base := t.TempDir()
	writeZip(t, filepath.Join(base, "geos1.20230101.zip"), map[string]string{
		"a/b/smr.60s/ok_smr.60s.txt": "ok\n",
	})
	require.NoError(t, os.WriteFile(filepath.Join(base, "geos1.20230102.zip"), []byte("not a zip"), 0o644))

	exp, _ := newTestExpander(domain.CollisionOverwrite)
	_, err := exp.Expand(context.Background(), "geos1", base, true)
	require.ErrorIs(t, err, domain.ErrCorruptArchive)

	// No rollback: the earlier archive stays extracted.
	assert.DirExists(t, filepath.Join(base, "geos1_20230101"))
}

func TestExpand_BadArchiveName(t *testing.T) {
	base := t.TempDir()
	writeZip(t, filepath.Join(base, "geos1.zip"), map[string]string{"x": "y"})

	exp, _ := newTestExpander(domain.CollisionOverwrite)
	_, err := exp.Expand(context.Background(), "geos1", base, false)
	assert.ErrorIs(t, err, domain.ErrArchiveName)
}

func TestExpand_RejectsEscapingEntries(t *testing.T) {
	base := t.TempDir()
	writeZip(t, filepath.Join(base, "geos1.20230101.zip"), map[string]string{
		"../../escaped.txt": "nope",
	})

	exp, _ := newTestExpander(domain.CollisionOverwrite)
	_, err := exp.Expand(context.Background(), "geos1", base, false)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(base), "escaped.txt"))
}

func TestExpand_RerunOverwrites(t *testing.T) {
	base := t.TempDir()
	writeZip(t, filepath.Join(base, "geos1.20230101.zip"), map[string]string{
		"a/b/smr.60s/h_smr.60s.txt": "fresh\n",
	})

	exp, _ := newTestExpander(domain.CollisionOverwrite)
	_, err := exp.Expand(context.Background(), "geos1", base, true)
	require.NoError(t, err)

	merged := filepath.Join(base, "geos1_merged", "h_smr.60s.txt")
	require.NoError(t, os.WriteFile(merged, []byte("stale\n"), 0o644))

	res, err := exp.Expand(context.Background(), "geos1", base, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Copied)

	got, err := os.ReadFile(merged)
	require.NoError(t, err)
	assert.Equal(t, "fresh\n", string(got))
}

func TestExpand_CollisionPolicies(t *testing.T) {
	setup := func(t *testing.T) string {
		base := t.TempDir()
		// Same hourly file name in two archives.
		writeZip(t, filepath.Join(base, "geos1.20230101.zip"), map[string]string{
			"a/b/smr.60s/h_smr.60s.txt": "first\n",
		})
		writeZip(t, filepath.Join(base, "geos1.20230102.zip"), map[string]string{
			"a/b/smr.60s/h_smr.60s.txt": "second\n",
		})
		return base
	}
	read := func(t *testing.T, base string) string {
		b, err := os.ReadFile(filepath.Join(base, "geos1_merged", "h_smr.60s.txt"))
		require.NoError(t, err)
		return string(b)
	}

	t.Run("overwrite", func(t *testing.T) {
		base := setup(t)
		exp, _ := newTestExpander(domain.CollisionOverwrite)
		res, err := exp.Expand(context.Background(), "geos1", base, true)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Copied)
		assert.Equal(t, "second\n", read(t, base))
	})

	t.Run("skip", func(t *testing.T) {
		base := setup(t)
		exp, _ := newTestExpander(domain.CollisionSkip)
		res, err := exp.Expand(context.Background(), "geos1", base, true)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Copied)
		assert.Equal(t, 1, res.Skipped)
		assert.Equal(t, "first\n", read(t, base))
	})

	t.Run("error", func(t *testing.T) {
		base := setup(t)
		exp, _ := newTestExpander(domain.CollisionError)
		res, err := exp.Expand(context.Background(), "geos1", base, true)
		require.ErrorIs(t, err, domain.ErrCollision)
		assert.Equal(t, 1, res.Copied)
		assert.Equal(t, "first\n", read(t, base))
	})
}

func TestExpand_ContextCancelled(t *testing.T) {
	base := t.TempDir()
	writeZip(t, filepath.Join(base, "geos1.20230101.zip"), map[string]string{"x": "y"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exp, _ := newTestExpander(domain.CollisionOverwrite)
	_, err := exp.Expand(ctx, "geos1", base, true)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoDirExists(t, filepath.Join(base, "geos1_20230101"))
}
