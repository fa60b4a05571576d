package table

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sbinet/npyio"

	"github.com/unitroot/adfz/internal/adf"
)

// ErrCorrupt reports an artifact that exists but cannot be trusted: a broken
// container, a missing entry or inconsistent dimensions.
var ErrCorrupt = errors.New("table: corrupt artifact")

const formatVersion = 1

// Artifact entry names. results.npy holds the grid flattened in C order;
// shape.npy restores its three dimensions, T.npy the sample lengths.
const (
	entryResults     = "results.npy"
	entryShape       = "shape.npy"
	entryPercentiles = "percentiles.npy"
	entryLengths     = "T.npy"
	entryMeta        = "meta.json"
)

type meta struct {
	Version   int       `json:"version"`
	Trend     string    `json:"trend"`
	CreatedAt time.Time `json:"created_at"`
}

// Filename returns the conventional artifact name for a trend.
func Filename(trend adf.Trend) string {
	return fmt.Sprintf("adf_z_%s.npz", trend)
}

// Save writes the table to path as an uncompressed zip of npy entries plus a
// JSON metadata entry. The write goes to a temporary file in the same
// directory and replaces path only on success, so a failed save leaves any
// previous checkpoint intact.
func Save(path string, t *Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("table: create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeArtifact(tmp, t); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("table: close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("table: replace artifact: %w", err)
	}
	return nil
}

func writeArtifact(w io.Writer, t *Table) error {
	lengths := make([]int64, len(t.Lengths))
	for i, n := range t.Lengths {
		lengths[i] = int64(n)
	}
	shape := []int64{int64(len(t.Percentiles)), int64(len(t.Lengths)), int64(t.Reps)}

	zw := zip.NewWriter(w)
	entries := []struct {
		name string
		val  interface{}
	}{
		{entryResults, t.data},
		{entryShape, shape},
		{entryPercentiles, t.Percentiles},
		{entryLengths, lengths},
	}
	for _, e := range entries {
		// npy payloads are dense binary; store them uncompressed the way
		// numpy's savez does.
		ew, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Store})
		if err != nil {
			return fmt.Errorf("table: create entry %s: %w", e.name, err)
		}
		if err := npyio.Write(ew, e.val); err != nil {
			return fmt.Errorf("table: encode entry %s: %w", e.name, err)
		}
	}

	mw, err := zw.CreateHeader(&zip.FileHeader{Name: entryMeta, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("table: create entry %s: %w", entryMeta, err)
	}
	enc := json.NewEncoder(mw)
	if err := enc.Encode(meta{
		Version:   formatVersion,
		Trend:     string(t.Trend),
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("table: encode entry %s: %w", entryMeta, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("table: finalize artifact: %w", err)
	}
	return nil
}

// Load reads an artifact written by Save and validates its consistency.
// A missing file surfaces as fs.ErrNotExist; anything unreadable or
// inconsistent wraps ErrCorrupt.
func Load(path string) (*Table, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("table: open artifact: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	for _, name := range []string{entryResults, entryShape, entryPercentiles, entryLengths, entryMeta} {
		if _, ok := files[name]; !ok {
			return nil, fmt.Errorf("%w: missing entry %s", ErrCorrupt, name)
		}
	}

	var m meta
	if err := readJSON(files[entryMeta], &m); err != nil {
		return nil, err
	}
	if m.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, m.Version)
	}
	trend := adf.Trend(m.Trend)
	if !trend.Valid() {
		return nil, fmt.Errorf("%w: unknown trend tag %q", ErrCorrupt, m.Trend)
	}

	shape, err := readInt64s(files[entryShape])
	if err != nil {
		return nil, err
	}
	if len(shape) != 3 || shape[0] <= 0 || shape[1] <= 0 || shape[2] <= 0 {
		return nil, fmt.Errorf("%w: bad shape %v", ErrCorrupt, shape)
	}
	percentiles, err := readFloat64s(files[entryPercentiles])
	if err != nil {
		return nil, err
	}
	rawLengths, err := readInt64s(files[entryLengths])
	if err != nil {
		return nil, err
	}
	data, err := readFloat64s(files[entryResults])
	if err != nil {
		return nil, err
	}

	if int64(len(percentiles)) != shape[0] {
		return nil, fmt.Errorf("%w: %d percentile levels for shape %v", ErrCorrupt, len(percentiles), shape)
	}
	if int64(len(rawLengths)) != shape[1] {
		return nil, fmt.Errorf("%w: %d sample lengths for shape %v", ErrCorrupt, len(rawLengths), shape)
	}
	if int64(len(data)) != shape[0]*shape[1]*shape[2] {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrCorrupt, len(data), shape)
	}

	lengths := make([]int, len(rawLengths))
	for i, n := range rawLengths {
		lengths[i] = int(n)
	}
	return &Table{
		Trend:       trend,
		Percentiles: percentiles,
		Lengths:     lengths,
		Reps:        int(shape[2]),
		data:        data,
	}, nil
}

func readFloat64s(f *zip.File) ([]float64, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open entry %s: %v", ErrCorrupt, f.Name, err)
	}
	defer rc.Close()
	var out []float64
	if err := npyio.Read(rc, &out); err != nil {
		return nil, fmt.Errorf("%w: decode entry %s: %v", ErrCorrupt, f.Name, err)
	}
	return out, nil
}

func readInt64s(f *zip.File) ([]int64, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open entry %s: %v", ErrCorrupt, f.Name, err)
	}
	defer rc.Close()
	var out []int64
	if err := npyio.Read(rc, &out); err != nil {
		return nil, fmt.Errorf("%w: decode entry %s: %v", ErrCorrupt, f.Name, err)
	}
	return out, nil
}

func readJSON(f *zip.File, v interface{}) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %s: %v", ErrCorrupt, f.Name, err)
	}
	defer rc.Close()
	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("%w: decode entry %s: %v", ErrCorrupt, f.Name, err)
	}
	return nil
}
