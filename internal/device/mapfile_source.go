package device

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"
)

// ErrMapfileTooLarge is returned when a mapfile exceeds the configured size limit.
var ErrMapfileTooLarge = errors.New("mapfile exceeds size limit")

// Compression identifies how a mapfile is stored on disk.
type Compression string

const (
	CompressionNone  Compression = "none"
	CompressionGzip  Compression = "gzip"
	CompressionBzip2 Compression = "bzip2"
	CompressionXZ    Compression = "xz"
)

// DetectCompression picks the decompressor from the file extension.
func DetectCompression(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CompressionGzip
	case ".bz2":
		return CompressionBzip2
	case ".xz":
		return CompressionXZ
	}
	return CompressionNone
}

// ReadMapfile reads a whole mapfile into memory, decompressing .gz, .bz2 and
// .xz files. A maxSize <= 0 disables the size limit; otherwise more than
// maxSize decompressed bytes fails with ErrMapfileTooLarge.
func ReadMapfile(path string, maxSize int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mapfile: %w", err)
	}
	defer file.Close()

	r, closeFn, err := decompressor(file, DetectCompression(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s mapfile %s: %w", DetectCompression(path), path, err)
	}
	defer closeFn()

	if maxSize > 0 {
		r = io.LimitReader(r, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapfile %s: %w", path, err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%s: %w (%d bytes)", path, ErrMapfileTooLarge, maxSize)
	}
	return data, nil
}

func decompressor(r io.Reader, c Compression) (io.Reader, func() error, error) {
	noop := func() error { return nil }
	switch c {
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gz, gz.Close, nil
	case CompressionBzip2:
		bz, err := bzip2.NewReader(r, nil)
		if err != nil {
			return nil, nil, err
		}
		return bz, bz.Close, nil
	case CompressionXZ:
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xzr, noop, nil
	}
	return r, noop, nil
}
