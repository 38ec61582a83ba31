package device

import (
	"fmt"
	"os"
	"sync"
)

// ImageDevice provides read-only access to a disk image file.
// ReadAt may be called concurrently.
type ImageDevice struct {
	file  *os.File
	path  string
	size  int64
	stats *ImageStatistics
}

// ImageStatistics tracks image access statistics
type ImageStatistics struct {
	reads     int64
	bytesRead int64
	mu        sync.Mutex
}

// OpenImage opens a disk image for reading
func OpenImage(path string) (*ImageDevice, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}
	if stat.IsDir() {
		file.Close()
		return nil, fmt.Errorf("failed to open image: %s is a directory", path)
	}

	return &ImageDevice{
		file:  file,
		path:  path,
		size:  stat.Size(),
		stats: &ImageStatistics{},
	}, nil
}

// ReadAt implements io.ReaderAt
func (d *ImageDevice) ReadAt(p []byte, off int64) (int, error) {
	n, err := d.file.ReadAt(p, off)

	d.stats.mu.Lock()
	d.stats.reads++
	d.stats.bytesRead += int64(n)
	d.stats.mu.Unlock()

	return n, err
}

// Size returns the size of the image in bytes
func (d *ImageDevice) Size() int64 {
	return d.size
}

// Path returns the path the image was opened from
func (d *ImageDevice) Path() string {
	return d.path
}

// Stats returns the number of reads and bytes read so far
func (d *ImageDevice) Stats() (reads, bytesRead int64) {
	d.stats.mu.Lock()
	defer d.stats.mu.Unlock()
	return d.stats.reads, d.stats.bytesRead
}

// Close closes the image file
func (d *ImageDevice) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}
