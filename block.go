package vsfsck

import (
	"fmt"
	"io"

	"github.com/vsfs-img/go-vsfsck/internal/disk"
)

// readBlock reads the block at index n from the image. Every call reads
// from the underlying file; the image is small and scanned once, so no
// caching is done.
func readBlock(r io.ReaderAt, n int64) ([]byte, error) {
	buf := make([]byte, disk.BlockSize)
	read, err := r.ReadAt(buf, n*disk.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("reading block %d: %w", n, err)
	}
	if read != disk.BlockSize {
		return nil, fmt.Errorf("reading block %d: short read of %d bytes", n, read)
	}
	return buf, nil
}
