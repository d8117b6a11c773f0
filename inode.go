package vsfsck

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vsfs-img/go-vsfsck/internal/disk"
)

// inodeLocation returns the block holding inode i and the byte offset of
// its record within that block.
func inodeLocation(i int) (block int64, offset int) {
	block = disk.InodeTableStart + int64(i*disk.InodeSize/disk.BlockSize)
	offset = i * disk.InodeSize % disk.BlockSize
	return block, offset
}

// readInode decodes the inode at index i. The containing block is re-read
// on every call.
func readInode(r io.ReaderAt, i int) (disk.Inode, error) {
	var ino disk.Inode
	blockNo, offset := inodeLocation(i)
	b, err := readBlock(r, blockNo)
	if err != nil {
		return ino, fmt.Errorf("reading inode %d: %w", i, err)
	}
	n, err := binary.Decode(b[offset:offset+disk.SizeInode], binary.LittleEndian, &ino)
	if err != nil {
		return ino, fmt.Errorf("decoding inode %d: %w", i, err)
	}
	if n != disk.SizeInode {
		return ino, fmt.Errorf("invalid inode %d: decoded %d bytes", i, n)
	}
	return ino, nil
}

// inodeValid reports whether an inode is in use: linked and not deleted.
func inodeValid(ino *disk.Inode) bool {
	return ino.Links > 0 && ino.Dtime == 0
}
