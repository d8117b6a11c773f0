package vsfsck

import (
	"encoding/binary"
	"fmt"

	"github.com/vsfs-img/go-vsfsck/internal/disk"
)

func decodeSuperblock(b []byte) (disk.Superblock, error) {
	var sb disk.Superblock
	n, err := binary.Decode(b, binary.LittleEndian, &sb)
	if err != nil {
		return sb, fmt.Errorf("decoding superblock: %w", err)
	}
	if n != disk.SizeSuperblock {
		return sb, fmt.Errorf("invalid superblock: decoded %d bytes", n)
	}
	return sb, nil
}

// validateSuperblock compares every superblock field against the compiled
// geometry and returns one finding per mismatch. The checks are independent
// and none aborts validation; callers keep using the compiled geometry no
// matter what the superblock claims.
func validateSuperblock(sb *disk.Superblock) []Finding {
	var findings []Finding

	mismatch := func(kind FindingKind, expected, actual uint64) {
		findings = append(findings, Finding{
			Kind:     kind,
			Expected: expected,
			Actual:   actual,
		})
	}

	if sb.Magic != disk.Magic {
		mismatch(FindingInvalidMagic, disk.Magic, uint64(sb.Magic))
	}
	if sb.BlockSize != disk.BlockSize {
		mismatch(FindingInvalidBlockSize, disk.BlockSize, uint64(sb.BlockSize))
	}
	if sb.TotalBlocks != disk.TotalBlocks {
		mismatch(FindingInvalidTotalBlocks, disk.TotalBlocks, uint64(sb.TotalBlocks))
	}
	if sb.InodeBitmapBlock != disk.InodeBitmapBlockNo {
		mismatch(FindingInvalidInodeBitmapBlock, disk.InodeBitmapBlockNo, uint64(sb.InodeBitmapBlock))
	}
	if sb.DataBitmapBlock != disk.DataBitmapBlockNo {
		mismatch(FindingInvalidDataBitmapBlock, disk.DataBitmapBlockNo, uint64(sb.DataBitmapBlock))
	}
	if sb.InodeTableStart != disk.InodeTableStart {
		mismatch(FindingInvalidInodeTableStart, disk.InodeTableStart, uint64(sb.InodeTableStart))
	}
	if sb.DataBlockStart != disk.DataBlockStart {
		mismatch(FindingInvalidDataBlockStart, disk.DataBlockStart, uint64(sb.DataBlockStart))
	}
	if sb.InodeSize != disk.InodeSize {
		mismatch(FindingInvalidInodeSize, disk.InodeSize, uint64(sb.InodeSize))
	}
	if sb.InodeCount > disk.MaxInodes {
		mismatch(FindingInodeCountOverflow, disk.MaxInodes, uint64(sb.InodeCount))
	}
	return findings
}
