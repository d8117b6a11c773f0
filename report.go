package vsfsck

import (
	"fmt"
	"io"
)

// FindingKind identifies one category of inconsistency.
type FindingKind int

const (
	FindingInvalidMagic FindingKind = iota
	FindingInvalidBlockSize
	FindingInvalidTotalBlocks
	FindingInvalidInodeBitmapBlock
	FindingInvalidDataBitmapBlock
	FindingInvalidInodeTableStart
	FindingInvalidDataBlockStart
	FindingInvalidInodeSize
	FindingInodeCountOverflow
	FindingInodeMarkedButInvalid
	FindingInodeValidButUnmarked
	FindingInvalidDirectBlock
	FindingBlockNotInDataBitmap
	FindingBlockMarkedButUnreferenced
	FindingBlockUsedButUnmarked
	FindingDuplicateBlockRef
	FindingInodeMarkedButUnused
	FindingInodeUsedButUnmarked
	FindingInvalidIndirectBlock
	FindingInvalidDoubleIndirectBlock
	FindingInvalidTripleIndirectBlock
)

func (k FindingKind) String() string {
	switch k {
	case FindingInvalidMagic:
		return "invalid-magic"
	case FindingInvalidBlockSize:
		return "invalid-block-size"
	case FindingInvalidTotalBlocks:
		return "invalid-total-blocks"
	case FindingInvalidInodeBitmapBlock:
		return "invalid-inode-bitmap-block"
	case FindingInvalidDataBitmapBlock:
		return "invalid-data-bitmap-block"
	case FindingInvalidInodeTableStart:
		return "invalid-inode-table-start"
	case FindingInvalidDataBlockStart:
		return "invalid-data-block-start"
	case FindingInvalidInodeSize:
		return "invalid-inode-size"
	case FindingInodeCountOverflow:
		return "inode-count-overflow"
	case FindingInodeMarkedButInvalid:
		return "inode-marked-but-invalid"
	case FindingInodeValidButUnmarked:
		return "inode-valid-but-unmarked"
	case FindingInvalidDirectBlock:
		return "invalid-direct-block"
	case FindingBlockNotInDataBitmap:
		return "block-not-in-data-bitmap"
	case FindingBlockMarkedButUnreferenced:
		return "block-marked-but-unreferenced"
	case FindingBlockUsedButUnmarked:
		return "block-used-but-unmarked"
	case FindingDuplicateBlockRef:
		return "duplicate-block-reference"
	case FindingInodeMarkedButUnused:
		return "inode-marked-but-unused"
	case FindingInodeUsedButUnmarked:
		return "inode-used-but-unmarked"
	case FindingInvalidIndirectBlock:
		return "invalid-indirect-block"
	case FindingInvalidDoubleIndirectBlock:
		return "invalid-double-indirect-block"
	case FindingInvalidTripleIndirectBlock:
		return "invalid-triple-indirect-block"
	default:
		return fmt.Sprintf("unknown-finding-%d", int(k))
	}
}

// Finding is a single detected inconsistency between declared and observed
// state. Findings are diagnostics, never errors: they do not stop a run and
// do not change the process exit code. Inode and Block are only meaningful
// for the kinds that concern an inode or a data block; Expected and Actual
// carry the field values for the superblock kinds.
type Finding struct {
	Kind     FindingKind
	Inode    int
	Block    int64
	Expected uint64
	Actual   uint64
}

func (f Finding) String() string {
	switch f.Kind {
	case FindingInvalidMagic:
		return fmt.Sprintf("Invalid magic number in superblock: expected 0x%04X, got 0x%04X.", f.Expected, f.Actual)
	case FindingInvalidBlockSize:
		return fmt.Sprintf("Invalid block size in superblock: expected %d, got %d.", f.Expected, f.Actual)
	case FindingInvalidTotalBlocks:
		return fmt.Sprintf("Invalid total block count in superblock: expected %d, got %d.", f.Expected, f.Actual)
	case FindingInvalidInodeBitmapBlock:
		return fmt.Sprintf("Invalid inode bitmap block in superblock: expected %d, got %d.", f.Expected, f.Actual)
	case FindingInvalidDataBitmapBlock:
		return fmt.Sprintf("Invalid data bitmap block in superblock: expected %d, got %d.", f.Expected, f.Actual)
	case FindingInvalidInodeTableStart:
		return fmt.Sprintf("Invalid inode table start in superblock: expected %d, got %d.", f.Expected, f.Actual)
	case FindingInvalidDataBlockStart:
		return fmt.Sprintf("Invalid data block start in superblock: expected %d, got %d.", f.Expected, f.Actual)
	case FindingInvalidInodeSize:
		return fmt.Sprintf("Invalid inode size in superblock: expected %d, got %d.", f.Expected, f.Actual)
	case FindingInodeCountOverflow:
		return fmt.Sprintf("Inode count in superblock exceeds maximum allowed: got %d, max %d.", f.Actual, f.Expected)
	case FindingInodeMarkedButInvalid:
		return fmt.Sprintf("Inode %d marked used in bitmap but is invalid.", f.Inode)
	case FindingInodeValidButUnmarked:
		return fmt.Sprintf("Inode %d is valid but not marked used in bitmap.", f.Inode)
	case FindingInvalidDirectBlock:
		return fmt.Sprintf("Inode %d has invalid direct block %d.", f.Inode, f.Block)
	case FindingBlockNotInDataBitmap:
		return fmt.Sprintf("Inode %d references block %d not marked in data bitmap.", f.Inode, f.Block)
	case FindingBlockMarkedButUnreferenced:
		return fmt.Sprintf("Data block %d marked used in bitmap but not referenced.", f.Block)
	case FindingBlockUsedButUnmarked:
		return fmt.Sprintf("Data block %d is used but not marked in bitmap.", f.Block)
	case FindingDuplicateBlockRef:
		return fmt.Sprintf("Data block %d is referenced by multiple inodes.", f.Block)
	case FindingInodeMarkedButUnused:
		return fmt.Sprintf("Inode %d marked used but not actually used.", f.Inode)
	case FindingInodeUsedButUnmarked:
		return fmt.Sprintf("Inode %d is used but not marked in bitmap.", f.Inode)
	case FindingInvalidIndirectBlock:
		return fmt.Sprintf("Inode %d has invalid single indirect block %d.", f.Inode, f.Block)
	case FindingInvalidDoubleIndirectBlock:
		return fmt.Sprintf("Inode %d has invalid double indirect block %d.", f.Inode, f.Block)
	case FindingInvalidTripleIndirectBlock:
		return fmt.Sprintf("Inode %d has invalid triple indirect block %d.", f.Inode, f.Block)
	default:
		return fmt.Sprintf("Unknown finding (kind %d).", int(f.Kind))
	}
}

// Reporter receives every diagnostic the checker produces. Implementations
// must not assume any finding is fatal.
type Reporter interface {
	// Finding reports one detected inconsistency.
	Finding(f Finding)
	// Info reports a phase banner or a per-phase success line.
	Info(msg string)
}

// LineReporter writes diagnostics line by line: findings prefixed with
// "ERROR: ", banners and success lines verbatim.
type LineReporter struct {
	W io.Writer
}

func (lr *LineReporter) Finding(f Finding) {
	fmt.Fprintf(lr.W, "ERROR: %s\n", f)
}

func (lr *LineReporter) Info(msg string) {
	fmt.Fprintln(lr.W, msg)
}

// Recorder retains every finding and info line, for summaries and tests.
type Recorder struct {
	Findings []Finding
	Infos    []string
}

func (r *Recorder) Finding(f Finding) {
	r.Findings = append(r.Findings, f)
}

func (r *Recorder) Info(msg string) {
	r.Infos = append(r.Infos, msg)
}

// Count returns the number of recorded findings of the given kind.
func (r *Recorder) Count(kind FindingKind) int {
	var n int
	for _, f := range r.Findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// MultiReporter fans every diagnostic out to each reporter in order.
type MultiReporter []Reporter

func (mr MultiReporter) Finding(f Finding) {
	for _, r := range mr {
		r.Finding(f)
	}
}

func (mr MultiReporter) Info(msg string) {
	for _, r := range mr {
		r.Info(msg)
	}
}
