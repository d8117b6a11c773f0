// Package vsfsck checks a vsfs image for consistency between its declared
// metadata (superblock, inode bitmap, data bitmap) and the block and inode
// usage actually derivable from the inode table. It only reads: nothing is
// ever repaired or written back.
package vsfsck

import (
	"io"

	"github.com/vsfs-img/go-vsfsck/internal/disk"
)

// Checker runs the consistency checks against one image. The reader must
// cover the whole image; the checker re-reads blocks as needed and keeps
// no state between runs other than what CheckInodes resets.
//
// The individual check methods mirror the tool's named features and can be
// invoked separately, but they build on each other: LoadBitmaps must run
// before the bitmap-dependent checks, and CheckInodes populates the
// observed-usage state that CheckDataBitmap, CheckInodeBitmap and
// CheckDuplicateBlocks reconcile. Run invokes everything in order.
type Checker struct {
	r   io.ReaderAt
	rep Reporter

	superblock  disk.Superblock
	inodeBitmap []bool
	dataBitmap  []bool

	// Observed usage derived from the inode table during CheckInodes,
	// scoped to a single run.
	inodeUsed     [disk.MaxInodes]bool
	dataBlockUsed [disk.MaxDataBlocks]bool
	blockRefCount [disk.MaxDataBlocks]int
}

// New returns a Checker reading the image from r and reporting to rep.
func New(r io.ReaderAt, rep Reporter) *Checker {
	return &Checker{r: r, rep: rep}
}

// Check runs every check against the image in r, reporting diagnostics to
// rep. The returned error covers I/O failures only; inconsistencies in the
// image are findings, not errors.
func Check(r io.ReaderAt, rep Reporter) error {
	return New(r, rep).Run()
}

// Run executes all check phases in order. Every phase runs regardless of
// what earlier phases found; only an I/O failure stops a run.
func (c *Checker) Run() error {
	if err := c.ValidateSuperblock(); err != nil {
		return err
	}
	c.rep.Info("Superblock validation completed.")

	if err := c.LoadBitmaps(); err != nil {
		return err
	}
	c.rep.Info("Bitmaps loaded successfully.")

	if err := c.CheckInodes(); err != nil {
		return err
	}
	c.rep.Info("Inode checks completed.")

	c.CheckDataBitmap()
	c.CheckInodeBitmap()
	c.rep.Info("Bitmap consistency checks completed.")

	c.CheckDuplicateBlocks()
	if err := c.CheckBadBlocks(); err != nil {
		return err
	}
	c.rep.Info("Block reference checks completed.")

	return nil
}

// ValidateSuperblock decodes block 0 and reports a finding for every field
// that does not match the compiled geometry. The decoded superblock is
// retained for inspection but never consulted for locations or sizes.
func (c *Checker) ValidateSuperblock() error {
	b, err := readBlock(c.r, disk.SuperblockBlockNo)
	if err != nil {
		return err
	}
	sb, err := decodeSuperblock(b)
	if err != nil {
		return err
	}
	c.superblock = sb
	for _, f := range validateSuperblock(&sb) {
		c.rep.Finding(f)
	}
	return nil
}

// Superblock returns the decoded superblock from the last
// ValidateSuperblock call.
func (c *Checker) Superblock() disk.Superblock {
	return c.superblock
}

// LoadBitmaps reads and unpacks the inode and data usage bitmaps.
func (c *Checker) LoadBitmaps() error {
	b, err := readBlock(c.r, disk.InodeBitmapBlockNo)
	if err != nil {
		return err
	}
	c.inodeBitmap = decodeBitmap(b, disk.MaxInodes)

	b, err = readBlock(c.r, disk.DataBitmapBlockNo)
	if err != nil {
		return err
	}
	c.dataBitmap = decodeBitmap(b, disk.MaxDataBlocks)
	return nil
}

// CheckInodes scans the whole inode table once. For every inode it compares
// validity (links > 0 and dtime == 0) against the inode bitmap, and for
// valid inodes it validates the direct block pointer and accounts its usage.
//
// Only the direct pointer feeds the observed-usage state; the three
// indirect pointers are range-checked by CheckBadBlocks but never counted.
// A block reachable only through an indirect pointer therefore always shows
// up as marked-but-unreferenced even on a correct image. That asymmetry is
// a known property of this checker, kept for output parity.
func (c *Checker) CheckInodes() error {
	c.inodeUsed = [disk.MaxInodes]bool{}
	c.dataBlockUsed = [disk.MaxDataBlocks]bool{}
	c.blockRefCount = [disk.MaxDataBlocks]int{}

	for i := 0; i < disk.MaxInodes; i++ {
		ino, err := readInode(c.r, i)
		if err != nil {
			return err
		}
		valid := inodeValid(&ino)

		if c.inodeBitmap[i] && !valid {
			c.rep.Finding(Finding{Kind: FindingInodeMarkedButInvalid, Inode: i})
		}
		if !c.inodeBitmap[i] && valid {
			c.rep.Finding(Finding{Kind: FindingInodeValidButUnmarked, Inode: i})
		}
		if !valid {
			continue
		}
		c.inodeUsed[i] = true

		direct := int64(ino.Direct)
		if direct >= disk.MaxDataBlocks {
			c.rep.Finding(Finding{Kind: FindingInvalidDirectBlock, Inode: i, Block: direct})
			continue
		}
		c.dataBlockUsed[direct] = true
		c.blockRefCount[direct]++
		if !c.dataBitmap[direct] {
			c.rep.Finding(Finding{Kind: FindingBlockNotInDataBitmap, Inode: i, Block: direct})
		}
	}
	return nil
}

// CheckDataBitmap reconciles the declared data bitmap against the usage
// observed by CheckInodes, both directions, and flags blocks referenced by
// more than one inode. All three checks are independent per block.
func (c *Checker) CheckDataBitmap() {
	for i := int64(0); i < disk.MaxDataBlocks; i++ {
		if c.dataBitmap[i] && !c.dataBlockUsed[i] {
			c.rep.Finding(Finding{Kind: FindingBlockMarkedButUnreferenced, Block: i})
		}
		if !c.dataBitmap[i] && c.dataBlockUsed[i] {
			c.rep.Finding(Finding{Kind: FindingBlockUsedButUnmarked, Block: i})
		}
		if c.blockRefCount[i] > 1 {
			c.rep.Finding(Finding{Kind: FindingDuplicateBlockRef, Block: i})
		}
	}
}

// CheckInodeBitmap reconciles the declared inode bitmap against the usage
// observed by CheckInodes. If the whole bitmap agrees, a single success
// line is reported instead.
func (c *Checker) CheckInodeBitmap() {
	var mismatches int
	for i := 0; i < disk.MaxInodes; i++ {
		if c.inodeBitmap[i] && !c.inodeUsed[i] {
			mismatches++
			c.rep.Finding(Finding{Kind: FindingInodeMarkedButUnused, Inode: i})
		}
		if !c.inodeBitmap[i] && c.inodeUsed[i] {
			mismatches++
			c.rep.Finding(Finding{Kind: FindingInodeUsedButUnmarked, Inode: i})
		}
	}
	if mismatches == 0 {
		c.rep.Info("Inode bitmap is consistent.")
	}
}

// CheckDuplicateBlocks re-reports every data block referenced by more than
// one inode under its own label. Duplicates found here were already flagged
// by CheckDataBitmap; the two checks are deliberately separate features
// with overlapping output.
func (c *Checker) CheckDuplicateBlocks() {
	var found bool
	for i := int64(0); i < disk.MaxDataBlocks; i++ {
		if c.blockRefCount[i] > 1 {
			c.rep.Finding(Finding{Kind: FindingDuplicateBlockRef, Block: i})
			found = true
		}
	}
	if !found {
		c.rep.Info("No duplicate data block references found.")
	}
}

// CheckBadBlocks re-reads every inode and range-checks all four block
// pointers of the valid ones. Zero means absent for the three indirect
// pointers and is never flagged there, while a direct pointer of zero is a
// legal reference to data block 0.
func (c *Checker) CheckBadBlocks() error {
	var found bool
	for i := 0; i < disk.MaxInodes; i++ {
		ino, err := readInode(c.r, i)
		if err != nil {
			return err
		}
		if !inodeValid(&ino) {
			continue
		}

		if ino.Direct >= disk.MaxDataBlocks {
			c.rep.Finding(Finding{Kind: FindingInvalidDirectBlock, Inode: i, Block: int64(ino.Direct)})
			found = true
		}
		if ino.Indirect >= disk.MaxDataBlocks && ino.Indirect != 0 {
			c.rep.Finding(Finding{Kind: FindingInvalidIndirectBlock, Inode: i, Block: int64(ino.Indirect)})
			found = true
		}
		if ino.DoubleIndirect >= disk.MaxDataBlocks && ino.DoubleIndirect != 0 {
			c.rep.Finding(Finding{Kind: FindingInvalidDoubleIndirectBlock, Inode: i, Block: int64(ino.DoubleIndirect)})
			found = true
		}
		if ino.TripleIndirect >= disk.MaxDataBlocks && ino.TripleIndirect != 0 {
			c.rep.Finding(Finding{Kind: FindingInvalidTripleIndirectBlock, Inode: i, Block: int64(ino.TripleIndirect)})
			found = true
		}
	}
	if !found {
		c.rep.Info("No invalid block references found in inodes.")
	}
	return nil
}
