package disk

// Geometry of a vsfs image. These are fixed properties of the format
// version this checker understands; the superblock is validated against
// them but never used in their place.
const (
	Magic = 0xD34D

	BlockSize   = 4096
	TotalBlocks = 64

	SuperblockBlockNo  = 0
	InodeBitmapBlockNo = 1
	DataBitmapBlockNo  = 2
	InodeTableStart    = 3
	InodeTableBlocks   = 5
	DataBlockStart     = 8

	InodeSize      = 256
	InodesPerBlock = BlockSize / InodeSize
	MaxInodes      = InodesPerBlock * InodeTableBlocks
	MaxDataBlocks  = TotalBlocks - DataBlockStart

	SizeSuperblock = BlockSize
	SizeInode      = InodeSize
)

// Superblock is the on-disk record at block 0, packed little-endian,
// exactly one block long.
type Superblock struct {
	Magic            uint16
	BlockSize        uint32
	TotalBlocks      uint32
	InodeBitmapBlock uint32
	DataBitmapBlock  uint32
	InodeTableStart  uint32
	DataBlockStart   uint32
	InodeSize        uint32
	InodeCount       uint32
	Reserved         [4062]uint8
}

// Inode is one fixed-size record of the inode table, packed little-endian.
// Direct and the three indirect pointers are indices into the data region,
// not absolute block numbers.
type Inode struct {
	Mode           uint32
	UID            uint32
	GID            uint32
	Size           uint32
	Atime          uint32
	Ctime          uint32
	Mtime          uint32
	Dtime          uint32
	Links          uint32
	Blocks         uint32
	Direct         uint32
	Indirect       uint32
	DoubleIndirect uint32
	TripleIndirect uint32
	Reserved       [200]uint8
}
