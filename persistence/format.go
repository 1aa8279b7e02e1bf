package persistence

import "errors"

const (
	// Magic identifies spatial hash index files ("THST" on disk).
	Magic uint32 = 0x54534854
	// Version is the current file format version.
	Version uint32 = 1

	// HeaderSize is the fixed byte length of the file header.
	HeaderSize = 64
	// EntrySize is the byte length of one cell entry.
	EntrySize = 16
	// IDSize is the byte length of one trajectory id.
	IDSize = 4
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrCorrupted      = errors.New("corrupted index")
)

// Header is the 64-byte header at the start of every index file.
type Header struct {
	Magic            uint32
	Version          uint32
	TimeStep         uint32
	CellSize         float32
	BBoxMin          [3]float32
	BBoxMax          [3]float32
	NumEntries       uint32
	NumTrajectoryIDs uint32
	Reserved         [4]uint32 // written as zero, ignored on read
}

// Entry addresses one occupied cell: its Z-order key and the slice
// [Start, Start+Count) it owns in the trajectory id array.
type Entry struct {
	Key   uint64
	Start uint32
	Count uint32
}

// EntriesOffset is the file offset of the first entry.
const EntriesOffset = HeaderSize

// IDsOffset returns the file offset of the trajectory id array.
func IDsOffset(numEntries uint32) int64 {
	return HeaderSize + int64(numEntries)*EntrySize
}

// IDOffset returns the file offset of the id at position start within
// the id array.
func IDOffset(numEntries, start uint32) int64 {
	return IDsOffset(numEntries) + int64(start)*IDSize
}

// FileSize returns the total byte length of an index file with the
// given section counts.
func FileSize(numEntries, numIDs uint32) int64 {
	return IDsOffset(numEntries) + int64(numIDs)*IDSize
}
