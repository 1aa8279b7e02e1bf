package mmap

import "errors"

// AccessPattern is a kernel hint for how mapped data will be read.
type AccessPattern int

const (
	// AccessDefault leaves the kernel's readahead untouched.
	AccessDefault AccessPattern = iota
	// AccessSequential expects front-to-back reads.
	AccessSequential
	// AccessRandom expects scattered reads, as in binary searches.
	AccessRandom
	// AccessWillNeed asks for the pages to be faulted in soon.
	AccessWillNeed
	// AccessDontNeed marks the pages as cold.
	AccessDontNeed
)

var (
	// ErrClosed is returned when a closed mapping is accessed.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for files whose size cannot be mapped.
	ErrInvalidSize = errors.New("mmap: invalid file size")
	// ErrOutOfBounds is returned for a region outside the mapping.
	ErrOutOfBounds = errors.New("mmap: out of bounds")
	// ErrInvalidOffset is returned for a negative read offset.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)
