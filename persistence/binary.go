package persistence

import (
	"encoding/binary"
	"fmt"
	"io"
)

// writeChunk is the scratch buffer size for section writes. It is a
// multiple of both EntrySize and IDSize.
const writeChunk = 16 * 1024

// IndexWriter writes index files in the fixed little-endian layout.
// Sections must be written in file order: header, entries, ids.
type IndexWriter struct {
	w   io.Writer
	buf []byte
}

// NewIndexWriter creates a new writer on top of w.
func NewIndexWriter(w io.Writer) *IndexWriter {
	return &IndexWriter{w: w}
}

// WriteHeader writes the file header. Magic, Version and the reserved
// words are stamped unconditionally.
func (iw *IndexWriter) WriteHeader(h Header) error {
	h.Magic = Magic
	h.Version = Version
	h.Reserved = [4]uint32{}
	return binary.Write(iw.w, binary.LittleEndian, &h)
}

// WriteEntries writes the entry section. Entries must already be
// sorted strictly ascending by key.
func (iw *IndexWriter) WriteEntries(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if iw.buf == nil {
		iw.buf = make([]byte, writeChunk)
	}

	n := 0
	for _, e := range entries {
		binary.LittleEndian.PutUint64(iw.buf[n:], e.Key)
		binary.LittleEndian.PutUint32(iw.buf[n+8:], e.Start)
		binary.LittleEndian.PutUint32(iw.buf[n+12:], e.Count)
		n += EntrySize
		if n == len(iw.buf) {
			if _, err := iw.w.Write(iw.buf[:n]); err != nil {
				return err
			}
			n = 0
		}
	}
	if n > 0 {
		if _, err := iw.w.Write(iw.buf[:n]); err != nil {
			return err
		}
	}
	return nil
}

// WriteIDs writes the trajectory id section.
func (iw *IndexWriter) WriteIDs(ids []uint32) error {
	if len(ids) == 0 {
		return nil
	}
	if iw.buf == nil {
		iw.buf = make([]byte, writeChunk)
	}

	n := 0
	for _, id := range ids {
		binary.LittleEndian.PutUint32(iw.buf[n:], id)
		n += IDSize
		if n == len(iw.buf) {
			if _, err := iw.w.Write(iw.buf[:n]); err != nil {
				return err
			}
			n = 0
		}
	}
	if n > 0 {
		if _, err := iw.w.Write(iw.buf[:n]); err != nil {
			return err
		}
	}
	return nil
}

// WriteIndex writes a complete index file in one call.
func WriteIndex(w io.Writer, h Header, entries []Entry, ids []uint32) error {
	iw := NewIndexWriter(w)
	if err := iw.WriteHeader(h); err != nil {
		return err
	}
	if err := iw.WriteEntries(entries); err != nil {
		return err
	}
	return iw.WriteIDs(ids)
}

// IndexReader reads index files in the fixed little-endian layout.
// Sections must be read in file order: header, entries, ids.
type IndexReader struct {
	r io.Reader
}

// NewIndexReader creates a new reader on top of r.
func NewIndexReader(r io.Reader) *IndexReader {
	return &IndexReader{r: r}
}

// ReadHeader reads the file header and checks magic and version.
func (ir *IndexReader) ReadHeader() (Header, error) {
	var h Header
	if err := binary.Read(ir.r, binary.LittleEndian, &h); err != nil {
		return Header{}, err
	}
	if h.Magic != Magic {
		return Header{}, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: got %d", ErrInvalidVersion, h.Version)
	}
	return h, nil
}

// ReadEntries reads count entries.
func (ir *IndexReader) ReadEntries(count int) ([]Entry, error) {
	if count == 0 {
		return nil, nil
	}
	buf := make([]byte, count*EntrySize)
	if _, err := io.ReadFull(ir.r, buf); err != nil {
		return nil, err
	}
	return DecodeEntries(buf, count), nil
}

// ReadIDs reads count trajectory ids.
func (ir *IndexReader) ReadIDs(count int) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	buf := make([]byte, count*IDSize)
	if _, err := io.ReadFull(ir.r, buf); err != nil {
		return nil, err
	}
	return DecodeIDs(buf), nil
}

// DecodeEntries decodes count entries from their wire form.
// len(b) must be at least count*EntrySize.
func DecodeEntries(b []byte, count int) []Entry {
	entries := make([]Entry, count)
	for i := range entries {
		o := i * EntrySize
		entries[i] = Entry{
			Key:   binary.LittleEndian.Uint64(b[o:]),
			Start: binary.LittleEndian.Uint32(b[o+8:]),
			Count: binary.LittleEndian.Uint32(b[o+12:]),
		}
	}
	return entries
}

// DecodeIDs decodes len(b)/IDSize trajectory ids from their wire form.
func DecodeIDs(b []byte) []uint32 {
	ids := make([]uint32, len(b)/IDSize)
	for i := range ids {
		ids[i] = binary.LittleEndian.Uint32(b[i*IDSize:])
	}
	return ids
}
