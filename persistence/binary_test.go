package persistence

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeader() Header {
	return Header{
		TimeStep:         5,
		CellSize:         10,
		BBoxMin:          [3]float32{0, 0, 0},
		BBoxMax:          [3]float32{100, 100, 50},
		NumEntries:       2,
		NumTrajectoryIDs: 3,
	}
}

func TestHeaderWireLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIndexWriter(&buf).WriteHeader(testHeader()))
	require.Equal(t, HeaderSize, buf.Len())

	b := buf.Bytes()
	assert.Equal(t, []byte("THST"), b[0:4])
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(b[4:8]))
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(b[8:12]))
	assert.Equal(t, uint32(0x41200000), binary.LittleEndian.Uint32(b[12:16])) // float32(10)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[40:44]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(b[44:48]))
	assert.Equal(t, bytes.Repeat([]byte{0}, 16), b[48:64])
}

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIndexWriter(&buf).WriteHeader(testHeader()))

	got, err := NewIndexReader(&buf).ReadHeader()
	require.NoError(t, err)

	want := testHeader()
	want.Magic = Magic
	want.Version = Version
	assert.Equal(t, want, got)
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIndexWriter(&buf).WriteHeader(testHeader()))

	b := buf.Bytes()
	b[0] = 'X'
	_, err := NewIndexReader(bytes.NewReader(b)).ReadHeader()
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestReadHeaderRejectsBadVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIndexWriter(&buf).WriteHeader(testHeader()))

	b := buf.Bytes()
	binary.LittleEndian.PutUint32(b[4:8], 99)
	_, err := NewIndexReader(bytes.NewReader(b)).ReadHeader()
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestEntryWireLayout(t *testing.T) {
	entries := []Entry{{Key: 0x0102030405060708, Start: 7, Count: 9}}

	var buf bytes.Buffer
	require.NoError(t, NewIndexWriter(&buf).WriteEntries(entries))
	require.Equal(t, EntrySize, buf.Len())

	b := buf.Bytes()
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, b[0:8])
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(b[8:12]))
	assert.Equal(t, uint32(9), binary.LittleEndian.Uint32(b[12:16]))
}

func TestEntriesRoundTrip(t *testing.T) {
	entries := make([]Entry, 3000) // spans multiple write chunks
	for i := range entries {
		entries[i] = Entry{Key: uint64(i) * 17, Start: uint32(i), Count: uint32(i % 5)}
	}

	var buf bytes.Buffer
	require.NoError(t, NewIndexWriter(&buf).WriteEntries(entries))
	require.Equal(t, len(entries)*EntrySize, buf.Len())

	got, err := NewIndexReader(&buf).ReadEntries(len(entries))
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestIDsRoundTrip(t *testing.T) {
	ids := make([]uint32, 10000)
	for i := range ids {
		ids[i] = uint32(i * 3)
	}

	var buf bytes.Buffer
	require.NoError(t, NewIndexWriter(&buf).WriteIDs(ids))
	require.Equal(t, len(ids)*IDSize, buf.Len())

	raw := append([]byte(nil), buf.Bytes()...)
	got, err := NewIndexReader(&buf).ReadIDs(len(ids))
	require.NoError(t, err)
	assert.Equal(t, ids, got)

	assert.Equal(t, ids, DecodeIDs(raw))
	assert.Empty(t, DecodeIDs(nil))
}

func TestWriteIndexOffsets(t *testing.T) {
	h := testHeader()
	entries := []Entry{{Key: 0, Start: 0, Count: 2}, {Key: 3, Start: 2, Count: 1}}
	ids := []uint32{1, 3, 2}

	var buf bytes.Buffer
	require.NoError(t, WriteIndex(&buf, h, entries, ids))
	require.Equal(t, FileSize(2, 3), int64(buf.Len()))

	b := buf.Bytes()
	idsOff := IDsOffset(2)
	require.Equal(t, int64(96), idsOff)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(b[idsOff:]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(b[IDOffset(2, 1):]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[IDOffset(2, 2):]))
}

func TestEmptySections(t *testing.T) {
	var buf bytes.Buffer
	iw := NewIndexWriter(&buf)
	require.NoError(t, iw.WriteEntries(nil))
	require.NoError(t, iw.WriteIDs(nil))
	assert.Zero(t, buf.Len())

	ir := NewIndexReader(&buf)
	entries, err := ir.ReadEntries(0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	ids, err := ir.ReadIDs(0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
