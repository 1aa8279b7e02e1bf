// Package persistence defines the binary file format for spatial hash
// indices and its little-endian codec.
//
// One file holds the index for one (cell size, time step) pair:
//
//	offset 0    Header      64 bytes, fixed
//	offset 64   Entries     NumEntries × 16 bytes, ascending by key
//	            IDs         NumTrajectoryIDs × 4 bytes, grouped per
//	                        cell in entry order
//
// All integers and floats are encoded little-endian regardless of the
// host, so files written on one machine load on any other. The id
// section sits at a computable offset (IDsOffset), which is what makes
// lazy per-cell id fetches possible without reading the whole file.
package persistence
