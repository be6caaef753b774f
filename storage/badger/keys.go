package badger

import (
	"encoding/binary"

	"github.com/poiesic/docqa/core"
)

const (
	chunkPrefix   = "chunk:"
	chunkIDPrefix = "chunkid:"
	manifestKey   = "manifest"
)

// makeChunkKey generates the primary key for a chunk at a store position.
// Format: prefix:position (BigEndian so iteration follows insertion order)
func makeChunkKey(position uint64) []byte {
	buf := make([]byte, len(chunkPrefix)+8)
	offset := copy(buf, chunkPrefix)
	binary.BigEndian.PutUint64(buf[offset:], position)
	return buf
}

// positionFromChunkKey extracts the position from a primary chunk key.
func positionFromChunkKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(chunkPrefix):])
}

// makeChunkIDKey generates the index key mapping a chunk ID to its position.
func makeChunkIDKey(id core.ID) []byte {
	buf := make([]byte, len(chunkIDPrefix)+8)
	offset := copy(buf, chunkIDPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// chunkKeyUpperBound is the first key after every chunk key, used to seek
// backwards to the last stored chunk.
func chunkKeyUpperBound() []byte {
	return makeChunkKey(^uint64(0))
}
