package pathoram

import (
	"fmt"
	"strconv"
)

// Block is a single plaintext record: a logical id and a fixed-width
// payload. id == EmptyBlockID marks a dummy used only for bucket padding;
// dummies never leave the client's process boundary in that form (see
// serializeBlock).
type Block struct {
	ID   int
	Data []byte
}

// dummyData returns the canonical dummy payload: blockSize repetitions of
// ASCII '0'.
func dummyData(blockSize int) []byte {
	d := make([]byte, blockSize)
	for i := range d {
		d[i] = '0'
	}
	return d
}

// isDummy reports whether b is the dummy sentinel.
func (b Block) isDummy() bool {
	return b.ID == EmptyBlockID
}

// serializeBlock encodes a block to its fixed-width wire form:
// an 8-digit zero-padded decimal id followed by the raw payload bytes.
// The in-memory dummy sentinel (-1) has no unsigned 8-digit encoding, so
// it is mapped to the reserved out-of-range id numBlocks (one past the
// largest valid id) for the wire form only; deserializeBlock reverses the
// mapping. Width is enforced in bytes, not characters — the payload may
// be any byte value, not just ASCII.
func serializeBlock(b Block, blockSize, numBlocks int) ([]byte, error) {
	if len(b.Data) != blockSize {
		return nil, ErrInvalidDataSize
	}
	wireID := b.ID
	if wireID == EmptyBlockID {
		wireID = numBlocks
	}
	if wireID < 0 {
		return nil, ErrInvalidID
	}
	idStr := strconv.Itoa(wireID)
	if len(idStr) > 8 {
		return nil, fmt.Errorf("%w: id %d does not fit in 8 digits", ErrInternal, wireID)
	}
	out := make([]byte, 8+blockSize)
	for i := 0; i < 8-len(idStr); i++ {
		out[i] = '0'
	}
	copy(out[8-len(idStr):8], idStr)
	copy(out[8:], b.Data)
	return out, nil
}

// deserializeBlock is the inverse of serializeBlock. It fails with
// ErrInternal if the width is wrong or the id prefix doesn't parse as
// decimal digits — both indicate a malformed plaintext, never a
// legitimate dummy or foreign blob (those are caught earlier, by AEAD/MAC
// verification).
func deserializeBlock(raw []byte, blockSize, numBlocks int) (Block, error) {
	if len(raw) != 8+blockSize {
		return Block{}, fmt.Errorf("%w: wrong serialized width", ErrInternal)
	}
	idStr := string(raw[:8])
	wireID, err := strconv.Atoi(idStr)
	if err != nil || wireID < 0 {
		return Block{}, fmt.Errorf("%w: malformed id prefix %q", ErrInternal, idStr)
	}
	id := wireID
	if wireID == numBlocks {
		id = EmptyBlockID
	}
	data := make([]byte, blockSize)
	copy(data, raw[8:])
	return Block{ID: id, Data: data}, nil
}
