package pathoram

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// opType distinguishes the three public operations that route through the
// single internal access method.
type opType int

const (
	opRead opType = iota
	opWrite
	opDelete
)

// stashEntry is the client's internal plaintext representation of a
// stashed block: an id, the leaf it is currently assigned to, and its
// data.
type stashEntry struct {
	id   int
	leaf int
	data []byte
}

// Client owns the secret key, the position map, and the stash. It
// implements the Path ORAM access algorithm: for every logical operation
// it reads a full root-to-leaf path into the stash, optionally mutates
// the stash entry, and writes the path back with greedy deepest-legal
// placement and dummy padding.
//
// A Client is not safe for concurrent use by multiple goroutines: one
// access runs to completion before the next begins, so no lock is taken —
// none is needed under the single-client assumption.
type Client struct {
	cfg       Config
	height    int
	numLeaves int

	env *Envelope // holds the client's secret key material; never logged, never serialized

	posMap PositionMap
	stash  []stashEntry
}

// NewClient constructs a Client that can address NumBlocks logical
// blocks. It generates its own KeySize-byte secret key and initializes
// the position map with an independent uniform random leaf for every
// block id, so no id is ever looked up before it has an assignment. The
// server the client will operate against is not bound at construction —
// it is passed explicitly to RetrieveData/StoreData/DeleteData, so one
// client can drive more than one server instance.
func NewClient(cfg Config) (*Client, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	height, numLeaves, _ := cfg.ComputeTreeParams()

	keyBytes := make([]byte, KeySize)
	if _, err := rand.Read(keyBytes); err != nil {
		return nil, fmt.Errorf("%w: generate client key: %v", ErrInternal, err)
	}

	env, err := NewEnvelope(keyBytes, cfg.BlockSize, cfg.NumBlocks)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:       cfg,
		height:    height,
		numLeaves: numLeaves,
		env:       env,
	}
	c.posMap = NewInitializedPositionMap(cfg.NumBlocks, c.randomLeaf)
	return c, nil
}

// Capacity returns the number of blocks this client can address.
func (c *Client) Capacity() int { return c.cfg.NumBlocks }

// Height returns the tree height H.
func (c *Client) Height() int { return c.height }

// NumLeaves returns 2^H.
func (c *Client) NumLeaves() int { return c.numLeaves }

// StashSize returns the current number of blocks held in the stash.
func (c *Client) StashSize() int { return len(c.stash) }

// BlockSize returns the configured payload size in bytes.
func (c *Client) BlockSize() int { return c.cfg.BlockSize }

// RetrieveData reads the block with the given id. Fails with ErrNotFound
// if the block has never been stored.
func (c *Client) RetrieveData(server *Server, blockID int) ([]byte, error) {
	if err := c.checkID(blockID); err != nil {
		return nil, err
	}
	data, found, err := c.access(server, opRead, blockID, nil)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return data, nil
}

// StoreData creates or overwrites the block with the given id.
func (c *Client) StoreData(server *Server, blockID int, data []byte) error {
	if err := c.checkID(blockID); err != nil {
		return err
	}
	if len(data) != c.cfg.BlockSize {
		return ErrInvalidDataSize
	}
	_, _, err := c.access(server, opWrite, blockID, data)
	return err
}

// DeleteData removes the block with the given id. Fails with ErrNotFound
// if the block is absent.
func (c *Client) DeleteData(server *Server, blockID int) error {
	if err := c.checkID(blockID); err != nil {
		return err
	}
	_, found, err := c.access(server, opDelete, blockID, nil)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// Access is a thin alias over the op-based entry point, offered for
// callers that prefer naming the operation explicitly rather than
// calling RetrieveData/StoreData/DeleteData. op == opDelete is not
// reachable through this alias (delete has no data payload to carry);
// use DeleteData directly.
func (c *Client) Access(isWrite bool, server *Server, blockID int, newData []byte) ([]byte, error) {
	if err := c.checkID(blockID); err != nil {
		return nil, err
	}
	if isWrite {
		if len(newData) != c.cfg.BlockSize {
			return nil, ErrInvalidDataSize
		}
		_, _, err := c.access(server, opWrite, blockID, newData)
		return nil, err
	}
	data, found, err := c.access(server, opRead, blockID, nil)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return data, nil
}

func (c *Client) checkID(blockID int) error {
	if blockID < 0 || blockID >= c.cfg.NumBlocks {
		return ErrInvalidID
	}
	return nil
}

// randomLeaf returns a cryptographically random leaf index in [0, numLeaves).
func (c *Client) randomLeaf() int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(c.numLeaves)))
	if err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return int(n.Int64())
}

// path returns the H+1 node indices on the root-to-leaf path for leaf,
// ordered leaf-first (index 0 is the leaf's own bucket, the last entry is
// the root). Eviction walks this slice in order, which is exactly
// leaf-to-root; reading walks it in any order since buckets are
// independent.
func (c *Client) path(leaf int) []int {
	path := make([]int, c.height+1)
	bucket := c.numLeaves - 1 + leaf
	for i := 0; i <= c.height; i++ {
		path[i] = bucket
		if bucket == 0 {
			break
		}
		bucket = (bucket - 1) / 2
	}
	return path
}

// canPlaceAt reports whether a block assigned to leaf may live in the
// bucket at nodeIdx, i.e. nodeIdx lies on leaf's root-to-leaf path.
func (c *Client) canPlaceAt(leaf, nodeIdx int) bool {
	for b := c.numLeaves - 1 + leaf; ; b = (b - 1) / 2 {
		if b == nodeIdx {
			return true
		}
		if b == 0 {
			return false
		}
	}
}

// access implements the single internal routine behind all three public
// operations: look up and remap the position, read the path into the
// stash, locate and mutate the target, then write the path back. newData
// is nil for opRead/opDelete.
func (c *Client) access(server *Server, op opType, blockID int, newData []byte) (data []byte, found bool, err error) {
	if !server.IsInitialized() {
		if err := c.fillServerWithDummies(server); err != nil {
			return nil, false, err
		}
	}

	leaf, _ := c.posMap.Get(blockID) // every valid id has an assignment from construction

	// Step 2: remap before any bucket I/O, so the leaf observed by the
	// server on this access is already stale.
	newLeaf := c.randomLeaf()
	c.posMap.Set(blockID, newLeaf)

	path := c.path(leaf)
	if err := c.readPathIntoStash(server, path); err != nil {
		return nil, false, err
	}

	var idx int
	var ctData []byte
	if c.cfg.ConstantTime {
		idx, ctData = c.findInStashConstantTime(blockID)
	} else {
		idx = c.findInStash(blockID)
	}

	switch op {
	case opRead:
		if idx == -1 {
			found = false
		} else {
			found = true
			if c.cfg.ConstantTime {
				data = ctData
			} else {
				data = append([]byte(nil), c.stash[idx].data...)
			}
			c.stash[idx].leaf = newLeaf
		}
	case opWrite:
		if idx == -1 {
			c.stash = append(c.stash, stashEntry{id: blockID, leaf: newLeaf, data: append([]byte(nil), newData...)})
		} else {
			c.stash[idx].leaf = newLeaf
			c.stash[idx].data = append([]byte(nil), newData...)
		}
		found = true
	case opDelete:
		if idx == -1 {
			found = false
		} else {
			found = true
			c.stash = append(c.stash[:idx], c.stash[idx+1:]...)
		}
	}

	if err := c.writePath(server, path); err != nil {
		return nil, false, err
	}
	return data, found, nil
}

// findInStash returns the stash index of blockID, or -1 if absent.
func (c *Client) findInStash(blockID int) int {
	for i := range c.stash {
		if c.stash[i].id == blockID {
			return i
		}
	}
	return -1
}

// readPathIntoStash decrypts every slot of every bucket on path, moving
// real blocks into the stash and discarding dummies and anything that
// fails to authenticate. The read does not clear the server's buckets:
// they keep their old ciphertexts, so a block read here is held both in
// the stash and on the server until writePath overwrites every bucket on
// path later in the same access.
func (c *Client) readPathIntoStash(server *Server, path []int) error {
	for _, nodeIdx := range path {
		blobs, err := server.ReadBucket(nodeIdx)
		if err != nil {
			return err
		}
		for _, ct := range blobs {
			block, status := c.env.Open(ct)
			switch status {
			case openOk:
				if !block.isDummy() {
					leaf, _ := c.posMap.Get(block.ID)
					c.stash = append(c.stash, stashEntry{id: block.ID, leaf: leaf, data: block.Data})
				}
			case openAuthFailed, openMalformed:
				continue // swallowed: dummy, foreign blob, or corruption
			}
		}
	}
	return nil
}

// writePath re-encrypts every slot of every bucket on path, leaf to root:
// at each node it takes the first up-to-BucketSize stash blocks eligible
// for that node (per the configured EvictionStrategy's placement order),
// seals them, and pads the remainder of the bucket with fresh encrypted
// dummies. Every slot of every bucket on the path changes ciphertext on
// every access, whether or not any logical block changed, so an observer
// watching ciphertexts alone cannot tell which block (if any) moved.
func (c *Client) writePath(server *Server, path []int) error {
	if c.cfg.ConstantTime {
		return c.evictConstantTime(server, path)
	}
	switch c.cfg.EvictionStrategy {
	case EvictGreedyByDepth:
		return c.evictGreedyByDepth(server, path)
	case EvictDeterministicTwoPath:
		if err := c.evictLevelByLevel(server, path); err != nil {
			return err
		}
		secondPath := c.path(c.randomLeaf())
		if err := c.readPathIntoStash(server, secondPath); err != nil {
			return err
		}
		return c.evictLevelByLevel(server, secondPath)
	default:
		return c.evictLevelByLevel(server, path)
	}
}

// sealBucket encrypts the given stash entries, pads to BucketSize with
// fresh encrypted dummies, and writes the result to nodeIdx.
func (c *Client) sealBucket(server *Server, nodeIdx int, placed []stashEntry) error {
	blobs := make([][]byte, 0, c.cfg.BucketSize)
	for _, b := range placed {
		ct, err := c.env.Seal(Block{ID: b.id, Data: b.data})
		if err != nil {
			return err
		}
		blobs = append(blobs, ct)
	}
	for len(blobs) < c.cfg.BucketSize {
		ct, err := c.env.Seal(Block{ID: EmptyBlockID, Data: dummyData(c.cfg.BlockSize)})
		if err != nil {
			return err
		}
		blobs = append(blobs, ct)
	}
	return server.WriteBucket(nodeIdx, blobs)
}
