package pathoram

import "crypto/subtle"

// findInStashConstantTime searches the stash without a data-dependent
// early exit: it always walks the entire stash regardless of where (or
// whether) blockID matches. Returns (index, data) with index == -1 if
// blockID is absent.
func (c *Client) findInStashConstantTime(blockID int) (int, []byte) {
	foundIdx := -1
	result := make([]byte, c.cfg.BlockSize)

	for i := range c.stash {
		match := subtle.ConstantTimeEq(int32(c.stash[i].id), int32(blockID))
		foundIdx = subtle.ConstantTimeSelect(match, i, foundIdx)
		subtle.ConstantTimeCopy(match, result, c.stash[i].data)
	}
	return foundIdx, result
}

// canPlaceAtConstantTime is canPlaceAt without early exit: it always
// walks the full leaf-to-root chain instead of returning as soon as a
// match is found, so the number of comparisons performed does not leak
// which node on the path matched.
func (c *Client) canPlaceAtConstantTime(leaf, nodeIdx int) bool {
	leafBucket := c.numLeaves - 1 + leaf
	found := 0

	for level := 0; level <= c.height; level++ {
		b := leafBucket
		for j := 0; j < level; j++ {
			if b == 0 {
				break
			}
			b = (b - 1) / 2
		}
		found |= subtle.ConstantTimeEq(int32(b), int32(nodeIdx))
	}
	return found == 1
}

// evictConstantTime performs the level-by-level eviction without early
// exits: it always scores every stash entry against every path node and
// every bucket slot, and writes back every bucket on the path regardless
// of whether it changed. The placement step itself is not branch-free: it
// branches on the computed canPlace and shouldPlace values.
// Intended for TEE-style deployments where instruction traces, not just
// bucket access counts, are observable to the host. Ordinary deployments
// get the same bucket-level access pattern without paying this cost, so
// this mode is opt-in rather than the default.
func (c *Client) evictConstantTime(server *Server, path []int) error {
	slots := make([][]stashEntry, len(path))
	slotFull := make([][]int, len(path))
	for i := range path {
		slotFull[i] = make([]int, c.cfg.BucketSize)
	}

	placedMask := make([]int, len(c.stash))

	for si := range c.stash {
		b := c.stash[si]
		placed := 0

		for level, nodeIdx := range path {
			canPlace := 0
			if c.canPlaceAtConstantTime(b.leaf, nodeIdx) {
				canPlace = 1
			}
			for slot := 0; slot < c.cfg.BucketSize; slot++ {
				isEmpty := subtle.ConstantTimeEq(int32(slotFull[level][slot]), 0)
				shouldPlace := canPlace & isEmpty & (1 ^ placed)
				if shouldPlace == 1 {
					slots[level] = append(slots[level], b)
					slotFull[level][slot] = 1
					placed = 1
				}
			}
		}
		placedMask[si] = placed
	}

	var newStash []stashEntry
	for si, b := range c.stash {
		if placedMask[si] == 0 {
			newStash = append(newStash, b)
		}
	}
	c.stash = newStash

	for level, nodeIdx := range path {
		if err := c.sealBucket(server, nodeIdx, slots[level]); err != nil {
			return err
		}
	}

	if len(c.stash) > c.cfg.StashLimit {
		return ErrStashOverflow
	}
	return nil
}
