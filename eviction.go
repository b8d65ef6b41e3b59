package pathoram

// fillServerWithDummies performs the one-time transition from
// Uninitialized to Initialized: every bucket in the tree is filled with
// BucketSize encrypted dummies. Called lazily on the client's first
// access against a given server.
func (c *Client) fillServerWithDummies(server *Server) error {
	for i := 0; i < server.NumBuckets(); i++ {
		if err := c.sealBucket(server, i, nil); err != nil {
			return err
		}
	}
	server.MarkInitialized()
	return nil
}

// evictLevelByLevel walks path leaf-to-root. At each node it takes the
// first up-to-BucketSize stash entries eligible for that node (in
// current stash order — tie-breaking among equally eligible blocks is
// unobservable, since every bucket is freshly re-encrypted regardless),
// seals them, and pads with dummies.
func (c *Client) evictLevelByLevel(server *Server, path []int) error {
	for _, nodeIdx := range path {
		var placed []stashEntry
		var remaining []stashEntry
		for _, b := range c.stash {
			if len(placed) < c.cfg.BucketSize && c.canPlaceAt(b.leaf, nodeIdx) {
				placed = append(placed, b)
			} else {
				remaining = append(remaining, b)
			}
		}
		if err := c.sealBucket(server, nodeIdx, placed); err != nil {
			return err
		}
		c.stash = remaining
	}
	if len(c.stash) > c.cfg.StashLimit {
		return ErrStashOverflow
	}
	return nil
}

// evictGreedyByDepth places each stash entry at the deepest node on path
// it is eligible for, processing stash entries instead of tree nodes.
// Reaches the same per-node occupancy as evictLevelByLevel when there is
// no contention for a slot; differs only in which of several eligible
// blocks lands where, which observability does not depend on.
func (c *Client) evictGreedyByDepth(server *Server, path []int) error {
	slots := make([][]stashEntry, len(path))

	remaining := append([]stashEntry(nil), c.stash...)
	i := 0
	for i < len(remaining) {
		b := remaining[i]
		placedAt := -1
		// path[0] is the leaf (deepest); path[len-1] is the root.
		for level := 0; level < len(path); level++ {
			if len(slots[level]) < c.cfg.BucketSize && c.canPlaceAt(b.leaf, path[level]) {
				placedAt = level
				break
			}
		}
		if placedAt >= 0 {
			slots[placedAt] = append(slots[placedAt], b)
			remaining = append(remaining[:i], remaining[i+1:]...)
			continue
		}
		i++
	}
	c.stash = remaining

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
