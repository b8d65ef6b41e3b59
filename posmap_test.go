package pathoram

import "testing"

func TestInMemoryPositionMap(t *testing.T) {
	p := NewInMemoryPositionMap()

	if _, ok := p.Get(5); ok {
		t.Error("expected no entry for unset id")
	}
	if p.Size() != 0 {
		t.Errorf("Size() = %d, want 0", p.Size())
	}

	p.Set(5, 3)
	leaf, ok := p.Get(5)
	if !ok || leaf != 3 {
		t.Errorf("Get(5) = (%d, %v), want (3, true)", leaf, ok)
	}
	if p.Size() != 1 {
		t.Errorf("Size() = %d, want 1", p.Size())
	}

	p.Set(5, 7) // overwrite, size must not double-count
	leaf, ok = p.Get(5)
	if !ok || leaf != 7 {
		t.Errorf("Get(5) after overwrite = (%d, %v), want (7, true)", leaf, ok)
	}
	if p.Size() != 1 {
		t.Errorf("Size() after overwrite = %d, want 1", p.Size())
	}
}

func TestNewInitializedPositionMap(t *testing.T) {
	const numBlocks = 10
	const numLeaves = 8
	next := 0
	randLeaf := func() int {
		l := next % numLeaves
		next++
		return l
	}

	p := NewInitializedPositionMap(numBlocks, randLeaf)
	if p.Size() != numBlocks {
		t.Fatalf("Size() = %d, want %d", p.Size(), numBlocks)
	}
	for id := 0; id < numBlocks; id++ {
		if _, ok := p.Get(id); !ok {
			t.Errorf("id %d has no assigned leaf after construction", id)
		}
	}
}
