package alloc

import "testing"

func TestAllocatorBasic(t *testing.T) {
	a := New(100)

	addr1 := a.Alloc(50, "header")
	if addr1 != 100 {
		t.Errorf("expected first allocation at 100, got %d", addr1)
	}
	addr2 := a.Alloc(30, "chunk")
	if addr2 != 150 {
		t.Errorf("expected second allocation at 150, got %d", addr2)
	}
	if a.EOF() != 180 {
		t.Errorf("expected EOF 180, got %d", a.EOF())
	}
}

func TestAllocatorZeroSize(t *testing.T) {
	a := New(100)
	if addr := a.Alloc(0, "empty"); addr != 100 {
		t.Errorf("expected zero-size allocation at 100, got %d", addr)
	}
	if a.EOF() != 100 || len(a.Allocations()) != 0 {
		t.Error("zero-size allocation must not advance EOF or be recorded")
	}
}

func TestAllocatorAligned(t *testing.T) {
	a := New(101)
	if addr := a.AllocAligned(16, 8, "btree"); addr != 104 {
		t.Errorf("expected aligned address 104, got %d", addr)
	}
	if a.EOF() != 120 {
		t.Errorf("expected EOF 120, got %d", a.EOF())
	}
}

func TestAllocatorStats(t *testing.T) {
	a := New(0)
	a.Alloc(100, "a")
	a.Alloc(400, "b")
	a.Alloc(50, "c")

	s := a.Stats()
	if s.TotalAllocations != 3 || s.TotalBytesAlloc != 550 || s.LargestAlloc != 400 {
		t.Errorf("unexpected stats %+v", s)
	}
	if got := a.Allocations(); len(got) != 3 || got[1].Tag != "b" {
		t.Errorf("unexpected allocations %+v", got)
	}
}

func TestAllocatorValidate(t *testing.T) {
	a := New(64)
	a.Alloc(10, "x")
	a.AllocAligned(10, 8, "y")
	if err := a.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}
