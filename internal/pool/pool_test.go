package pool

import "testing"

func TestAcquireReleaseReuse(t *testing.T) {
	p := New(8)
	a := p.Acquire()
	p.Release(a)
	b := p.Acquire()
	if a != b {
		t.Errorf("expected released handle to be reused, got a=%d b=%d", a, b)
	}
}

func TestDisjointSlices(t *testing.T) {
	p := New(4)
	a := p.Acquire()
	b := p.Acquire()
	slices := p.GetMultipleMut([]Handle{a, b})
	slices[0][0] = 1
	slices[1][0] = 2
	if p.CopyOut(a)[0] != 1 || p.CopyOut(b)[0] != 2 {
		t.Error("expected independent writes to distinct buffers")
	}
}

func TestDuplicateHandlePanics(t *testing.T) {
	p := New(4)
	a := p.Acquire()
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate handle")
		}
	}()
	p.GetMultipleMut([]Handle{a, a})
}

func TestFillAndClear(t *testing.T) {
	p := New(4)
	h := p.Acquire()
	p.Fill(h, 3)
	for _, v := range p.CopyOut(h) {
		if v != 3 {
			t.Errorf("expected fill value 3, got %f", v)
		}
	}
	p.Clear(h)
	for _, v := range p.CopyOut(h) {
		if v != 0 {
			t.Errorf("expected cleared value 0, got %f", v)
		}
	}
}
