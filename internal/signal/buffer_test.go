package signal

import "testing"

func TestRingWrapsOldest(t *testing.T) {
	r := NewRing(3)
	for _, v := range []float64{1, 2, 3, 4} {
		r.Push(v)
	}
	if r.Len() != 3 {
		t.Fatalf("expected len 3, got %d", r.Len())
	}
	got := r.Slice()
	want := []float64{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected slice %v", got)
		}
	}
}

func TestRingTail(t *testing.T) {
	r := NewRing(5)
	for _, v := range []float64{1, 2, 3, 4, 5, 6} {
		r.Push(v)
	}
	tail := r.Tail(2)
	if len(tail) != 2 || tail[0] != 5 || tail[1] != 6 {
		t.Fatalf("unexpected tail %v", tail)
	}
	// asking for more than stored returns what is there
	all := r.Tail(10)
	if len(all) != 5 || all[0] != 2 {
		t.Fatalf("unexpected tail %v", all)
	}
}

func TestRingAt(t *testing.T) {
	r := NewRing(3)
	r.Push(1)
	r.Push(2)

	if v, ok := r.At(0); !ok || v != 2 {
		t.Fatalf("At(0) = %v, %v", v, ok)
	}
	if v, ok := r.At(1); !ok || v != 1 {
		t.Fatalf("At(1) = %v, %v", v, ok)
	}
	if _, ok := r.At(2); ok {
		t.Fatal("expected At(2) to miss")
	}
}

func TestRingReset(t *testing.T) {
	r := NewRing(2)
	r.Push(1)
	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("expected empty ring, got len %d", r.Len())
	}
	if _, ok := r.At(0); ok {
		t.Fatal("expected miss after reset")
	}
}
