package value

import "testing"

func TestDebugTableLocate(t *testing.T) {
	dt := &DebugTable{}
	dt.Record(0, 1, 1, "var a = 1")
	dt.Record(9, 2, 1, "var b = a / 0")

	e, ok := dt.Locate(4)
	if !ok || e.Line != 1 {
		t.Fatalf("offset 4: got line %d, ok=%t", e.Line, ok)
	}
	e, ok = dt.Locate(9)
	if !ok || e.Line != 2 {
		t.Fatalf("offset 9: got line %d, ok=%t", e.Line, ok)
	}
	e, ok = dt.Locate(40)
	if !ok || e.Line != 2 {
		t.Fatalf("offset past last entry: got line %d, ok=%t", e.Line, ok)
	}
	if _, ok := dt.Locate(-1); ok {
		t.Fatal("located an entry before the first offset")
	}

	var empty *DebugTable
	if _, ok := empty.Locate(0); ok {
		t.Fatal("nil table located an entry")
	}
}
