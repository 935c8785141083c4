package encoding

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRLE_RoundTrip(t *testing.T) {
	in := make([]uint16, 0, 200)
	in = append(in, 1, 1, 1, 2, 2, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 7)
	}
	in = append(in, 9, 10, 10, 10)

	out, err := DecodeRLE(EncodeRLE(in), 0)
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}

func TestDecodeRLE_Limit(t *testing.T) {
	enc := EncodeRLE([]uint16{4, 4, 4, 4})
	if _, err := DecodeRLE(enc, 3); err == nil {
		t.Fatalf("expected overflow error")
	}
	if _, err := DecodeRLE("not base64!", 0); err == nil {
		t.Fatalf("expected base64 error")
	}
}

func TestDecodeCube(t *testing.T) {
	cells := make([]uint16, CubeSize(1))
	cells[13] = 5 // center
	got, err := DecodeCube(EncodeRLE(cells), 1)
	if err != nil {
		t.Fatalf("DecodeCube: %v", err)
	}
	if len(got) != 27 || got[13] != 5 {
		t.Fatalf("unexpected cube %v", got)
	}
	if _, err := DecodeCube(EncodeRLE(cells[:26]), 1); err == nil {
		t.Fatalf("short cube accepted")
	}
	if _, err := DecodeCube(EncodeRLE(cells), -1); err == nil {
		t.Fatalf("negative radius accepted")
	}
}

func TestForEachCell_Order(t *testing.T) {
	var first, last [3]int
	n := 0
	ForEachCell(1, func(i, dx, dy, dz int) {
		if i != n {
			t.Fatalf("index %d at step %d", i, n)
		}
		if i == 0 {
			first = [3]int{dx, dy, dz}
		}
		if i == 13 && (dx != 0 || dy != 0 || dz != 0) {
			t.Fatalf("center at %d,%d,%d", dx, dy, dz)
		}
		last = [3]int{dx, dy, dz}
		n++
	})
	if n != 27 || first != [3]int{-1, -1, -1} || last != [3]int{1, 1, 1} {
		t.Fatalf("n=%d first=%v last=%v", n, first, last)
	}
}
