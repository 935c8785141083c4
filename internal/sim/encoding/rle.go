// Package encoding holds the compact voxel encodings used on the wire.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeRLE encodes a sequence of palette ids into base64(varint pairs).
// The pairs are (block_id, run_len) repeated.
func EncodeRLE(ids []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	for i := 0; i < len(ids); {
		b := ids[i]
		run := 1
		for j := i + 1; j < len(ids) && ids[j] == b && run < 1<<31; j++ {
			run++
		}
		n := binary.PutUvarint(tmp[:], uint64(b))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])
		i += run
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE expands at most limit ids; limit <= 0 means no limit.
func DecodeRLE(b64 string, limit int) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []uint16
	for i := 0; i < len(raw); {
		b, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if b > 0xFFFF {
			return nil, fmt.Errorf("block id too large: %d", b)
		}
		if limit > 0 && uint64(len(out))+run > uint64(limit) {
			return nil, fmt.Errorf("run of %d overflows %d ids", run, limit)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(b))
		}
	}
	return out, nil
}

// CubeSize is the number of cells in a cube of the given radius.
func CubeSize(radius int) int {
	dim := 2*radius + 1
	return dim * dim * dim
}

// DecodeCube decodes an RLE cube and checks it has exactly CubeSize cells.
func DecodeCube(b64 string, radius int) ([]uint16, error) {
	if radius < 0 {
		return nil, fmt.Errorf("negative radius %d", radius)
	}
	want := CubeSize(radius)
	ids, err := DecodeRLE(b64, want)
	if err != nil {
		return nil, err
	}
	if len(ids) != want {
		return nil, fmt.Errorf("cube of radius %d has %d cells, want %d", radius, len(ids), want)
	}
	return ids, nil
}

// ForEachCell visits a cube in wire order: dy outer, dz middle, dx inner.
func ForEachCell(radius int, fn func(i, dx, dy, dz int)) {
	i := 0
	for dy := -radius; dy <= radius; dy++ {
		for dz := -radius; dz <= radius; dz++ {
			for dx := -radius; dx <= radius; dx++ {
				fn(i, dx, dy, dz)
				i++
			}
		}
	}
}
