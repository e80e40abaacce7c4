package vector

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// On-disk layout, little-endian: magic (4), format version (4), dimension (4),
// vector count (4), then count*dimension float32 values. The only lossy step
// in a round trip is the float32 representation itself.
const (
	codecMagic   uint32 = 0x46515856 // "FQXV"
	codecVersion uint32 = 1
)

// Save writes the store to path, creating parent directories as needed.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create index dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	header := []uint32{codecMagic, codecVersion, uint32(s.dimension), uint32(len(s.vectors))}
	for _, v := range header {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write index header: %w", err)
		}
	}
	for _, vec := range s.vectors {
		if _, err := f.Write(float32SliceToBytes(vec)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// LoadStore reads a store previously written by Save. Version mismatch,
// truncation, or an inconsistent header fails with ErrCorruptState; the
// caller is expected to fall back to a fresh build.
func LoadStore(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var magic, version, dim, count uint32
	for _, p := range []*uint32{&magic, &version, &dim, &count} {
		if err := binary.Read(f, binary.LittleEndian, p); err != nil {
			return nil, fmt.Errorf("%w: short header: %v", ErrCorruptState, err)
		}
	}
	if magic != codecMagic {
		return nil, fmt.Errorf("%w: bad magic %#x", ErrCorruptState, magic)
	}
	if version != codecVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorruptState, version)
	}
	if count > 0 && dim == 0 {
		return nil, fmt.Errorf("%w: zero dimension with %d vectors", ErrCorruptState, count)
	}

	s := &Store{dimension: int(dim), vectors: make([][]float32, 0, count)}
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, fmt.Errorf("%w: truncated vector data at %d/%d: %v", ErrCorruptState, i, count, err)
		}
		s.vectors = append(s.vectors, bytesToFloat32Slice(buf))
	}
	// Trailing bytes mean the header lied about the count.
	var extra [1]byte
	if _, err := f.Read(extra[:]); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after %d vectors", ErrCorruptState, count)
	}
	return s, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
