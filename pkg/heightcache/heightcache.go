// Package heightcache stores measured item heights so a later layout session
// can be seeded without measuring every item again.
//
// The on-disk form is a small header followed by the heights as float32 bit
// patterns, delta encoded and LZ4 block compressed. Neighbouring items in a
// feed tend to share heights, which the delta pass turns into runs of zeros.
package heightcache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/masonry/pkg/positioner"
	"github.com/Sumatoshi-tech/masonry/pkg/safeconv"
)

// Sentinel decoding errors.
var (
	ErrBadMagic  = errors.New("not a height cache")
	ErrVersion   = errors.New("unsupported height cache version")
	ErrTruncated = errors.New("height cache truncated")
)

const (
	formatVersion = 1

	// Payload encodings.
	encodingRaw = 0
	encodingLZ4 = 1

	float32Size = 4

	// maxLZ4Ratio is the largest expansion an LZ4 block can encode.
	maxLZ4Ratio = 255
)

var magic = []byte("MSNH")

// Snapshot is the measured height of every item in a positioned prefix.
type Snapshot struct {
	// ColumnWidth is the width the heights were measured at. Heights of
	// reflowing content are only valid for the same width.
	ColumnWidth float64
	Heights     []float64
}

// Capture returns the heights of items 0..n-1, stopping at the first index
// that is not positioned.
func Capture(p *positioner.Positioner) Snapshot {
	snap := Snapshot{ColumnWidth: p.ColumnWidth()}

	for index := 0; ; index++ {
		item, ok := p.Get(index)
		if !ok {
			break
		}

		snap.Heights = append(snap.Heights, item.Height)
	}

	return snap
}

// Compatible reports whether the snapshot was measured at columnWidth.
func (s Snapshot) Compatible(columnWidth float64) bool {
	return float32(s.ColumnWidth) == float32(columnWidth)
}

// Seed positions the first limit heights into p, in index order, and returns
// how many were set. A negative limit seeds every height.
func (s Snapshot) Seed(p *positioner.Positioner, limit int) int {
	count := len(s.Heights)
	if limit >= 0 {
		count = min(count, limit)
	}

	for index, height := range s.Heights[:count] {
		p.Set(index, height)
	}

	return count
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s Snapshot) MarshalBinary() ([]byte, error) {
	bits := make([]uint32, len(s.Heights))
	for i, h := range s.Heights {
		bits[i] = math.Float32bits(float32(h))
	}

	deltaEncode(bits)

	raw := make([]byte, len(bits)*float32Size)
	for i, b := range bits {
		binary.LittleEndian.PutUint32(raw[i*float32Size:], b)
	}

	payload, encoding := raw, byte(encodingRaw)

	if len(raw) > 0 {
		compressed := make([]byte, lz4.CompressBlockBound(len(raw)))

		written, err := lz4.CompressBlock(raw, compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("compress heights: %w", err)
		}

		// Zero means the block did not compress.
		if written > 0 && written < len(raw) {
			payload, encoding = compressed[:written], encodingLZ4
		}
	}

	out := make([]byte, 0, len(magic)+2+float32Size+2*binary.MaxVarintLen64+len(payload))
	out = append(out, magic...)
	out = append(out, formatVersion, encoding)
	out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(s.ColumnWidth)))
	out = binary.AppendUvarint(out, uint64(len(s.Heights)))
	out = binary.AppendUvarint(out, uint64(len(payload)))
	out = append(out, payload...)

	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *Snapshot) UnmarshalBinary(data []byte) error {
	if !bytes.HasPrefix(data, magic) {
		return ErrBadMagic
	}

	data = data[len(magic):]

	if len(data) < 2+float32Size {
		return ErrTruncated
	}

	if data[0] != formatVersion {
		return fmt.Errorf("%w: %d", ErrVersion, data[0])
	}

	encoding := data[1]
	columnWidth := math.Float32frombits(binary.LittleEndian.Uint32(data[2:]))
	data = data[2+float32Size:]

	count, err := readLength(&data)
	if err != nil {
		return fmt.Errorf("read height count: %w", err)
	}

	payloadLen, err := readLength(&data)
	if err != nil {
		return fmt.Errorf("read payload length: %w", err)
	}

	if payloadLen > len(data) {
		return fmt.Errorf("%w: payload needs %d bytes, have %d", ErrTruncated, payloadLen, len(data))
	}

	if count > math.MaxInt/float32Size {
		return fmt.Errorf("%w: %d heights", ErrTruncated, count)
	}

	raw, err := decodePayload(encoding, data[:payloadLen], count*float32Size)
	if err != nil {
		return err
	}

	bits := make([]uint32, count)
	for i := range bits {
		bits[i] = binary.LittleEndian.Uint32(raw[i*float32Size:])
	}

	deltaDecode(bits)

	s.ColumnWidth = float64(columnWidth)
	s.Heights = make([]float64, count)

	for i, b := range bits {
		s.Heights[i] = float64(math.Float32frombits(b))
	}

	return nil
}

// Save writes the snapshot to path, replacing it atomically.
func Save(path string, s Snapshot) error {
	data, err := s.MarshalBinary()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".heights-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if err != nil {
		tmp.Close()

		return fmt.Errorf("write height cache: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("close height cache: %w", err)
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return fmt.Errorf("rename height cache: %w", err)
	}

	return nil
}

// Load reads a snapshot written by Save.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read height cache: %w", err)
	}

	var snap Snapshot

	err = snap.UnmarshalBinary(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode %s: %w", path, err)
	}

	return snap, nil
}

func readLength(data *[]byte) (int, error) {
	v, n := binary.Uvarint(*data)
	if n <= 0 {
		return 0, ErrTruncated
	}

	*data = (*data)[n:]

	length, ok := safeconv.Uint64ToInt(v)
	if !ok {
		return 0, fmt.Errorf("%w: length %d overflows", ErrTruncated, v)
	}

	return length, nil
}

func decodePayload(encoding byte, payload []byte, size int) ([]byte, error) {
	switch encoding {
	case encodingRaw:
		if len(payload) != size {
			return nil, fmt.Errorf("%w: raw payload is %d bytes, want %d", ErrTruncated, len(payload), size)
		}

		return payload, nil
	case encodingLZ4:
		if size/maxLZ4Ratio > len(payload) {
			return nil, fmt.Errorf("%w: %d compressed bytes cannot hold %d", ErrTruncated, len(payload), size)
		}

		raw := make([]byte, size)

		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("decompress heights: %w", err)
		}

		if n != size {
			return nil, fmt.Errorf("%w: decompressed %d bytes, want %d", ErrTruncated, n, size)
		}

		return raw, nil
	default:
		return nil, fmt.Errorf("%w: unknown encoding %d", ErrVersion, encoding)
	}
}

// deltaEncode replaces each element with the difference from its
// predecessor, in place.
func deltaEncode(data []uint32) {
	for i := len(data) - 1; i > 0; i-- {
		data[i] -= data[i-1]
	}
}

// deltaDecode restores values produced by deltaEncode.
func deltaDecode(data []uint32) {
	for i := 1; i < len(data); i++ {
		data[i] += data[i-1]
	}
}
