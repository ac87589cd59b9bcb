package tickstore

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/avolkov/trade-dashboard/internal/models"
)

// Batch wire format: u32 tick count, then one 20-byte record per tick
// (u32 time, f32 bid, f32 ask, u32 volume, u32 flags), little-endian,
// deflate-compressed as a whole.
const tickRecordSize = 20

const compressionLevel = 6

func encodeTicks(ticks []models.Tick) ([]byte, error) {
	raw := make([]byte, 4+len(ticks)*tickRecordSize)
	binary.LittleEndian.PutUint32(raw[0:4], uint32(len(ticks)))
	off := 4
	for _, t := range ticks {
		binary.LittleEndian.PutUint32(raw[off:], uint32(t.Time))
		binary.LittleEndian.PutUint32(raw[off+4:], math.Float32bits(float32(t.Bid)))
		binary.LittleEndian.PutUint32(raw[off+8:], math.Float32bits(float32(t.Ask)))
		binary.LittleEndian.PutUint32(raw[off+12:], uint32(t.Volume))
		binary.LittleEndian.PutUint32(raw[off+16:], t.Flags)
		off += tickRecordSize
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, compressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to init batch compressor: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to compress tick batch: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish tick batch: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeTicks(blob []byte) ([]models.Tick, error) {
	zr, err := zlib.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to open tick batch: %w", err)
	}
	raw, err := io.ReadAll(zr)
	zr.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to decompress tick batch: %w", err)
	}

	if len(raw) < 4 {
		return nil, fmt.Errorf("corrupt tick batch: %d bytes, no count header", len(raw))
	}
	count := int(binary.LittleEndian.Uint32(raw[0:4]))
	if want := 4 + count*tickRecordSize; len(raw) != want {
		return nil, fmt.Errorf("corrupt tick batch: have %d bytes, want %d for %d ticks", len(raw), want, count)
	}

	ticks := make([]models.Tick, 0, count)
	off := 4
	for i := 0; i < count; i++ {
		ticks = append(ticks, models.Tick{
			Time:   int64(binary.LittleEndian.Uint32(raw[off:])),
			Bid:    float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[off+4:]))),
			Ask:    float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[off+8:]))),
			Volume: int64(binary.LittleEndian.Uint32(raw[off+12:])),
			Flags:  binary.LittleEndian.Uint32(raw[off+16:]),
		})
		off += tickRecordSize
	}
	return ticks, nil
}
