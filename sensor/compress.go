package sensor

import (
	"encoding/binary"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	lzf "github.com/zhuyie/golzf"
)

// CompressedRangeData is a RangeData serialized to little-endian
// float32s and LZF-compressed. Scans are long-lived and shared with the
// matcher, so they are kept in this form and decompressed on demand.
type CompressedRangeData struct {
	payload    []byte
	rawLen     int
	compressed bool
}

// Compress serializes and compresses a scan. Incompressible scans are
// stored raw rather than expanded.
func Compress(rd RangeData) CompressedRangeData {
	raw := marshalRangeData(rd)
	out := make([]byte, len(raw)+len(raw)/16+64)
	n, err := lzf.Compress(raw, out)
	if err != nil || n == 0 || n >= len(raw) {
		return CompressedRangeData{payload: raw, rawLen: len(raw)}
	}
	return CompressedRangeData{payload: out[:n], rawLen: len(raw), compressed: true}
}

// Decompress recovers the scan.
func (c CompressedRangeData) Decompress() (RangeData, error) {
	raw := c.payload
	if c.compressed {
		raw = make([]byte, c.rawLen)
		n, err := lzf.Decompress(c.payload, raw)
		if err != nil {
			return RangeData{}, errors.Wrap(err, "decompressing range data")
		}
		if n != c.rawLen {
			return RangeData{}, errors.Errorf("decompressed %d bytes; expected %d", n, c.rawLen)
		}
	}
	return unmarshalRangeData(raw)
}

// Size returns the stored payload size in bytes.
func (c CompressedRangeData) Size() int {
	return len(c.payload)
}

const vectorSize = 3 * 4

func marshalRangeData(rd RangeData) []byte {
	buf := make([]byte, 8+vectorSize*(1+len(rd.Returns)+len(rd.Misses)))
	binary.LittleEndian.PutUint32(buf, uint32(len(rd.Returns)))
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(rd.Misses)))
	off := 8
	off = putVector(buf, off, rd.Origin)
	for _, p := range rd.Returns {
		off = putVector(buf, off, p)
	}
	for _, p := range rd.Misses {
		off = putVector(buf, off, p)
	}
	return buf
}

func unmarshalRangeData(buf []byte) (RangeData, error) {
	if len(buf) < 8+vectorSize {
		return RangeData{}, errors.New("range data payload too short")
	}
	numReturns := int(binary.LittleEndian.Uint32(buf))
	numMisses := int(binary.LittleEndian.Uint32(buf[4:]))
	if len(buf) != 8+vectorSize*(1+numReturns+numMisses) {
		return RangeData{}, errors.Errorf("range data payload has %d bytes; expected %d",
			len(buf), 8+vectorSize*(1+numReturns+numMisses))
	}
	rd := RangeData{
		Returns: make([]r3.Vector, numReturns),
		Misses:  make([]r3.Vector, numMisses),
	}
	off := 8
	rd.Origin, off = getVector(buf, off)
	for i := range rd.Returns {
		rd.Returns[i], off = getVector(buf, off)
	}
	for i := range rd.Misses {
		rd.Misses[i], off = getVector(buf, off)
	}
	return rd, nil
}

func putVector(buf []byte, off int, v r3.Vector) int {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(v.X)))
	binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(float32(v.Y)))
	binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(float32(v.Z)))
	return off + vectorSize
}

func getVector(buf []byte, off int) (r3.Vector, int) {
	return r3.Vector{
		X: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))),
		Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:]))),
		Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off+8:]))),
	}, off + vectorSize
}
