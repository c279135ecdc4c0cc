package hifiberry

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/marcinbor85/gohex"
	"github.com/pelletier/go-toml/v2"
)

// RateBucket names a register table of the DAC2HD clock generator.
type RateBucket string

const (
	BucketCommon RateBucket = "common"
	Bucket44k1   RateBucket = "44k1"
	Bucket48k    RateBucket = "48k"
	Bucket88k2   RateBucket = "88k2"
	Bucket96k    RateBucket = "96k"
	Bucket176k4  RateBucket = "176k4"
	Bucket192k   RateBucket = "192k"
)

// RateBuckets lists all buckets in image order.
var RateBuckets = []RateBucket{BucketCommon, Bucket44k1, Bucket48k, Bucket88k2, Bucket96k, Bucket176k4, Bucket192k}

// HEX_BUCKET_STRIDE is the address distance of two buckets in an Intel HEX image.
// Each bucket holds up to DAC2HD_MAX_TABLE (reg, val) byte pairs.
const HEX_BUCKET_STRIDE = 2 * DAC2HD_MAX_TABLE

var bucketRates = map[uint64]RateBucket{
	44100:  Bucket44k1,
	48000:  Bucket48k,
	88200:  Bucket88k2,
	96000:  Bucket96k,
	176400: Bucket176k4,
	192000: Bucket192k,
}

// BucketForRate returns the dedicated table bucket of rate.
func BucketForRate(rate uint64) (RateBucket, error) {
	b, ok := bucketRates[rate]
	if !ok {
		return "", fmt.Errorf("no register table for %d Hz: %w", rate, ErrInvalidArgument)
	}

	return b, nil
}

// ParseRateBucket parses a bucket name.
func ParseRateBucket(s string) (RateBucket, error) {
	b := RateBucket(s)
	if !slices.Contains(RateBuckets, b) {
		return "", fmt.Errorf("unknown table %q: %w", s, ErrInvalidArgument)
	}

	return b, nil
}

// PLLTables is an immutable set of register tables, one per bucket.
type PLLTables struct {
	tables map[RateBucket][]RegVal
}

// TableSource provides register tables that override the compiled-in ones.
// Buckets a source does not return keep their compiled-in tables.
type TableSource interface {
	Tables() (map[RateBucket][]RegVal, error)
}

// NewPLLTables builds the tables from the compiled-in values overridden by src.
// A nil src yields the compiled-in tables.
func NewPLLTables(src TableSource) (*PLLTables, error) {
	tables := compiledTables()

	if src != nil {
		override, err := src.Tables()
		if err != nil {
			return nil, err
		}

		for bucket, regs := range override {
			if _, err := ParseRateBucket(string(bucket)); err != nil {
				return nil, err
			}

			if len(regs) > DAC2HD_MAX_TABLE {
				return nil, fmt.Errorf("table %s: %d writes, max %d: %w", bucket, len(regs), DAC2HD_MAX_TABLE, ErrInvalidArgument)
			}

			tables[bucket] = slices.Clone(regs)
		}
	}

	return &PLLTables{tables: tables}, nil
}

// Table returns a copy of the table of bucket.
func (t *PLLTables) Table(bucket RateBucket) []RegVal {
	if t == nil {
		return nil
	}

	return slices.Clone(t.tables[bucket])
}

// ForRate returns a copy of the dedicated table of rate.
func (t *PLLTables) ForRate(rate uint64) ([]RegVal, error) {
	bucket, err := BucketForRate(rate)
	if err != nil {
		return nil, err
	}

	return t.Table(bucket), nil
}

// Buckets returns the buckets present, in image order.
func (t *PLLTables) Buckets() []RateBucket {
	if t == nil {
		return nil
	}

	ret := make([]RateBucket, 0, len(t.tables))
	for _, b := range RateBuckets {
		if _, ok := t.tables[b]; ok {
			ret = append(ret, b)
		}
	}

	return ret
}

// CompiledTables is the source of the built-in tables.
type CompiledTables struct{}

// Tables implements TableSource.
func (CompiledTables) Tables() (map[RateBucket][]RegVal, error) {
	return compiledTables(), nil
}

// ByteTables holds tables as flat (reg, val) byte sequences, the layout of device-tree properties.
type ByteTables map[RateBucket][]byte

// Tables implements TableSource.
func (bt ByteTables) Tables() (map[RateBucket][]RegVal, error) {
	ret := make(map[RateBucket][]RegVal, len(bt))
	for bucket, data := range bt {
		regs, err := ParseRegPairs(data)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", bucket, err)
		}
		ret[bucket] = regs
	}

	return ret, nil
}

// ParseRegPairs splits data into (reg, val) pairs.
func ParseRegPairs(data []byte) ([]RegVal, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("odd byte count %d: %w", len(data), ErrInvalidArgument)
	}

	if len(data) > HEX_BUCKET_STRIDE {
		return nil, fmt.Errorf("%d bytes, max %d: %w", len(data), HEX_BUCKET_STRIDE, ErrInvalidArgument)
	}

	regs := make([]RegVal, 0, len(data)/2)
	for i := 0; i < len(data); i += 2 {
		regs = append(regs, RegVal{Reg(data[i]), data[i+1]})
	}

	return regs, nil
}

// TOMLTables reads tables from a TOML document:
//
//	[tables]
//	common = [[0x02, 0x53], [0x03, 0x00]]
//	"44k1" = [[0x1A, 0x3D]]
type TOMLTables []byte

type tomlTables struct {
	Tables map[string][][]int64 `toml:"tables"`
}

// Tables implements TableSource.
func (tt TOMLTables) Tables() (map[RateBucket][]RegVal, error) {
	var doc tomlTables

	dec := toml.NewDecoder(bytes.NewReader(tt))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode tables: %w: %w", ErrInvalidArgument, err)
	}

	ret := make(map[RateBucket][]RegVal, len(doc.Tables))
	for name, pairs := range doc.Tables {
		bucket, err := ParseRateBucket(name)
		if err != nil {
			return nil, err
		}

		regs := make([]RegVal, 0, len(pairs))
		for i, p := range pairs {
			if len(p) != 2 || p[0] < 0 || p[0] > 0xff || p[1] < 0 || p[1] > 0xff {
				return nil, fmt.Errorf("table %s: entry %d: %v is not a byte pair: %w", name, i, p, ErrInvalidArgument)
			}
			regs = append(regs, RegVal{Reg(p[0]), uint8(p[1])})
		}
		ret[bucket] = regs
	}

	return ret, nil
}

// HexTables reads tables from an Intel HEX image. Bucket i of RateBuckets
// starts at address i*HEX_BUCKET_STRIDE as (reg, val) byte pairs.
type HexTables struct {
	R io.Reader
}

// Tables implements TableSource.
func (ht HexTables) Tables() (map[RateBucket][]RegVal, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(ht.R); err != nil {
		return nil, fmt.Errorf("parse hex: %w: %w", ErrInvalidArgument, err)
	}

	segs := mem.GetDataSegments()
	slices.SortFunc(segs, func(a, b gohex.DataSegment) int { return cmp.Compare(a.Address, b.Address) })

	data := make(map[RateBucket][]byte)
	for _, seg := range segs {
		addr, rest := uint64(seg.Address), seg.Data
		for len(rest) > 0 {
			idx := addr / HEX_BUCKET_STRIDE
			if idx >= uint64(len(RateBuckets)) {
				return nil, fmt.Errorf("address 0x%x beyond the last table: %w", addr, ErrInvalidArgument)
			}

			bucket := RateBuckets[idx]
			if addr%HEX_BUCKET_STRIDE != uint64(len(data[bucket])) {
				return nil, fmt.Errorf("address 0x%x leaves a gap in table %s: %w", addr, bucket, ErrInvalidArgument)
			}

			n := min(uint64(len(rest)), (idx+1)*HEX_BUCKET_STRIDE-addr)
			data[bucket] = append(data[bucket], rest[:n]...)
			addr += n
			rest = rest[n:]
		}
	}

	return ByteTables(data).Tables()
}

// WriteHex writes t as an Intel HEX image readable by HexTables.
func (t *PLLTables) WriteHex(w io.Writer) error {
	if t == nil {
		return fmt.Errorf("tables are nil")
	}

	mem := gohex.NewMemory()
	for i, bucket := range RateBuckets {
		regs, ok := t.tables[bucket]
		if !ok || len(regs) == 0 {
			continue
		}

		data := make([]byte, 0, 2*len(regs))
		for _, rv := range regs {
			data = append(data, uint8(rv.Reg), rv.Val)
		}

		if err := mem.AddBinary(uint32(i*HEX_BUCKET_STRIDE), data); err != nil {
			return fmt.Errorf("table %s: %w", bucket, err)
		}
	}

	return mem.DumpIntelHex(w, 16)
}

// WriteTOML writes t as a TOML document readable by TOMLTables.
func (t *PLLTables) WriteTOML(w io.Writer) error {
	if t == nil {
		return fmt.Errorf("tables are nil")
	}

	doc := tomlTables{Tables: make(map[string][][]int64, len(t.tables))}
	for _, bucket := range slices.Sorted(maps.Keys(t.tables)) {
		pairs := make([][]int64, 0, len(t.tables[bucket]))
		for _, rv := range t.tables[bucket] {
			pairs = append(pairs, []int64{int64(rv.Reg), int64(rv.Val)})
		}
		doc.Tables[string(bucket)] = pairs
	}

	return toml.NewEncoder(w).Encode(doc)
}
