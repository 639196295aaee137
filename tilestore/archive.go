// Package tilestore persists compressed tile cache layers so a cache can be
// rebuilt without regenerating its tiles.
package tilestore

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/gorustyt/navcache/tilecache"
	"go.uber.org/multierr"
	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrCorruptArchive     = errors.New("tilestore: corrupt archive")
	ErrUnsupportedVersion = errors.New("tilestore: unsupported archive version")
	ErrNotFound           = errors.New("tilestore: not found")
)

// archiveFormat is bumped when a field changes meaning.
const archiveFormat = 1

// Archive message:
//
//	1 version  varint
//	2 params   Params
//	3 tiles    repeated Tile
//
// Params message: 1..3 origin xyz, 4 cell size, 5 cell height, 8 walkable
// height, 9 walkable radius, 10 walkable climb and 11 max simplification
// error are fixed32 floats; 6 width, 7 height, 12 max tiles and 13 max
// obstacles are varints.
//
// Tile message: 1 x, 2 y, 3 layer as zigzag varints, 4 data bytes.
const (
	archiveVersion protowire.Number = 1
	archiveParams  protowire.Number = 2
	archiveTile    protowire.Number = 3

	tileX     protowire.Number = 1
	tileY     protowire.Number = 2
	tileLayer protowire.Number = 3
	tileData  protowire.Number = 4
)

type TileKey struct {
	X, Y, Layer int32
}

type Tile struct {
	Key  TileKey
	Data []byte
}

// Archive is a tile cache grid description plus its compressed tiles.
type Archive struct {
	Params tilecache.ParamsConfig
	Tiles  []Tile
}

// Snapshot captures the params and compressed tiles of tc.
func Snapshot(tc *tilecache.TileCache) Archive {
	a := Archive{Params: tc.Params().Config()}
	for _, t := range tc.Tiles() {
		a.Tiles = append(a.Tiles, Tile{Key: TileKey{X: t.X, Y: t.Y, Layer: t.Layer}, Data: t.Data})
	}
	return a
}

// TileData returns the tile payloads in key order, ready for
// tilecache.TileCache.Import.
func (a Archive) TileData() [][]byte {
	tiles := slices.Clone(a.Tiles)
	slices.SortFunc(tiles, func(l, r Tile) int {
		if l.Key.Y != r.Key.Y {
			return int(l.Key.Y) - int(r.Key.Y)
		}
		if l.Key.X != r.Key.X {
			return int(l.Key.X) - int(r.Key.X)
		}
		return int(l.Key.Layer) - int(r.Key.Layer)
	})
	data := make([][]byte, len(tiles))
	for i, t := range tiles {
		data[i] = t.Data
	}
	return data
}

func EncodeArchive(a Archive) []byte {
	var b []byte
	b = protowire.AppendTag(b, archiveVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, archiveFormat)
	b = protowire.AppendTag(b, archiveParams, protowire.BytesType)
	b = protowire.AppendBytes(b, EncodeParams(a.Params))
	for _, t := range a.Tiles {
		b = protowire.AppendTag(b, archiveTile, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeTile(t))
	}
	return b
}

func DecodeArchive(b []byte) (Archive, error) {
	var (
		a       Archive
		version uint64
		err     error
	)
	perr := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == archiveVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			version = v
			return n
		case num == archiveParams && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				params, pe := DecodeParams(v)
				a.Params = params
				err = multierr.Append(err, pe)
			}
			return n
		case num == archiveTile && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				t, terr := decodeTile(v)
				if terr == nil {
					a.Tiles = append(a.Tiles, t)
				}
				err = multierr.Append(err, terr)
			}
			return n
		}
		return 0
	})
	if perr != nil {
		return Archive{}, perr
	}
	if err != nil {
		return Archive{}, err
	}
	if version != archiveFormat {
		return Archive{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	return a, nil
}

func floatFields(p *tilecache.ParamsConfig) map[protowire.Number]*float32 {
	return map[protowire.Number]*float32{
		1:  &p.Origin[0],
		2:  &p.Origin[1],
		3:  &p.Origin[2],
		4:  &p.CellSize,
		5:  &p.CellHeight,
		8:  &p.WalkableHeight,
		9:  &p.WalkableRadius,
		10: &p.WalkableClimb,
		11: &p.MaxSimplificationError,
	}
}

func intFields(p *tilecache.ParamsConfig) map[protowire.Number]*int {
	return map[protowire.Number]*int{
		6:  &p.Width,
		7:  &p.Height,
		12: &p.MaxTiles,
		13: &p.MaxObstacles,
	}
}

// EncodeParams encodes the Params message on its own.
func EncodeParams(p tilecache.ParamsConfig) []byte {
	var b []byte
	floats, ints := floatFields(&p), intFields(&p)
	for num := protowire.Number(1); num <= 13; num++ {
		if f, ok := floats[num]; ok {
			b = protowire.AppendTag(b, num, protowire.Fixed32Type)
			b = protowire.AppendFixed32(b, math.Float32bits(*f))
		} else if i, ok := ints[num]; ok {
			b = protowire.AppendTag(b, num, protowire.VarintType)
			b = protowire.AppendVarint(b, uint64(*i))
		}
	}
	return b
}

func DecodeParams(b []byte) (tilecache.ParamsConfig, error) {
	var p tilecache.ParamsConfig
	floats, ints := floatFields(&p), intFields(&p)
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if f, ok := floats[num]; ok && typ == protowire.Fixed32Type {
			v, n := protowire.ConsumeFixed32(b)
			*f = math.Float32frombits(v)
			return n
		}
		if i, ok := ints[num]; ok && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			*i = int(v)
			return n
		}
		return 0
	})
	return p, err
}

func encodeTile(t Tile) []byte {
	var b []byte
	for _, f := range []struct {
		num protowire.Number
		v   int32
	}{{tileX, t.Key.X}, {tileY, t.Key.Y}, {tileLayer, t.Key.Layer}} {
		b = protowire.AppendTag(b, f.num, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(f.v)))
	}
	b = protowire.AppendTag(b, tileData, protowire.BytesType)
	return protowire.AppendBytes(b, t.Data)
}

func decodeTile(b []byte) (Tile, error) {
	var t Tile
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if typ == protowire.VarintType {
			var dst *int32
			switch num {
			case tileX:
				dst = &t.Key.X
			case tileY:
				dst = &t.Key.Y
			case tileLayer:
				dst = &t.Key.Layer
			default:
				return 0
			}
			v, n := protowire.ConsumeVarint(b)
			*dst = int32(protowire.DecodeZigZag(v))
			return n
		}
		if num == tileData && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			t.Data = slices.Clone(v)
			return n
		}
		return 0
	})
	return t, err
}

// consumeFields walks a message. fn returns the number of bytes it consumed,
// zero to skip the field or a negative protowire error code.
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrCorruptArchive, protowire.ParseError(n))
		}
		b = b[n:]
		m := fn(num, typ, b)
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return fmt.Errorf("%w: field %d: %w", ErrCorruptArchive, num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}
