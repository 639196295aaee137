package detour_tile_cache

import "github.com/gorustyt/navcache/detour"

type DtExportedTile struct {
	Header DtTileCacheLayerHeader
	Data   []byte
}

// TileCacheExporter copies every stored tile out of a cache.
type TileCacheExporter struct{}

func (TileCacheExporter) Export(tc *DtTileCache) []DtExportedTile {
	var tiles []DtExportedTile
	for i := 0; i < tc.GetTileCount(); i++ {
		tile := tc.GetTile(i)
		if tile.Header == nil || len(tile.Data) == 0 {
			continue
		}
		tiles = append(tiles, DtExportedTile{
			Header: *tile.Header,
			Data:   append([]byte(nil), tile.Data...),
		})
	}
	return tiles
}

// TileCacheImporter adds previously exported tile data to a cache. It stops
// at the first tile the cache rejects.
type TileCacheImporter struct{}

func (TileCacheImporter) Import(tc *DtTileCache, tiles [][]byte) ([]DtCompressedTileRef, detour.DtStatus) {
	refs := make([]DtCompressedTileRef, 0, len(tiles))
	for _, data := range tiles {
		ref, status := tc.AddTile(data, DT_COMPRESSEDTILE_FREE_DATA)
		if status.DtStatusFailed() {
			return refs, status
		}
		refs = append(refs, ref)
	}
	return refs, detour.DT_SUCCESS
}
