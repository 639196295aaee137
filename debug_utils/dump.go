// Package debug_utils writes navmesh and tile cache state to files that
// external tools can open.
package debug_utils

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/gorustyt/navcache/detour"
	dtc "github.com/gorustyt/navcache/detour_tile_cache"
	"golang.org/x/image/bmp"
)

var ErrNilInput = errors.New("debug_utils: nil input")

// DumpNavMeshToObj writes every live tile as one OBJ object. Polygons are
// fanned into triangles.
func DumpNavMeshToObj(w io.Writer, nav *detour.DtNavMesh) error {
	if w == nil || nav == nil {
		return ErrNilInput
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# navcache navmesh\n")

	base := 1
	for i := 0; i < nav.GetMaxTiles(); i++ {
		tile := nav.GetTile(i)
		if tile == nil || tile.Header == nil {
			continue
		}
		h := tile.Header
		fmt.Fprintf(bw, "\no tile_%d_%d_%d\n", h.X, h.Y, h.Layer)
		nverts := len(tile.Verts) / 3
		for v := 0; v < nverts; v++ {
			fmt.Fprintf(bw, "v %f %f %f\n", tile.Verts[v*3], tile.Verts[v*3+1], tile.Verts[v*3+2])
		}
		for _, p := range tile.Polys {
			for j := 2; j < int(p.VertCount); j++ {
				fmt.Fprintf(bw, "f %d %d %d\n",
					base+int(p.Verts[0]), base+int(p.Verts[j-1]), base+int(p.Verts[j]))
			}
		}
		base += nverts
	}
	return bw.Flush()
}

// DumpLayerAreas writes the area of every cell of a decompressed layer as a
// BMP. Cells without height are white.
func DumpLayerAreas(w io.Writer, layer *dtc.DtTileCacheLayer) error {
	if w == nil || layer == nil || layer.Header == nil {
		return ErrNilInput
	}
	width, height := int(layer.Header.Width), int(layer.Header.Height)
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := x + y*width
			col := emptyCol
			if layer.Heights[idx] != 0xff {
				col = LayerAreaCol(layer.Areas[idx])
			}
			// image rows grow downwards, layer rows grow along +z
			img.SetNRGBA(x, height-1-y, col.NRGBA())
		}
	}
	return bmp.Encode(w, img)
}

// DumpTileAreas decompresses one compressed tile and dumps its areas.
func DumpTileAreas(w io.Writer, comp dtc.DtTileCacheCompressor, data []byte) error {
	header, status := dtc.DecodeTileCacheLayerHeader(data)
	if status.DtStatusFailed() {
		return fmt.Errorf("decode tile header: %v", status)
	}
	alloc := dtc.NewLinearAllocator(int(header.Width) * int(header.Height) * 3)
	layer, status := dtc.DtDecompressTileCacheLayer(alloc, comp, data)
	if status.DtStatusFailed() {
		return fmt.Errorf("decompress tile: %v", status)
	}
	return DumpLayerAreas(w, layer)
}
