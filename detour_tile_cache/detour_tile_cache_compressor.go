package detour_tile_cache

import (
	"github.com/gorustyt/navcache/detour"
	"github.com/klauspost/compress/s2"
)

// S2Compressor packs tile layers with the S2 block format.
type S2Compressor struct{}

func (S2Compressor) MaxCompressedSize(bufferSize int) int {
	return s2.MaxEncodedLen(bufferSize)
}

func (S2Compressor) Compress(buffer []byte) ([]byte, detour.DtStatus) {
	if s2.MaxEncodedLen(len(buffer)) < 0 {
		return nil, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	return s2.Encode(nil, buffer), detour.DT_SUCCESS
}

func (S2Compressor) Decompress(compressed []byte, buffer []byte) (int, detour.DtStatus) {
	n, err := s2.DecodedLen(compressed)
	if err != nil {
		return 0, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	if n > len(buffer) {
		return 0, detour.DT_FAILURE | detour.DT_BUFFER_TOO_SMALL
	}
	out, err := s2.Decode(buffer[:n], compressed)
	if err != nil {
		return 0, detour.DT_FAILURE | detour.DT_INVALID_PARAM
	}
	return len(out), detour.DT_SUCCESS
}
