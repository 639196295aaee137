package tilecache

import (
	"errors"
	"fmt"

	"github.com/gorustyt/navcache/detour"
	dtc "github.com/gorustyt/navcache/detour_tile_cache"
)

var (
	ErrInvalidParams      = errors.New("tilecache: invalid params")
	ErrTileCacheInit      = errors.New("tilecache: init failed")
	ErrAlreadyInitialized = errors.New("tilecache: already initialized")
	ErrNotInitialized     = errors.New("tilecache: not initialized")
	ErrObstacleOperation  = errors.New("tilecache: obstacle operation failed")
	ErrTileOperation      = errors.New("tilecache: tile operation failed")
)

// TileCacheInitError carries the status of a failed native init.
type TileCacheInitError struct {
	Status detour.DtStatus
}

func (e *TileCacheInitError) Error() string {
	return fmt.Sprintf("%v: %v", ErrTileCacheInit, e.Status)
}

func (e *TileCacheInitError) Unwrap() error { return ErrTileCacheInit }

// ObstacleOperationError reports an add or remove the native store refused.
// Running out of obstacle slots or request queue space is expected under
// load; callers decide whether to retry.
type ObstacleOperationError struct {
	Op     string
	Ref    dtc.DtObstacleRef
	Status detour.DtStatus
}

func (e *ObstacleOperationError) Error() string {
	if e.Ref != 0 {
		return fmt.Sprintf("%v: %s %d: %v", ErrObstacleOperation, e.Op, e.Ref, e.Status)
	}
	return fmt.Sprintf("%v: %s: %v", ErrObstacleOperation, e.Op, e.Status)
}

func (e *ObstacleOperationError) Unwrap() error { return ErrObstacleOperation }

// Full reports whether the failure was a capacity limit.
func (e *ObstacleOperationError) Full() bool {
	return e.Status.DtStatusDetail(detour.DT_OUT_OF_MEMORY) || e.Status.DtStatusDetail(detour.DT_BUFFER_TOO_SMALL)
}

type TileOperationError struct {
	Op     string
	Status detour.DtStatus
}

func (e *TileOperationError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrTileOperation, e.Op, e.Status)
}

func (e *TileOperationError) Unwrap() error { return ErrTileOperation }
