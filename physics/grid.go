package physics

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sightline/geometry"
	"github.com/go-gl/mathgl/mgl32"
)

// Regular Grid Spatial Partition
//
// An uniformly sub-divided grid of colliders. The particularities are:
//   - the grid has a resolution that defines how large a cell is. For example,
//     a resolution of 1 will make each cell hold a 1x1 meter subdivision of the
//     scene, while a resolution of 100 will make each cell hold 100x100 meters.
//   - colliders are only partitioned on the horizontal plane (x, z), which is
//     enough for scenes that mostly spread on the ground.
//   - the grid grows to fit any inserted collider and never shrinks, up to
//     MaxGridCells cells.

// MaxGridCells is the number of cells a grid can hold.
const MaxGridCells = 1 << 22

const ErrTypeGridTooLarge = "grid_too_large"

type RegularGrid struct {
	Resolution uint
	Min        mgl32.Vec3
	Max        mgl32.Vec3
	Grid       [][][]*Collider // [row(z)][col(x)]
}

type GridDebugInfo struct {
	Resolution    uint32     `json:"resolution"`
	RowCount      uint32     `json:"row_count"`
	ColCount      uint32     `json:"col_count"`
	ColliderCount uint32     `json:"collider_count"`
	MinPoint      mgl32.Vec3 `json:"min_point"`
	MaxPoint      mgl32.Vec3 `json:"max_point"`
	Occupancy     []uint32   `json:"occupancy"`
}

func NewRegularGrid(numCols uint, numRows uint, resolution uint) *RegularGrid {
	if numCols == 0 {
		numCols = 1
	}
	if numRows == 0 {
		numRows = 1
	}
	if resolution == 0 {
		resolution = 1
	}

	grid := &RegularGrid{
		Resolution: resolution,
		Min:        mgl32.Vec3{0, 0, 0},
		Max:        mgl32.Vec3{float32(numCols * resolution), 0, float32(numRows * resolution)},
	}
	grid.Grid = newCells(numRows, numCols)
	return grid
}

func newCells(numRows uint, numCols uint) [][][]*Collider {
	cells := make([][][]*Collider, numRows)
	for i := range cells {
		cells[i] = make([][]*Collider, numCols)
	}
	return cells
}

func (grid *RegularGrid) rows() int {
	return len(grid.Grid)
}

func (grid *RegularGrid) cols() int {
	return len(grid.Grid[0])
}

// Insert adds c to every cell overlapped by its bounds. The grid is left
// untouched when it cannot grow to fit c.
func (grid *RegularGrid) Insert(c *Collider) error {
	if err := grid.ExpandToFit(c.Bounds); err != nil {
		return err
	}

	minCol, minRow, maxCol, maxRow := grid.cellRange(c.Bounds)
	for y := minRow; y <= maxRow; y++ {
		for x := minCol; x <= maxCol; x++ {
			grid.Grid[y][x] = append(grid.Grid[y][x], c)
		}
	}
	return nil
}

// Remove removes c from the cells overlapped by bounds. bounds must be the
// bounds c was inserted with.
func (grid *RegularGrid) Remove(c *Collider, bounds geometry.AABB) {
	minCol, minRow, maxCol, maxRow := grid.cellRange(bounds)
	for y := minRow; y <= maxRow; y++ {
		for x := minCol; x <= maxCol; x++ {
			grid.removeFromCell(c, x, y)
		}
	}
}

// Region returns the colliders stored in the cells overlapped by bounds. Each
// collider is returned once.
func (grid *RegularGrid) Region(bounds geometry.AABB) []*Collider {
	if !grid.overlaps(bounds) {
		return nil
	}

	minCol, minRow, maxCol, maxRow := grid.cellRange(bounds)

	seen := make(map[*Collider]struct{})
	var colliders []*Collider
	for y := minRow; y <= maxRow; y++ {
		for x := minCol; x <= maxCol; x++ {
			for _, c := range grid.Grid[y][x] {
				if _, ok := seen[c]; ok {
					continue
				}
				seen[c] = struct{}{}
				colliders = append(colliders, c)
			}
		}
	}
	return colliders
}

// ExpandToFit grows the grid so that bounds is covered. Existing colliders are
// redistributed in the new cells. An error is returned without growing the
// grid when bounds is not finite or when the grid would exceed MaxGridCells.
func (grid *RegularGrid) ExpandToFit(bounds geometry.AABB) error {
	if bounds.Min[0] >= grid.Min[0] && bounds.Min[2] >= grid.Min[2] &&
		bounds.Max[0] < grid.Max[0] && bounds.Max[2] < grid.Max[2] {
		return nil
	}

	res := float64(grid.Resolution)
	align := func(v float32, round func(float64) float64) float32 {
		return float32(round(float64(v)/res) * res)
	}

	newMin := mgl32.Vec3{
		align(float32(math.Min(float64(bounds.Min[0]), float64(grid.Min[0]))), math.Floor),
		0,
		align(float32(math.Min(float64(bounds.Min[2]), float64(grid.Min[2]))), math.Floor),
	}

	// NOTE: the cells limits are in the range [min..max[ so a point on the max
	// edge needs one more cell.
	newMax := mgl32.Vec3{
		align(float32(math.Max(float64(bounds.Max[0]), float64(grid.Max[0]))), math.Floor),
		0,
		align(float32(math.Max(float64(bounds.Max[2]), float64(grid.Max[2]))), math.Floor),
	}
	if newMax[0] <= bounds.Max[0] {
		newMax[0] += float32(res)
	}
	if newMax[2] <= bounds.Max[2] {
		newMax[2] += float32(res)
	}
	newMax[0] = float32(math.Max(float64(newMax[0]), float64(grid.Max[0])))
	newMax[2] = float32(math.Max(float64(newMax[2]), float64(grid.Max[2])))

	cols := math.Round(float64(newMax[0]-newMin[0]) / res)
	rows := math.Round(float64(newMax[2]-newMin[2]) / res)

	// NaN fails both comparisons.
	if !(cols >= 1 && rows >= 1 && cols*rows <= MaxGridCells) {
		return errors.New("grid cannot grow to fit bounds").
			WithType(ErrTypeGridTooLarge).
			WithTag("min", bounds.Min).
			WithTag("max", bounds.Max).
			WithTag("resolution", grid.Resolution).
			WithTag("max_cells", MaxGridCells)
	}
	numCols := uint(cols)
	numRows := uint(rows)

	colliders := grid.all()

	grid.Min = newMin
	grid.Max = newMax
	grid.Grid = newCells(numRows, numCols)

	for _, c := range colliders {
		minCol, minRow, maxCol, maxRow := grid.cellRange(c.Bounds)
		for y := minRow; y <= maxRow; y++ {
			for x := minCol; x <= maxCol; x++ {
				grid.Grid[y][x] = append(grid.Grid[y][x], c)
			}
		}
	}
	return nil
}

func (grid *RegularGrid) DebugInfo() GridDebugInfo {
	info := GridDebugInfo{
		Resolution:    uint32(grid.Resolution),
		RowCount:      uint32(grid.rows()),
		ColCount:      uint32(grid.cols()),
		ColliderCount: uint32(len(grid.all())),
		MinPoint:      grid.Min,
		MaxPoint:      grid.Max,
	}

	info.Occupancy = make([]uint32, info.RowCount*info.ColCount)
	for y := uint32(0); y < info.RowCount; y++ {
		for x := uint32(0); x < info.ColCount; x++ {
			info.Occupancy[y*info.ColCount+x] = uint32(len(grid.Grid[y][x]))
		}
	}
	return info
}

func (grid *RegularGrid) overlaps(bounds geometry.AABB) bool {
	return bounds.Max[0] >= grid.Min[0] && bounds.Min[0] < grid.Max[0] &&
		bounds.Max[2] >= grid.Min[2] && bounds.Min[2] < grid.Max[2]
}

// cellRange returns the cells overlapped by bounds, clamped to the grid.
func (grid *RegularGrid) cellRange(bounds geometry.AABB) (minCol, minRow, maxCol, maxRow int) {
	minCol = grid.clamp(grid.cellCoord(bounds.Min[0], grid.Min[0]), grid.cols())
	maxCol = grid.clamp(grid.cellCoord(bounds.Max[0], grid.Min[0]), grid.cols())
	minRow = grid.clamp(grid.cellCoord(bounds.Min[2], grid.Min[2]), grid.rows())
	maxRow = grid.clamp(grid.cellCoord(bounds.Max[2], grid.Min[2]), grid.rows())
	return minCol, minRow, maxCol, maxRow
}

func (grid *RegularGrid) cellCoord(v float32, origin float32) int {
	return int(math.Floor(float64(v-origin) / float64(grid.Resolution)))
}

func (grid *RegularGrid) clamp(v int, count int) int {
	if v < 0 {
		return 0
	}
	if v >= count {
		return count - 1
	}
	return v
}

func (grid *RegularGrid) all() []*Collider {
	seen := make(map[*Collider]struct{})
	var colliders []*Collider
	for _, row := range grid.Grid {
		for _, cell := range row {
			for _, c := range cell {
				if _, ok := seen[c]; ok {
					continue
				}
				seen[c] = struct{}{}
				colliders = append(colliders, c)
			}
		}
	}
	return colliders
}

func (grid *RegularGrid) removeFromCell(c *Collider, x int, y int) {
	cell := grid.Grid[y][x]
	for i := range cell {
		if cell[i] == c {
			cell[i] = cell[len(cell)-1]
			grid.Grid[y][x] = cell[:len(cell)-1]
			return
		}
	}
}
