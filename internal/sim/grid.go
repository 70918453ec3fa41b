package sim

import "math"

// Cell is one grid entry. ID is meaningless when Category is CategoryNone.
type Cell struct {
	ID       uint64
	Category Category
}

// Grid is the per-tick occupancy lattice over the toroidal map, stored row
// major: index = y*size + x.
type Grid struct {
	size  int
	cells []Cell
}

func NewGrid(size int) *Grid {
	if size <= 0 {
		size = DefaultMapSize
	}
	return &Grid{size: size, cells: make([]Cell, size*size)}
}

func (g *Grid) Size() int { return g.size }

// Reset empties every cell.
func (g *Grid) Reset() {
	clear(g.cells)
}

// CellOf rounds a position to its cell, wrapping so that a coordinate that
// rounds up to size lands in cell 0.
func (g *Grid) CellOf(x, y float64) (int, int) {
	return g.index(x), g.index(y)
}

func (g *Grid) index(v float64) int {
	i := int(math.Round(v)) % g.size
	if i < 0 {
		i += g.size
	}
	return i
}

func (g *Grid) At(cx, cy int) Cell {
	return g.cells[cy*g.size+cx]
}

func (g *Grid) Set(cx, cy int, cell Cell) {
	g.cells[cy*g.size+cx] = cell
}

func (g *Grid) Clear(cx, cy int) {
	g.cells[cy*g.size+cx] = Cell{}
}

// Free reports whether nothing occupies the cell.
func (g *Grid) Free(cx, cy int) bool {
	return g.At(cx, cy).Category == CategoryNone
}

// Identity copies the identity matrix as rows.
func (g *Grid) Identity() [][]uint64 {
	rows := make([][]uint64, g.size)
	for y := range rows {
		row := make([]uint64, g.size)
		for x := range row {
			row[x] = g.cells[y*g.size+x].ID
		}
		rows[y] = row
	}
	return rows
}

// Categories copies the category matrix as rows.
func (g *Grid) Categories() [][]Category {
	rows := make([][]Category, g.size)
	for y := range rows {
		row := make([]Category, g.size)
		for x := range row {
			row[x] = g.cells[y*g.size+x].Category
		}
		rows[y] = row
	}
	return rows
}
