package rover

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CellEvidence holds the three evidence counters of one cell.
type CellEvidence struct {
	Obstacle  uint32 `json:"obstacle"`
	Target    uint32 `json:"target"`
	Navigable uint32 `json:"navigable"`
}

// Empty reports whether the cell has no evidence of any kind.
func (e CellEvidence) Empty() bool {
	return e.Obstacle == 0 && e.Target == 0 && e.Navigable == 0
}

// WorldMap is a square evidence grid. Counters only ever increase; a cell
// that has been observed stays observed for the rest of the mission.
// WorldMap is not safe for concurrent use; Rover serialises access.
type WorldMap struct {
	size   int
	cells  []CellEvidence
	filled int
}

// NewWorldMap creates an empty size x size grid.
func NewWorldMap(size int) *WorldMap {
	return &WorldMap{
		size:  size,
		cells: make([]CellEvidence, size*size),
	}
}

// Size returns the grid side length in cells.
func (m *WorldMap) Size() int {
	return m.size
}

func (m *WorldMap) inBounds(wp WorldPoint) bool {
	return wp.Row >= 0 && wp.Col >= 0 && wp.Row < m.size && wp.Col < m.size
}

// Accumulate adds one vote per listed cell to the matching counter. Every
// cell is bounds-checked first; on ErrOutOfBounds nothing is changed.
func (m *WorldMap) Accumulate(navigable, obstacle, target []WorldPoint) error {
	for _, set := range [][]WorldPoint{navigable, obstacle, target} {
		for _, wp := range set {
			if !m.inBounds(wp) {
				return fmt.Errorf("%w: (%d, %d) in %dx%d grid", ErrOutOfBounds, wp.Row, wp.Col, m.size, m.size)
			}
		}
	}

	for _, wp := range navigable {
		m.vote(wp, func(c *CellEvidence) { c.Navigable++ })
	}
	for _, wp := range obstacle {
		m.vote(wp, func(c *CellEvidence) { c.Obstacle++ })
	}
	for _, wp := range target {
		m.vote(wp, func(c *CellEvidence) { c.Target++ })
	}
	return nil
}

func (m *WorldMap) vote(wp WorldPoint, inc func(*CellEvidence)) {
	c := &m.cells[wp.Row*m.size+wp.Col]
	if c.Empty() {
		m.filled++
	}
	inc(c)
}

// FillCount returns the number of cells with any non-zero evidence.
func (m *WorldMap) FillCount() int {
	return m.filled
}

// Evidence returns the counters of one cell.
func (m *WorldMap) Evidence(wp WorldPoint) (CellEvidence, error) {
	if !m.inBounds(wp) {
		return CellEvidence{}, fmt.Errorf("%w: (%d, %d)", ErrOutOfBounds, wp.Row, wp.Col)
	}
	return m.cells[wp.Row*m.size+wp.Col], nil
}

// Clone returns an independent copy for readers outside the tick loop.
func (m *WorldMap) Clone() *WorldMap {
	cells := make([]CellEvidence, len(m.cells))
	copy(cells, m.cells)
	return &WorldMap{size: m.size, cells: cells, filled: m.filled}
}

// Cells calls fn for every non-empty cell in row-major order.
func (m *WorldMap) Cells(fn func(wp WorldPoint, e CellEvidence)) {
	for i, c := range m.cells {
		if c.Empty() {
			continue
		}
		fn(WorldPoint{Row: i / m.size, Col: i % m.size}, c)
	}
}

// worldMapCell is the persisted form of one non-empty cell.
type worldMapCell struct {
	Row int `json:"row"`
	Col int `json:"col"`
	CellEvidence
}

// worldMapFile is the on-disk cache layout; only non-empty cells are stored.
type worldMapFile struct {
	Size  int            `json:"size"`
	Cells []worldMapCell `json:"cells"`
}

// SaveWorldMap writes a WorldMap to disk as JSON.
func SaveWorldMap(m *WorldMap, path string) error {
	file := worldMapFile{Size: m.size, Cells: []worldMapCell{}}
	m.Cells(func(wp WorldPoint, e CellEvidence) {
		file.Cells = append(file.Cells, worldMapCell{Row: wp.Row, Col: wp.Col, CellEvidence: e})
	})

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal world map: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write world map cache: %w", err)
	}
	return nil
}

// LoadWorldMap reads a WorldMap from a JSON file on disk.
func LoadWorldMap(path string) (*WorldMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read world map cache: %w", err)
	}
	var file worldMapFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal world map cache: %w", err)
	}
	if file.Size <= 0 {
		return nil, fmt.Errorf("world map cache has invalid size %d", file.Size)
	}

	m := NewWorldMap(file.Size)
	for _, c := range file.Cells {
		wp := WorldPoint{Row: c.Row, Col: c.Col}
		if !m.inBounds(wp) {
			return nil, fmt.Errorf("world map cache: %w: (%d, %d)", ErrOutOfBounds, c.Row, c.Col)
		}
		if c.Empty() {
			continue
		}
		if m.cells[c.Row*m.size+c.Col].Empty() {
			m.filled++
		}
		m.cells[c.Row*m.size+c.Col] = c.CellEvidence
	}
	return m, nil
}
