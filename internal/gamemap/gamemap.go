// Package gamemap rasterizes the semantic map ground-truth message into
// the wall/door grid used by the reconstruction engine. Parsing happens
// once per trial; the resulting Map is read-only and every world
// coordinate in the event stream is translated through its minima.
package gamemap

import (
	"encoding/json"
	"errors"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/tomcat-viz/trialviz/internal/model"
)

// Cell classifies one grid block.
type Cell int8

const (
	Empty Cell = iota
	Wall
	Door
)

// ErrEmptyMap is returned when the semantic map contains no bounded
// locations; without map bounds no coordinate translation is possible.
var ErrEmptyMap = errors.New("semantic map has no bounded locations")

// Map is the rasterized trial map. Grid is indexed [y][x] in grid-local
// coordinates.
type Map struct {
	Grid [][]Cell `json:"grid"`
	MinX int      `json:"minX"`
	MinY int      `json:"minY"`
	MaxX int      `json:"maxX"`
	MaxY int      `json:"maxY"`
}

// Width returns the horizontal extent of the grid in blocks.
func (m *Map) Width() int {
	return m.MaxX - m.MinX + 1
}

// Height returns the vertical extent of the grid in blocks.
func (m *Map) Height() int {
	return m.MaxY - m.MinY + 1
}

// Translate converts absolute world coordinates (x, z) to a grid-local
// position.
func (m *Map) Translate(wx, wz int) model.Position {
	return model.Position{X: wx - m.MinX, Y: wz - m.MinY}
}

// At returns the cell at a grid-local position, Empty when out of range.
func (m *Map) At(p model.Position) Cell {
	if p.Y < 0 || p.Y >= len(m.Grid) || p.X < 0 || p.X >= len(m.Grid[p.Y]) {
		return Empty
	}
	return m.Grid[p.Y][p.X]
}

// semanticMap mirrors the wire shape of the semantic map payload.
type semanticMap struct {
	Locations []struct {
		ID             string   `json:"id"`
		Type           string   `json:"type"`
		ChildLocations []string `json:"child_locations"`
		Bounds         *bounds  `json:"bounds"`
	} `json:"locations"`
	Connections []struct {
		ID     string  `json:"id"`
		Type   string  `json:"type"`
		Bounds *bounds `json:"bounds"`
	} `json:"connections"`
}

type bounds struct {
	Coordinates []struct {
		X int `json:"x"`
		Z int `json:"z"`
	} `json:"coordinates"`
}

func (b *bounds) rect() (x1, y1, x2, y2 int, ok bool) {
	if b == nil || len(b.Coordinates) < 2 {
		return 0, 0, 0, 0, false
	}
	return b.Coordinates[0].X, b.Coordinates[0].Z, b.Coordinates[1].X, b.Coordinates[1].Z, true
}

type block struct {
	x, y int
}

// Parse builds a Map from the raw semantic map JSON.
func Parse(raw []byte) (*Map, error) {
	var sm semanticMap
	if err := json.Unmarshal(raw, &sm); err != nil {
		return nil, fmt.Errorf("decoding semantic map: %w", err)
	}

	wallBlocks, doorBlocks := staticBlocks(&sm)
	if len(wallBlocks) == 0 {
		return nil, ErrEmptyMap
	}

	m := &Map{}
	m.fillBounds(wallBlocks)
	m.fillGrid(wallBlocks, doorBlocks)
	return m, nil
}

// contour adds the one-block-thick rectangular outline around the area
// [x1,x2) x [y1,y2) to dst.
func contour(dst map[block]struct{}, x1, y1, x2, y2 int) {
	for x := x1 - 1; x < x2+1; x++ {
		dst[block{x, y1 - 1}] = struct{}{}
		dst[block{x, y2}] = struct{}{}
	}
	for y := y1 - 1; y < y2+1; y++ {
		dst[block{x1 - 1, y}] = struct{}{}
		dst[block{x2, y}] = struct{}{}
	}
}

// staticBlocks derives the wall and door block sets from the semantic
// map's locations and connections. Rooms composed of child parts
// contribute the union of their part contours minus the part interiors,
// so interior partition walls between adjacent parts disappear.
func staticBlocks(sm *semanticMap) (map[block]struct{}, map[block]struct{}) {
	roomBlocks := make(map[block]struct{})
	parts := make(map[string][4]int)
	var compositeRooms [][]string

	for _, loc := range sm.Locations {
		if len(loc.ChildLocations) > 0 {
			compositeRooms = append(compositeRooms, loc.ChildLocations)
			continue
		}
		x1, y1, x2, y2, ok := loc.Bounds.rect()
		if !ok {
			continue
		}
		if isPartType(loc.Type) {
			parts[loc.ID] = [4]int{x1, y1, x2, y2}
		} else {
			contour(roomBlocks, x1, y1, x2, y2)
		}
	}

	for _, partIDs := range compositeRooms {
		emptyBlocks := make(map[block]struct{})
		wallBlocks := make(map[block]struct{})
		for _, id := range partIDs {
			r, ok := parts[id]
			if !ok {
				continue
			}
			for x := r[0]; x < r[2]; x++ {
				for y := r[1]; y < r[3]; y++ {
					emptyBlocks[block{x, y}] = struct{}{}
				}
			}
			contour(wallBlocks, r[0], r[1], r[2], r[3])
		}
		for b := range wallBlocks {
			if _, interior := emptyBlocks[b]; !interior {
				roomBlocks[b] = struct{}{}
			}
		}
	}

	doorBlocks := make(map[block]struct{})
	openingBlocks := make(map[block]struct{})
	for _, conn := range sm.Connections {
		x1, y1, x2, y2, ok := conn.Bounds.rect()
		if !ok {
			continue
		}
		dst := openingBlocks
		if isDoorType(conn.Type) {
			dst = doorBlocks
		}
		for x := x1; x < x2; x++ {
			for y := y1; y < y2; y++ {
				dst[block{x, y}] = struct{}{}
			}
		}
	}

	// Openings punch holes in walls.
	for b := range openingBlocks {
		delete(roomBlocks, b)
	}

	return roomBlocks, doorBlocks
}

func isPartType(t string) bool {
	return len(t) >= 5 && t[len(t)-5:] == "_part"
}

func isDoorType(t string) bool {
	switch t {
	case "door", "double_door":
		return true
	}
	return false
}

func (m *Map) fillBounds(wallBlocks map[block]struct{}) {
	var env geom.Envelope
	for b := range wallBlocks {
		env = env.ExpandToIncludeXY(geom.XY{X: float64(b.x), Y: float64(b.y)})
	}
	if mn, ok := env.Min().XY(); ok {
		m.MinX = int(mn.X)
		m.MinY = int(mn.Y)
	}
	if mx, ok := env.Max().XY(); ok {
		m.MaxX = int(mx.X)
		m.MaxY = int(mx.Y)
	}
}

func (m *Map) fillGrid(wallBlocks, doorBlocks map[block]struct{}) {
	m.Grid = make([][]Cell, m.Height())
	for y := range m.Grid {
		m.Grid[y] = make([]Cell, m.Width())
	}
	for b := range wallBlocks {
		m.Grid[b.y-m.MinY][b.x-m.MinX] = Wall
	}
	for b := range doorBlocks {
		if b.y >= m.MinY && b.y <= m.MaxY && b.x >= m.MinX && b.x <= m.MaxX {
			m.Grid[b.y-m.MinY][b.x-m.MinX] = Door
		}
	}
}
