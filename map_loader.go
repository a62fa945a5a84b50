package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

// ErrBadIndex is returned when a map document references a vertex or sector
// that does not exist
var ErrBadIndex = errors.New("map: index out of range")

// Map document structures for parsing level files
type MapDocument struct {
	Vertices []VertexDocument  `json:"vertices" yaml:"vertices"`
	Sectors  []SectorDocument  `json:"sectors" yaml:"sectors"`
	Linedefs []LinedefDocument `json:"linedefs" yaml:"linedefs"`
}

type VertexDocument struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

type SectorDocument struct {
	Floor   float64 `json:"floor" yaml:"floor"`
	Ceiling float64 `json:"ceiling" yaml:"ceiling"`
}

type SidedefDocument struct {
	Sector int `json:"sector" yaml:"sector"`
}

type LinedefDocument struct {
	V1         int              `json:"v1" yaml:"v1"`
	V2         int              `json:"v2" yaml:"v2"`
	Front      *SidedefDocument `json:"front,omitempty" yaml:"front,omitempty"`
	Back       *SidedefDocument `json:"back,omitempty" yaml:"back,omitempty"`
	Flags      int              `json:"flags,omitempty" yaml:"flags,omitempty"`
	BlockSound bool             `json:"blocksound,omitempty" yaml:"blocksound,omitempty"`
}

// LoadMapFile loads a map document from a JSON or YAML file, picking the
// decoder from the file extension
func LoadMapFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map: %w", err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return DecodeMap(data, format)
}

// DecodeMap parses a map document in the given format ("json", "yaml" or "yml")
// and builds the map model from it
func DecodeMap(data []byte, format string) (*Map, error) {
	var doc MapDocument

	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse yaml map: %w", err)
		}
	case "json", "":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse json map: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported map format %q", format)
	}

	return doc.Build()
}

// Build converts the document into the linked map model. Sidedefs are created
// for every front and back side present and registered with their sector in
// linedef order.
func (doc *MapDocument) Build() (*Map, error) {
	m := &Map{
		Vertices: make([]orb.Point, len(doc.Vertices)),
		Sectors:  make([]*Sector, len(doc.Sectors)),
		Linedefs: make([]*Linedef, 0, len(doc.Linedefs)),
	}

	for i, v := range doc.Vertices {
		m.Vertices[i] = orb.Point{v.X, v.Y}
	}

	for i, s := range doc.Sectors {
		m.Sectors[i] = &Sector{
			Index:       i,
			FloorHeight: s.Floor,
			CeilHeight:  s.Ceiling,
		}
	}

	for i, ld := range doc.Linedefs {
		if ld.V1 < 0 || ld.V1 >= len(m.Vertices) || ld.V2 < 0 || ld.V2 >= len(m.Vertices) {
			return nil, fmt.Errorf("linedef %d: vertex %d/%d: %w", i, ld.V1, ld.V2, ErrBadIndex)
		}

		line := &Linedef{
			Index:      i,
			Start:      m.Vertices[ld.V1],
			End:        m.Vertices[ld.V2],
			Flags:      ld.Flags,
			BlockSound: ld.BlockSound,
		}

		front, err := m.addSidedef(line, ld.Front)
		if err != nil {
			return nil, fmt.Errorf("linedef %d front: %w", i, err)
		}
		back, err := m.addSidedef(line, ld.Back)
		if err != nil {
			return nil, fmt.Errorf("linedef %d back: %w", i, err)
		}
		line.Front = front
		line.Back = back

		m.Linedefs = append(m.Linedefs, line)
	}

	return m, nil
}

func (m *Map) addSidedef(line *Linedef, doc *SidedefDocument) (*Sidedef, error) {
	if doc == nil {
		return nil, nil
	}
	if doc.Sector < 0 || doc.Sector >= len(m.Sectors) {
		return nil, fmt.Errorf("sector %d: %w", doc.Sector, ErrBadIndex)
	}

	sector := m.Sectors[doc.Sector]
	sd := &Sidedef{
		Index:  len(m.Sidedefs),
		Line:   line,
		Sector: sector,
	}
	m.Sidedefs = append(m.Sidedefs, sd)
	sector.Sidedefs = append(sector.Sidedefs, sd)

	return sd, nil
}
