package game

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidConfiguration = errors.New("invalid board configuration")
	ErrNotFound             = errors.New("cell does not belong to any region")
)

// CellID identifies a cell for the lifetime of a game. Sentinel padding cells
// all carry uuid.Nil.
type CellID = uuid.UUID

type Color int

const (
	Empty Color = iota // Sentinel padding, never part of a region
	Color1
	Color2
	Color3
	Color4
	Color5
	Color6
)

const MaxColor = Color6

type ColorCount int

const (
	Four ColorCount = 4
	Five ColorCount = 5
	Six  ColorCount = 6
)

type Cell struct {
	ID    CellID
	Color Color
}

func newCell(color Color) Cell {
	return Cell{ID: uuid.New(), Color: color}
}

func sentinel() Cell {
	return Cell{ID: uuid.Nil, Color: Empty}
}

func (c Cell) IsEmpty() bool {
	return c.Color == Empty
}

type Row []Cell

// Region is a maximal connected set of same-colored cells, listed in row-major order.
type Region []CellID

type Dimensions struct {
	Rows  int
	Width int
}

var (
	PresetExtraTiny = Dimensions{Rows: 6, Width: 4}
	PresetTiny      = Dimensions{Rows: 5, Width: 5}
	PresetSmall     = Dimensions{Rows: 8, Width: 7}
	PresetMedium    = Dimensions{Rows: 9, Width: 7}
	PresetLarge     = Dimensions{Rows: 10, Width: 8}
)

// RowWidth returns the number of cells in row r: even rows are full width, odd rows one cell shorter.
func (d Dimensions) RowWidth(r int) int {
	if r&1 == 1 {
		return d.Width - 1
	}
	return d.Width
}

// Config is the explicit configuration a board is built from.
type Config struct {
	Dimensions
	Colors ColorCount
}

func (c Config) validate() error {
	if c.Rows <= 0 || c.Width <= 0 {
		return fmt.Errorf("%w: rows=%d width=%d", ErrInvalidConfiguration, c.Rows, c.Width)
	}
	if c.Colors <= 0 {
		return fmt.Errorf("%w: colors=%d", ErrInvalidConfiguration, c.Colors)
	}
	return nil
}

// paletteSize is the number of colors actually drawn from.
func (c Config) paletteSize() int {
	return min(int(MaxColor), int(c.Colors))
}
