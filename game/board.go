package game

import (
	"bubbles/utils"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"
)

type Option func(o *options)

type options struct {
	rng *rand.Rand
}

// WithRand draws cell colors from rng instead of the package-level source.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		if rng != nil {
			o.rng = rng
		}
	}
}

// Board is the grid of a single game. It is not safe for concurrent use: the
// turn loop owns the live board and searches work on copies.
type Board struct {
	config  Config
	rows    []Row
	regions []Region
}

// NewBoard fills a board of the configured dimensions with random colors.
func NewBoard(config Config, opts ...Option) (*Board, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	intn := rand.Intn
	if o.rng != nil {
		intn = o.rng.Intn
	}

	palette := config.paletteSize()
	rows := make([]Row, config.Rows)
	for r := range rows {
		row := make(Row, config.RowWidth(r))
		for c := range row {
			row[c] = newCell(Color(1 + intn(palette)))
		}
		rows[r] = row
	}

	b := &Board{config: config, rows: rows}
	b.regions = findRegions(b.rows)
	return b, nil
}

// NewBoardFromColors builds a board from explicit colors. Rows must follow the
// width parity rule and only the final row may end in Empty padding.
func NewBoardFromColors(width int, colors [][]Color) (*Board, error) {
	dims := Dimensions{Rows: len(colors), Width: width}
	if dims.Rows <= 0 || dims.Width <= 0 {
		return nil, fmt.Errorf("%w: rows=%d width=%d", ErrInvalidConfiguration, dims.Rows, dims.Width)
	}

	maxColor := Color1
	rows := make([]Row, len(colors))
	for r, rowColors := range colors {
		if len(rowColors) != dims.RowWidth(r) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidConfiguration, r, len(rowColors), dims.RowWidth(r))
		}
		last := r == len(colors)-1
		padding := false
		row := make(Row, len(rowColors))
		for c, color := range rowColors {
			switch {
			case color < Empty || color > MaxColor:
				return nil, fmt.Errorf("%w: color %d at (%d, %d)", ErrInvalidConfiguration, color, r, c)
			case color == Empty:
				if !last || c == 0 {
					return nil, fmt.Errorf("%w: padding at (%d, %d)", ErrInvalidConfiguration, r, c)
				}
				padding = true
				row[c] = sentinel()
			default:
				if padding {
					return nil, fmt.Errorf("%w: cell after padding at (%d, %d)", ErrInvalidConfiguration, r, c)
				}
				maxColor = max(maxColor, color)
				row[c] = newCell(color)
			}
		}
		rows[r] = row
	}

	b := &Board{
		config: Config{Dimensions: dims, Colors: ColorCount(maxColor)},
		rows:   rows,
	}
	b.regions = findRegions(b.rows)
	return b, nil
}

func (b *Board) Config() Config {
	return b.config
}

// Rows returns a copy of the current rows, sentinel padding included.
func (b *Board) Rows() []Row {
	return copyRows(b.rows)
}

// Regions returns a copy of the current region partition.
func (b *Board) Regions() []Region {
	return copyRegions(b.regions)
}

func (b *Board) IsEmpty() bool {
	return len(b.rows) == 0
}

// CellCount counts the non-sentinel cells.
func (b *Board) CellCount() int {
	count := 0
	for _, row := range b.rows {
		for _, cell := range row {
			if !cell.IsEmpty() {
				count++
			}
		}
	}
	return count
}

// RegionOf returns the index of the region containing id.
func (b *Board) RegionOf(id CellID) (int, bool) {
	if id == uuid.Nil {
		return -1, false
	}
	for i, region := range b.regions {
		if utils.FindIndex(region, id) >= 0 {
			return i, true
		}
	}
	return -1, false
}

// RemoveRegion pops the region containing id and compacts the grid. The
// length of the returned region is the mover's score delta.
func (b *Board) RemoveRegion(id CellID) (Region, error) {
	index, ok := b.RegionOf(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	removed := b.regions[index]
	b.rows = compact(b.rows, removed, b.config.Width)
	b.regions = findRegions(b.rows)
	return removed, nil
}

// Copy returns a board sharing no memory with b.
func (b *Board) Copy() *Board {
	return &Board{
		config:  b.config,
		rows:    copyRows(b.rows),
		regions: copyRegions(b.regions),
	}
}

// compact drops the removed cells (and old padding) from the row-order cell
// sequence and re-chunks what is left.
func compact(rows []Row, removed Region, width int) []Row {
	gone := make(map[CellID]struct{}, len(removed))
	for _, id := range removed {
		gone[id] = struct{}{}
	}

	remaining := make([]Cell, 0, len(rows)*width)
	for _, row := range rows {
		for _, cell := range row {
			if cell.IsEmpty() {
				continue
			}
			if _, ok := gone[cell.ID]; ok {
				continue
			}
			remaining = append(remaining, cell)
		}
	}
	return chunk(remaining, width)
}

// chunk lays cells out in rows of alternating width W, W-1, padding the final
// partial row with sentinels.
func chunk(cells []Cell, width int) []Row {
	dims := Dimensions{Width: width}
	pairSize := 2*width - 1
	fullPairs := len(cells) / pairSize
	remainder := len(cells) % pairSize

	extraRows := 0
	switch {
	case remainder == 0:
	case remainder <= width:
		extraRows = 1
	default:
		extraRows = 2
	}

	rows := make([]Row, 2*fullPairs+extraRows)
	start := 0
	for r := range rows {
		w := dims.RowWidth(r)
		end := min(start+w, len(cells))
		row := make(Row, w)
		n := copy(row, cells[start:end])
		for i := n; i < w; i++ {
			row[i] = sentinel()
		}
		rows[r] = row
		start += w
	}
	return rows
}

func copyRows(rows []Row) []Row {
	total := 0
	for _, row := range rows {
		total += len(row)
	}
	cells := make([]Cell, total)
	out := make([]Row, len(rows))
	offset := 0
	for r, row := range rows {
		n := copy(cells[offset:], row)
		out[r] = cells[offset : offset+n : offset+n]
		offset += n
	}
	return out
}

func copyRegions(regions []Region) []Region {
	out := make([]Region, len(regions))
	for i, region := range regions {
		out[i] = append(Region(nil), region...)
	}
	return out
}
