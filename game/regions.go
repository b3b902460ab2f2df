package game

type Position struct {
	Row int
	Col int
}

// Neighbours lists the in-range hex-offset neighbours of (row, col).
func (b *Board) Neighbours(row, col int) []Position {
	return neighbours(b.rows, row, col)
}

// neighbours: left/right, up/down in the same column, and two diagonals
// whose column shifts right on odd rows and left on even rows.
func neighbours(rows []Row, r, c int) []Position {
	shift := -1
	if r&1 == 1 {
		shift = 1
	}
	candidates := [6]Position{
		{r, c - 1},
		{r, c + 1},
		{r - 1, c},
		{r + 1, c},
		{r - 1, c + shift},
		{r + 1, c + shift},
	}

	out := make([]Position, 0, len(candidates))
	for _, p := range candidates {
		if p.Row < 0 || p.Row >= len(rows) {
			continue
		}
		if p.Col < 0 || p.Col >= len(rows[p.Row]) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// findRegions computes the connected components of same-colored cells with a
// union-find over flat row-major positions. The smallest position is always a
// set's root, so regions come out ordered by their first cell.
func findRegions(rows []Row) []Region {
	offsets := make([]int, len(rows)+1)
	for r, row := range rows {
		offsets[r+1] = offsets[r] + len(row)
	}

	parent := make([]int, offsets[len(rows)])
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		switch {
		case ra < rb:
			parent[rb] = ra
		case rb < ra:
			parent[ra] = rb
		}
	}

	for r, row := range rows {
		for c, cell := range row {
			if cell.IsEmpty() {
				continue
			}
			for _, n := range neighbours(rows, r, c) {
				if rows[n.Row][n.Col].Color == cell.Color {
					union(offsets[r]+c, offsets[n.Row]+n.Col)
				}
			}
		}
	}

	regionOf := make([]int, len(parent))
	for i := range regionOf {
		regionOf[i] = -1
	}
	var regions []Region
	for r, row := range rows {
		for c, cell := range row {
			if cell.IsEmpty() {
				continue
			}
			root := find(offsets[r] + c)
			k := regionOf[root]
			if k < 0 {
				k = len(regions)
				regionOf[root] = k
				regions = append(regions, Region{})
			}
			regions[k] = append(regions[k], cell.ID)
		}
	}
	return regions
}
