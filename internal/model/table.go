package model

// ColumnRole tags a column in the synthesis example table.
type ColumnRole int

const (
	ColumnPlain ColumnRole = iota
	ColumnIn
	ColumnOut
)

// Column is one displayed variable.
type Column struct {
	Var  string
	Role ColumnRole
}

// Header returns the label shown above the column.
func (c Column) Header() string {
	switch c.Role {
	case ColumnIn:
		return c.Var + "_in"
	case ColumnOut:
		return c.Var + "_out"
	}

	return c.Var
}

// Cell is one rendered value.
type Cell struct {
	Var      string
	Value    string
	Editable bool
}

// Row is one environment of the box.
type Row struct {
	Iter    string
	LoopID  string
	Time    int
	HasTime bool
	Cells   []Cell
	// Filler rows stand in for iterations where the line did not run.
	Filler bool
	// Included rows are examples the synthesizer must satisfy.
	Included bool
}

// Table is the render-neutral content of a box.
type Table struct {
	Line    int
	Columns []Column
	Rows    []Row
	// Message replaces the rows when set, e.g. for lines that never ran.
	Message string
}

// Empty reports whether there is nothing to render.
func (t *Table) Empty() bool {
	return t == nil || (len(t.Rows) == 0 && t.Message == "")
}

// Grid lays the table out as text cells, headers first. LayoutByRow puts
// one variable per row instead of one per column.
func (t *Table) Grid(layout Layout) [][]string {
	if t.Empty() {
		return nil
	}

	if t.Message != "" {
		return [][]string{{t.Message}}
	}

	grid := make([][]string, 0, len(t.Rows)+1)

	header := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		header = append(header, c.Header())
	}

	grid = append(grid, header)

	for _, r := range t.Rows {
		row := make([]string, len(t.Columns))
		for i, c := range r.Cells {
			if i < len(row) {
				row[i] = c.Value
			}
		}

		grid = append(grid, row)
	}

	if layout != LayoutByRow {
		return grid
	}

	transposed := make([][]string, len(t.Columns))
	for i := range transposed {
		transposed[i] = make([]string, len(grid))
		for j := range grid {
			transposed[i][j] = grid[j][i]
		}
	}

	return transposed
}
