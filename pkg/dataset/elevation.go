package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ElevationGrid is a regular elevation raster in ESRI ASCII grid layout.
// Values are stored row-major starting from the southern row so that row r,
// column c sits at (X0 + c·Cell, Y0 + r·Cell).
type ElevationGrid struct {
	Nx, Ny int
	X0, Y0 float64
	Cell   float64
	NoData float64
	Values []float64
}

// LoadASCIIGrid reads an ESRI ASCII grid (plain-text header of ncols, nrows,
// xllcorner, yllcorner, cellsize, nodata_value followed by rows north to
// south). Binary raster formats stay out of scope; this text layout is the
// interchange convention with the external GIS layer.
func LoadASCIIGrid(path string) (*ElevationGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: opening elevation grid: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	grid := &ElevationGrid{NoData: -9999}
	header := map[string]*float64{
		"xllcorner":    &grid.X0,
		"yllcorner":    &grid.Y0,
		"cellsize":     &grid.Cell,
		"nodata_value": &grid.NoData,
	}

	var rows [][]float64
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		key := strings.ToLower(fields[0])
		switch {
		case key == "ncols" || key == "nrows":
			if len(fields) != 2 {
				return nil, fmt.Errorf("dataset: malformed header line %q", scanner.Text())
			}
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("dataset: bad %s value %q", key, fields[1])
			}
			if key == "ncols" {
				grid.Nx = v
			} else {
				grid.Ny = v
			}
		case header[key] != nil:
			if len(fields) != 2 {
				return nil, fmt.Errorf("dataset: malformed header line %q", scanner.Text())
			}
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("dataset: bad %s value %q", key, fields[1])
			}
			*header[key] = v
		default:
			row := make([]float64, 0, len(fields))
			for _, field := range fields {
				v, err := strconv.ParseFloat(field, 64)
				if err != nil {
					return nil, fmt.Errorf("dataset: bad elevation value %q", field)
				}
				row = append(row, v)
			}
			rows = append(rows, row)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dataset: reading elevation grid: %w", err)
	}

	if grid.Nx == 0 || grid.Ny == 0 || grid.Cell <= 0 {
		return nil, fmt.Errorf("dataset: elevation grid %s missing ncols/nrows/cellsize", path)
	}
	if len(rows) != grid.Ny {
		return nil, fmt.Errorf("dataset: elevation grid has %d data rows, header says %d", len(rows), grid.Ny)
	}

	// File rows run north to south; store south-up.
	grid.Values = make([]float64, grid.Nx*grid.Ny)
	for r, row := range rows {
		if len(row) != grid.Nx {
			return nil, fmt.Errorf("dataset: elevation row %d has %d values, header says %d", r, len(row), grid.Nx)
		}
		copy(grid.Values[(grid.Ny-1-r)*grid.Nx:], row)
	}
	return grid, nil
}

// Sample returns the elevation of the cell containing the point. The second
// return value is false outside the raster extent or on a nodata cell.
func (g *ElevationGrid) Sample(x, y float64) (float64, bool) {
	col := int((x - g.X0) / g.Cell)
	row := int((y - g.Y0) / g.Cell)
	if col < 0 || col >= g.Nx || row < 0 || row >= g.Ny {
		return 0, false
	}
	v := g.Values[row*g.Nx+col]
	if v == g.NoData {
		return 0, false
	}
	return v, true
}
