package spatial

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Kilometers per degree of latitude, and per degree of longitude at the
// equator. Longitude shrinks with cos(latitude).
const (
	kmPerDegLat = 110.574
	kmPerDegLon = 111.320
)

// Metric computes distances between coordinate pairs and projects
// coordinates into an isotropic planar frame for KD-tree indexing.
type Metric interface {
	// Distance returns the separation between two points in the metric's
	// units (input units for planar, kilometers for geographic)
	Distance(x1, y1, x2, y2 float64) float64

	// Project maps a coordinate into the metric's planar frame
	Project(x, y float64) (float64, float64)
}

// Planar is the identity metric for data already in a projected CRS.
type Planar struct{}

func (Planar) Distance(x1, y1, x2, y2 float64) float64 {
	return hypot(x2-x1, y2-y1)
}

func (Planar) Project(x, y float64) (float64, float64) { return x, y }

// Geographic measures lon/lat coordinates in kilometers using an
// equirectangular approximation about a reference latitude.
type Geographic struct {
	// RefLat is the reference latitude in degrees, typically the mean
	// latitude of the dataset
	RefLat float64
}

func (g Geographic) Distance(x1, y1, x2, y2 float64) float64 {
	px1, py1 := g.Project(x1, y1)
	px2, py2 := g.Project(x2, y2)
	return hypot(px2-px1, py2-py1)
}

func (g Geographic) Project(x, y float64) (float64, float64) {
	return x * kmPerDegLon * math.Cos(g.RefLat*math.Pi/180), y * kmPerDegLat
}

// MetricFor selects the metric for a CRS tag. Geographic tags (EPSG:4326 and
// its aliases) get the kilometer metric; anything else is treated as planar.
func MetricFor(crs string, refLat float64) Metric {
	switch crs {
	case "EPSG:4326", "WGS84", "CRS84":
		return Geographic{RefLat: refLat}
	default:
		return Planar{}
	}
}

// DistanceMatrix computes the symmetric pairwise distance matrix for a point
// set. The result is used by the variogram estimator and by the Moran's I
// weight matrix, so it is computed once per dataset.
func DistanceMatrix(xs, ys []float64, m Metric) *mat.SymDense {
	n := len(xs)
	d := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d.SetSym(i, j, m.Distance(xs[i], ys[i], xs[j], ys[j]))
		}
	}
	return d
}

// InverseDistanceWeights builds the spatial weight matrix with entries
// 1/d(i,j) and a zero diagonal. Coincident points would produce infinite
// weights, so separations below eps are floored at eps.
func InverseDistanceWeights(d *mat.SymDense, eps float64) *mat.SymDense {
	n := d.SymmetricDim()
	w := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sep := d.At(i, j)
			if sep < eps {
				sep = eps
			}
			w.SetSym(i, j, 1/sep)
		}
	}
	return w
}

// DistanceToPolyline returns the minimum distance from a point to a polyline
// given by its vertices, measured in the metric's planar frame. Used for the
// distance-to-coast covariate.
func DistanceToPolyline(x, y float64, vxs, vys []float64, m Metric) float64 {
	if len(vxs) == 0 {
		return math.NaN()
	}
	px, py := m.Project(x, y)
	if len(vxs) == 1 {
		vx, vy := m.Project(vxs[0], vys[0])
		return hypot(px-vx, py-vy)
	}

	min := math.Inf(1)
	ax, ay := m.Project(vxs[0], vys[0])
	for i := 1; i < len(vxs); i++ {
		bx, by := m.Project(vxs[i], vys[i])
		if d := pointSegmentDistance(px, py, ax, ay, bx, by); d < min {
			min = d
		}
		ax, ay = bx, by
	}
	return min
}

// pointSegmentDistance returns the distance from (px,py) to segment a-b.
func pointSegmentDistance(px, py, ax, ay, bx, by float64) float64 {
	dx := bx - ax
	dy := by - ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return hypot(px-(ax+t*dx), py-(ay+t*dy))
}

func hypot(dx, dy float64) float64 {
	return math.Sqrt(dx*dx + dy*dy)
}
