// Package spatial provides distance computation and k-nearest-neighbor
// search for geo-located point sets. Distances are Euclidean in a planar
// frame; geographic (EPSG:4326) coordinates are projected into kilometers
// with an equirectangular approximation about a reference latitude, which is
// adequate at the regional extents this pipeline targets.
package spatial

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// Point2D is a planar point carrying the index of the observation it was
// built from, so neighbor-search results can be mapped back to the source.
type Point2D struct {
	X, Y float64
	ID   int
}

// Compare implements the kdtree.Comparable interface
func (p Point2D) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(Point2D)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p Point2D) Dims() int { return 2 }

// Distance returns the squared Euclidean distance between two points
func (p Point2D) Distance(c kdtree.Comparable) float64 {
	q := c.(Point2D)
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy // Squared distance for efficiency
}

// Points2D is a collection of Point2D that satisfies kdtree.Interface
type Points2D []Point2D

func (p Points2D) Index(i int) kdtree.Comparable         { return p[i] }
func (p Points2D) Len() int                              { return len(p) }
func (p Points2D) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p Points2D) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(pointPlane{Points2D: p, Dim: d}, kdtree.MedianOfRandoms(pointPlane{Points2D: p, Dim: d}, 100))
}

// pointPlane implements sort.Interface and kdtree.SortSlicer for Points2D
type pointPlane struct {
	Points2D
	kdtree.Dim
}

func (p pointPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.Points2D[i].X < p.Points2D[j].X
	case 1:
		return p.Points2D[i].Y < p.Points2D[j].Y
	default:
		panic("illegal dimension")
	}
}

func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{Points2D: p.Points2D[start:end], Dim: p.Dim}
}

func (p pointPlane) Swap(i, j int) {
	p.Points2D[i], p.Points2D[j] = p.Points2D[j], p.Points2D[i]
}

// Neighbor is one k-nearest-neighbor search result.
type Neighbor struct {
	// ID is the index of the matched point in the source set
	ID int

	// Dist is the distance in the metric's units (km for geographic input)
	Dist float64
}

// Index is a KD-tree over a projected point set for repeated neighbor queries.
type Index struct {
	tree   *kdtree.Tree
	metric Metric
}

// NewIndex builds a spatial index over the given coordinates.
func NewIndex(xs, ys []float64, metric Metric) *Index {
	pts := make(Points2D, len(xs))
	for i := range xs {
		px, py := metric.Project(xs[i], ys[i])
		pts[i] = Point2D{X: px, Y: py, ID: i}
	}
	return &Index{
		tree:   kdtree.New(pts, true),
		metric: metric,
	}
}

// Nearest returns up to k nearest source points to the query location,
// ordered by increasing distance.
func (ix *Index) Nearest(x, y float64, k int) []Neighbor {
	px, py := ix.metric.Project(x, y)
	query := Point2D{X: px, Y: py, ID: -1}

	keeper := kdtree.NewNKeeper(k)
	ix.tree.NearestSet(keeper, query)

	neighbors := make([]Neighbor, 0, k)
	for _, item := range keeper.Heap {
		// Skip the sentinel value
		if item.Comparable == nil {
			continue
		}
		p := item.Comparable.(Point2D)
		neighbors = append(neighbors, Neighbor{ID: p.ID, Dist: hypot(px-p.X, py-p.Y)})
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].Dist < neighbors[j].Dist })
	return neighbors
}

// NearestNeighborDistances returns each point's distance to its closest
// other point, a spacing diagnostic for the observation network. Very small
// spacings flag coincident stations that will force jitter into the kriging
// system.
func NearestNeighborDistances(xs, ys []float64, metric Metric) []float64 {
	dists := make([]float64, len(xs))
	if len(xs) < 2 {
		return dists
	}
	ix := NewIndex(xs, ys, metric)
	for i := range xs {
		// Two neighbors: the point itself plus its true nearest
		for _, nb := range ix.Nearest(xs[i], ys[i], 2) {
			if nb.ID != i {
				dists[i] = nb.Dist
				break
			}
		}
	}
	return dists
}
