package bvh

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/markus-wa/quickhull-go/v2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/bvh/spatialmath"
)

// OBBMethod selects how an oriented box is fit to its elements.
type OBBMethod int

const (
	// OBBCovariance aligns the box with the principal axes of the elements' size weighted
	// covariance.
	OBBCovariance OBBMethod = iota
	// OBBPoints aligns the box with the principal axes of the elements' distinct points.
	OBBPoints
	// OBBConvexHull aligns the box with the principal axes of the surface of the points' convex hull.
	OBBConvexHull
)

const hullEps = 1e-12

func (m OBBMethod) String() string {
	switch m {
	case OBBCovariance:
		return "covariance"
	case OBBPoints:
		return "points"
	case OBBConvexHull:
		return "convex_hull"
	}
	return fmt.Sprintf("OBBMethod(%d)", int(m))
}

// OBBMethodFromString parses the name of a fitting method.
func OBBMethodFromString(s string) (OBBMethod, error) {
	switch s {
	case "", "covariance":
		return OBBCovariance, nil
	case "points":
		return OBBPoints, nil
	case "convex_hull":
		return OBBConvexHull, nil
	}
	return OBBCovariance, errors.Errorf("unknown obb method %q", s)
}

// OBB is an oriented bounding box: a box with the given half-widths, centered at center, whose
// axes are the columns of rot.
type OBB struct {
	center     r3.Vector
	rot        *spatialmath.RotationMatrix
	halfWidths r3.Vector
}

// NewOBB returns the box with the given pose and half-widths.
func NewOBB(pose spatialmath.Pose, halfWidths r3.Vector) *OBB {
	return &OBB{
		center:     pose.Point(),
		rot:        pose.Orientation().RotationMatrix(),
		halfWidths: halfWidths,
	}
}

// Pose returns the box-to-local transform.
func (b *OBB) Pose() spatialmath.Pose {
	return spatialmath.NewPose(b.center, b.rot)
}

// Rotation returns the box axes as the columns of a rotation matrix.
func (b *OBB) Rotation() *spatialmath.RotationMatrix {
	return b.rot
}

// HalfWidths returns the half extents along the box axes.
func (b *OBB) HalfWidths() r3.Vector {
	return b.halfWidths
}

func (b *OBB) String() string {
	return fmt.Sprintf("OBB{center: %v, halfWidths: %v}", b.center, b.halfWidths)
}

func (b *OBB) axes() [3]r3.Vector {
	return [3]r3.Vector{b.rot.Col(0), b.rot.Col(1), b.rot.Col(2)}
}

func (b *OBB) toLocal(pt r3.Vector) r3.Vector {
	return b.rot.TransposeMul(pt.Sub(b.center))
}

// SortedAxes returns the box axes ordered from the longest to the shortest half-width.
func (b *OBB) SortedAxes() [3]r3.Vector {
	hw := [3]float64{b.halfWidths.X, b.halfWidths.Y, b.halfWidths.Z}
	order := []int{0, 1, 2}
	sort.SliceStable(order, func(i, j int) bool { return hw[order[i]] > hw[order[j]] })
	return [3]r3.Vector{b.rot.Col(order[0]), b.rot.Col(order[1]), b.rot.Col(order[2])}
}

// set fits the box to the elements and inflates it by margin.
func (b *OBB) set(elements []Boundable, margin float64, method OBBMethod) error {
	var (
		cov  *mat.SymDense
		cent r3.Vector
		pts  []r3.Vector
		err  error
	)
	switch method {
	case OBBCovariance:
		if pts, err = elementPoints(elements, false); err != nil {
			return err
		}
		if cov, cent, err = elementCovariance(elements); err != nil {
			return err
		}
	case OBBPoints:
		if pts, err = elementPoints(elements, true); err != nil {
			return err
		}
		cov, cent = pointCovariance(pts)
	case OBBConvexHull:
		if pts, err = elementPoints(elements, true); err != nil {
			return err
		}
		cov, cent = hullCovariance(pts)
	default:
		return errors.Errorf("unimplemented obb method %v", method)
	}
	b.setFrame(cov, cent)
	b.fit(pts, margin)
	return nil
}

// refit recomputes center and half-widths from the elements' points, keeping the current axes.
func (b *OBB) refit(elements []Boundable, margin float64) {
	pts, err := elementPoints(elements, false)
	if err != nil {
		// elements without points were rejected when the box was first set
		return
	}
	b.fit(pts, margin)
}

// fit sets the center and half-widths to the tightest box in the current frame that holds pts.
// The half-widths are measured from the final center, so Contains holds exactly for every point
// even with a zero margin.
func (b *OBB) fit(pts []r3.Vector, margin float64) {
	min, max := spatialmath.EmptyBounds()
	for _, p := range pts {
		spatialmath.UpdateBounds(&min, &max, b.toLocal(p))
	}
	b.center = b.center.Add(b.rot.Mul(max.Add(min).Mul(0.5)))

	var hw r3.Vector
	for _, p := range pts {
		l := b.toLocal(p)
		hw = spatialmath.MaxVector(hw, r3.Vector{X: math.Abs(l.X), Y: math.Abs(l.Y), Z: math.Abs(l.Z)})
	}
	b.halfWidths = hw.Add(r3.Vector{X: margin, Y: margin, Z: margin})
}

// setFrame places the box at cent with axes along the eigenvectors of cov. When two or three
// principal variances coincide the corresponding axes are not well defined, so the frame is
// rebuilt from the remaining distinct axis, or set to the identity.
func (b *OBB) setFrame(cov *mat.SymDense, cent r3.Vector) {
	b.center = cent
	b.rot = spatialmath.NewIdentityRotationMatrix()

	var es mat.EigenSym
	if !es.Factorize(cov, true) {
		return
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	// order by decreasing variance
	order := []int{0, 1, 2}
	sort.SliceStable(order, func(i, j int) bool { return math.Abs(vals[order[i]]) > math.Abs(vals[order[j]]) })
	var u [3]r3.Vector
	var sig [3]float64
	for k, i := range order {
		u[k] = r3.Vector{X: vecs.At(0, i), Y: vecs.At(1, i), Z: vecs.At(2, i)}
		sig[k] = 5 * math.Abs(vals[i])
	}
	if u[0].Cross(u[1]).Dot(u[2]) < 0 {
		u[2] = u[2].Mul(-1)
	}

	// Axes whose variances agree to within a relative tolerance are interchangeable. Planar sets
	// have a zero variance, so the comparison is relative to the largest one.
	tol := math.Max(sig[0], math.Max(sig[1], sig[2])) * 1e-6
	var out [3]bool
	similar := func(i, j int) bool {
		return math.Abs(sig[i]-sig[j]) <= tol
	}
	if similar(0, 1) {
		out[0], out[1] = true, true
	}
	if similar(0, 2) {
		out[0], out[2] = true, true
	}
	if similar(2, 1) {
		out[2], out[1] = true, true
	}
	switch {
	case out[0] && out[1] && out[2]:
		return
	case out[0] && out[1]:
		b.rot = frameFromZ(u[2])
	case out[0] && out[2]:
		b.rot = frameFromZ(u[1])
	case out[1] && out[2]:
		b.rot = frameFromZ(u[0])
	default:
		b.rot = spatialmath.NewRotationMatrixFromColumns(u[0], u[1], u[2])
	}
}

// frameFromZ returns a right handed frame whose z axis is along z.
func frameFromZ(z r3.Vector) *spatialmath.RotationMatrix {
	z = z.Normalize()
	ref := r3.Vector{X: 1}
	switch z.LargestComponent() {
	case r3.XAxis:
		ref = r3.Vector{Y: 1}
	}
	x := ref.Cross(z).Normalize()
	y := z.Cross(x)
	return spatialmath.NewRotationMatrixFromColumns(x, y, z)
}

// elementPoints gathers the defining points of the elements, dropping repeats if unique is set.
func elementPoints(elements []Boundable, unique bool) ([]r3.Vector, error) {
	var pts []r3.Vector
	seen := map[r3.Vector]struct{}{}
	for _, e := range elements {
		n := e.PointCount()
		if n <= 0 {
			return nil, errors.Errorf("cannot create OBB: element type %T has no points", e)
		}
		for j := 0; j < n; j++ {
			p := e.Point(j)
			if unique {
				if _, ok := seen[p]; ok {
					continue
				}
				seen[p] = struct{}{}
			}
			pts = append(pts, p)
		}
	}
	return pts, nil
}

// elementCovariance returns the covariance of the elements about their size weighted centroid.
func elementCovariance(elements []Boundable) (*mat.SymDense, r3.Vector, error) {
	cov := mat.NewSymDense(3, nil)
	var cent r3.Vector
	size := 0.
	for _, e := range elements {
		c, s := e.Covariance()
		if s < 0 {
			return nil, r3.Vector{}, errors.Errorf("cannot create OBB: element type %T does not support covariance", e)
		}
		cov.AddSym(cov, c)
		cent = cent.Add(e.Centroid().Mul(s))
		size += s
	}
	if size == 0 {
		// every element is degenerate; fall back to the points themselves
		pts, err := elementPoints(elements, true)
		if err != nil {
			return nil, r3.Vector{}, err
		}
		cov, cent = pointCovariance(pts)
		return cov, cent, nil
	}
	cent = cent.Mul(1 / size)
	subtractCentroid(cov, cent, size)
	return cov, cent, nil
}

func pointCovariance(pts []r3.Vector) (*mat.SymDense, r3.Vector) {
	cov := mat.NewSymDense(3, nil)
	var cent r3.Vector
	for _, p := range pts {
		v := mat.NewVecDense(3, []float64{p.X, p.Y, p.Z})
		cov.SymRankOne(cov, 1, v)
		cent = cent.Add(p)
	}
	size := float64(len(pts))
	cent = cent.Mul(1 / size)
	subtractCentroid(cov, cent, size)
	return cov, cent
}

// hullCovariance returns the area weighted covariance of the convex hull surface of pts, or the
// point covariance if the hull cannot be built.
func hullCovariance(pts []r3.Vector) (*mat.SymDense, r3.Vector) {
	indices, ok := convexHull(pts)
	if !ok {
		return pointCovariance(pts)
	}
	cov := mat.NewSymDense(3, nil)
	var cent r3.Vector
	area := 0.
	for i := 0; i+2 < len(indices); i += 3 {
		tri := spatialmath.NewTriangle(pts[indices[i]], pts[indices[i+1]], pts[indices[i+2]])
		c, a := tri.Covariance()
		cov.AddSym(cov, c)
		cent = cent.Add(tri.Centroid().Mul(a))
		area += a
	}
	if area == 0 {
		return pointCovariance(pts)
	}
	cent = cent.Mul(1 / area)
	subtractCentroid(cov, cent, area)
	return cov, cent
}

// convexHull returns the triangle indices of the hull of pts. Inputs that are flat or otherwise
// degenerate are reported as failures.
func convexHull(pts []r3.Vector) (indices []int, ok bool) {
	if len(pts) < 4 {
		return nil, false
	}
	defer func() {
		if r := recover(); r != nil {
			indices, ok = nil, false
		}
	}()
	qh := new(quickhull.QuickHull)
	ch := qh.ConvexHull(pts, true, true, hullEps)
	if len(ch.Indices) < 12 {
		return nil, false
	}
	for _, i := range ch.Indices {
		if i < 0 || i >= len(pts) {
			return nil, false
		}
	}
	return ch.Indices, true
}

func subtractCentroid(cov *mat.SymDense, cent r3.Vector, size float64) {
	cov.SymRankOne(cov, -size, mat.NewVecDense(3, []float64{cent.X, cent.Y, cent.Z}))
}

// UpdateBounds grows min and max to include the box.
func (b *OBB) UpdateBounds(min, max *r3.Vector) {
	ext := r3.Vector{}
	for i := 0; i < 3; i++ {
		row := b.rot.Row(i)
		e := math.Abs(row.X)*b.halfWidths.X + math.Abs(row.Y)*b.halfWidths.Y + math.Abs(row.Z)*b.halfWidths.Z
		switch i {
		case 0:
			ext.X = e
		case 1:
			ext.Y = e
		default:
			ext.Z = e
		}
	}
	*min = spatialmath.MinVector(*min, b.center.Sub(ext))
	*max = spatialmath.MaxVector(*max, b.center.Add(ext))
}

// Contains reports whether pt is inside the closed box.
func (b *OBB) Contains(pt r3.Vector) bool {
	p := b.toLocal(pt)
	hw := b.halfWidths
	return -hw.X <= p.X && p.X <= hw.X &&
		-hw.Y <= p.Y && p.Y <= hw.Y &&
		-hw.Z <= p.Z && p.Z <= hw.Z
}

// IntersectsSphere is a conservative test against the sphere's bounding box in the box frame.
func (b *OBB) IntersectsSphere(center r3.Vector, r float64) bool {
	p := b.toLocal(center)
	hw := b.halfWidths
	return -hw.X <= p.X+r && p.X-r <= hw.X &&
		-hw.Y <= p.Y+r && p.Y-r <= hw.Y &&
		-hw.Z <= p.Z+r && p.Z-r <= hw.Z
}

// IntersectsLine clips [lo, hi] against the box using the slab method in the box frame.
func (b *OBB) IntersectsLine(origin, dir r3.Vector, lo, hi float64) (float64, float64, bool) {
	return clipBox(b.toLocal(origin), b.rot.TransposeMul(dir), b.halfWidths.Mul(-1), b.halfWidths, lo, hi)
}

// IntersectsPlane reports whether the box has corners on both sides of n.x = d.
func (b *OBB) IntersectsPlane(n r3.Vector, d float64) bool {
	return cornersStraddlePlane(b.Corners(), n, d)
}

// DistanceToPoint returns the Euclidean distance from pt to the box.
func (b *OBB) DistanceToPoint(pt r3.Vector) float64 {
	return boxDistance(b.toLocal(pt), b.halfWidths)
}

// DistanceAlongLine returns the smallest |t| in [lo, hi] at which the line is inside the box.
func (b *OBB) DistanceAlongLine(origin, dir r3.Vector, lo, hi float64) float64 {
	return distanceAlongLine(b, origin, dir, lo, hi)
}

// Center returns the box center.
func (b *OBB) Center() r3.Vector {
	return b.center
}

// Radius returns half the box diagonal.
func (b *OBB) Radius() float64 {
	return b.halfWidths.Norm()
}

// Corners returns the eight corners of the box.
func (b *OBB) Corners() [8]r3.Vector {
	return boxCorners(b.center, b.halfWidths, b.axes())
}

// Scale scales the box about its center.
func (b *OBB) Scale(s float64) {
	b.halfWidths = b.halfWidths.Mul(s)
}

// transform returns the box moved by pose.
func (b *OBB) transform(pose spatialmath.Pose) *OBB {
	return &OBB{
		center:     spatialmath.TransformPoint(pose, b.center),
		rot:        pose.Orientation().RotationMatrix().MulMatrix(b.rot),
		halfWidths: b.halfWidths,
	}
}

// obbFromAABB returns the oriented box equal to an axis aligned one.
func obbFromAABB(a *AABB) *OBB {
	return &OBB{center: a.Center(), rot: spatialmath.NewIdentityRotationMatrix(), halfWidths: a.HalfWidths()}
}
