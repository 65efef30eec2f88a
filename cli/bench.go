package cli

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/bvh/bvh"
	"go.viam.com/bvh/collision"
	"go.viam.com/bvh/csg"
	"go.viam.com/bvh/logging"
	"go.viam.com/bvh/spatialmath"
	"go.viam.com/bvh/testutils"
)

// benchClock times every command. Tests replace it with a mock.
var benchClock = clock.New()

func timed(f func() error) (time.Duration, error) {
	start := benchClock.Now()
	err := f()
	return benchClock.Since(start), err
}

func renderTable(w io.Writer, header []string, rows [][]string) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetHeader(header)
	table.AppendBulk(rows)
	table.Render()
	printf(w, "%s", buf.String())
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format, a...)
}

func perSecond(n int, d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f", float64(n)/d.Seconds())
}

type builtTree struct {
	conf *bvh.Config
	tree *bvh.Tree
	took time.Duration
}

func buildTrees(m *spatialmath.Mesh, targs treeArgs, logger logging.Logger) ([]builtTree, error) {
	confs, err := targs.configs()
	if err != nil {
		return nil, err
	}
	elements := bvh.TriangleElements(m.Triangles())
	out := make([]builtTree, 0, len(confs))
	for _, conf := range confs {
		var tree *bvh.Tree
		took, err := timed(func() error {
			var err error
			tree, err = conf.NewTree(elements, logger)
			return err
		})
		if err != nil {
			return nil, errors.Wrapf(err, "building %s tree", conf.Type)
		}
		out = append(out, builtTree{conf: conf, tree: tree, took: took})
	}
	return out, nil
}

type buildArgs struct {
	Mesh meshArgs
	Tree treeArgs
}

// BuildAction builds trees over a synthetic mesh and prints their shape and build time.
func BuildAction(c *cli.Context, args buildArgs) error {
	logger := loggerFromCtx(c)
	m, err := args.Mesh.mesh()
	if err != nil {
		return err
	}
	trees, err := buildTrees(m, args.Tree, logger)
	if err != nil {
		return err
	}
	var rows [][]string
	for _, bt := range trees {
		s, err := bt.tree.Stats()
		if err != nil {
			return err
		}
		rows = append(rows, []string{
			bt.conf.Type,
			fmt.Sprintf("%d", bt.tree.NumElements()),
			fmt.Sprintf("%d", s.Nodes),
			fmt.Sprintf("%d", s.Leaves),
			fmt.Sprintf("%d", s.MaxDepth),
			fmt.Sprintf("%.2f", s.MeanLeafDepth),
			fmt.Sprintf("%.2f", s.StdDevLeafDepth),
			fmt.Sprintf("%.2f", s.MeanLeafSize),
			fmt.Sprintf("%d", s.MaxLeafSize),
			bt.took.String(),
		})
	}
	renderTable(c.App.Writer, []string{
		"Tree", "Elements", "Nodes", "Leaves", "Max depth", "Mean depth", "Depth stddev", "Mean leaf", "Max leaf", "Build time",
	}, rows)
	return nil
}

type queryArgs struct {
	Mesh    meshArgs
	Tree    treeArgs
	Queries int `flag:"queries"`
}

// QueryAction times nearest point, ray and inside queries against trees over a synthetic mesh.
func QueryAction(c *cli.Context, args queryArgs) error {
	if args.Queries < 1 {
		return errors.Errorf("queries must be positive, got %d", args.Queries)
	}
	logger := loggerFromCtx(c)
	m, err := args.Mesh.mesh()
	if err != nil {
		return err
	}
	trees, err := buildTrees(m, args.Tree, logger)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(args.Mesh.Seed))
	var extent float64
	for _, v := range m.Vertices() {
		extent = max(extent, v.Norm())
	}
	points := testutils.RandomPoints(rng, args.Queries, 1.5*extent)
	dirs := make([]r3.Vector, args.Queries)
	for i := range dirs {
		dirs[i] = testutils.RandomDirection(rng)
	}
	closed := m.IsClosed()

	var rows [][]string
	for _, bt := range trees {
		var nearest []bvh.NearestResult
		nearestTook, err := timed(func() error {
			var err error
			nearest, err = bt.tree.BatchNearestPoints(c.Context, points)
			return err
		})
		if err != nil {
			return err
		}
		var hits []bvh.RayHit
		rayTook, err := timed(func() error {
			var err error
			hits, err = bt.tree.BatchNearestAlongRays(c.Context, points, dirs)
			return err
		})
		if err != nil {
			return err
		}
		numHits := 0
		for _, h := range hits {
			if h.Element != nil {
				numHits++
			}
		}
		inside := "-"
		if closed {
			n := 0
			for _, p := range points {
				if bvh.IsInsideMesh(bt.tree, p) {
					n++
				}
			}
			inside = fmt.Sprintf("%d", n)
		}
		rows = append(rows, []string{
			bt.conf.Type,
			fmt.Sprintf("%d", len(nearest)),
			perSecond(len(nearest), nearestTook),
			fmt.Sprintf("%d", numHits),
			perSecond(len(hits), rayTook),
			inside,
		})
	}
	renderTable(c.App.Writer, []string{"Tree", "Queries", "Nearest/s", "Ray hits", "Rays/s", "Inside"}, rows)
	return nil
}

type sliceArgs struct {
	Mesh   meshArgs
	Tree   treeArgs
	Height float64 `flag:"height"`
}

// SliceAction cuts a synthetic mesh with a horizontal plane using each requested tree.
func SliceAction(c *cli.Context, args sliceArgs) error {
	m, err := args.Mesh.mesh()
	if err != nil {
		return err
	}
	trees, err := buildTrees(m, args.Tree, loggerFromCtx(c))
	if err != nil {
		return err
	}
	up := r3.Vector{Z: 1}
	var rows [][]string
	for _, bt := range trees {
		var cuts []bvh.PlaneCut
		took, _ := timed(func() error {
			cuts = bt.tree.SlicePlane(up, args.Height)
			return nil
		})
		length := 0.
		for _, cut := range cuts {
			length += cut.P0.Distance(cut.P1)
		}
		rows = append(rows, []string{
			bt.conf.Type,
			fmt.Sprintf("%g", args.Height),
			fmt.Sprintf("%d", len(cuts)),
			fmt.Sprintf("%.4f", length),
			took.String(),
		})
	}
	renderTable(c.App.Writer, []string{"Tree", "Height", "Segments", "Length", "Time"}, rows)
	return nil
}

type pairArgs struct {
	Mesh   meshArgs
	Offset float64 `flag:"offset"`
	Op     string  `flag:"op"`
}

// pair returns the mesh and a copy of it moved along x by the offset.
func (args pairArgs) pair() (*spatialmath.Mesh, *spatialmath.Mesh, error) {
	m, err := args.Mesh.mesh()
	if err != nil {
		return nil, nil, err
	}
	return m, m.Transform(spatialmath.NewPoseFromPoint(r3.Vector{X: args.Offset})), nil
}

// CollideAction reports the face contacts between a mesh and a shifted copy of it.
func CollideAction(c *cli.Context, args pairArgs) error {
	a, b, err := args.pair()
	if err != nil {
		return err
	}
	logger := loggerFromCtx(c)
	var contacts []collision.Contact
	took, err := timed(func() error {
		var err error
		contacts, err = collision.MeshContacts(a, b, bvh.WithLogger(logger))
		return err
	})
	if err != nil {
		return err
	}
	points := 0
	for _, ct := range contacts {
		points += len(ct.Points)
	}
	renderTable(c.App.Writer, []string{"Faces", "Offset", "Contacts", "Points", "Time"}, [][]string{{
		fmt.Sprintf("%d", len(a.Triangles())),
		fmt.Sprintf("%g", args.Offset),
		fmt.Sprintf("%d", len(contacts)),
		fmt.Sprintf("%d", points),
		took.String(),
	}})
	return nil
}

// ComposeAction applies a Boolean operation to a mesh and a shifted copy of it.
func ComposeAction(c *cli.Context, args pairArgs) error {
	op, err := csg.OpFromString(args.Op)
	if err != nil {
		return err
	}
	a, b, err := args.pair()
	if err != nil {
		return err
	}
	var res *csg.Result
	took, err := timed(func() error {
		var err error
		res, err = csg.Compose(c.Context, op, a, b, csg.WithLogger(loggerFromCtx(c)))
		return err
	})
	if err != nil {
		return err
	}
	renderTable(c.App.Writer, []string{"Op", "Crossings", "Faces A", "Faces B", "Cut A", "Cut B", "Time"}, [][]string{{
		op.String(),
		fmt.Sprintf("%d", len(res.Crossings)),
		fmt.Sprintf("%d", len(res.FacesA)),
		fmt.Sprintf("%d", len(res.FacesB)),
		fmt.Sprintf("%d", len(res.CutFacesA)),
		fmt.Sprintf("%d", len(res.CutFacesB)),
		took.String(),
	}})
	return nil
}
