package cli

import (
	"encoding/json"
	"math/rand"
	"os"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/bvh/bvh"
	"go.viam.com/bvh/spatialmath"
	"go.viam.com/bvh/testutils"
)

const (
	flagDebug        = "debug"
	flagShape        = "shape"
	flagSubdivisions = "subdivisions"
	flagCount        = "count"
	flagSeed         = "seed"
	flagKinds        = "kinds"
	flagMaxLeaf      = "max-leaf"
	flagOBBMethod    = "obb-method"
	flagConfig       = "config"
	flagQueries      = "queries"
	flagOffset       = "offset"
	flagOp           = "op"
	flagOut          = "out"
	flagBins         = "bins"
	flagHeight       = "height"

	shapeIcosphere = "icosphere"
	shapeBox       = "box"
	shapeSoup      = "soup"

	soupExtent = 10.
	soupSize   = 0.5
)

var meshFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  flagShape,
		Usage: "mesh to index: icosphere, box or soup",
		Value: shapeIcosphere,
	},
	&cli.IntFlag{
		Name:  flagSubdivisions,
		Usage: "icosphere subdivisions, each one quadruples the face count",
		Value: 4,
	},
	&cli.IntFlag{
		Name:  flagCount,
		Usage: "number of triangles in a random soup",
		Value: 10000,
	},
	&cli.Int64Flag{
		Name:  flagSeed,
		Usage: "random seed for soups and queries",
		Value: 1,
	},
}

var treeFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  flagKinds,
		Usage: "comma separated tree kinds to build",
		Value: bvh.KindAABB.String() + "," + bvh.KindOBB.String(),
	},
	&cli.IntFlag{
		Name:  flagMaxLeaf,
		Usage: "largest number of elements in a leaf",
		Value: bvh.DefaultMaxLeafElements,
	},
	&cli.StringFlag{
		Name:  flagOBBMethod,
		Usage: "oriented box fitting: covariance, points or convex_hull",
		Value: bvh.OBBCovariance.String(),
	},
	&cli.PathFlag{
		Name:  flagConfig,
		Usage: "load a tree config from JSON `FILE` instead of the tree flags",
	},
}

func withFlags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

type meshArgs struct {
	Shape        string `flag:"shape"`
	Subdivisions int    `flag:"subdivisions"`
	Count        int    `flag:"count"`
	Seed         int64  `flag:"seed"`
}

func (args meshArgs) mesh() (*spatialmath.Mesh, error) {
	switch args.Shape {
	case shapeIcosphere:
		if args.Subdivisions < 0 {
			return nil, errors.Errorf("subdivisions must not be negative, got %d", args.Subdivisions)
		}
		return testutils.Icosphere(args.Subdivisions, 1), nil
	case shapeBox:
		return testutils.BoxMesh(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1}), nil
	case shapeSoup:
		if args.Count < 1 {
			return nil, errors.Errorf("count must be positive, got %d", args.Count)
		}
		rng := rand.New(rand.NewSource(args.Seed))
		return spatialmath.NewMesh(spatialmath.NewZeroPose(), testutils.RandomTriangles(rng, args.Count, soupExtent, soupSize), shapeSoup), nil
	}
	return nil, errors.Errorf("unknown shape %q", args.Shape)
}

type treeArgs struct {
	Kinds     string `flag:"kinds"`
	MaxLeaf   int    `flag:"max-leaf"`
	OBBMethod string `flag:"obb-method"`
	Config    string `flag:"config"`
}

// configs returns the tree configs to build, one per requested kind or the one in the config file.
func (args treeArgs) configs() ([]*bvh.Config, error) {
	if args.Config != "" {
		//nolint:gosec
		data, err := os.ReadFile(args.Config)
		if err != nil {
			return nil, errors.Wrap(err, "reading tree config")
		}
		var attributes map[string]interface{}
		if err := json.Unmarshal(data, &attributes); err != nil {
			return nil, errors.Wrapf(err, "parsing tree config %s", args.Config)
		}
		conf, err := bvh.DecodeConfig(attributes)
		if err != nil {
			return nil, err
		}
		if err := conf.Validate(args.Config); err != nil {
			return nil, err
		}
		return []*bvh.Config{conf}, nil
	}
	var confs []*bvh.Config
	for _, kind := range strings.Split(args.Kinds, ",") {
		conf := &bvh.Config{Type: strings.TrimSpace(kind), MaxLeafElements: args.MaxLeaf, OBBMethod: args.OBBMethod}
		if err := conf.Validate(flagKinds); err != nil {
			return nil, err
		}
		confs = append(confs, conf)
	}
	return confs, nil
}
