// Package cli contains the bvhbench command line tool, which builds and queries bounding volume
// trees over synthetic meshes and reports how they perform.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/bvh/csg"
)

var app = &cli.App{
	Name:            "bvhbench",
	Usage:           "build and query bounding volume trees over synthetic meshes",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:   "build",
			Usage:  "build trees and print their shape and build time",
			Flags:  withFlags(meshFlags, treeFlags),
			Action: createCommandWithT[buildArgs](BuildAction),
		},
		{
			Name:  "query",
			Usage: "time nearest point, ray and inside queries",
			Flags: withFlags(meshFlags, treeFlags, []cli.Flag{
				&cli.IntFlag{
					Name:  flagQueries,
					Usage: "number of random queries of each type",
					Value: 10000,
				},
			}),
			Action: createCommandWithT[queryArgs](QueryAction),
		},
		{
			Name:  "plot",
			Usage: "plot a histogram of leaf depths",
			Flags: withFlags(meshFlags, treeFlags, []cli.Flag{
				&cli.PathFlag{
					Name:  flagOut,
					Usage: "write the plot to `FILE`, the extension picks the format",
					Value: "leaf_depths.png",
				},
				&cli.IntFlag{
					Name:  flagBins,
					Usage: "number of histogram bins",
					Value: 16,
				},
			}),
			Action: createCommandWithT[plotArgs](PlotAction),
		},
		{
			Name:  "slice",
			Usage: "cut the mesh with the plane z = height and report the contour",
			Flags: withFlags(meshFlags, treeFlags, []cli.Flag{
				&cli.Float64Flag{
					Name:  flagHeight,
					Usage: "height of the cutting plane",
				},
			}),
			Action: createCommandWithT[sliceArgs](SliceAction),
		},
		{
			Name:  "collide",
			Usage: "find face contacts between a mesh and a shifted copy",
			Flags: withFlags(meshFlags, []cli.Flag{
				&cli.Float64Flag{
					Name:  flagOffset,
					Usage: "shift of the copy along x",
					Value: 1,
				},
			}),
			Action: createCommandWithT[pairArgs](CollideAction),
		},
		{
			Name:  "compose",
			Usage: "apply a boolean operation to a closed mesh and a shifted copy",
			Flags: withFlags(meshFlags, []cli.Flag{
				&cli.Float64Flag{
					Name:  flagOffset,
					Usage: "shift of the copy along x",
					Value: 1,
				},
				&cli.StringFlag{
					Name:  flagOp,
					Usage: "union, intersection or difference",
					Value: csg.OpUnion.String(),
				},
			}),
			Action: createCommandWithT[pairArgs](ComposeAction),
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
