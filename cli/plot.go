package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

type plotArgs struct {
	Mesh meshArgs
	Tree treeArgs
	Out  string `flag:"out"`
	Bins int    `flag:"bins"`
}

// PlotAction writes a histogram of the leaf depths of each requested tree to an image.
func PlotAction(c *cli.Context, args plotArgs) error {
	if args.Bins < 1 {
		return errors.Errorf("bins must be positive, got %d", args.Bins)
	}
	m, err := args.Mesh.mesh()
	if err != nil {
		return err
	}
	trees, err := buildTrees(m, args.Tree, loggerFromCtx(c))
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("leaf depths over %d %s faces", len(m.Triangles()), args.Mesh.Shape)
	p.X.Label.Text = "depth"
	p.Y.Label.Text = "leaves"
	p.Legend.Top = true
	for i, bt := range trees {
		hist, err := plotter.NewHist(plotter.Values(bt.tree.LeafDepths()), args.Bins)
		if err != nil {
			return errors.Wrapf(err, "binning %s leaf depths", bt.conf.Type)
		}
		hist.FillColor = plotutil.Color(i)
		p.Add(hist)
		p.Legend.Add(bt.conf.Type, hist)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, args.Out); err != nil {
		return errors.Wrap(err, "saving leaf depth plot")
	}
	printf(c.App.Writer, "wrote %s\n", args.Out)
	return nil
}
