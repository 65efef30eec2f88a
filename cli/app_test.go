package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v2"
	"go.viam.com/test"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	mock := clock.NewMock()
	prev := benchClock
	benchClock = mock
	t.Cleanup(func() { benchClock = prev })

	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run(append([]string{"bvhbench"}, args...))
	return out.String(), err
}

func TestParseStructFromCtx(t *testing.T) {
	var got queryArgs
	testApp := &cli.App{
		Commands: []*cli.Command{{
			Name: "q",
			Flags: withFlags(meshFlags, treeFlags, []cli.Flag{
				&cli.IntFlag{Name: flagQueries, Value: 1},
			}),
			Action: createCommandWithT[queryArgs](func(c *cli.Context, args queryArgs) error {
				got = args
				return nil
			}),
		}},
	}
	err := testApp.Run([]string{"x", "q", "--shape", "soup", "--count", "5", "--seed", "7", "--queries", "3", "--max-leaf", "4"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, queryArgs{
		Mesh:    meshArgs{Shape: shapeSoup, Subdivisions: 4, Count: 5, Seed: 7},
		Tree:    treeArgs{Kinds: "aabb,obb", MaxLeaf: 4, OBBMethod: "covariance"},
		Queries: 3,
	})
}

func TestBuildCommand(t *testing.T) {
	out, err := runApp(t, "build", "--shape", "icosphere", "--subdivisions", "1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "Build time")
	test.That(t, out, test.ShouldContainSubstring, "aabb")
	test.That(t, out, test.ShouldContainSubstring, "obb")
	test.That(t, out, test.ShouldContainSubstring, "80")
	test.That(t, out, test.ShouldContainSubstring, "0s")

	out, err = runApp(t, "build", "--shape", "soup", "--count", "50", "--kinds", "obb", "--obb-method", "points")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldNotContainSubstring, "aabb")

	_, err = runApp(t, "build", "--kinds", "aabb,kdop")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown tree type "kdop"`)

	_, err = runApp(t, "build", "--shape", "torus")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown shape "torus"`)
}

func TestBuildCommandConfig(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "tree.json")
	test.That(t, os.WriteFile(good, []byte(`{"type": "obb", "max_leaf_elements": 4, "obb_method": "convex_hull"}`), 0o600), test.ShouldBeNil)
	out, err := runApp(t, "build", "--shape", "box", "--config", good)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "obb")
	test.That(t, out, test.ShouldNotContainSubstring, "aabb")

	bad := filepath.Join(dir, "bad.json")
	test.That(t, os.WriteFile(bad, []byte(`{"max_leaf_elements": -3}`), 0o600), test.ShouldBeNil)
	_, err = runApp(t, "build", "--config", bad)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "is required")

	_, err = runApp(t, "build", "--config", filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "reading tree config")
}

func TestQueryCommand(t *testing.T) {
	out, err := runApp(t, "query", "--shape", "box", "--queries", "200")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "Rays/s")
	test.That(t, out, test.ShouldContainSubstring, "200")

	// random soups are not closed, so there is no inside count
	out, err = runApp(t, "query", "--shape", "soup", "--count", "100", "--queries", "10", "--kinds", "aabb")
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	var row string
	for _, line := range lines {
		if strings.Contains(line, "aabb") {
			row = line
		}
	}
	test.That(t, row, test.ShouldEndWith, "- |")

	_, err = runApp(t, "query", "--queries", "0")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlotCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depths.png")
	out, err := runApp(t, "plot", "--shape", "icosphere", "--subdivisions", "2", "--out", path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "wrote "+path)
	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)

	_, err = runApp(t, "plot", "--bins", "0", "--out", path)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSliceCommand(t *testing.T) {
	out, err := runApp(t, "slice", "--shape", "box", "--height", "0.5")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "Segments")
	// each of the four side faces of the unit box is two triangles
	test.That(t, out, test.ShouldContainSubstring, "8.0000")

	out, err = runApp(t, "slice", "--shape", "box", "--height", "3", "--kinds", "aabb")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "0.0000")
}

func TestCollideAndComposeCommands(t *testing.T) {
	out, err := runApp(t, "collide", "--shape", "box", "--offset", "1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "Contacts")

	out, err = runApp(t, "compose", "--shape", "icosphere", "--subdivisions", "1", "--offset", "0.5", "--op", "intersection")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "intersection")

	_, err = runApp(t, "compose", "--op", "xor")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown boolean operation "xor"`)

	// a soup is not closed
	_, err = runApp(t, "compose", "--shape", "soup", "--count", "10")
	test.That(t, err, test.ShouldNotBeNil)
}
