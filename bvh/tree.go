package bvh

import (
	"fmt"
	"io"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/bvh/logging"
	"go.viam.com/bvh/spatialmath"
	"go.viam.com/bvh/utils"
)

// Kind names the bounding shape a tree uses.
type Kind int

const (
	// KindAABB trees use axis aligned boxes.
	KindAABB Kind = iota
	// KindOBB trees use oriented boxes.
	KindOBB
)

func (k Kind) String() string {
	switch k {
	case KindAABB:
		return "aabb"
	case KindOBB:
		return "obb"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

const (
	// DefaultMaxLeafElements is the largest number of elements a leaf holds unless configured.
	DefaultMaxLeafElements = 2
	// DefaultMargin asks the builder to derive the margin from the size of the element set.
	DefaultMargin = -1.
	// relativeMargin is the derived margin as a fraction of the element set's radius.
	relativeMargin = 1e-8
)

type treeOptions struct {
	maxLeafElements int
	margin          float64
	obbMethod       OBBMethod
	logger          logging.Logger
}

// Option configures a Tree.
type Option func(*treeOptions)

// WithMaxLeafElements sets the number of elements at or below which a node becomes a leaf.
func WithMaxLeafElements(n int) Option {
	return func(o *treeOptions) { o.maxLeafElements = n }
}

// WithMargin sets the distance every bound is inflated by. DefaultMargin derives it from the
// size of the element set.
func WithMargin(margin float64) Option {
	return func(o *treeOptions) { o.margin = margin }
}

// WithOBBMethod selects how oriented boxes are fit. It has no effect on AABB trees.
func WithOBBMethod(m OBBMethod) Option {
	return func(o *treeOptions) { o.obbMethod = m }
}

// WithLogger sets the logger the tree reports builds and refits to.
func WithLogger(logger logging.Logger) Option {
	return func(o *treeOptions) { o.logger = logger }
}

// Tree is a bounding volume hierarchy over a set of elements. Build and Update must not run
// concurrently with each other or with queries; queries may run concurrently with each other.
type Tree struct {
	kind Kind
	opts treeOptions

	// margin is the margin used by the last build, with DefaultMargin resolved.
	margin float64
	nodes  []node
	root   int
	// order maps depth-first numbers to arena indices.
	order   []int
	elems   []Boundable
	toWorld spatialmath.Pose
	logger  logging.Logger
}

// NewAABBTree builds an axis aligned box tree over elements.
func NewAABBTree(elements []Boundable, opts ...Option) (*Tree, error) {
	return newTree(KindAABB, elements, opts...)
}

// NewOBBTree builds an oriented box tree over elements.
func NewOBBTree(elements []Boundable, opts ...Option) (*Tree, error) {
	return newTree(KindOBB, elements, opts...)
}

func newTree(kind Kind, elements []Boundable, opts ...Option) (*Tree, error) {
	o := treeOptions{
		maxLeafElements: DefaultMaxLeafElements,
		margin:          DefaultMargin,
		obbMethod:       OBBCovariance,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxLeafElements < 1 {
		return nil, errors.Errorf("max leaf elements must be at least 1, got %d", o.maxLeafElements)
	}
	if o.margin < 0 && o.margin != DefaultMargin {
		return nil, utils.NewNegativeValueError("margin", o.margin)
	}
	if o.logger == nil {
		o.logger = logging.Global()
	}
	t := &Tree{
		kind:    kind,
		opts:    o,
		root:    -1,
		toWorld: spatialmath.NewZeroPose(),
		logger:  o.logger.Sublogger(kind.String()),
	}
	if err := t.Build(elements); err != nil {
		return nil, err
	}
	return t, nil
}

// Kind returns the tree's bounding shape.
func (t *Tree) Kind() Kind {
	return t.kind
}

// Margin returns the margin applied by the last build.
func (t *Tree) Margin() float64 {
	return t.margin
}

// MaxLeafElements returns the split threshold.
func (t *Tree) MaxLeafElements() int {
	return t.opts.maxLeafElements
}

// NumElements returns the number of elements in the tree.
func (t *Tree) NumElements() int {
	return len(t.elems)
}

// NumNodes returns the number of nodes in the tree.
func (t *Tree) NumNodes() int {
	return len(t.nodes)
}

// Root returns the root node, or nil for an empty tree.
func (t *Tree) Root() *Node {
	if t.root < 0 {
		return nil
	}
	return t.handle(t.root)
}

// Node returns the node with the given depth-first number, or nil if there is none.
func (t *Tree) Node(number int) *Node {
	if number < 0 || number >= len(t.order) {
		return nil
	}
	return t.handle(t.order[number])
}

func (t *Tree) handle(idx int) *Node {
	return &Node{tree: t, idx: idx}
}

// Leaves returns the leaves in depth-first order.
func (t *Tree) Leaves() []*Node {
	var out []*Node
	for _, idx := range t.order {
		if t.nodes[idx].isLeaf() {
			out = append(out, t.handle(idx))
		}
	}
	return out
}

// Depth returns the largest node depth, or -1 for an empty tree.
func (t *Tree) Depth() int {
	depth := -1
	for i := range t.nodes {
		depth = utils.MaxInt(depth, t.nodes[i].depth)
	}
	return depth
}

// Center returns the center of the root bound.
func (t *Tree) Center() r3.Vector {
	if t.root < 0 {
		return r3.Vector{}
	}
	return t.nodes[t.root].volume.Center()
}

// Radius returns the radius of the root bound, 0 for an empty tree.
func (t *Tree) Radius() float64 {
	if t.root < 0 {
		return 0
	}
	return t.nodes[t.root].volume.Radius()
}

// SetToWorld sets the transform from the tree's local frame to the world frame. Bounds are stored
// in the local frame; the transform is used when comparing against other trees.
func (t *Tree) SetToWorld(pose spatialmath.Pose) {
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}
	t.toWorld = pose
}

// ToWorld returns the local-to-world transform.
func (t *Tree) ToWorld() spatialmath.Pose {
	return t.toWorld
}

// NumberNodes assigns depth-first numbers to the nodes, children in order.
func (t *Tree) NumberNodes() {
	t.order = t.order[:0]
	if t.root < 0 {
		return
	}
	stack := []int{t.root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t.nodes[idx].number = len(t.order)
		t.order = append(t.order, idx)
		children := t.nodes[idx].children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// Print writes one line per node, indented by depth, in depth-first order.
func (t *Tree) Print(w io.Writer) error {
	for _, idx := range t.order {
		nd := &t.nodes[idx]
		line := fmt.Sprintf("%s%d: %v", strings.Repeat("  ", nd.depth), nd.number, nd.volume)
		if nd.isLeaf() {
			line += fmt.Sprintf(" elements=%d", nd.hi-nd.lo)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) String() string {
	var sb strings.Builder
	//nolint:errcheck
	t.Print(&sb)
	return sb.String()
}

// Stats summarizes the shape of a tree.
type Stats struct {
	Nodes           int
	Leaves          int
	MaxDepth        int
	MeanLeafDepth   float64
	MedianLeafDepth float64
	StdDevLeafDepth float64
	MeanLeafSize    float64
	MaxLeafSize     int
}

// LeafDepths returns the depth of every leaf in depth-first order.
func (t *Tree) LeafDepths() []float64 {
	var depths []float64
	for _, leaf := range t.Leaves() {
		depths = append(depths, float64(leaf.Depth()))
	}
	return depths
}

// Stats computes node counts and leaf depth and size statistics.
func (t *Tree) Stats() (Stats, error) {
	leaves := t.Leaves()
	s := Stats{Nodes: t.NumNodes(), Leaves: len(leaves), MaxDepth: t.Depth()}
	if len(leaves) == 0 {
		return s, nil
	}
	depths := t.LeafDepths()
	sizes := make([]float64, 0, len(leaves))
	for _, leaf := range leaves {
		sizes = append(sizes, float64(leaf.NumElements()))
		s.MaxLeafSize = utils.MaxInt(s.MaxLeafSize, leaf.NumElements())
	}
	var err1, err2, err3, err4 error
	s.MeanLeafDepth, err1 = stats.Mean(depths)
	s.MedianLeafDepth, err2 = stats.Median(depths)
	s.StdDevLeafDepth, err3 = stats.StandardDeviation(depths)
	s.MeanLeafSize, err4 = stats.Mean(sizes)
	if err := multierr.Combine(err1, err2, err3, err4); err != nil {
		return s, errors.Wrap(err, "computing leaf statistics")
	}
	return s, nil
}
