package nn

import (
	"fmt"

	"epochkit/internal/seed"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"
)

// Sequential chains modules, feeding each output into the next.
type Sequential struct {
	layers []Module
}

// NewSequential builds a container over layers in order.
func NewSequential(layers ...Module) *Sequential {
	return &Sequential{layers: layers}
}

// NewMLP builds a classifier with ReLU hidden layers and optional dropout
// after each of them. Weights and masks draw from the global seed.
func NewMLP(inputs int, hidden []int, classes int, dropout float64) *Sequential {
	initRNG := seed.Stream(seed.StreamInit)
	dropRNG := seed.Stream(seed.StreamDropout)
	var layers []Module
	prev := inputs
	for i, h := range hidden {
		layers = append(layers, NewLinear(fmt.Sprintf("fc%d", i), prev, h, initRNG), &ReLU{})
		if dropout > 0 {
			layers = append(layers, NewDropout(dropout, dropRNG))
		}
		prev = h
	}
	layers = append(layers, NewLinear(fmt.Sprintf("fc%d", len(hidden)), prev, classes, initRNG))
	return NewSequential(layers...)
}

func (s *Sequential) Forward(x *mat.Dense) (*mat.Dense, error) {
	out := x
	for i, l := range s.layers {
		var err error
		out, err = l.Forward(out)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return out, nil
}

func (s *Sequential) Backward(grad *mat.Dense) *mat.Dense {
	for i := len(s.layers) - 1; i >= 0; i-- {
		grad = s.layers[i].Backward(grad)
	}
	return grad
}

func (s *Sequential) Params() []*Param {
	var ps []*Param
	for _, l := range s.layers {
		ps = append(ps, l.Params()...)
	}
	return ps
}

func (s *Sequential) SetTraining(training bool) {
	for _, l := range s.layers {
		l.SetTraining(training)
	}
}

func (s *Sequential) Name() string { return "Sequential" }

// Layers returns the contained modules.
func (s *Sequential) Layers() []Module { return s.layers }

// Graph returns the dataflow of the container: an input node followed by one
// node per layer.
func (s *Sequential) Graph() graph.Directed {
	g := simple.NewDirectedGraph()
	var prev graph.Node = &Node{id: 0, name: "input", label: "input"}
	g.AddNode(prev)
	for i, l := range s.layers {
		n := &Node{id: int64(i + 1), name: fmt.Sprintf("layer%d", i), label: l.Name()}
		g.AddNode(n)
		g.SetEdge(g.NewEdge(prev, n))
		prev = n
	}
	return g
}

// Node is a graph vertex naming one module.
type Node struct {
	id    int64
	name  string
	label string
}

func (n *Node) ID() int64 { return n.id }

// DOTID is the identifier used when the graph is DOT-encoded.
func (n *Node) DOTID() string { return n.name }

// Label is the human readable module description.
func (n *Node) Label() string { return n.label }

func (n *Node) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "label", Value: n.label}}
}
