package pipeline

import (
	"fmt"
	"io"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/pkg/errors"
)

// StageGraph builds the directed stage chain of plan. Vertices are stage
// names labelled with their completion policy; each stage has an edge to the
// next one.
func StageGraph(plan Plan) (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for _, st := range plan.Stages {
		err := g.AddVertex(st.Name(),
			graph.VertexAttribute("shape", "box"),
			graph.VertexAttribute("label", st.Name()+`\n`+describeCompletion(st.Completion())),
		)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to add stage %s", st.Name())
		}
	}
	for i := 1; i < len(plan.Stages); i++ {
		from, to := plan.Stages[i-1].Name(), plan.Stages[i].Name()
		if err := g.AddEdge(from, to); err != nil {
			return nil, errors.Wrapf(err, "unable to link %s to %s", from, to)
		}
	}
	return g, nil
}

// WriteDOT renders the stage chain of plan in Graphviz DOT format.
func WriteDOT(w io.Writer, plan Plan) error {
	g, err := StageGraph(plan)
	if err != nil {
		return err
	}
	if err := draw.DOT(g, w, draw.GraphAttribute("label", string(plan.Kind))); err != nil {
		return errors.Wrap(err, "unable to render stage graph")
	}
	return nil
}

// checkPlan rejects plans whose stage names are not unique or whose chain
// does not sort back into plan order.
func checkPlan(plan Plan) error {
	if len(plan.Stages) == 0 {
		return fmt.Errorf("%s plan has no stages", plan.Kind)
	}
	g, err := StageGraph(plan)
	if err != nil {
		return err
	}
	order, err := graph.TopologicalSort(g)
	if err != nil {
		return errors.Wrap(err, "unable to order stages")
	}
	for i, name := range plan.StageNames() {
		if order[i] != name {
			return fmt.Errorf("stage %s out of order (got %s at %d)", name, order[i], i)
		}
	}
	return nil
}

func describeCompletion(c Completion) string {
	switch p := c.(type) {
	case SettlePolicy:
		if p.Close {
			return fmt.Sprintf("settle %s, close", p.Delay)
		}
		return fmt.Sprintf("settle %s", p.Delay)
	case CPUWait:
		return fmt.Sprintf("cpu < %g%% every %s, timeout %s", p.Policy.Threshold, p.Policy.Interval, p.Policy.Timeout)
	case ExitPolicy:
		return fmt.Sprintf("exit within %s", p.Timeout)
	}
	return ""
}
