package policy

import (
	"fmt"

	"github.com/samuelfneumann/dronerl/network"
	"github.com/samuelfneumann/dronerl/utils/op"
	G "gorgonia.org/gorgonia"
)

// runner runs a copy of a network with a fixed batch size on its own
// graph and VM
type runner struct {
	net    network.NeuralNet
	out    *G.Node
	outVal G.Value
	vm     G.VM
	stale  bool
}

func newRunner(source network.NeuralNet, batch int,
	softmax bool) (*runner, error) {
	net, err := source.CloneWithBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("newRunner: could not clone network: %v", err)
	}

	out := net.Prediction()
	if softmax {
		logProbs, err := op.LogSoftMax(out)
		if err != nil {
			return nil, fmt.Errorf("newRunner: could not compute log "+
				"probabilities: %v", err)
		}
		if out, err = G.Exp(logProbs); err != nil {
			return nil, fmt.Errorf("newRunner: could not compute "+
				"probabilities: %v", err)
		}
	}

	r := &runner{net: net, out: out}
	G.Read(r.out, &r.outVal)
	r.vm = G.NewTapeMachine(net.Graph())
	return r, nil
}

// run computes the output of the network on input, which holds one
// row per sample. The returned slice is owned by the caller.
func (r *runner) run(input []float64) ([]float64, error) {
	if err := r.net.SetInput(input); err != nil {
		return nil, fmt.Errorf("run: could not set input: %v", err)
	}
	defer r.vm.Reset()
	if err := r.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("run: could not run network: %v", err)
	}

	out, ok := r.outVal.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("run: unexpected output type %T",
			r.outVal.Data())
	}
	return append([]float64(nil), out...), nil
}

// follower lazily keeps batched copies of a source network in sync
// with its weights
type follower struct {
	source  network.NeuralNet
	softmax bool
	runners map[int]*runner
}

func newFollower(source network.NeuralNet, softmax bool) *follower {
	return &follower{
		source:  source,
		softmax: softmax,
		runners: make(map[int]*runner),
	}
}

// get returns the runner for a batch size, creating it if needed and
// copying the source weights if they changed since it last ran
func (f *follower) get(batch int) (*runner, error) {
	r, ok := f.runners[batch]
	if !ok {
		var err error
		if r, err = newRunner(f.source, batch, f.softmax); err != nil {
			return nil, err
		}
		f.runners[batch] = r
		return r, nil
	}

	if r.stale {
		if err := network.Set(r.net, f.source); err != nil {
			return nil, fmt.Errorf("get: could not sync weights: %v", err)
		}
		r.stale = false
	}
	return r, nil
}

// sync marks all copies as out of date with the source
func (f *follower) sync() {
	for _, r := range f.runners {
		r.stale = true
	}
}

func (f *follower) close() error {
	var err error
	for batch, r := range f.runners {
		if closeErr := r.vm.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		delete(f.runners, batch)
	}
	return err
}
