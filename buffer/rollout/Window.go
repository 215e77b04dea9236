package rollout

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Window aggregates the transitions of consecutive episodes, together
// with their discounted returns, until they are consumed by a policy
// update
type Window struct {
	capacity int
	features int
	actions  int

	states  []float64
	indices []int
	probs   []float64
	rewards []float64
	returns []float64

	length   int
	episodes int
}

// NewWindow returns a new Window which can store capacity transitions
func NewWindow(capacity, features, actions int) *Window {
	if capacity <= 0 || features <= 0 || actions <= 0 {
		panic(fmt.Sprintf("newWindow: dimensions must be positive, have "+
			"capacity=%d features=%d actions=%d", capacity, features,
			actions))
	}

	return &Window{
		capacity: capacity,
		features: features,
		actions:  actions,
		states:   make([]float64, capacity*features),
		indices:  make([]int, capacity),
		probs:    make([]float64, capacity*actions),
		rewards:  make([]float64, capacity),
		returns:  make([]float64, capacity),
	}
}

// FinishEpisode computes the discounted returns of ep, copies its
// transitions and returns into the window and resets ep
func (w *Window) FinishEpisode(ep *Episode, gamma float64) {
	if ep.features != w.features || ep.actions != w.actions {
		panic(fmt.Sprintf("finishEpisode: episode dimensions (%d, %d) do "+
			"not match window dimensions (%d, %d)", ep.features,
			ep.actions, w.features, w.actions))
	}
	n := ep.Len()
	if w.length+n > w.capacity {
		panic(fmt.Sprintf("finishEpisode: cannot add %d transitions to "+
			"window with %d of %d used", n, w.length, w.capacity))
	}

	start, stop := w.length, w.length+n
	copy(w.states[start*w.features:stop*w.features], ep.states)
	copy(w.probs[start*w.actions:stop*w.actions], ep.probs)
	copy(w.indices[start:stop], ep.indices)
	copy(w.rewards[start:stop], ep.rewards)
	DiscountedReturns(ep.Rewards(), gamma, w.returns[start:stop])

	w.length = stop
	w.episodes++
	ep.Reset()
}

// Len returns the number of transitions in the window
func (w *Window) Len() int {
	return w.length
}

// Cap returns the maximum number of transitions in the window
func (w *Window) Cap() int {
	return w.capacity
}

// Episodes returns the number of episodes finished into the window
// since it was last cleared
func (w *Window) Episodes() int {
	return w.episodes
}

// RewardSum returns the sum of all rewards in the window
func (w *Window) RewardSum() float64 {
	return floats.Sum(w.rewards[:w.length])
}

// Return returns the discounted return of transition i
func (w *Window) Return(i int) float64 {
	if i < 0 || i >= w.length {
		panic(fmt.Sprintf("return: index %d out of range [0, %d)", i,
			w.length))
	}
	return w.returns[i]
}

// Clear empties the window without releasing its storage
func (w *Window) Clear() {
	w.length = 0
	w.episodes = 0
}

// SampleBatch fills dst with batchSize transitions. Indices are drawn
// uniformly with replacement, or taken in order from the start of the
// window when sequential is true, wrapping around if the window holds
// fewer than batchSize transitions. Returns are z-normalised over the
// batch.
func (w *Window) SampleBatch(dst *Batch, batchSize int, sequential bool,
	rng *rand.Rand) error {
	if w.length == 0 {
		return fmt.Errorf("sampleBatch: cannot sample from empty window")
	}
	if batchSize <= 0 {
		return fmt.Errorf("sampleBatch: batch size must be positive")
	}
	if !sequential && rng == nil {
		return fmt.Errorf("sampleBatch: random sampling requires an rng")
	}
	dst.resize(batchSize, w.features, w.actions)

	for i := 0; i < batchSize; i++ {
		var j int
		if sequential {
			j = i % w.length
		} else {
			j = rng.Intn(w.length)
		}

		copy(dst.States[i*w.features:(i+1)*w.features],
			w.states[j*w.features:(j+1)*w.features])
		copy(dst.Probs[i*w.actions:(i+1)*w.actions],
			w.probs[j*w.actions:(j+1)*w.actions])
		dst.Actions[i] = w.indices[j]
		dst.RawReturns[i] = w.returns[j]
	}
	dst.fillOneHot()

	// Population statistics of the batch
	mean := stat.Mean(dst.RawReturns, nil)
	std := math.Sqrt(stat.Moment(2, dst.RawReturns, nil)) + 1e-8
	for i, r := range dst.RawReturns {
		dst.Returns[i] = (r - mean) / std
	}

	return nil
}
