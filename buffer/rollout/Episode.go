// Package rollout implements fixed-capacity buffers for on-policy
// policy gradient training.
//
// An Episode collects the transitions of the current episode. When the
// episode ends, its transitions and their discounted returns are copied
// into a Window, which aggregates several episodes until the next
// policy update. Neither buffer ever grows: storage is allocated once
// and reused, and exceeding a capacity is a programming error which
// causes a panic.
package rollout

import "fmt"

// Episode stores the transitions of a single episode
type Episode struct {
	capacity int
	features int
	actions  int

	states  []float64
	indices []int
	probs   []float64
	rewards []float64

	length int
}

// NewEpisode returns a new Episode which can store capacity
// transitions of states with the given number of features and
// policies over the given number of actions
func NewEpisode(capacity, features, actions int) *Episode {
	if capacity <= 0 || features <= 0 || actions <= 0 {
		panic(fmt.Sprintf("newEpisode: dimensions must be positive, have "+
			"capacity=%d features=%d actions=%d", capacity, features,
			actions))
	}

	return &Episode{
		capacity: capacity,
		features: features,
		actions:  actions,
		states:   make([]float64, capacity*features),
		indices:  make([]int, capacity),
		probs:    make([]float64, capacity*actions),
		rewards:  make([]float64, capacity),
	}
}

// Append stores a transition at the current step of the episode
func (e *Episode) Append(state []float64, action int, probs []float64,
	reward float64) {
	if e.length >= e.capacity {
		panic(fmt.Sprintf("append: episode buffer full at %d transitions",
			e.capacity))
	}
	if len(state) != e.features {
		panic(fmt.Sprintf("append: illegal state length \n\twant(%v)"+
			"\n\thave(%v)", e.features, len(state)))
	}
	if len(probs) != e.actions {
		panic(fmt.Sprintf("append: illegal probs length \n\twant(%v)"+
			"\n\thave(%v)", e.actions, len(probs)))
	}
	if action < 0 || action >= e.actions {
		panic(fmt.Sprintf("append: action %d out of range [0, %d)", action,
			e.actions))
	}

	copy(e.states[e.length*e.features:], state)
	copy(e.probs[e.length*e.actions:], probs)
	e.indices[e.length] = action
	e.rewards[e.length] = reward
	e.length++
}

// Len returns the number of transitions in the episode
func (e *Episode) Len() int {
	return e.length
}

// Cap returns the maximum number of transitions in an episode
func (e *Episode) Cap() int {
	return e.capacity
}

// Rewards returns the rewards of the episode. The returned slice
// aliases the buffer and is only valid until the next Append or Reset.
func (e *Episode) Rewards() []float64 {
	return e.rewards[:e.length]
}

// Reset empties the episode without releasing its storage
func (e *Episode) Reset() {
	e.length = 0
}
