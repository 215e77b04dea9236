package rollout

// Batch is a minibatch of transitions sampled from a Window. All
// matrices are stored row-major with one row per sample.
type Batch struct {
	Size     int
	Features int
	NActions int

	States  []float64 // Size x Features
	Actions []int     // Size
	OneHot  []float64 // Size x NActions, one-hot chosen actions
	Probs   []float64 // Size x NActions, rollout-time probabilities

	// Discounted returns before and after z-normalisation
	RawReturns []float64
	Returns    []float64
}

// NewBatch returns a new Batch with storage for size samples
func NewBatch(size, features, actions int) *Batch {
	b := &Batch{}
	b.resize(size, features, actions)
	return b
}

// OldSelected returns the rollout-time probability of the chosen
// action of sample i
func (b *Batch) OldSelected(i int) float64 {
	return b.Probs[i*b.NActions+b.Actions[i]]
}

// resize ensures the batch has room for size samples, reusing storage
// when the dimensions are unchanged
func (b *Batch) resize(size, features, actions int) {
	if b.Size == size && b.Features == features && b.NActions == actions &&
		b.States != nil {
		return
	}

	b.Size = size
	b.Features = features
	b.NActions = actions
	b.States = make([]float64, size*features)
	b.Actions = make([]int, size)
	b.OneHot = make([]float64, size*actions)
	b.Probs = make([]float64, size*actions)
	b.RawReturns = make([]float64, size)
	b.Returns = make([]float64, size)
}

func (b *Batch) fillOneHot() {
	for i := range b.OneHot {
		b.OneHot[i] = 0
	}
	for i, a := range b.Actions {
		b.OneHot[i*b.NActions+a] = 1
	}
}
