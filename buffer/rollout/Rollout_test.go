package rollout

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func TestDiscountedReturns(t *testing.T) {
	const gamma = 0.7
	tests := []struct {
		name    string
		rewards []float64
		want    []float64
	}{
		{"empty", []float64{}, []float64{}},
		{"single", []float64{3}, []float64{3}},
		{"pair", []float64{1, 2}, []float64{1 + gamma*2, 2}},
		{"triple", []float64{1, 0, -1}, []float64{1 - gamma*gamma, -gamma, -1}},
	}

	for _, test := range tests {
		got := DiscountedReturns(test.rewards, gamma, nil)
		if !floats.EqualApprox(got, test.want, 1e-12) {
			t.Errorf("%v: want(%v) have(%v)", test.name, test.want, got)
		}
	}
}

func TestDiscountedReturnsInPlace(t *testing.T) {
	rewards := []float64{1, 1, 1}
	dst := make([]float64, 3)
	DiscountedReturns(rewards, 1, dst)
	if !floats.Equal(dst, []float64{3, 2, 1}) {
		t.Errorf("want([3 2 1]) have(%v)", dst)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched dst")
		}
	}()
	DiscountedReturns(rewards, 1, make([]float64, 2))
}

func fillEpisode(ep *Episode, rewards []float64) {
	for i, r := range rewards {
		state := []float64{float64(i), float64(-i)}
		probs := []float64{0.25, 0.75}
		ep.Append(state, i%2, probs, r)
	}
}

func TestEpisodeOverflowPanics(t *testing.T) {
	ep := NewEpisode(2, 2, 2)
	fillEpisode(ep, []float64{1, 2})

	defer func() {
		if recover() == nil {
			t.Error("expected panic appending past capacity")
		}
	}()
	ep.Append([]float64{0, 0}, 0, []float64{0.5, 0.5}, 0)
}

func TestEpisodeBadAppendPanics(t *testing.T) {
	tests := []struct {
		name   string
		state  []float64
		action int
		probs  []float64
	}{
		{"state length", []float64{0}, 0, []float64{0.5, 0.5}},
		{"probs length", []float64{0, 0}, 0, []float64{1}},
		{"action range", []float64{0, 0}, 2, []float64{0.5, 0.5}},
	}

	for _, test := range tests {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%v: expected panic", test.name)
				}
			}()
			NewEpisode(4, 2, 2).Append(test.state, test.action, test.probs, 0)
		}()
	}
}

func TestRoundTrip(t *testing.T) {
	const gamma = 0.9
	rewards := []float64{0, -1, 2, 0.5, 10}
	want := DiscountedReturns(rewards, gamma, nil)

	ep := NewEpisode(10, 2, 2)
	w := NewWindow(20, 2, 2)
	fillEpisode(ep, rewards)
	w.FinishEpisode(ep, gamma)

	if ep.Len() != 0 {
		t.Errorf("episode not reset: length %d", ep.Len())
	}
	if w.Len() != len(rewards) || w.Episodes() != 1 {
		t.Fatalf("window: want %d transitions and 1 episode, have %d and %d",
			len(rewards), w.Len(), w.Episodes())
	}
	if math.Abs(w.RewardSum()-floats.Sum(rewards)) > 1e-12 {
		t.Errorf("reward sum: want(%v) have(%v)", floats.Sum(rewards),
			w.RewardSum())
	}

	const batchSize = 64
	batch := NewBatch(batchSize, 2, 2)
	rng := rand.New(rand.NewSource(1))
	if err := w.SampleBatch(batch, batchSize, false, rng); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < batchSize; i++ {
		// The first feature of each stored state is its step index
		step := int(batch.States[i*2])
		if step < 0 || step >= len(rewards) {
			t.Fatalf("row %d: state from unknown step %d", i, step)
		}
		if batch.RawReturns[i] != want[step] {
			t.Errorf("row %d: return want(%v) have(%v)", i, want[step],
				batch.RawReturns[i])
		}
		if batch.Actions[i] != step%2 {
			t.Errorf("row %d: action want(%v) have(%v)", i, step%2,
				batch.Actions[i])
		}
		if batch.OneHot[i*2+step%2] != 1 || batch.OneHot[i*2+1-step%2] != 0 {
			t.Errorf("row %d: bad one-hot %v", i, batch.OneHot[i*2:i*2+2])
		}
		if batch.OldSelected(i) != batch.Probs[i*2+step%2] {
			t.Errorf("row %d: bad old selected probability", i)
		}
	}

	mean := stat.Mean(batch.Returns, nil)
	variance := stat.Moment(2, batch.Returns, nil)
	if math.Abs(mean) > 1e-9 || math.Abs(variance-1) > 1e-6 {
		t.Errorf("normalised returns: mean %v variance %v", mean, variance)
	}
}

func TestSequentialSampling(t *testing.T) {
	ep := NewEpisode(5, 2, 2)
	w := NewWindow(5, 2, 2)
	fillEpisode(ep, []float64{1, 2, 3})
	w.FinishEpisode(ep, 1)

	batch := &Batch{}
	if err := w.SampleBatch(batch, 5, true, nil); err != nil {
		t.Fatal(err)
	}
	wantSteps := []int{0, 1, 2, 0, 1}
	for i, step := range wantSteps {
		if int(batch.States[i*2]) != step {
			t.Errorf("row %d: want step %d have %v", i, step,
				batch.States[i*2])
		}
	}
}

func TestWindowMultipleEpisodes(t *testing.T) {
	ep := NewEpisode(4, 2, 2)
	w := NewWindow(6, 2, 2)

	fillEpisode(ep, []float64{1, 1})
	w.FinishEpisode(ep, 0.5)
	fillEpisode(ep, []float64{2, 2, 2, 2})
	w.FinishEpisode(ep, 0.5)

	want := []float64{1.5, 1, 3.75, 3.5, 3, 2}
	for i := range want {
		if w.Return(i) != want[i] {
			t.Errorf("return %d: want(%v) have(%v)", i, want[i], w.Return(i))
		}
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic on window overflow")
			}
		}()
		fillEpisode(ep, []float64{1})
		w.FinishEpisode(ep, 0.5)
	}()

	w.Clear()
	if w.Len() != 0 || w.Episodes() != 0 {
		t.Error("window not cleared")
	}
	if err := w.SampleBatch(&Batch{}, 1, true, nil); err == nil {
		t.Error("expected error sampling from empty window")
	}
}

func BenchmarkSampleBatch(b *testing.B) {
	ep := NewEpisode(5000, 9, 7)
	w := NewWindow(5000, 9, 7)
	state := make([]float64, 9)
	probs := []float64{1, 0, 0, 0, 0, 0, 0}
	for i := 0; i < 5000; i++ {
		ep.Append(state, 0, probs, float64(i%3))
	}
	w.FinishEpisode(ep, 0.7)

	batch := NewBatch(1024, 9, 7)
	rng := rand.New(rand.NewSource(1))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := w.SampleBatch(batch, 1024, false, rng); err != nil {
			b.Fatal(err)
		}
	}
}
