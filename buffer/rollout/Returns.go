package rollout

import "fmt"

// DiscountedReturns computes the discounted return of each step of an
// episode which terminated after its final reward:
//
//	R_t = r_t + γ R_{t+1},   R_T = 0
//
// The returns are stored in dst, which must have the same length as
// rewards. If dst is nil, a new slice is allocated. The returns are
// returned.
func DiscountedReturns(rewards []float64, gamma float64,
	dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(rewards))
	}
	if len(dst) != len(rewards) {
		panic(fmt.Sprintf("discountedReturns: illegal dst length "+
			"\n\twant(%v)\n\thave(%v)", len(rewards), len(dst)))
	}

	next := 0.0
	for i := len(rewards) - 1; i >= 0; i-- {
		next = rewards[i] + gamma*next
		dst[i] = next
	}
	return dst
}
