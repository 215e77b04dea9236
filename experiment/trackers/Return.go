package trackers

import (
	"github.com/samuelfneumann/dronerl/experiment"
	"github.com/samuelfneumann/dronerl/logger"
)

// Return tracks the return of each episode by accumulating the rewards
// of its steps. An episode must complete for its return to be
// recorded.
type Return struct {
	experiment.NopObserver
	lastStep       int
	currentReturn  float64
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker which saves its
// data to filename
func NewReturn(filename string) *Return {
	return &Return{filename: filename}
}

// ObserveReward accumulates the reward of a step into the return of
// the current episode
func (r *Return) ObserveReward(p experiment.RewardPoint) {
	if p.Step != r.lastStep+1 {
		logger.GetLogger().Warnf("return tracker: non-sequential steps "+
			"%d -> %d", r.lastStep, p.Step)
	}
	r.currentReturn += p.Reward
	r.lastStep = p.Step
}

// ObserveEpisode records the return of the completed episode and
// starts accumulating the next one
func (r *Return) ObserveEpisode(experiment.EpisodeSummary) {
	r.episodeReturns = append(r.episodeReturns, r.currentReturn)
	r.currentReturn = 0
	r.lastStep = 0
}

// Data returns the recorded episodic returns
func (r *Return) Data() []float64 {
	return r.episodeReturns
}

// Save saves the recorded returns to disk
func (r *Return) Save() error {
	return save(r.filename, r.episodeReturns)
}
