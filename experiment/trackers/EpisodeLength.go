package trackers

import "github.com/samuelfneumann/dronerl/experiment"

// EpisodeLength tracks the number of steps of each completed episode
type EpisodeLength struct {
	experiment.NopObserver
	episodeLengths []float64
	filename       string
}

// NewEpisodeLength returns a new EpisodeLength tracker which saves its
// data to filename
func NewEpisodeLength(filename string) *EpisodeLength {
	return &EpisodeLength{filename: filename}
}

// ObserveEpisode records the length of a completed episode
func (e *EpisodeLength) ObserveEpisode(s experiment.EpisodeSummary) {
	e.episodeLengths = append(e.episodeLengths, float64(s.Steps))
}

// Data returns the recorded episode lengths
func (e *EpisodeLength) Data() []float64 {
	return e.episodeLengths
}

// Save saves the recorded episode lengths to disk
func (e *EpisodeLength) Save() error {
	return save(e.filename, e.episodeLengths)
}
