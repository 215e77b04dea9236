// Package checkpointer periodically saves the weights of a training
// run to JSON files
package checkpointer

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/samuelfneumann/dronerl/experiment"
	"github.com/samuelfneumann/dronerl/logger"
	"github.com/samuelfneumann/dronerl/network"
	"github.com/sirupsen/logrus"
)

// Exporter is an object whose weights can be checkpointed
type Exporter interface {
	ExportWeights() (actor, critic []network.Blob, err error)
}

// Weights is the on-disk format of a checkpoint
type Weights struct {
	Episode int            `json:"episode"`
	Actor   []network.Blob `json:"actor"`
	Critic  []network.Blob `json:"critic"`
}

// Checkpointer checkpoints an Exporter based on completed episodes
type Checkpointer interface {
	experiment.Observer
	Checkpoint(episode int) error
}

// nEpisode implements checkpointing every N episodes
type nEpisode struct {
	experiment.NopObserver
	interval int
	source   Exporter

	// filename returns the name of the file to save the next
	// checkpoint in. See FilenameEnumerator and FileTimer.
	filename func() string
}

// NewNEpisode returns a checkpointer that checkpoints source every n
// completed episodes
func NewNEpisode(n int, source Exporter,
	filename func() string) (Checkpointer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("newNEpisode: interval must be positive"+
			"\n\thave(%v)", n)
	}
	return &nEpisode{interval: n, source: source, filename: filename}, nil
}

// Checkpoint saves the weights of the source if episode is a multiple
// of the interval
func (n *nEpisode) Checkpoint(episode int) error {
	if episode%n.interval != 0 {
		return nil
	}

	actor, critic, err := n.source.ExportWeights()
	if err != nil {
		return fmt.Errorf("checkpoint: could not export weights: %v", err)
	}
	return Save(n.filename(), Weights{Episode: episode, Actor: actor,
		Critic: critic})
}

// ObserveEpisode checkpoints when an episode completes. Errors are
// logged, since Observers cannot fail.
func (n *nEpisode) ObserveEpisode(s experiment.EpisodeSummary) {
	if err := n.Checkpoint(s.Episode); err != nil {
		logger.GetLogger().WithFields(logrus.Fields{
			"episode": s.Episode,
			"error":   err,
		}).Error("could not checkpoint weights")
	}
}

// Save writes weights to filename as JSON
func Save(filename string, w Weights) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not create checkpoint file: %v", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(w); err != nil {
		return fmt.Errorf("save: could not encode weights: %v", err)
	}
	return nil
}

// Load reads weights saved by Save
func Load(filename string) (Weights, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Weights{}, fmt.Errorf("load: could not open checkpoint "+
			"file: %v", err)
	}
	defer file.Close()

	var w Weights
	if err := json.NewDecoder(file).Decode(&w); err != nil {
		return Weights{}, fmt.Errorf("load: could not decode weights: %v",
			err)
	}
	return w, nil
}
