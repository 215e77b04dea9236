// Command dronerl trains a drone to navigate an arena of obstacles with
// policy gradient methods. By default the training run is served over
// an HTTP API in real time; with -headless it runs as fast as possible
// for a fixed number of episodes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samuelfneumann/dronerl/config"
	"github.com/samuelfneumann/dronerl/experiment"
	"github.com/samuelfneumann/dronerl/experiment/checkpointer"
	"github.com/samuelfneumann/dronerl/experiment/trackers"
	"github.com/samuelfneumann/dronerl/logger"
	"github.com/samuelfneumann/dronerl/metrics"
	"github.com/samuelfneumann/dronerl/server"
	"github.com/samuelfneumann/dronerl/utils/progressbar"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to a configuration file")
	headless := flag.Bool("headless", false,
		"train as fast as possible without serving the API")
	episodes := flag.Int("episodes", 1000,
		"number of episodes to train for when headless")
	flag.Parse()

	envErr := godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Initialize(cfg.Logging)
	log := logger.GetLogger()
	if envErr != nil {
		log.Debug("no .env file found")
	}

	if *headless {
		err = runHeadless(cfg, *episodes)
	} else {
		err = serve(cfg)
	}
	if err != nil {
		log.WithError(err).Fatal("training failed")
	}
}

// stepClock is a Clock advanced by hand, so that headless runs do not
// wait out cool-offs in wall time
type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

// progress redraws a progress bar whenever an episode completes
type progress struct {
	experiment.NopObserver
	bar *progressbar.ProgressBar
}

func (p progress) ObserveEpisode(experiment.EpisodeSummary) {
	p.bar.Increment()
	p.bar.Display()
}

// newTrainer creates the Trainer described by cfg along with its
// trackers and checkpointer
func newTrainer(cfg *config.Config, opts ...experiment.Option) (
	*experiment.Trainer, []trackers.Tracker, error) {
	if err := os.MkdirAll(cfg.Checkpoint.Dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("newTrainer: could not create "+
			"checkpoint directory: %v", err)
	}

	if cfg.Checkpoint.Weights != "" {
		w, err := checkpointer.Load(cfg.Checkpoint.Weights)
		if err != nil {
			return nil, nil, fmt.Errorf("newTrainer: %v", err)
		}
		opts = append(opts, experiment.WithWeights(w.Actor, w.Critic))
		logger.GetLogger().WithFields(logrus.Fields{
			"file":    cfg.Checkpoint.Weights,
			"episode": w.Episode,
		}).Info("warm starting from checkpoint")
	}

	track := []trackers.Tracker{
		trackers.NewReturn(filepath.Join(cfg.Checkpoint.Dir, "returns.bin")),
		trackers.NewEpisodeLength(filepath.Join(cfg.Checkpoint.Dir,
			"lengths.bin")),
	}
	for _, t := range track {
		opts = append(opts, experiment.WithObservers(t))
	}

	trainer, err := experiment.New(cfg.Training, opts...)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Checkpoint.Interval > 0 {
		c, err := checkpointer.NewNEpisode(cfg.Checkpoint.Interval, trainer,
			checkpointer.InDir(cfg.Checkpoint.Dir))
		if err != nil {
			trainer.Close()
			return nil, nil, err
		}
		trainer.AddObserver(c)
	}
	return trainer, track, nil
}

func saveTrackers(track []trackers.Tracker) {
	for _, t := range track {
		if err := t.Save(); err != nil {
			logger.GetLogger().WithError(err).Error("could not save tracker")
		}
	}
}

func runHeadless(cfg *config.Config, episodes int) error {
	if episodes <= 0 {
		return fmt.Errorf("runHeadless: episodes must be positive\n\t"+
			"have(%v)", episodes)
	}

	clock := &stepClock{now: time.Now()}
	bar := progressbar.New(os.Stdout, 40, episodes)
	trainer, track, err := newTrainer(cfg, experiment.WithClock(clock),
		experiment.WithObservers(progress{bar: bar}))
	if err != nil {
		return err
	}
	defer trainer.Close()

	dt := time.Duration(cfg.Training.Drone.StepSize * float64(time.Second))
	bar.Display()
	for trainer.EpisodeCount() < episodes {
		clock.now = clock.now.Add(dt)
		if err := trainer.Tick(dt); err != nil {
			return err
		}
	}
	bar.Close()

	saveTrackers(track)
	logger.GetLogger().WithFields(logrus.Fields{
		"episodes": trainer.EpisodeCount(),
		"updates":  trainer.UpdateCount(),
	}).Info("training complete")
	return nil
}

func serve(cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := server.NewHub(1024)
	trainer, track, err := newTrainer(cfg, experiment.WithObservers(
		hub, metrics.NewPrometheusObserver(reg),
	))
	if err != nil {
		return err
	}
	defer trainer.Close()
	defer saveTrackers(track)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	return server.New(trainer, hub, reg, cfg.Server).Serve(ctx)
}
