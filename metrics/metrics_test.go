package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samuelfneumann/dronerl/agent"
	"github.com/samuelfneumann/dronerl/environment/drone"
	"github.com/samuelfneumann/dronerl/experiment"
	ts "github.com/samuelfneumann/dronerl/timestep"
)

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusObserver(reg)

	p.ObserveReward(experiment.RewardPoint{
		Reward:  -0.5,
		Sensors: [6]float64{0, 0.25, 0, 0, 0, 1},
	})
	p.ObserveReward(experiment.RewardPoint{Reward: 2})
	p.ObserveState(experiment.StatePoint{
		Outcome: drone.Outcome{Distance: 7.5},
	})
	p.ObserveEpisode(experiment.EpisodeSummary{End: ts.Timeout, Return: 3})
	p.ObserveEpisode(experiment.EpisodeSummary{End: ts.GoalReached})
	p.ObserveEpisode(experiment.EpisodeSummary{End: ts.Timeout})
	p.ObserveLoss(experiment.LossPoint{
		Loss:              agent.Loss{Total: 1.5, Policy: -0.5},
		MeanEpisodeReward: 4,
		Duration:          250 * time.Millisecond,
	})

	tests := []struct {
		name      string
		collector prometheus.Collector
		want      float64
	}{
		{"steps", p.steps, 2},
		{"reward", p.reward, 2},
		{"right sensor", p.sensors.WithLabelValues("right"), 0},
		{"goal distance", p.distance, 7.5},
		{"timeouts", p.episodes.WithLabelValues("Timeout"), 2},
		{"goals", p.episodes.WithLabelValues("GoalReached"), 1},
		{"updates", p.updates, 1},
		{"total loss", p.loss.WithLabelValues("total"), 1.5},
		{"policy loss", p.loss.WithLabelValues("policy"), -0.5},
		{"mean reward", p.meanReward, 4},
	}
	for _, test := range tests {
		if have := testutil.ToFloat64(test.collector); have != test.want {
			t.Errorf("%v: want %v, have %v", test.name, test.want, have)
		}
	}

	if n := testutil.CollectAndCount(p.updateDuration); n != 1 {
		t.Errorf("want 1 duration histogram, have %v", n)
	}

	count, err := testutil.GatherAndCount(reg, "dronerl_sensor_reading")
	if err != nil {
		t.Fatal(err)
	}
	if count != 6 {
		t.Errorf("want 6 sensor series, have %v", count)
	}
}
