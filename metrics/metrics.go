// Package metrics exports training telemetry as Prometheus metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samuelfneumann/dronerl/environment/drone"
	"github.com/samuelfneumann/dronerl/experiment"
)

const namespace = "dronerl"

// PrometheusObserver implements experiment.Observer and records all
// telemetry it receives in a Prometheus registry
type PrometheusObserver struct {
	// Counters
	steps    prometheus.Counter
	episodes *prometheus.CounterVec
	updates  prometheus.Counter

	// Histograms
	updateDuration prometheus.Histogram
	episodeReturn  prometheus.Histogram

	// Gauges
	reward     prometheus.Gauge
	sensors    *prometheus.GaugeVec
	distance   prometheus.Gauge
	loss       *prometheus.GaugeVec
	meanReward prometheus.Gauge
}

// NewPrometheusObserver registers the training metrics with reg
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	factory := promauto.With(reg)

	return &PrometheusObserver{
		steps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Total number of environment steps",
		}),
		episodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episodes_total",
			Help:      "Total number of completed episodes by how they ended",
		}, []string{"end"}),
		updates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Total number of policy updates",
		}),
		updateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Wall time taken by policy updates",
			Buckets:   prometheus.DefBuckets,
		}),
		episodeReturn: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "episode_return",
			Help:      "Undiscounted return of completed episodes",
			Buckets:   prometheus.LinearBuckets(-50, 10, 11),
		}),
		reward: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "step_reward",
			Help:      "Reward of the last environment step",
		}),
		sensors: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_reading",
			Help:      "Last proximity sensor readings",
		}, []string{"sensor"}),
		distance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goal_distance",
			Help:      "Distance from the drone to the goal after the last tick",
		}),
		loss: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loss",
			Help:      "Losses of the last policy update",
		}, []string{"term"}),
		meanReward: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mean_episode_reward",
			Help:      "Mean undiscounted return of the episodes in the last update",
		}),
	}
}

// ObserveReward implements the experiment.Observer interface
func (p *PrometheusObserver) ObserveReward(r experiment.RewardPoint) {
	p.steps.Inc()
	p.reward.Set(r.Reward)
	for i, value := range r.Sensors {
		p.sensors.WithLabelValues(drone.Sensor(i).String()).Set(value)
	}
}

// ObserveState implements the experiment.Observer interface
func (p *PrometheusObserver) ObserveState(s experiment.StatePoint) {
	p.distance.Set(s.Outcome.Distance)
}

// ObserveLoss implements the experiment.Observer interface
func (p *PrometheusObserver) ObserveLoss(l experiment.LossPoint) {
	p.updates.Inc()
	p.updateDuration.Observe(l.Duration.Seconds())
	p.meanReward.Set(l.MeanEpisodeReward)

	p.loss.WithLabelValues("total").Set(l.Total)
	p.loss.WithLabelValues("policy").Set(l.Policy)
	p.loss.WithLabelValues("value").Set(l.Value)
	p.loss.WithLabelValues("entropy").Set(l.Entropy)
}

// ObserveEpisode implements the experiment.Observer interface
func (p *PrometheusObserver) ObserveEpisode(s experiment.EpisodeSummary) {
	p.episodes.WithLabelValues(s.End.String()).Inc()
	p.episodeReturn.Observe(s.Return)
}
