package server

import (
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samuelfneumann/dronerl/config"
	"github.com/samuelfneumann/dronerl/experiment"
	"github.com/samuelfneumann/dronerl/experiment/checkpointer"
	"github.com/samuelfneumann/dronerl/logger"
	"github.com/samuelfneumann/dronerl/metrics"
)

func init() {
	logger.Discard()
}

func testSettings() experiment.Settings {
	s := experiment.DefaultSettings()
	s.Drone.NumberOfBlocks = 0
	s.Drone.MaxSteps = 20
	s.Agent.ActorHidden = 8
	s.Agent.CriticHidden = 4
	s.Agent.BatchSize = 16
	s.CoolOff = 0
	s.Seed = 11
	return s
}

func newHost(t *testing.T) (*Host, *Hub) {
	t.Helper()
	reg := prometheus.NewRegistry()
	hub := NewHub(16)

	trainer, err := experiment.New(testSettings(), experiment.WithObservers(
		hub, metrics.NewPrometheusObserver(reg),
	))
	if err != nil {
		t.Fatalf("could not create trainer: %v", err)
	}
	t.Cleanup(func() { trainer.Close() })

	return New(trainer, hub, reg, config.Default().Server), hub
}

func do(t *testing.T, h *Host, method, target, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%v %v: %v", method, target, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}
}

func tick(t *testing.T, h *Host, n int) {
	t.Helper()
	dt := time.Duration(testSettings().Drone.StepSize * float64(time.Second))
	for i := 0; i < n; i++ {
		if err := h.Tick(dt); err != nil {
			t.Fatal(err)
		}
	}
}

func TestHealth(t *testing.T) {
	h, _ := newHost(t)
	resp := do(t, h, http.MethodGet, "/api/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want status 200, have %v", resp.StatusCode)
	}

	var body map[string]interface{}
	decode(t, resp, &body)
	if body["status"] != "OK" || body["clients"] != 0.0 {
		t.Errorf("unexpected health %v", body)
	}
}

func TestState(t *testing.T) {
	h, _ := newHost(t)
	tick(t, h, 3)

	resp := do(t, h, http.MethodGet, "/api/state", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want status 200, have %v", resp.StatusCode)
	}

	var body struct {
		Drone struct {
			StepCounter int `json:"stepCounter"`
		} `json:"drone"`
		Episode  int  `json:"episode"`
		Updating bool `json:"updating"`
	}
	decode(t, resp, &body)
	if body.Drone.StepCounter != 3 || body.Episode != 0 || body.Updating {
		t.Errorf("unexpected state %+v", body)
	}
}

func TestEndEpisode(t *testing.T) {
	h, _ := newHost(t)
	tick(t, h, 4)

	resp := do(t, h, http.MethodPost, "/api/episode/end", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want status 200, have %v", resp.StatusCode)
	}

	var body struct {
		Episode int `json:"episode"`
		Updates int `json:"updates"`
	}
	decode(t, resp, &body)
	if body.Episode != 1 || body.Updates != 1 {
		t.Errorf("want episode 1 and update 1, have %+v", body)
	}
}

func TestSpeed(t *testing.T) {
	h, _ := newHost(t)

	resp := do(t, h, http.MethodPut, "/api/speed", `{"speed": 3}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want status 200, have %v", resp.StatusCode)
	}

	var settings experiment.Settings
	decode(t, do(t, h, http.MethodGet, "/api/settings", ""), &settings)
	if settings.SpeedMultiplier != 3 {
		t.Errorf("want speed 3, have %v", settings.SpeedMultiplier)
	}

	for _, body := range []string{`{"speed": 0}`, `{"speed": -2}`, `{`} {
		resp := do(t, h, http.MethodPut, "/api/speed", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%v: want status 400, have %v", body, resp.StatusCode)
		}
	}
}

func TestWeights(t *testing.T) {
	h, _ := newHost(t)

	var w checkpointer.Weights
	decode(t, do(t, h, http.MethodGet, "/api/weights", ""), &w)

	// Two hidden layers and an output layer for the actor, one hidden
	// layer and an output layer for the critic
	if len(w.Actor) != 6 || len(w.Critic) != 4 {
		t.Errorf("want 6 actor and 4 critic blobs, have %v and %v",
			len(w.Actor), len(w.Critic))
	}
}

func TestRender(t *testing.T) {
	h, _ := newHost(t)

	resp := do(t, h, http.MethodGet, "/api/render.png?width=64", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want status 200, have %v", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("want content type image/png, have %v", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 64 {
		t.Errorf("want width 64, have %v", img.Bounds().Dx())
	}

	for _, width := range []string{"0", "100000"} {
		resp := do(t, h, http.MethodGet, "/api/render.png?width="+width, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("width %v: want status 400, have %v", width,
				resp.StatusCode)
		}
	}
}

func TestMetrics(t *testing.T) {
	h, _ := newHost(t)
	tick(t, h, 2)

	resp := do(t, h, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want status 200, have %v", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "dronerl_steps_total 2") {
		t.Errorf("steps missing from metrics:\n%s", body)
	}
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	h, _ := newHost(t)
	resp := do(t, h, http.MethodGet, "/websocket/telemetry", "")
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("want status 426, have %v", resp.StatusCode)
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	h, hub := newHost(t)

	// Without a running hub nothing drains the queue of 16 messages.
	// Each tick queues a reward and then a state message.
	tick(t, h, 9)
	if hub.Dropped() != 2 {
		t.Errorf("want 2 dropped messages, have %v", hub.Dropped())
	}

	msg := <-hub.broadcast
	if msg.Type != MessageTypeReward || msg.Timestamp == 0 {
		t.Errorf("unexpected message %+v", msg)
	}
	if _, err := json.Marshal(msg); err != nil {
		t.Error(err)
	}

	msg = <-hub.broadcast
	state, ok := msg.Data.(experiment.StatePoint)
	if msg.Type != MessageTypeState || !ok {
		t.Fatalf("want state message, have %+v", msg)
	}
	if state.Drone.StepCounter != 1 || len(state.Drone.Obstacles) != 6 {
		t.Errorf("want first step in an arena of 6 walls, have %+v",
			state.Drone)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"position"`, `"goal"`, `"sensors"`,
		`"distance"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("state message %s missing %s", data, key)
		}
	}
}
