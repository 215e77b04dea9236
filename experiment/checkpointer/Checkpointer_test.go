package checkpointer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samuelfneumann/dronerl/experiment"
	"github.com/samuelfneumann/dronerl/network"
)

type fakeExporter struct {
	calls int
}

func (f *fakeExporter) ExportWeights() ([]network.Blob, []network.Blob,
	error) {
	f.calls++
	actor := []network.Blob{{Shape: []int{1, 2}, Data: []float64{1, 2}}}
	critic := []network.Blob{{Shape: []int{1, 1}, Data: []float64{3}}}
	return actor, critic, nil
}

func TestNEpisode(t *testing.T) {
	dir := t.TempDir()
	source := &fakeExporter{}
	c, err := NewNEpisode(2, source,
		FilenameEnumerator(0, filepath.Join(dir, "weights"), ".json"))
	if err != nil {
		t.Fatal(err)
	}

	for episode := 1; episode <= 5; episode++ {
		c.ObserveEpisode(experiment.EpisodeSummary{Episode: episode})
	}
	if source.calls != 2 {
		t.Errorf("want 2 checkpoints, have %d", source.calls)
	}

	w, err := Load(filepath.Join(dir, "weights2.json"))
	if err != nil {
		t.Fatal(err)
	}
	if w.Episode != 4 || len(w.Actor) != 1 || w.Critic[0].Data[0] != 3 {
		t.Errorf("unexpected checkpoint contents %+v", w)
	}
	if _, err := os.Stat(filepath.Join(dir, "weights3.json")); err == nil {
		t.Error("unexpected third checkpoint")
	}

	if _, err := NewNEpisode(0, source, nil); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestFileTimer(t *testing.T) {
	name := FileTimer("/tmp/weights", ".json")()
	if !strings.HasPrefix(name, "/tmp/weights-") ||
		!strings.HasSuffix(name, ".json") {
		t.Errorf("unexpected filename %v", name)
	}
}
