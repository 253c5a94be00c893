package history

import (
	"testing"
	"time"

	"github.com/use-agent/plexport/models"
)

func run(id string, started time.Time, state models.RunState) *models.ExportRun {
	return &models.ExportRun{ID: id, StartedAt: started, State: state}
}

func TestPutGet_StoresCopy(t *testing.T) {
	h := newHistory(10)
	r := run("a", time.Now(), models.RunRunning)
	h.Put(r)

	r.State = models.RunCompleted
	got, ok := h.Get("a")
	if !ok {
		t.Fatal("run not found")
	}
	if got.State != models.RunRunning {
		t.Errorf("stored run changed with caller's copy: %s", got.State)
	}
}

func TestPut_EvictsOldestAtCapacity(t *testing.T) {
	h := newHistory(2)
	base := time.Now()
	h.Put(run("old", base, models.RunCompleted))
	h.Put(run("mid", base.Add(time.Minute), models.RunCompleted))
	h.Put(run("new", base.Add(2*time.Minute), models.RunCompleted))

	if _, ok := h.Get("old"); ok {
		t.Error("oldest run not evicted")
	}
	for _, id := range []string{"mid", "new"} {
		if _, ok := h.Get(id); !ok {
			t.Errorf("run %q missing", id)
		}
	}
}

func TestPut_ReplaceDoesNotEvict(t *testing.T) {
	h := newHistory(1)
	now := time.Now()
	h.Put(run("a", now, models.RunRunning))
	h.Put(run("a", now, models.RunCompleted))

	got, ok := h.Get("a")
	if !ok || got.State != models.RunCompleted {
		t.Errorf("Get() = %+v, %v", got, ok)
	}
}

func TestList_MostRecentFirst(t *testing.T) {
	h := newHistory(10)
	base := time.Now()
	h.Put(run("1", base, models.RunCompleted))
	h.Put(run("3", base.Add(2*time.Second), models.RunCompleted))
	h.Put(run("2", base.Add(time.Second), models.RunCompleted))

	got := h.List()
	want := []string{"3", "2", "1"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("List()[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestEvictBefore_KeepsRunningRuns(t *testing.T) {
	h := newHistory(10)
	old := time.Now().Add(-2 * time.Hour)
	h.Put(run("done", old, models.RunCompleted))
	h.Put(run("busy", old, models.RunRunning))

	h.evictBefore(time.Now().Add(-time.Hour))

	if _, ok := h.Get("done"); ok {
		t.Error("expired finished run kept")
	}
	if _, ok := h.Get("busy"); !ok {
		t.Error("running run evicted")
	}
}
