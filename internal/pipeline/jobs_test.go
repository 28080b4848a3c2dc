package pipeline

import (
	"testing"
	"time"
)

func TestContentHashHex(t *testing.T) {
	// Well-known SHA-256 values.
	cases := []struct {
		in   string
		want string
	}{
		{"", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"hello", "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
	}
	for _, c := range cases {
		if got := ContentHashHex([]byte(c.in)); got != c.want {
			t.Errorf("ContentHashHex(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestJobStateTransitions(t *testing.T) {
	job := &Job{ID: "j1", Status: StatusQueued, CreatedAt: time.Now(), UpdatedAt: time.Now()}

	job.SetStatus(StatusChunking, "chunking")
	if job.Status != StatusChunking || job.Phase != "chunking" {
		t.Errorf("status = %s/%s", job.Status, job.Phase)
	}

	job.SetTotalChunks(12)
	job.IncrChunksEmbedded()
	job.IncrChunksEmbedded()
	job.AddError("embed chunk 3: timeout")

	snap := job.Snapshot()
	if snap.Progress.TotalChunks != 12 {
		t.Errorf("total chunks = %d", snap.Progress.TotalChunks)
	}
	if snap.Progress.ChunksEmbedded != 2 {
		t.Errorf("embedded = %d", snap.Progress.ChunksEmbedded)
	}
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("errors = %v", snap.Progress.Errors)
	}
}

func TestJobSnapshotEmptyErrors(t *testing.T) {
	job := &Job{ID: "j1"}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Errorf("snapshot errors must serialize as [], not null")
	}
}

func TestJobOverridesAndForce(t *testing.T) {
	job := &Job{ID: "j1"}

	if _, _, ok := job.ChunkOverrides(); ok {
		t.Errorf("fresh job should carry no overrides")
	}
	job.SetChunkOverrides(256, 0.2)
	size, overlap, ok := job.ChunkOverrides()
	if !ok || size != 256 || overlap != 0.2 {
		t.Errorf("overrides = (%d, %v, %v)", size, overlap, ok)
	}

	if job.Force() {
		t.Errorf("force defaults to false")
	}
	job.SetForce(true)
	if !job.Force() {
		t.Errorf("force not set")
	}
}

func TestJobStoreTTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	old := &Job{ID: "old", UpdatedAt: time.Now().Add(-time.Minute)}
	fresh := &Job{ID: "fresh", UpdatedAt: time.Now()}
	store.Put(old)
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Errorf("expired job survived cleanup")
	}
	if store.Get("fresh") == nil {
		t.Errorf("fresh job evicted")
	}
}
