package pipeline

import (
	"errors"
	"testing"
	"time"

	"storyreel/config"
	"storyreel/types"
)

func TestJobLogRingIsBounded(t *testing.T) {
	job := NewJob("16:9")
	for i := 0; i < config.MaxJobLogs*2; i++ {
		job.AddLog("entry %d", i)
	}

	logs := job.Status().Logs
	if len(logs) != config.MaxJobLogs {
		t.Fatalf("log count = %d, want %d", len(logs), config.MaxJobLogs)
	}
	// Oldest entries are discarded, newest kept.
	if logs[len(logs)-1].Message != "entry 99" {
		t.Errorf("last log = %q", logs[len(logs)-1].Message)
	}
}

func TestJobDefaultsAspectRatio(t *testing.T) {
	if got := NewJob("").AspectRatio(); got != "16:9" {
		t.Errorf("default aspect ratio = %q", got)
	}
	if got := NewJob("9:16").AspectRatio(); got != "9:16" {
		t.Errorf("aspect ratio = %q", got)
	}
}

func TestJobSetErrorTransitionsAndLogs(t *testing.T) {
	job := NewJob("16:9")
	job.SetState(types.StateGenerating)
	job.SetError(errors.New("collaborator unreachable"))

	status := job.Status()
	if status.State != types.StateError {
		t.Errorf("state = %s", status.State)
	}
	if status.Error != "collaborator unreachable" {
		t.Errorf("error = %q", status.Error)
	}
	if len(status.Logs) == 0 {
		t.Error("error was not logged")
	}
}

func TestJobSubscribeReceivesChangeSignals(t *testing.T) {
	job := NewJob("16:9")
	changes, cancel := job.Subscribe()
	defer cancel()

	job.SetState(types.StateTranscribing)

	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("no change signal after state transition")
	}
}

func TestJobSubscribeCancelStopsDelivery(t *testing.T) {
	job := NewJob("16:9")
	changes, cancel := job.Subscribe()
	cancel()

	job.AddLog("after cancel")

	select {
	case _, ok := <-changes:
		if ok {
			t.Fatal("signal delivered after cancel")
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	job := NewJob("16:9")
	reg.Add(job)

	got, ok := reg.Get(job.ID)
	if !ok || got != job {
		t.Fatal("registered job not retrievable")
	}
	if _, ok := reg.Get("missing"); ok {
		t.Error("unknown id should not resolve")
	}
}

func TestJobExportKeysTrackedPerFormat(t *testing.T) {
	job := NewJob("16:9")

	if got := job.ExportKey(types.ExportVideo); got != "" {
		t.Errorf("fresh job export key = %q, want empty", got)
	}

	job.SetExportKey(types.ExportVideo, "exports/j1/1-slideshow.mp4")
	job.SetExportKey(types.ExportArchive, "exports/j1/2-images.zip")

	if got := job.ExportKey(types.ExportVideo); got != "exports/j1/1-slideshow.mp4" {
		t.Errorf("video key = %q", got)
	}
	if got := job.ExportKey(types.ExportArchive); got != "exports/j1/2-images.zip" {
		t.Errorf("archive key = %q", got)
	}
}
