package progress

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSubscribeReceivesUpdates(t *testing.T) {
	pr := NewProgressReporter()
	ch := pr.Subscribe()

	pr.UpdateScanProgress(&ScanProgress{Phase: PhaseScanning, EntriesTotal: 2})
	pr.NotifyRefresh("toggle")

	first := <-ch
	if sp, ok := first.(*ScanProgress); !ok || sp.EntriesTotal != 2 {
		t.Errorf("first update = %#v", first)
	}
	second := <-ch
	if ev, ok := second.(*RefreshEvent); !ok || ev.Reason != "toggle" {
		t.Errorf("second update = %#v", second)
	}

	if pr.GetLastRefresh() == nil || pr.GetLastRefresh().Reason != "toggle" {
		t.Error("last refresh not recorded")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	pr := NewProgressReporter()
	ch := pr.Subscribe()
	pr.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}

	// Publishing after unsubscribe must not panic
	pr.UpdateCleanProgress(&CleanProgress{Phase: PhaseComplete})
	if pr.GetCleanProgress().Phase != PhaseComplete {
		t.Error("clean progress not stored")
	}
}

func TestFullChannelDoesNotBlock(t *testing.T) {
	pr := NewProgressReporter()
	pr.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			pr.NotifyRefresh("flood")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full listener")
	}
}

func TestFormatScanProgress(t *testing.T) {
	tests := []struct {
		name     string
		progress *ScanProgress
		contains string
	}{
		{"nil", nil, "Initializing"},
		{"scanning", &ScanProgress{Phase: PhaseScanning, EntriesDone: 1, EntriesTotal: 3, TotalSize: 1024, StartTime: time.Now()}, "1/3"},
		{"complete", &ScanProgress{Phase: PhaseComplete, EntriesDone: 3, TotalSize: 1048576, StartTime: time.Now()}, "1.0 MiB"},
		{"error", &ScanProgress{Phase: PhaseError, Error: errors.New("boom")}, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatScanProgress(tt.progress)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("FormatScanProgress = %q, want substring %q", got, tt.contains)
			}
		})
	}
}

func TestFormatCleanProgress(t *testing.T) {
	tests := []struct {
		name     string
		progress *CleanProgress
		contains string
	}{
		{"nil", nil, "Preparing"},
		{"cleaning", &CleanProgress{Phase: PhaseCleaning, PathsDone: 1, PathsTotal: 4, StartTime: time.Now()}, "(25%)"},
		{"dry run", &CleanProgress{Phase: PhaseCleaning, DryRun: true, PathsTotal: 1, StartTime: time.Now()}, "Previewing"},
		{"complete with failures", &CleanProgress{Phase: PhaseComplete, PathsDone: 3, FailedPaths: 1, StartTime: time.Now()}, "1 failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatCleanProgress(tt.progress)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("FormatCleanProgress = %q, want substring %q", got, tt.contains)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h2m3s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
