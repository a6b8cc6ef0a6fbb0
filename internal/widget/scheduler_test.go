package widget

import (
	"context"
	"testing"

	"github.com/fenilsonani/folder-cleaner/internal/config"
	"github.com/fenilsonani/folder-cleaner/internal/testutil"
)

func TestSchedulerLifecycle(t *testing.T) {
	f := testutil.NewFixture(t)
	w, _, _ := newTestWidget(t, f)

	s := NewScheduler(w, []config.WidgetSchedule{
		{Name: "nightly", Schedule: "0 3 * * *", Action: config.ActionSize},
	}, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	if err := s.Start(); err == nil {
		t.Error("second Start should fail")
	}

	if err := s.AddJob(config.WidgetSchedule{Name: "hourly", Schedule: "@hourly", Action: config.ActionClean}); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if err := s.AddJob(config.WidgetSchedule{Name: "hourly", Schedule: "@hourly", Action: config.ActionSize}); err == nil {
		t.Error("duplicate job should fail")
	}

	jobs := s.ListJobs()
	if len(jobs) != 2 {
		t.Fatalf("ListJobs = %d jobs, want 2", len(jobs))
	}
	for _, j := range jobs {
		if j.NextRun.IsZero() {
			t.Errorf("job %s has no next run", j.Name)
		}
	}

	if err := s.RemoveJob("hourly"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveJob("hourly"); err == nil {
		t.Error("removing a missing job should fail")
	}
	if len(s.ListJobs()) != 1 {
		t.Error("job was not removed")
	}
}

func TestSchedulerInvalidExpression(t *testing.T) {
	f := testutil.NewFixture(t)
	w, _, _ := newTestWidget(t, f)

	s := NewScheduler(w, []config.WidgetSchedule{
		{Name: "broken", Schedule: "every tuesday", Action: config.ActionSize},
	}, nil)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Error("expected error for invalid cron expression")
	}
}

func TestTriggerJob(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("Podcasts/ep1.mp3", 2*testutil.MiB)
	w, _, cfg := newTestWidget(t, f)
	saveSelection(t, cfg, "Podcasts")

	s := NewScheduler(w, []config.WidgetSchedule{
		{Name: "size", Schedule: "@daily", Action: config.ActionSize},
	}, nil)

	if err := s.TriggerJob(context.Background(), "size"); err != nil {
		t.Fatal(err)
	}
	if got := w.Current().String(); got != "2.0 MB" {
		t.Errorf("display = %q, want 2.0 MB", got)
	}

	if err := s.TriggerJob(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown job")
	}
}
