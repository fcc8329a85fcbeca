package core

import (
	"context"
	"testing"
	"time"

	"herdcore/internal/infra/persistence/memory"
	"herdcore/pkg/domain"
)

func TestAppendEventValidation(t *testing.T) {
	svc, _ := newTestService(t, day("2024-05-01"))
	ctx := context.Background()
	a := mustCreate(t, svc, breedingFemale("B-1", day("2022-01-01")))
	cases := []struct {
		name  string
		event domain.TimelineEvent
		check func(error) bool
	}{
		{"missing animal id", domain.TimelineEvent{Type: domain.EventHealth, Date: day("2024-04-01")}, domain.IsValidation},
		{"unknown type", domain.TimelineEvent{AnimalID: a.ID, Type: "vaccination", Date: day("2024-04-01")}, domain.IsValidation},
		{"missing date", domain.TimelineEvent{AnimalID: a.ID, Type: domain.EventHealth}, domain.IsValidation},
		{"unknown animal", domain.TimelineEvent{AnimalID: "ghost", Type: domain.EventHealth, Date: day("2024-04-01")}, domain.IsNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := svc.AppendEvent(ctx, tenantA, tc.event); !tc.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
	if _, _, err := svc.AppendEvent(ctx, "farm-b", domain.TimelineEvent{AnimalID: a.ID, Type: domain.EventHealth, Date: day("2024-04-01")}); !domain.IsNotFound(err) {
		t.Fatalf("expected foreign tenant append to fail, got %v", err)
	}

	created, _, err := svc.AppendEvent(ctx, tenantA, domain.TimelineEvent{
		AnimalID: a.ID, Type: domain.EventHealth, Date: time.Date(2024, 4, 1, 15, 30, 0, 0, time.UTC), Description: "hoof trim",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if created.ID == "" || created.TenantID != tenantA || created.StageAtEvent != domain.StageBreedingFemale {
		t.Fatalf("unexpected event %+v", created)
	}
	if !created.Date.Equal(day("2024-04-01")) {
		t.Fatalf("expected date truncated to the day, got %s", created.Date)
	}
}

func TestListTimelineOrdering(t *testing.T) {
	svc, clock := newTestService(t, day("2024-05-01"))
	ctx := context.Background()
	a := mustCreate(t, svc, breedingFemale("B-1", day("2022-01-01")))

	appendAt := func(created time.Time, date string, desc string) {
		t.Helper()
		clock.Set(created)
		if _, _, err := svc.AppendEvent(ctx, tenantA, domain.TimelineEvent{AnimalID: a.ID, Type: domain.EventHealth, Date: day(date), Description: desc}); err != nil {
			t.Fatalf("append %s: %v", desc, err)
		}
	}
	base := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	appendAt(base, "2024-03-01", "old")
	appendAt(base.Add(time.Minute), "2024-04-10", "first same day")
	appendAt(base.Add(2*time.Minute), "2024-04-10", "second same day")
	appendAt(base.Add(3*time.Minute), "2024-02-01", "oldest")

	events, err := svc.ListTimeline(ctx, tenantA, a.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var got []string
	for _, e := range events {
		if e.Type == domain.EventHealth {
			got = append(got, e.Description)
		}
	}
	want := []string{"second same day", "first same day", "old", "oldest"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	for i := 1; i < len(events); i++ {
		if events[i].Date.After(events[i-1].Date) {
			t.Fatalf("timeline not sorted by date descending: %+v", events)
		}
	}
}

func TestRemoveEvent(t *testing.T) {
	svc, _ := newTestService(t, day("2024-05-01"))
	ctx := context.Background()
	a := mustCreate(t, svc, breedingFemale("B-1", day("2022-01-01")))
	e, _, err := svc.AppendEvent(ctx, tenantA, domain.TimelineEvent{AnimalID: a.ID, Type: domain.EventOther, Date: day("2024-04-01")})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := svc.RemoveEvent(ctx, "farm-b", e.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected foreign removal to fail, got %v", err)
	}
	if _, err := svc.RemoveEvent(ctx, tenantA, e.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := svc.RemoveEvent(ctx, tenantA, e.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected second removal to fail, got %v", err)
	}
}

func TestTimelineSurvivesRetirement(t *testing.T) {
	svc, _ := newTestService(t, day("2024-05-01"))
	ctx := context.Background()
	a := mustCreate(t, svc, breedingFemale("B-1", day("2022-01-01")))
	if _, err := svc.RetireAnimal(ctx, tenantA, a.ID, domain.RetiredSold); err != nil {
		t.Fatalf("retire: %v", err)
	}
	late, _, err := svc.AppendEvent(ctx, tenantA, domain.TimelineEvent{AnimalID: a.ID, Type: domain.EventOther, Date: day("2024-05-01"), Description: "buyer paid"})
	if err != nil {
		t.Fatalf("append after retirement: %v", err)
	}
	if late.StageAtEvent != domain.StageBreedingFemale {
		t.Fatalf("expected stage carried from the retirement event, got %q", late.StageAtEvent)
	}
	events, _ := svc.ListTimeline(ctx, tenantA, a.ID)
	if len(events) != 3 {
		t.Fatalf("expected registration, retirement and manual events, got %+v", events)
	}
}

func TestTimelineFailureDoesNotFailOperation(t *testing.T) {
	logger := &captureLogger{}
	metrics := &captureMetricsRecorder{}
	store := failingTimelineStore{Store: memory.NewStore(NewDefaultRulesEngine())}
	svc := NewService(store,
		WithClock(ClockFunc(func() time.Time { return day("2024-05-01") })),
		WithLogger(logger),
		WithMetricsRecorder(metrics),
	)
	ctx := context.Background()
	a, _, err := svc.CreateAnimal(ctx, tenantA, breedingFemale("B-1", day("2022-01-01")))
	if err != nil {
		t.Fatalf("create must succeed despite timeline failure: %v", err)
	}
	if _, _, err := svc.RecordInsemination(ctx, tenantA, a.ID, day("2024-04-01")); err != nil {
		t.Fatalf("insemination must succeed despite timeline failure: %v", err)
	}
	if !logger.has("warn", "timeline append failed") {
		t.Fatalf("expected timeline failure to be logged")
	}
	if !metrics.has(OpTimelineAppend, false) {
		t.Fatalf("expected timeline failure to be counted")
	}
	events, _ := svc.ListTimeline(ctx, tenantA, a.ID)
	if len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}
}
