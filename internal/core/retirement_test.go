package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"herdcore/internal/archive"
	"herdcore/pkg/domain"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []domain.AnimalRetired
	err    error
}

func (p *capturePublisher) PublishRetired(_ context.Context, event domain.AnimalRetired) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func TestRetireAnimalArchivesAndPublishes(t *testing.T) {
	store := archive.NewMemory()
	publisher := &capturePublisher{}
	svc, clock := newTestService(t, day("2024-05-01"), WithArchive(store), WithRetirementPublisher(publisher))
	ctx := context.Background()
	cow := mustCreate(t, svc, breedingFemale("B-1", day("2022-01-01")))
	if _, _, err := svc.RecordInsemination(ctx, tenantA, cow.ID, day("2024-04-01")); err != nil {
		t.Fatalf("inseminate: %v", err)
	}

	if _, err := svc.RetireAnimal(ctx, tenantA, cow.ID, "stolen"); !domain.IsValidation(err) {
		t.Fatalf("expected unknown reason to fail, got %v", err)
	}
	clock.Set(day("2024-05-02"))
	if _, err := svc.RetireAnimal(ctx, tenantA, cow.ID, domain.RetiredCulled); err != nil {
		t.Fatalf("retire: %v", err)
	}
	if _, err := svc.GetAnimal(ctx, tenantA, cow.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected retired animal to be gone, got %v", err)
	}
	if _, err := svc.RetireAnimal(ctx, tenantA, cow.ID, domain.RetiredCulled); !domain.IsNotFound(err) {
		t.Fatalf("expected second retirement to fail, got %v", err)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one retirement event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.AnimalID != cow.ID || event.Reason != domain.RetiredCulled || event.Stage != domain.StageBreedingFemale || event.TagNumber != "B-1" {
		t.Fatalf("unexpected event %+v", event)
	}

	doc, err := svc.ArchivedRecord(ctx, tenantA, cow.ID)
	if err != nil {
		t.Fatalf("archived record: %v", err)
	}
	if doc.Animal.ID != cow.ID || doc.Reason != domain.RetiredCulled || len(doc.Timeline) != 3 {
		t.Fatalf("unexpected archive document %+v", doc)
	}
	if doc.Timeline[0].Description != "retired: culled" {
		t.Fatalf("expected the retirement event to lead the archived timeline, got %+v", doc.Timeline[0])
	}
	if _, err := svc.ArchivedRecord(ctx, tenantA, "missing"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown archive, got %v", err)
	}
}

func TestRetireAnimalSideEffectFailuresAreLogged(t *testing.T) {
	logger := &captureLogger{}
	publisher := &capturePublisher{err: errors.New("broker down")}
	svc, _ := newTestService(t, day("2024-05-01"), WithLogger(logger), WithRetirementPublisher(publisher))
	ctx := context.Background()
	a := mustCreate(t, svc, youngAnimal("Y-1", domain.SexMale, day("2024-01-01")))
	if _, err := svc.RetireAnimal(ctx, tenantA, a.ID, domain.RetiredDied); err != nil {
		t.Fatalf("retire must succeed when publishing fails: %v", err)
	}
	if !logger.has("warn", "publish retirement failed") {
		t.Fatalf("expected publish failure to be logged")
	}
	if _, err := svc.ArchivedRecord(ctx, tenantA, a.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected not found without an archive, got %v", err)
	}
}

func TestLogRetirementPublisher(t *testing.T) {
	logger := &captureLogger{}
	if err := (LogRetirementPublisher{Logger: logger}).PublishRetired(context.Background(), domain.AnimalRetired{AnimalID: "a"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !logger.has("info", "animal retired") {
		t.Fatalf("expected info log")
	}
	if err := (LogRetirementPublisher{}).PublishRetired(context.Background(), domain.AnimalRetired{}); err != nil {
		t.Fatalf("nil logger publish: %v", err)
	}
}
