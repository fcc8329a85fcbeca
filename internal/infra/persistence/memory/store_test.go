package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"herdcore/pkg/domain"
)

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	var created domain.Animal
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindAnimal("missing"); ok {
			t.Fatalf("expected missing animal lookup")
		}
		var err error
		created, err = tx.CreateAnimal(domain.Animal{TagNumber: "TR-1", Stage: domain.StageYoung, Sex: domain.SexFemale})
		if err != nil {
			return err
		}
		if created.ID == "" {
			t.Fatalf("expected generated ID")
		}
		if created.Version != 1 {
			t.Fatalf("expected version 1, got %d", created.Version)
		}
		if len(tx.Snapshot().ListAnimals()) != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if len(store.ListAnimals()) != 1 {
		t.Fatalf("expected persisted animal")
	}
	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListAnimals()) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if _, ok := store.GetAnimal(created.ID); !ok {
		t.Fatalf("expected restored state")
	}
	if store.RulesEngine() == nil {
		t.Fatalf("expected rules engine")
	}
	if store.NowFunc() == nil {
		t.Fatalf("expected now func")
	}
}

func TestStoreRollbackOnError(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	boom := errors.New("boom")
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateAnimal(domain.Animal{TagNumber: "RB-1", Stage: domain.StageYoung}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(store.ListAnimals()) != 0 {
		t.Fatalf("expected rollback to discard the animal")
	}
}

func TestStoreRuleViolation(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateAnimal(domain.Animal{TagNumber: "X"})
		return e
	})
	if !domain.IsRuleViolation(err) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if len(store.ListAnimals()) != 0 {
		t.Fatalf("blocked transaction must not commit")
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(context.Context, domain.TransactionView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock}}}, nil
}

func TestUpdateAnimalBumpsVersionAndKeepsIdentity(t *testing.T) {
	store := NewStore(nil)
	fixed := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return fixed })
	ctx := context.Background()
	var id string
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		a, err := tx.CreateAnimal(domain.Animal{Base: domain.Base{TenantID: "farm-a"}, TagNumber: "U-1"})
		id = a.ID
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.UpdateAnimal("missing", func(*domain.Animal) error { return nil }); !domain.IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
		if _, err := tx.UpdateAnimal(id, func(*domain.Animal) error { return errors.New("mutator") }); err == nil {
			t.Fatalf("expected mutator error")
		}
		updated, err := tx.UpdateAnimal(id, func(a *domain.Animal) error {
			a.ID = "hijack"
			a.TenantID = "farm-b"
			a.Weight = 410
			return nil
		})
		if err != nil {
			return err
		}
		if updated.ID != id || updated.TenantID != "farm-a" {
			t.Fatalf("identity fields must be preserved: %+v", updated)
		}
		if updated.Version != 2 {
			t.Fatalf("expected version 2, got %d", updated.Version)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := store.GetAnimal(id)
	if got.Weight != 410 || !got.UpdatedAt.Equal(fixed) {
		t.Fatalf("unexpected committed record %+v", got)
	}
}

func TestDeleteAnimalKeepsTimeline(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	var animalID, eventID string
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		a, err := tx.CreateAnimal(domain.Animal{TagNumber: "D-1"})
		if err != nil {
			return err
		}
		animalID = a.ID
		e, err := tx.AppendEvent(domain.TimelineEvent{AnimalID: a.ID, Type: domain.EventBirth})
		eventID = e.ID
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteAnimal(animalID)
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := store.GetAnimal(animalID); ok {
		t.Fatalf("expected animal removed")
	}
	err := store.View(ctx, func(v domain.TransactionView) error {
		if len(v.ListEvents(animalID)) != 1 {
			t.Fatalf("expected history to survive retirement")
		}
		if _, ok := v.FindEvent(eventID); !ok {
			t.Fatalf("expected event lookup")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if err := tx.DeleteAnimal(animalID); !domain.IsNotFound(err) {
			t.Fatalf("expected not found on second delete, got %v", err)
		}
		if err := tx.DeleteEvent("missing"); !domain.IsNotFound(err) {
			t.Fatalf("expected missing event error, got %v", err)
		}
		return tx.DeleteEvent(eventID)
	})
	if err != nil {
		t.Fatalf("delete event: %v", err)
	}
}

func TestCreateDuplicateIDConflicts(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateAnimal(domain.Animal{Base: domain.Base{ID: "fixed"}}); err != nil {
			return err
		}
		_, err := tx.CreateAnimal(domain.Animal{Base: domain.Base{ID: "fixed"}})
		return err
	})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	store := NewStore(nil)
	insem := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var id string
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		a, err := tx.CreateAnimal(domain.Animal{Stage: domain.StageBreedingFemale, InseminationDate: &insem})
		id = a.ID
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, _ := store.GetAnimal(id)
	*got.InseminationDate = insem.AddDate(1, 0, 0)
	again, _ := store.GetAnimal(id)
	if !again.InseminationDate.Equal(insem) {
		t.Fatalf("caller mutation leaked into the store")
	}
}

func TestMigrateSnapshotNormalisesRecords(t *testing.T) {
	insem := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	migrated := migrateSnapshot(Snapshot{
		Animals: map[string]Animal{
			"f": {Stage: domain.StageBreedingFemale},
			"m": {Stage: domain.StageBreedingMale, InseminationDate: &insem, PregnancyStatus: domain.PregnancyPregnant, LactationCount: 2},
		},
		Events: map[string]TimelineEvent{
			"orphan": {Type: domain.EventOther},
			"kept":   {AnimalID: "f", Type: domain.EventBirth},
		},
	})
	if migrated.Animals["f"].PregnancyStatus != domain.PregnancyUnknown || migrated.Animals["f"].ID != "f" {
		t.Fatalf("expected female defaults, got %+v", migrated.Animals["f"])
	}
	male := migrated.Animals["m"]
	if male.InseminationDate != nil || male.PregnancyStatus != "" || male.LactationCount != 0 {
		t.Fatalf("expected reproductive fields stripped from male, got %+v", male)
	}
	if _, ok := migrated.Events["orphan"]; ok {
		t.Fatalf("expected orphan event dropped")
	}
	if migrated.Events["kept"].ID != "kept" {
		t.Fatalf("expected event id backfilled")
	}
	if empty := migrateSnapshot(Snapshot{}); empty.Animals == nil || empty.Events == nil {
		t.Fatalf("expected maps initialised")
	}
}
