package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"herdcore/internal/infra/persistence/memory"
	"herdcore/pkg/domain"
)

const tenantA = "farm-a"

func day(value string) time.Time {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		panic(err)
	}
	return t
}

func timePtr(t time.Time) *time.Time { return &t }

// testClock is a mutable clock shared with the service under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestService(t *testing.T, now time.Time, opts ...ServiceOption) (*Service, *testClock) {
	t.Helper()
	clock := &testClock{now: now}
	opts = append([]ServiceOption{WithClock(clock)}, opts...)
	return NewService(memory.NewStore(NewDefaultRulesEngine()), opts...), clock
}

func mustCreate(t *testing.T, svc *Service, animal domain.Animal) domain.Animal {
	t.Helper()
	created, _, err := svc.CreateAnimal(context.Background(), tenantA, animal)
	if err != nil {
		t.Fatalf("create %s: %v", animal.TagNumber, err)
	}
	return created
}

func youngAnimal(tag string, sex domain.Sex, birth time.Time) domain.Animal {
	return domain.Animal{TagNumber: tag, Stage: domain.StageYoung, Sex: sex, BirthDate: birth, Weight: 40}
}

func breedingFemale(tag string, birth time.Time) domain.Animal {
	return domain.Animal{TagNumber: tag, Stage: domain.StageBreedingFemale, Sex: domain.SexFemale, BirthDate: birth, Weight: 450}
}

func calf(tag string) OffspringInput {
	return OffspringInput{TagNumber: tag, Sex: domain.SexFemale, Weight: 38}
}

// pregnantFemale creates a breeding female inseminated on insem and confirmed pregnant.
func pregnantFemale(t *testing.T, svc *Service, tag string, insem time.Time) domain.Animal {
	t.Helper()
	ctx := context.Background()
	a := mustCreate(t, svc, breedingFemale(tag, day("2020-01-01")))
	if _, _, err := svc.RecordInsemination(ctx, tenantA, a.ID, insem); err != nil {
		t.Fatalf("inseminate %s: %v", tag, err)
	}
	updated, _, err := svc.SetPregnancyStatus(ctx, tenantA, a.ID, domain.PregnancyPregnant, false)
	if err != nil {
		t.Fatalf("confirm pregnancy %s: %v", tag, err)
	}
	return updated
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
	l.mu.Unlock()
}

func (l *captureLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.log("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.log("error", msg, args) }

func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

// failingTimelineStore rejects every timeline append while letting animal
// writes through.
type failingTimelineStore struct {
	*memory.Store
}

func (s failingTimelineStore) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	return s.Store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return fn(failingTimelineTx{tx})
	})
}

type failingTimelineTx struct {
	domain.Transaction
}

func (failingTimelineTx) AppendEvent(domain.TimelineEvent) (domain.TimelineEvent, error) {
	return domain.TimelineEvent{}, fmt.Errorf("timeline unavailable")
}

func errorAs(err error, target any) bool {
	return err != nil && errors.As(err, target)
}
