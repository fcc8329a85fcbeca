// Package memory provides an in-memory implementation of the core persistence
// store used for tests, ephemeral environments, and as the transactional engine
// behind the snapshotting SQL stores.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"herdcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Animal aliases domain.Animal for in-memory persistence operations.
	Animal = domain.Animal
	// TimelineEvent aliases domain.TimelineEvent.
	TimelineEvent = domain.TimelineEvent
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	animals map[string]Animal
	events  map[string]TimelineEvent
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Animals map[string]Animal        `json:"animals"`
	Events  map[string]TimelineEvent `json:"events"`
}

func newMemoryState() memoryState {
	return memoryState{
		animals: make(map[string]Animal),
		events:  make(map[string]TimelineEvent),
	}
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		animals: make(map[string]Animal, len(s.animals)),
		events:  make(map[string]TimelineEvent, len(s.events)),
	}
	for k, v := range s.animals {
		cloned.animals[k] = cloneAnimal(v)
	}
	for k, v := range s.events {
		cloned.events[k] = cloneEvent(v)
	}
	return cloned
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{Animals: cloned.animals, Events: cloned.events}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	return memoryState{animals: s.Animals, events: s.Events}.clone()
}

// migrateSnapshot repairs snapshots written by older releases: missing maps are
// initialised, female records gain an explicit pregnancy status, reproductive
// fields are stripped from stages that cannot carry them, and orphaned events
// without an animal reference are dropped.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Animals == nil {
		snapshot.Animals = map[string]Animal{}
	}
	if snapshot.Events == nil {
		snapshot.Events = map[string]TimelineEvent{}
	}
	for id, animal := range snapshot.Animals {
		if animal.ID == "" {
			animal.ID = id
		}
		if animal.Stage.Female() {
			if !animal.PregnancyStatus.Valid() {
				animal.PregnancyStatus = domain.PregnancyUnknown
			}
		} else {
			animal.InseminationDate = nil
			animal.PregnancyStatus = ""
		}
		if animal.Stage != domain.StageMilkingFemale {
			animal.LactationCount = 0
			animal.LastCalvingDate = nil
			animal.DryPeriodStart = nil
		}
		if animal.Version == 0 {
			animal.Version = 1
		}
		snapshot.Animals[id] = animal
	}
	for id, event := range snapshot.Events {
		if event.AnimalID == "" {
			delete(snapshot.Events, id)
			continue
		}
		if event.ID == "" {
			event.ID = id
			snapshot.Events[id] = event
		}
	}
	return snapshot
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneAnimal(a Animal) Animal {
	cp := a
	cp.MotherID = copyString(a.MotherID)
	cp.InseminationDate = copyTime(a.InseminationDate)
	cp.LastCalvingDate = copyTime(a.LastCalvingDate)
	cp.DryPeriodStart = copyTime(a.DryPeriodStart)
	return cp
}

func cloneEvent(e TimelineEvent) TimelineEvent {
	cp := e
	cp.RelatedID = copyString(e.RelatedID)
	return cp
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the timestamp source used for CreatedAt/UpdatedAt.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListAnimals returns all animals within the snapshot ordered by ID.
func (v transactionView) ListAnimals() []Animal {
	out := make([]Animal, 0, len(v.state.animals))
	for _, a := range v.state.animals {
		out = append(out, cloneAnimal(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindAnimal retrieves an animal by ID from the snapshot.
func (v transactionView) FindAnimal(id string) (Animal, bool) {
	a, ok := v.state.animals[id]
	if !ok {
		return Animal{}, false
	}
	return cloneAnimal(a), true
}

// ListEvents returns the events recorded against an animal, ordered by ID.
func (v transactionView) ListEvents(animalID string) []TimelineEvent {
	var out []TimelineEvent
	for _, e := range v.state.events {
		if e.AnimalID == animalID {
			out = append(out, cloneEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindEvent retrieves a timeline event by ID.
func (v transactionView) FindEvent(id string) (TimelineEvent, bool) {
	e, ok := v.state.events[id]
	if !ok {
		return TimelineEvent{}, false
	}
	return cloneEvent(e), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy is only committed when fn succeeds and no blocking rule fires.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindAnimal looks up an animal inside the transaction.
func (tx *transaction) FindAnimal(id string) (Animal, bool) {
	a, ok := tx.state.animals[id]
	if !ok {
		return Animal{}, false
	}
	return cloneAnimal(a), true
}

// CreateAnimal stores a new animal within the transaction.
func (tx *transaction) CreateAnimal(a Animal) (Animal, error) {
	if a.ID == "" {
		a.ID = tx.store.newID()
	}
	if _, exists := tx.state.animals[a.ID]; exists {
		return Animal{}, domain.ConflictError{ID: a.ID, Reason: "animal already exists"}
	}
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	a.Version = 1
	tx.state.animals[a.ID] = cloneAnimal(a)
	tx.recordChange(Change{Entity: domain.EntityAnimal, Action: domain.ActionCreate, After: cloneAnimal(a)})
	return cloneAnimal(a), nil
}

// UpdateAnimal mutates an animal using the provided mutator function.
func (tx *transaction) UpdateAnimal(id string, mutator func(*Animal) error) (Animal, error) {
	current, ok := tx.state.animals[id]
	if !ok {
		return Animal{}, domain.NotFoundError{Entity: domain.EntityAnimal, ID: id}
	}
	before := cloneAnimal(current)
	if err := mutator(&current); err != nil {
		return Animal{}, err
	}
	current.ID = id
	current.TenantID = before.TenantID
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	current.Version = before.Version + 1
	tx.state.animals[id] = cloneAnimal(current)
	tx.recordChange(Change{Entity: domain.EntityAnimal, Action: domain.ActionUpdate, Before: before, After: cloneAnimal(current)})
	return cloneAnimal(current), nil
}

// DeleteAnimal removes an animal from the transaction state. Timeline events are kept.
func (tx *transaction) DeleteAnimal(id string) error {
	current, ok := tx.state.animals[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityAnimal, ID: id}
	}
	delete(tx.state.animals, id)
	tx.recordChange(Change{Entity: domain.EntityAnimal, Action: domain.ActionDelete, Before: cloneAnimal(current)})
	return nil
}

// AppendEvent stores a timeline event.
func (tx *transaction) AppendEvent(e TimelineEvent) (TimelineEvent, error) {
	if e.ID == "" {
		e.ID = tx.store.newID()
	}
	if _, exists := tx.state.events[e.ID]; exists {
		return TimelineEvent{}, domain.ConflictError{ID: e.ID, Reason: "timeline event already exists"}
	}
	e.CreatedAt = tx.now
	tx.state.events[e.ID] = cloneEvent(e)
	tx.recordChange(Change{Entity: domain.EntityTimelineEvent, Action: domain.ActionCreate, After: cloneEvent(e)})
	return cloneEvent(e), nil
}

// DeleteEvent hard-deletes a timeline event.
func (tx *transaction) DeleteEvent(id string) error {
	current, ok := tx.state.events[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityTimelineEvent, ID: id}
	}
	delete(tx.state.events, id)
	tx.recordChange(Change{Entity: domain.EntityTimelineEvent, Action: domain.ActionDelete, Before: cloneEvent(current)})
	return nil
}

// GetAnimal retrieves an animal by ID from committed state.
func (s *Store) GetAnimal(id string) (Animal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.animals[id]
	if !ok {
		return Animal{}, false
	}
	return cloneAnimal(a), true
}

// ListAnimals returns all animals from committed state ordered by ID.
func (s *Store) ListAnimals() []Animal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListAnimals()
}
