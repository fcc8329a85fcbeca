package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateAnimal(Animal) (Animal, error)
	UpdateAnimal(id string, mutator func(*Animal) error) (Animal, error)
	DeleteAnimal(id string) error
	FindAnimal(id string) (Animal, bool)
	AppendEvent(TimelineEvent) (TimelineEvent, error)
	DeleteEvent(id string) error
}

// TransactionView provides read-only access to snapshot data for rules and read paths.
type TransactionView interface {
	ListAnimals() []Animal
	FindAnimal(id string) (Animal, bool)
	ListEvents(animalID string) []TimelineEvent
	FindEvent(id string) (TimelineEvent, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetAnimal(id string) (Animal, bool)
	ListAnimals() []Animal
}
