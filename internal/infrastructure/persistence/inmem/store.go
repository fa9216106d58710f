// Package inmem provides in-memory implementations of the domain
// repository interfaces. All repositories share one Store guarded by a
// single mutex, which gives the settlement store the same atomicity the
// PostgreSQL implementation gets from transactions. Used in tests and
// for running the engine without external dependencies.
package inmem

import (
	"sync"

	"github.com/arkok-lms/curriculum-engine/internal/domain/curriculum"
	"github.com/arkok-lms/curriculum-engine/internal/domain/reward"
	"github.com/arkok-lms/curriculum-engine/internal/domain/student"
	"github.com/arkok-lms/curriculum-engine/internal/domain/task"
)

// Store holds all in-memory state.
type Store struct {
	mu sync.RWMutex

	students map[string]*student.Student
	deleted  map[string]bool

	tasks      map[string]*task.Record
	tasksByKey map[string]string // dedup key -> task id

	publications map[string]*curriculum.Publication
	snapshots    map[string]map[curriculum.Subject]*curriculum.Snapshot
	overrides    map[string]map[curriculum.Subject]*curriculum.Override

	policies map[string]*reward.PolicyEntry // policy key -> entry
	events   []*reward.Event
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		students:     make(map[string]*student.Student),
		deleted:      make(map[string]bool),
		tasks:        make(map[string]*task.Record),
		tasksByKey:   make(map[string]string),
		publications: make(map[string]*curriculum.Publication),
		snapshots:    make(map[string]map[curriculum.Subject]*curriculum.Snapshot),
		overrides:    make(map[string]map[curriculum.Subject]*curriculum.Override),
		policies:     make(map[string]*reward.PolicyEntry),
	}
}

// Students returns the student repository view of the store.
func (s *Store) Students() *StudentRepository {
	return &StudentRepository{store: s}
}

// Tasks returns the task repository view of the store.
func (s *Store) Tasks() *TaskRepository {
	return &TaskRepository{store: s}
}

// Publications returns the publication repository view of the store.
func (s *Store) Publications() *PublicationRepository {
	return &PublicationRepository{store: s}
}

// Progress returns the progress repository view of the store.
func (s *Store) Progress() *ProgressRepository {
	return &ProgressRepository{store: s}
}

// Policies returns the reward policy repository view of the store.
func (s *Store) Policies() *PolicyRepository {
	return &PolicyRepository{store: s}
}

// Events returns the reward ledger view of the store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{store: s}
}

// Settlement returns the settlement store view.
func (s *Store) Settlement() *SettlementStore {
	return &SettlementStore{store: s}
}

func policyKey(schoolID string, module reward.Module, category, action string) string {
	return schoolID + "|" + string(module) + "|" + category + "|" + action
}
