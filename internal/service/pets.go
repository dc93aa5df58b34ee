// Package service implements the petstore's domain logic.
package service

import (
	"errors"
	"log/slog"
	"sync"

	"petstore-api-go/internal/model"
)

// ErrPetNotFound is returned by Get when no pet has the given id.
var ErrPetNotFound = errors.New("pet not found")

// PetStore holds pets in memory with monotonically assigned ids.
// Safe for concurrent use.
type PetStore struct {
	mu     sync.Mutex
	pets   map[int64]model.Pet
	nextID int64
	logger *slog.Logger
}

// NewPetStore creates an empty PetStore.
func NewPetStore(logger *slog.Logger) *PetStore {
	return &PetStore{
		pets:   make(map[int64]model.Pet),
		nextID: 1,
		logger: logger.With("component", "pet_store"),
	}
}

// Create stores a new pet and returns it with its assigned id.
func (s *PetStore) Create(name string, age int, status string) model.Pet {
	s.mu.Lock()
	defer s.mu.Unlock()

	pet := model.Pet{
		ID:     s.nextID,
		Name:   name,
		Age:    age,
		Status: status,
	}
	s.nextID++
	s.pets[pet.ID] = pet

	s.logger.Debug("pet created", "id", pet.ID, "name", pet.Name)
	return pet
}

// Get returns the pet with the given id, or ErrPetNotFound.
func (s *PetStore) Get(id int64) (model.Pet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pet, ok := s.pets[id]
	if !ok {
		return model.Pet{}, ErrPetNotFound
	}
	return pet, nil
}

// Put stores a pet under its own id, bumping the id sequence past it.
// Used to seed fixed ids.
func (s *PetStore) Put(pet model.Pet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pets[pet.ID] = pet
	if pet.ID >= s.nextID {
		s.nextID = pet.ID + 1
	}
}
