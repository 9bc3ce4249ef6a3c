package attach

import (
	"sync"

	"attachr/internal/models"
)

// Store is the observable record list of one uploader. Lists passed to and
// returned from it are treated as immutable; writers build a new slice.
type Store struct {
	mu       sync.RWMutex
	list     []models.Attachment
	onChange func([]models.Attachment)
}

// NewStore creates a store seeded with a copy of initial.
func NewStore(initial []models.Attachment, onChange func([]models.Attachment)) *Store {
	list := make([]models.Attachment, len(initial))
	copy(list, initial)
	return &Store{list: list, onChange: onChange}
}

// GetAll returns the current list, soft-deleted records included.
func (s *Store) GetAll() []models.Attachment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list
}

// SetAll replaces the list and calls onChange once with the same slice.
func (s *Store) SetAll(list []models.Attachment) {
	s.mu.Lock()
	s.list = list
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(list)
	}
}

// Visible filters out soft-deleted records.
func Visible(list []models.Attachment) []models.Attachment {
	out := make([]models.Attachment, 0, len(list))
	for _, item := range list {
		if item.Deleted {
			continue
		}
		out = append(out, item)
	}
	return out
}

func indexOf(list []models.Attachment, id string) int {
	for i := range list {
		if list[i].ID == id && !list[i].Deleted {
			return i
		}
	}
	return -1
}

func containsID(list []models.Attachment, id string) bool {
	for i := range list {
		if list[i].ID == id {
			return true
		}
	}
	return false
}
