package ingest

import (
	"github.com/google/uuid"

	"recipehub/pkg/models"
)

// Registry deduplicates ingredients by name for one run.
type Registry struct {
	ids   map[string]string
	newID func() string
}

func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]string), newID: uuid.NewString}
}

// Seed marks names that already exist in the store. Seeded names resolve to
// their stored id and never produce a new Ingredient.
func (r *Registry) Seed(existing map[string]string) {
	for name, id := range existing {
		r.ids[name] = id
	}
}

// Resolve returns the id for name. ing is non-nil only on first sight and
// is the row to persist.
func (r *Registry) Resolve(name, category string) (id string, ing *models.Ingredient) {
	if id, ok := r.ids[name]; ok {
		return id, nil
	}
	id = r.newID()
	r.ids[name] = id
	return id, &models.Ingredient{ID: id, Name: name, Category: category}
}

func (r *Registry) Len() int { return len(r.ids) }
