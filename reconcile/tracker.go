// Package reconcile keeps derived representations in step with a changing
// set of identities, such as the obstacles of a tile cache or the agents of
// a crowd.
package reconcile

import "slices"

// Hooks build, refresh and tear down the representation of one identity.
type Hooks[K comparable, R any] struct {
	Create  func(K) (R, error)
	Update  func(K, R) error
	Destroy func(K, R)
}

// Delta lists what one Reconcile pass did.
type Delta[K comparable] struct {
	Created   []K
	Updated   []K
	Destroyed []K
}

// Changed reports whether any representation was created or destroyed.
func (d Delta[K]) Changed() bool {
	return len(d.Created) > 0 || len(d.Destroyed) > 0
}

// Tracker maps identities to representations.
type Tracker[K comparable, R any] struct {
	hooks Hooks[K, R]
	items map[K]R
	order []K
}

func NewTracker[K comparable, R any](hooks Hooks[K, R]) *Tracker[K, R] {
	return &Tracker[K, R]{hooks: hooks, items: map[K]R{}}
}

// Reconcile makes the tracked key set equal to ids. Unknown ids are created,
// known ids are updated and tracked ids missing from ids are destroyed. A
// hook error stops the pass and is returned with the work done so far.
func (t *Tracker[K, R]) Reconcile(ids []K) (Delta[K], error) {
	var delta Delta[K]
	unseen := make(map[K]struct{}, len(t.items))
	for k := range t.items {
		unseen[k] = struct{}{}
	}

	for _, id := range ids {
		delete(unseen, id)
		r, ok := t.items[id]
		if !ok {
			created, err := t.hooks.Create(id)
			if err != nil {
				return delta, err
			}
			t.items[id] = created
			t.order = append(t.order, id)
			delta.Created = append(delta.Created, id)
			continue
		}
		if t.hooks.Update != nil {
			if err := t.hooks.Update(id, r); err != nil {
				return delta, err
			}
		}
		delta.Updated = append(delta.Updated, id)
	}

	if len(unseen) > 0 {
		t.order = slices.DeleteFunc(t.order, func(k K) bool {
			if _, gone := unseen[k]; !gone {
				return false
			}
			t.destroy(k)
			delta.Destroyed = append(delta.Destroyed, k)
			return true
		})
	}
	return delta, nil
}

func (t *Tracker[K, R]) destroy(k K) {
	r := t.items[k]
	delete(t.items, k)
	if t.hooks.Destroy != nil {
		t.hooks.Destroy(k, r)
	}
}

func (t *Tracker[K, R]) Len() int { return len(t.items) }

func (t *Tracker[K, R]) Get(k K) (R, bool) {
	r, ok := t.items[k]
	return r, ok
}

// Keys returns the tracked identities in creation order.
func (t *Tracker[K, R]) Keys() []K { return slices.Clone(t.order) }

// Clear destroys every representation.
func (t *Tracker[K, R]) Clear() {
	for _, k := range t.order {
		t.destroy(k)
	}
	t.order = nil
}
