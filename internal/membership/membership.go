// Package membership keeps the set of channels the agent wants to be
// in, persisted across restarts.
package membership

import (
	"context"
	"fmt"
	"sort"

	"github.com/rcliao/logbot/internal/model"
	"github.com/rcliao/logbot/internal/store"
)

// Reconciler owns the desired channel set. Every mutation rewrites the
// whole persisted set. It is used from the agent's event loop only.
type Reconciler struct {
	store      store.ChannelStore
	configured []string
	// folded name -> name as first seen
	channels map[string]string
}

// New returns a Reconciler whose set always includes configured.
func New(s store.ChannelStore, configured []string) *Reconciler {
	r := &Reconciler{
		store:      s,
		configured: configured,
		channels:   map[string]string{},
	}
	for _, ch := range configured {
		r.insert(ch)
	}
	return r
}

// Load merges the persisted set into the configured channels and
// returns the result. The merge is a union; nothing persisted is
// dropped because configuration lacks it.
func (r *Reconciler) Load(ctx context.Context) ([]string, error) {
	persisted, err := r.store.LoadChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load desired channels: %w", err)
	}
	for _, ch := range persisted {
		r.insert(ch)
	}
	return r.Members(), nil
}

// Add puts channel in the set and persists the set. added is false when
// it was already present, in which case nothing is written. If the
// write fails the set is left as it was.
func (r *Reconciler) Add(ctx context.Context, channel string) (added bool, err error) {
	if !r.insert(channel) {
		return false, nil
	}
	if err := r.Save(ctx); err != nil {
		delete(r.channels, model.Fold(channel))
		return false, err
	}
	return true, nil
}

// Remove drops channel from the set and persists the set. removed is
// false when it was not present. If the write fails the channel stays
// in the set.
func (r *Reconciler) Remove(ctx context.Context, channel string) (removed bool, err error) {
	key := model.Fold(channel)
	name, ok := r.channels[key]
	if !ok {
		return false, nil
	}
	delete(r.channels, key)
	if err := r.Save(ctx); err != nil {
		r.channels[key] = name
		return false, err
	}
	return true, nil
}

// Has reports whether channel is desired.
func (r *Reconciler) Has(channel string) bool {
	_, ok := r.channels[model.Fold(channel)]
	return ok
}

// Members returns the desired channels in name order.
func (r *Reconciler) Members() []string {
	out := make([]string, 0, len(r.channels))
	for _, name := range r.channels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Save overwrites the persisted set with the current one.
func (r *Reconciler) Save(ctx context.Context) error {
	if err := r.store.SaveChannels(ctx, r.Members()); err != nil {
		return fmt.Errorf("save desired channels: %w", err)
	}
	return nil
}

func (r *Reconciler) insert(channel string) bool {
	key := model.Fold(channel)
	if key == "" {
		return false
	}
	if _, ok := r.channels[key]; ok {
		return false
	}
	r.channels[key] = channel
	return true
}
