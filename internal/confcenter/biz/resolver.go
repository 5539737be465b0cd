package biz

import (
	"context"

	"github.com/kart-io/logger"

	"github.com/kart-io/confcenter/internal/confcenter/store"
	"github.com/kart-io/confcenter/internal/model"
	"github.com/kart-io/confcenter/pkg/errors"
)

// maxInheritanceDepth caps the ancestor chain walk. The inheritance relation
// is supposed to be acyclic, but nothing stops an operator from introducing a
// cycle; exceeding the cap abandons the offending edge instead of looping.
const maxInheritanceDepth = 10

// ResolvedValue is one effective config entry after inheritance merging.
type ResolvedValue struct {
	Value     string          `json:"value"`
	ValueType model.ValueType `json:"value_type"`
	Group     string          `json:"group,omitempty"`
	// SourceAppID is the app whose item supplied the value; for inherited
	// keys this is an ancestor, not the requested app.
	SourceAppID string `json:"source_app_id"`
}

// ResolverService computes the effective key/value mapping for an app by
// merging its own Released config items with those of its ancestor chain.
// Resolution is a pure function of current store state; callers cache.
type ResolverService struct {
	store store.Factory
}

// NewResolverService creates a new ResolverService.
func NewResolverService(store store.Factory) *ResolverService {
	return &ResolverService{store: store}
}

// Resolve returns the merged, Released-only mapping for (appID, env).
// Keys defined closer to the leaf app override the same key inherited from an
// ancestor. A missing or cyclic ancestor link terminates the walk for that
// edge; it never fails the whole resolution.
func (s *ResolverService) Resolve(ctx context.Context, appID string, env model.Environment) (map[string]ResolvedValue, error) {
	app, err := s.store.Apps().Get(ctx, appID)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if app == nil {
		return nil, errors.ErrAppNotFound.WithMessagef("application %q not found", appID)
	}
	if !app.Enabled {
		return map[string]ResolvedValue{}, nil
	}

	chain, err := s.ancestorChain(ctx, app)
	if err != nil {
		return nil, err
	}

	// Merge from the root ancestor down to the leaf app: later writes win.
	merged := make(map[string]ResolvedValue)
	for i := len(chain) - 1; i >= 0; i-- {
		items, err := s.store.Items().ListReleased(ctx, chain[i].ID, env)
		if err != nil {
			return nil, errors.ErrDatabase.WithCause(err)
		}
		for _, item := range items {
			merged[item.Key] = ResolvedValue{
				Value:       item.Value,
				ValueType:   item.ValueType,
				Group:       item.Group,
				SourceAppID: item.AppID,
			}
		}
	}

	return merged, nil
}

// ancestorChain builds [app, parent, grandparent, ...], leaf first. The walk
// stops at a missing parent, a disabled parent, a repeated app id, or the
// depth cap.
func (s *ResolverService) ancestorChain(ctx context.Context, app *model.App) ([]*model.App, error) {
	chain := []*model.App{app}
	seen := map[string]bool{app.ID: true}

	current := app
	for depth := 0; current.InheritedAppID != ""; depth++ {
		if depth >= maxInheritanceDepth {
			logger.Warnw("inheritance chain exceeds max depth, abandoning edge",
				"app_id", app.ID, "edge_from", current.ID, "max_depth", maxInheritanceDepth)
			break
		}
		if seen[current.InheritedAppID] {
			logger.Warnw("inheritance cycle detected, abandoning edge",
				"app_id", app.ID, "edge_from", current.ID, "edge_to", current.InheritedAppID)
			break
		}

		parent, err := s.store.Apps().Get(ctx, current.InheritedAppID)
		if err != nil {
			return nil, errors.ErrDatabase.WithCause(err)
		}
		if parent == nil {
			// Missing ancestor means "no further inheritance", not an error.
			logger.Warnw("inherited app does not exist, abandoning edge",
				"app_id", app.ID, "edge_from", current.ID, "edge_to", current.InheritedAppID)
			break
		}
		if !parent.Enabled {
			break
		}

		chain = append(chain, parent)
		seen[parent.ID] = true
		current = parent
	}

	return chain, nil
}
