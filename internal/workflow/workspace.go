package workflow

import (
	"context"
	"fmt"

	"github.com/veriscope/console/internal/events"
	"github.com/veriscope/console/internal/registry"
	"github.com/veriscope/console/internal/snapshot"
	"github.com/veriscope/console/pkg/logger"
)

// Lister is the part of the registry client the workspace needs
type Lister interface {
	List(ctx context.Context) (registry.Listing, error)
}

// Workspace holds the photo and signature controllers and keeps both in
// step with the registry
type Workspace struct {
	registry    Lister
	controllers map[registry.Kind]*Controller
	logger      *logger.Logger
}

// NewWorkspace creates one controller per kind sharing store and events
func NewWorkspace(reg Lister, comparer Comparer, store snapshot.Store, ev *events.ComparisonEventPublisher, log *logger.Logger, opts ...Option) *Workspace {
	return &Workspace{
		registry: reg,
		controllers: map[registry.Kind]*Controller{
			registry.KindPhoto:     NewController(registry.KindPhoto, comparer, store, ev, log, opts...),
			registry.KindSignature: NewController(registry.KindSignature, comparer, store, ev, log, opts...),
		},
		logger: log.WithComponent("workspace"),
	}
}

// Controller returns the controller for kind
func (w *Workspace) Controller(kind registry.Kind) (*Controller, error) {
	c, ok := w.controllers[kind]
	if !ok {
		return nil, fmt.Errorf("no controller for kind %q", kind)
	}
	return c, nil
}

// Hydrate restores both controllers from the store
func (w *Workspace) Hydrate(ctx context.Context) {
	for _, c := range w.controllers {
		c.Hydrate(ctx)
	}
}

// Refresh lists the registry once and reconciles both controllers. A failed
// listing is logged and returned; the controllers are left untouched.
func (w *Workspace) Refresh(ctx context.Context) (registry.Listing, error) {
	listing, err := w.registry.List(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("registry refresh failed")
		return listing, err
	}

	for _, c := range w.controllers {
		c.Reconcile(ctx, listing)
	}
	return listing, nil
}
