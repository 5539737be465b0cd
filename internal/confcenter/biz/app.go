// Package biz implements the business logic of the configuration core:
// application registration, item authoring, inheritance resolution and the
// publish engine.
package biz

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/kart-io/confcenter/internal/confcenter/store"
	"github.com/kart-io/confcenter/internal/model"
	"github.com/kart-io/confcenter/pkg/errors"
)

// AppService handles application lifecycle and self-registration.
type AppService struct {
	store    store.Factory
	notifier Notifier
}

// NewAppService creates a new AppService.
func NewAppService(store store.Factory, notifier Notifier) *AppService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AppService{store: store, notifier: notifier}
}

// RegisterResult is the outcome of a client self-registration.
type RegisterResult struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
	// Existed is true when the app id was already registered and the stored
	// secret was returned instead of a new one.
	Existed bool `json:"existed"`
}

// Register registers an application id. If the id already exists this is
// treated as success and the existing secret is returned; otherwise the app
// is created with a generated secret.
func (s *AppService) Register(ctx context.Context, id, name string) (*RegisterResult, error) {
	if id == "" {
		return nil, errors.ErrValidationFailed.WithMessage("app id is required")
	}

	existing, err := s.store.Apps().Get(ctx, id)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if existing != nil {
		return &RegisterResult{ID: existing.ID, Secret: existing.Secret, Existed: true}, nil
	}

	if name == "" {
		name = id
	}
	app := &model.App{
		ID:      id,
		Name:    name,
		Secret:  newSecret(),
		Enabled: true,
	}
	if err := s.store.Apps().Create(ctx, app); err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}

	return &RegisterResult{ID: app.ID, Secret: app.Secret}, nil
}

// Create creates an application through the management plane.
func (s *AppService) Create(ctx context.Context, app *model.App) error {
	existing, err := s.store.Apps().Get(ctx, app.ID)
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	if existing != nil {
		return errors.ErrAppExists.WithMessagef("application %q already exists", app.ID)
	}
	if app.Secret == "" {
		app.Secret = newSecret()
	}
	return s.store.Apps().Create(ctx, app)
}

// Update updates mutable application fields. Toggling Enabled or rewiring
// the inheritance parent changes how this app (and its descendants) resolve,
// so those edits emit a change event for every environment even though no
// publish happened.
func (s *AppService) Update(ctx context.Context, app *model.App) error {
	existing, err := s.store.Apps().Get(ctx, app.ID)
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	if existing == nil {
		return errors.ErrAppNotFound.WithMessagef("application %q not found", app.ID)
	}

	resolutionChanged := existing.Enabled != app.Enabled ||
		existing.InheritedAppID != app.InheritedAppID

	existing.Name = app.Name
	existing.Enabled = app.Enabled
	existing.AutoPublish = app.AutoPublish
	existing.InheritedAppID = app.InheritedAppID
	existing.Tag = app.Tag
	if err := s.store.Apps().Update(ctx, existing); err != nil {
		return err
	}

	if resolutionChanged {
		for _, env := range model.Environments {
			s.notifier.NotifyConfigChanged(app.ID, env)
		}
	}
	return nil
}

// Get retrieves an application.
func (s *AppService) Get(ctx context.Context, id string) (*model.App, error) {
	app, err := s.store.Apps().Get(ctx, id)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if app == nil {
		return nil, errors.ErrAppNotFound.WithMessagef("application %q not found", id)
	}
	return app, nil
}

// List lists applications.
func (s *AppService) List(ctx context.Context, offset, limit int) (*model.AppList, error) {
	count, apps, err := s.store.Apps().List(ctx, offset, limit)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return &model.AppList{TotalCount: count, Items: apps}, nil
}

// newSecret generates an app secret. ULIDs give 80 bits of randomness which
// is sufficient for a bearer credential scoped to one app.
func newSecret() string {
	return strings.ToLower(ulid.Make().String())
}

// newID generates an entity id.
func newID() string {
	return ulid.Make().String()
}
