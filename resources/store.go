// Package resources keeps an in-memory, id-keyed, order-significant
// collection of server-owned resources consistent with a remote API.
// Every remote call runs through the session manager's guarded-call
// retry, and every server response is reconciled against the
// then-current collection by id lookup — never a positional index
// captured before the call went out.
package resources

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-sync/apierrors"
	"github.com/jrsteele09/go-session-sync/internal/utils"
	"github.com/jrsteele09/go-session-sync/notify"
	"github.com/jrsteele09/go-session-sync/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// LoadingState is the whole-collection loading state. It transitions
// atomically on Load; it is never a per-item state.
type LoadingState uint8

const (
	StateLoading LoadingState = iota
	StateReady
	StateError
)

func (s LoadingState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Callbacks are the optional per-call continuations for a mutation.
// Either field may be nil.
type Callbacks struct {
	OnSuccess func()
	OnError   func(error)
}

// Deps holds all dependencies for the Store.
type Deps struct {
	Session  *session.Manager
	Client   APIClient
	Notifier notify.Notifier // optional, defaults to NoOpNotifier
}

// Store owns the collection. All methods are safe for concurrent use;
// consumers only ever receive snapshots.
type Store struct {
	session  *session.Manager
	client   APIClient
	notifier notify.Notifier

	lock       sync.RWMutex
	collection []Resource
	loading    LoadingState

	unsubscribe func()
}

// NewStore creates a resource store and subscribes it to the session
// manager's phase stream: the collection is (re)loaded whenever the
// session transitions into the authenticated phase. Call Close to
// detach.
func NewStore(deps Deps) (*Store, error) {
	if deps.Session == nil {
		return nil, errors.New("[NewStore] Session manager is required")
	}
	if deps.Client == nil {
		return nil, errors.New("[NewStore] API client is required")
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NoOpNotifier{}
	}

	store := &Store{
		session:  deps.Session,
		client:   deps.Client,
		notifier: deps.Notifier,
		loading:  StateLoading,
	}

	store.unsubscribe = deps.Session.SubscribePhase(func(phase session.Phase) {
		if phase == session.PhaseAuthenticated {
			if err := store.Load(context.Background()); err != nil {
				log.Err(err).Msg("initial collection load failed")
			}
		}
	})
	return store, nil
}

// Close detaches the store from the session manager's phase stream.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Snapshot returns a copy of the current collection.
func (s *Store) Snapshot() []Resource {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return utils.CloneSlice(s.collection)
}

// State returns the collection's loading state.
func (s *Store) State() LoadingState {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.loading
}

// Get returns the entry with the given id from the current collection.
func (s *Store) Get(id string) (*Resource, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for i := range s.collection {
		if s.collection[i].ID == id {
			return utils.Ptr(s.collection[i]), true
		}
	}
	return nil, false
}

// Load fetches the full collection and replaces the local one. On any
// failure the collection is cleared and the state set to StateError;
// non-auth failures are additionally reported to the notifier.
func (s *Store) Load(ctx context.Context) error {
	s.setLoading(StateLoading)

	err := s.session.RunGuarded(ctx, func(ctx context.Context, credential string) error {
		list, err := s.client.List(ctx, credential)
		if err != nil {
			return errors.Wrap(err, "[Store.Load] client.List")
		}
		s.replaceAll(list)
		return nil
	})
	if err != nil {
		s.clearWithError()
		s.reportError(err)
		return err
	}
	return nil
}

// Create sends a create request and, on success, prepends the server's
// returned resource to the collection. The local collection is untouched
// on failure.
func (s *Store) Create(ctx context.Context, attributes Attributes, cb Callbacks) error {
	opID := uuid.New().String()

	err := s.session.RunGuarded(ctx, func(ctx context.Context, credential string) error {
		created, err := s.client.Create(ctx, attributes, credential)
		if err != nil {
			return errors.Wrap(err, "[Store.Create] client.Create")
		}
		s.prepend(*created)
		log.Debug().Str("op_id", opID).Str("resource_id", created.ID).Msg("resource created")
		return nil
	})
	if err != nil {
		return s.failMutation(err, cb)
	}

	s.notifier.Success(MessageCreated)
	if cb.OnSuccess != nil {
		cb.OnSuccess()
	}
	return nil
}

// Update sends an update request for id and, on success, replaces the
// matching entry in place with the server's returned representation.
// When no entry with that id exists locally the collection is left
// untouched (the server response is discarded); the success callback
// still runs because the server accepted the mutation.
func (s *Store) Update(ctx context.Context, id string, attributes Attributes, cb Callbacks) error {
	err := s.session.RunGuarded(ctx, func(ctx context.Context, credential string) error {
		updated, err := s.client.Update(ctx, id, attributes, credential)
		if err != nil {
			return errors.Wrap(err, "[Store.Update] client.Update")
		}
		if !s.replaceByID(*updated) {
			log.Debug().Str("resource_id", updated.ID).Msg("updated resource not in local collection, ignoring")
		}
		return nil
	})
	if err != nil {
		return s.failMutation(err, cb)
	}

	s.notifier.DismissModal()
	s.notifier.Success(MessageUpdated)
	if cb.OnSuccess != nil {
		cb.OnSuccess()
	}
	return nil
}

// Destroy sends a delete request for id and, on success, removes the
// matching entry from the collection.
func (s *Store) Destroy(ctx context.Context, id string, cb Callbacks) error {
	err := s.session.RunGuarded(ctx, func(ctx context.Context, credential string) error {
		if err := s.client.Delete(ctx, id, credential); err != nil {
			return errors.Wrap(err, "[Store.Destroy] client.Delete")
		}
		s.removeByID(id)
		return nil
	})
	if err != nil {
		return s.failMutation(err, cb)
	}

	s.notifier.Success(MessageDeleted)
	if cb.OnSuccess != nil {
		cb.OnSuccess()
	}
	return nil
}

// failMutation applies the uniform failure policy for the three
// mutations: precondition skips and the already-handled terminal auth
// failure abort the callback chain silently, everything else is
// classified, notified, and handed to the error callback.
func (s *Store) failMutation(err error, cb Callbacks) error {
	if errors.Is(err, session.ErrNoSession) || session.IsTerminalAuth(err) {
		return err
	}
	s.reportError(err)
	if cb.OnError != nil {
		cb.OnError(err)
	}
	return err
}

// reportError classifies err and notifies the user. Authorization
// failures never reach classification: the session manager either
// recovered them or already handled the terminal case.
func (s *Store) reportError(err error) {
	if errors.Is(err, session.ErrNoSession) || session.IsTerminalAuth(err) {
		return
	}
	if verr, ok := apierrors.AsValidation(err); ok {
		log.Debug().Int("count", len(verr.Messages)).Msg("validation errors from server")
		s.notifier.ValidationErrors(verr.Messages)
		return
	}
	if serr, ok := apierrors.AsStatus(err); ok && serr.Code == http.StatusNotFound {
		s.notifier.Error(MessageNotFound)
		return
	}
	s.notifier.Error(MessageUnexpected)
}

func (s *Store) setLoading(state LoadingState) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.loading = state
}

func (s *Store) clearWithError() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.collection = nil
	s.loading = StateError
}

// replaceAll swaps in the server's collection and marks the store ready
// in one step.
func (s *Store) replaceAll(list []Resource) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.collection = utils.CloneSlice(list)
	s.loading = StateReady
}

// prepend puts the new resource at the front. Any stale entry with the
// same id is dropped first, keeping the one-entry-per-id invariant.
func (s *Store) prepend(resource Resource) {
	s.lock.Lock()
	defer s.lock.Unlock()
	filtered := make([]Resource, 0, len(s.collection)+1)
	filtered = append(filtered, resource)
	for _, existing := range s.collection {
		if existing.ID != resource.ID {
			filtered = append(filtered, existing)
		}
	}
	s.collection = filtered
}

// replaceByID swaps the matching entry for the server representation,
// looked up at response time. Returns false when the id is absent.
func (s *Store) replaceByID(resource Resource) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	for i := range s.collection {
		if s.collection[i].ID == resource.ID {
			s.collection[i] = resource
			return true
		}
	}
	return false
}

func (s *Store) removeByID(id string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	for i := range s.collection {
		if s.collection[i].ID == id {
			s.collection = append(s.collection[:i:i], s.collection[i+1:]...)
			return true
		}
	}
	return false
}
