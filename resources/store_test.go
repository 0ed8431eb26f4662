package resources_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-session-sync/apierrors"
	"github.com/jrsteele09/go-session-sync/identity"
	"github.com/jrsteele09/go-session-sync/identity/providerfake"
	"github.com/jrsteele09/go-session-sync/notify/notifyfake"
	"github.com/jrsteele09/go-session-sync/resources"
	"github.com/jrsteele09/go-session-sync/resources/clientfake"
	"github.com/jrsteele09/go-session-sync/session"
	"github.com/stretchr/testify/require"
)

type storeFixture struct {
	provider *providerfake.FakeProvider
	manager  *session.Manager
	client   *clientfake.FakeAPIClient
	notifier *notifyfake.FakeNotifier
	store    *resources.Store
}

// newStoreFixture wires a store against fake collaborators and signs
// in, which triggers the initial collection load.
func newStoreFixture(t *testing.T, seed ...resources.Resource) *storeFixture {
	t.Helper()

	provider := providerfake.NewFakeProvider("cred-1", "cred-2")
	manager, err := session.NewManager(provider)
	require.NoError(t, err)
	t.Cleanup(manager.Close)

	client := clientfake.NewFakeAPIClient(seed...)
	notifier := notifyfake.NewFakeNotifier()
	store, err := resources.NewStore(resources.Deps{
		Session:  manager,
		Client:   client,
		Notifier: notifier,
	})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	provider.SignIn(identity.Principal{Subject: "user-1"})
	return &storeFixture{
		provider: provider,
		manager:  manager,
		client:   client,
		notifier: notifier,
		store:    store,
	}
}

func seedResources() []resources.Resource {
	return []resources.Resource{
		{ID: "5", Attributes: resources.Attributes{"name": "five"}},
		{ID: "7", Attributes: resources.Attributes{"name": "seven"}},
		{ID: "9", Attributes: resources.Attributes{"name": "nine"}},
	}
}

func collectionIDs(list []resources.Resource) []string {
	ids := make([]string, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestNewStore(t *testing.T) {
	t.Run("requires a session manager", func(t *testing.T) {
		_, err := resources.NewStore(resources.Deps{Client: clientfake.NewFakeAPIClient()})
		require.Error(t, err)
	})

	t.Run("requires an API client", func(t *testing.T) {
		provider := providerfake.NewFakeProvider("cred-1")
		manager, err := session.NewManager(provider)
		require.NoError(t, err)
		t.Cleanup(manager.Close)

		_, err = resources.NewStore(resources.Deps{Session: manager})
		require.Error(t, err)
	})

	t.Run("loads the collection when the session authenticates", func(t *testing.T) {
		f := newStoreFixture(t, seedResources()...)
		require.Equal(t, resources.StateReady, f.store.State())
		require.Equal(t, []string{"5", "7", "9"}, collectionIDs(f.store.Snapshot()))
		require.Equal(t, 1, f.client.Calls("list"))
	})
}

func TestStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the collection with the server response", func(t *testing.T) {
		f := newStoreFixture(t, seedResources()...)

		require.NoError(t, f.store.Load(ctx))
		require.Equal(t, resources.StateReady, f.store.State())
		require.Equal(t, []string{"5", "7", "9"}, collectionIDs(f.store.Snapshot()))
	})

	t.Run("clears the collection and reports on failure", func(t *testing.T) {
		f := newStoreFixture(t, seedResources()...)
		f.client.Fail("list", &apierrors.StatusError{Code: 500})

		require.Error(t, f.store.Load(ctx))
		require.Empty(t, f.store.Snapshot())
		require.Equal(t, resources.StateError, f.store.State())
		require.Equal(t, []string{resources.MessageUnexpected}, f.notifier.Errors)
	})
}

func TestStore_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("prepends the created resource", func(t *testing.T) {
		f := newStoreFixture(t, seedResources()...)
		before := f.store.Snapshot()

		succeeded := false
		err := f.store.Create(ctx, resources.Attributes{"name": "new"}, resources.Callbacks{
			OnSuccess: func() { succeeded = true },
		})
		require.NoError(t, err)
		require.True(t, succeeded)

		after := f.store.Snapshot()
		require.Len(t, after, len(before)+1)
		require.Equal(t, "new", after[0].Attributes["name"])
		require.Equal(t, collectionIDs(before), collectionIDs(after[1:]))
		require.Equal(t, []string{resources.MessageCreated}, f.notifier.Successes)
	})

	t.Run("leaves the collection untouched on a validation failure", func(t *testing.T) {
		f := newStoreFixture(t, seedResources()...)
		f.client.Fail("create", &apierrors.ValidationError{
			Messages: []string{"name can't be blank", "name is too short"},
		})

		var cbErr error
		err := f.store.Create(ctx, resources.Attributes{}, resources.Callbacks{
			OnError: func(err error) { cbErr = err },
		})
		require.Error(t, err)
		require.Error(t, cbErr)
		require.Equal(t, []string{"5", "7", "9"}, collectionIDs(f.store.Snapshot()))
		require.Len(t, f.notifier.Validations, 1)
		require.Len(t, f.notifier.Validations[0], 2)
	})
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the matching entry in place", func(t *testing.T) {
		f := newStoreFixture(t, seedResources()...)

		err := f.store.Update(ctx, "7", resources.Attributes{"name": "X"}, resources.Callbacks{})
		require.NoError(t, err)

		after := f.store.Snapshot()
		require.Equal(t, []string{"5", "7", "9"}, collectionIDs(after))
		require.Equal(t, "X", after[1].Attributes["name"])
		require.Equal(t, "five", after[0].Attributes["name"])
		require.Equal(t, "nine", after[2].Attributes["name"])
		require.Equal(t, 1, f.notifier.ModalDismissed)
		require.Equal(t, []string{resources.MessageUpdated}, f.notifier.Successes)
	})

	t.Run("ignores an id missing from the local collection", func(t *testing.T) {
		f := newStoreFixture(t, seedResources()...)

		succeeded := false
		err := f.store.Update(ctx, "999", resources.Attributes{"name": "ghost"}, resources.Callbacks{
			OnSuccess: func() { succeeded = true },
		})
		require.NoError(t, err)
		require.True(t, succeeded)
		require.Equal(t, []string{"5", "7", "9"}, collectionIDs(f.store.Snapshot()))
	})

	t.Run("reports not-found from the server", func(t *testing.T) {
		f := newStoreFixture(t, seedResources()...)
		f.client.Fail("update", &apierrors.StatusError{Code: 404})

		err := f.store.Update(ctx, "7", resources.Attributes{"name": "X"}, resources.Callbacks{})
		require.Error(t, err)
		require.Equal(t, []string{resources.MessageNotFound}, f.notifier.Errors)
		require.Zero(t, f.notifier.ModalDismissed)
	})
}

func TestStore_Destroy(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the matching entry and keeps order", func(t *testing.T) {
		f := newStoreFixture(t, seedResources()...)

		err := f.store.Destroy(ctx, "7", resources.Callbacks{})
		require.NoError(t, err)
		require.Equal(t, []string{"5", "9"}, collectionIDs(f.store.Snapshot()))
		require.Equal(t, []string{resources.MessageDeleted}, f.notifier.Successes)
	})

	t.Run("reports not-found for an unknown id", func(t *testing.T) {
		f := newStoreFixture(t, seedResources()...)

		err := f.store.Destroy(ctx, "999", resources.Callbacks{})
		require.Error(t, err)
		require.Equal(t, []string{"5", "7", "9"}, collectionIDs(f.store.Snapshot()))
		require.Equal(t, []string{resources.MessageNotFound}, f.notifier.Errors)
	})
}

func TestStore_AuthRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("a recovered rejection is invisible to the user", func(t *testing.T) {
		f := newStoreFixture(t, seedResources()...)
		f.client.RequireCredential("cred-2")

		err := f.store.Create(ctx, resources.Attributes{"name": "new"}, resources.Callbacks{})
		require.NoError(t, err)
		require.Equal(t, 1, f.provider.RefreshCalls())
		require.Zero(t, f.notifier.ErrorCount())
		require.Len(t, f.store.Snapshot(), 4)
	})

	t.Run("a terminal rejection aborts the callback chain silently", func(t *testing.T) {
		f := newStoreFixture(t, seedResources()...)
		f.client.RequireCredential("cred-never")

		callbacks := 0
		err := f.store.Create(ctx, resources.Attributes{"name": "new"}, resources.Callbacks{
			OnSuccess: func() { callbacks++ },
			OnError:   func(error) { callbacks++ },
		})
		require.True(t, session.IsTerminalAuth(err))
		require.Zero(t, callbacks)
		require.Zero(t, f.notifier.ErrorCount())
		require.Equal(t, 1, f.provider.SignOutCalls())
		require.Equal(t, session.PhaseUnauthenticated, f.manager.Phase())
	})

	t.Run("mutations are skipped without a session", func(t *testing.T) {
		f := newStoreFixture(t, seedResources()...)
		f.manager.SignOut(ctx)
		createCallsBefore := f.client.Calls("create")

		callbacks := 0
		err := f.store.Create(ctx, resources.Attributes{"name": "new"}, resources.Callbacks{
			OnSuccess: func() { callbacks++ },
			OnError:   func(error) { callbacks++ },
		})
		require.ErrorIs(t, err, session.ErrNoSession)
		require.Zero(t, callbacks)
		require.Zero(t, f.notifier.ErrorCount())
		require.Equal(t, createCallsBefore, f.client.Calls("create"))
	})
}
