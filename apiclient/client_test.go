package apiclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-session-sync/apiclient"
	"github.com/jrsteele09/go-session-sync/apierrors"
	"github.com/jrsteele09/go-session-sync/resources"
	"github.com/stretchr/testify/require"
)

const testCredential = "bearer-credential"

func newTestClient(t *testing.T, handler http.HandlerFunc) *apiclient.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := apiclient.New(server.URL, "records")
	require.NoError(t, err)
	return client
}

func TestNew(t *testing.T) {
	t.Run("rejects an empty base URL", func(t *testing.T) {
		_, err := apiclient.New("", "records")
		require.Error(t, err)
	})

	t.Run("rejects an empty resource path", func(t *testing.T) {
		_, err := apiclient.New("http://localhost", "")
		require.Error(t, err)
	})
}

func TestClient_List(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes the collection and sends the bearer credential", func(t *testing.T) {
		var gotAuth, gotPath string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":5,"name":"five"},{"id":"7","name":"seven"}]`))
		})

		list, err := client.List(ctx, testCredential)
		require.NoError(t, err)
		require.Equal(t, "Bearer "+testCredential, gotAuth)
		require.Equal(t, "/records", gotPath)
		require.Len(t, list, 2)
		require.Equal(t, "5", list[0].ID)
		require.Equal(t, "7", list[1].ID)
	})

	t.Run("classifies 401 as a rejected credential", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := client.List(ctx, testCredential)
		require.True(t, apierrors.IsAuthorizationRejected(err))
	})
}

func TestClient_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("posts attributes and decodes the created resource", func(t *testing.T) {
		var gotMethod string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":1001,"name":"new"}`))
		})

		created, err := client.Create(ctx, resources.Attributes{"name": "new"}, testCredential)
		require.NoError(t, err)
		require.Equal(t, http.MethodPost, gotMethod)
		require.Equal(t, "1001", created.ID)
	})

	t.Run("classifies an errors array as a validation failure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"errors":["name can't be blank","name is too short"]}`))
		})

		_, err := client.Create(ctx, resources.Attributes{}, testCredential)
		verr, ok := apierrors.AsValidation(err)
		require.True(t, ok)
		require.Equal(t, []string{"name can't be blank", "name is too short"}, verr.Messages)
	})

	t.Run("classifies anything else by status code", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`oops`))
		})

		_, err := client.Create(ctx, resources.Attributes{}, testCredential)
		serr, ok := apierrors.AsStatus(err)
		require.True(t, ok)
		require.Equal(t, http.StatusInternalServerError, serr.Code)
	})
}

func TestClient_Update(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/records/7", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":7,"name":"X"}`))
	})

	updated, err := client.Update(context.Background(), "7", resources.Attributes{"name": "X"}, testCredential)
	require.NoError(t, err)
	require.Equal(t, "7", updated.ID)
	require.Equal(t, "X", updated.Attributes["name"])
}

func TestClient_Delete(t *testing.T) {
	t.Run("no content means success", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodDelete, r.Method)
			require.Equal(t, "/records/7", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		})

		require.NoError(t, client.Delete(context.Background(), "7", testCredential))
	})

	t.Run("missing record is a status failure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		err := client.Delete(context.Background(), "7", testCredential)
		serr, ok := apierrors.AsStatus(err)
		require.True(t, ok)
		require.Equal(t, http.StatusNotFound, serr.Code)
	})
}
