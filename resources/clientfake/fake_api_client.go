package clientfake

import (
	"context"
	"strconv"
	"sync"

	"github.com/jrsteele09/go-session-sync/apierrors"
	"github.com/jrsteele09/go-session-sync/resources"
)

var _ resources.APIClient = (*FakeAPIClient)(nil)

// FakeAPIClient acts as an in-memory remote collection for tests. When
// ValidCredential is set, any call with a different credential fails
// with apierrors.ErrAuthorizationRejected — the standard way to script
// an expired token. Per-operation failures can be injected with Fail.
type FakeAPIClient struct {
	lock sync.Mutex

	serverSide      []resources.Resource
	nextID          int
	validCredential string
	failures        map[string]error
	calls           map[string]int
	credentials     []string
}

func NewFakeAPIClient(seed ...resources.Resource) *FakeAPIClient {
	return &FakeAPIClient{
		serverSide: append([]resources.Resource{}, seed...),
		nextID:     1000,
		failures:   make(map[string]error),
		calls:      make(map[string]int),
	}
}

// RequireCredential makes every call with a different credential return
// apierrors.ErrAuthorizationRejected.
func (fc *FakeAPIClient) RequireCredential(credential string) {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	fc.validCredential = credential
}

// Fail scripts err for the named operation ("list", "create", "update",
// "delete"). A nil err clears it.
func (fc *FakeAPIClient) Fail(operation string, err error) {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	if err == nil {
		delete(fc.failures, operation)
		return
	}
	fc.failures[operation] = err
}

func (fc *FakeAPIClient) Calls(operation string) int {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	return fc.calls[operation]
}

// Credentials returns every credential presented, in call order.
func (fc *FakeAPIClient) Credentials() []string {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	return append([]string{}, fc.credentials...)
}

// ServerSide returns the fake server's current collection.
func (fc *FakeAPIClient) ServerSide() []resources.Resource {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	return append([]resources.Resource{}, fc.serverSide...)
}

func (fc *FakeAPIClient) List(_ context.Context, credential string) ([]resources.Resource, error) {
	if err := fc.begin("list", credential); err != nil {
		return nil, err
	}
	return fc.ServerSide(), nil
}

func (fc *FakeAPIClient) Create(_ context.Context, attributes resources.Attributes, credential string) (*resources.Resource, error) {
	if err := fc.begin("create", credential); err != nil {
		return nil, err
	}

	fc.lock.Lock()
	defer fc.lock.Unlock()
	fc.nextID++
	created := resources.Resource{
		ID:         strconv.Itoa(fc.nextID),
		Attributes: cloneAttributes(attributes),
	}
	fc.serverSide = append(fc.serverSide, created)
	return &created, nil
}

func (fc *FakeAPIClient) Update(_ context.Context, id string, attributes resources.Attributes, credential string) (*resources.Resource, error) {
	if err := fc.begin("update", credential); err != nil {
		return nil, err
	}

	fc.lock.Lock()
	defer fc.lock.Unlock()
	for i := range fc.serverSide {
		if fc.serverSide[i].ID == id {
			merged := cloneAttributes(fc.serverSide[i].Attributes)
			for k, v := range attributes {
				merged[k] = v
			}
			fc.serverSide[i].Attributes = merged
			updated := fc.serverSide[i]
			return &updated, nil
		}
	}
	// Server accepts updates for records this fake never saw.
	updated := resources.Resource{ID: id, Attributes: cloneAttributes(attributes)}
	return &updated, nil
}

func (fc *FakeAPIClient) Delete(_ context.Context, id string, credential string) error {
	if err := fc.begin("delete", credential); err != nil {
		return err
	}

	fc.lock.Lock()
	defer fc.lock.Unlock()
	for i := range fc.serverSide {
		if fc.serverSide[i].ID == id {
			fc.serverSide = append(fc.serverSide[:i], fc.serverSide[i+1:]...)
			return nil
		}
	}
	return &apierrors.StatusError{Code: 404}
}

func (fc *FakeAPIClient) begin(operation, credential string) error {
	fc.lock.Lock()
	defer fc.lock.Unlock()
	fc.calls[operation]++
	fc.credentials = append(fc.credentials, credential)
	if fc.validCredential != "" && credential != fc.validCredential {
		return apierrors.ErrAuthorizationRejected
	}
	if err := fc.failures[operation]; err != nil {
		return err
	}
	return nil
}

func cloneAttributes(attributes resources.Attributes) resources.Attributes {
	out := make(resources.Attributes, len(attributes))
	for k, v := range attributes {
		out[k] = v
	}
	return out
}
