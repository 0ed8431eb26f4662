package resources

import "context"

// APIClient performs the remote calls for one resource collection. Every
// call presents the supplied bearer credential, and every failure is a
// tagged apierrors variant decided at this boundary:
//
//   - apierrors.ErrAuthorizationRejected for a refused credential
//   - *apierrors.ValidationError for rejected input with messages
//   - *apierrors.StatusError for anything else
type APIClient interface {
	List(ctx context.Context, credential string) ([]Resource, error)
	Create(ctx context.Context, attributes Attributes, credential string) (*Resource, error)
	Update(ctx context.Context, id string, attributes Attributes, credential string) (*Resource, error)
	Delete(ctx context.Context, id string, credential string) error
}
