package resources

import (
	"bytes"
	"encoding/json"

	"github.com/jrsteele09/go-session-sync/internal/utils"
	"github.com/pkg/errors"
)

// Attributes is the server-defined payload of a resource.
type Attributes map[string]any

// Resource is a server-owned entity mirrored into the local collection.
// ID is assigned by the server and immutable after creation.
type Resource struct {
	ID         string
	Attributes Attributes
}

// UnmarshalJSON pulls the "id" field out of the object (accepting both
// JSON numbers and strings) and keeps everything else as attributes.
func (r *Resource) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	raw := map[string]any{}
	if err := dec.Decode(&raw); err != nil {
		return errors.Wrap(err, "[Resource.UnmarshalJSON] decode")
	}

	id := utils.ToStringID(raw["id"])
	if id == "" {
		return errors.New("[Resource.UnmarshalJSON] missing or invalid id")
	}
	delete(raw, "id")

	r.ID = id
	r.Attributes = raw
	return nil
}

// MarshalJSON re-joins the id with the attributes.
func (r Resource) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(r.Attributes)+1)
	for k, v := range r.Attributes {
		obj[k] = v
	}
	obj["id"] = r.ID
	return json.Marshal(obj)
}
