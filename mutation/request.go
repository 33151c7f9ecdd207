package mutation

import (
	"encoding/json"

	goerrors "github.com/goliatone/go-errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-listsync/query"
)

// Operation is the kind of change a Request asks for.
type Operation string

const (
	OpCreate  Operation = "create"
	OpUpdate  Operation = "update"
	OpDelete  Operation = "delete"
	OpReorder Operation = "reorder"
)

// Request is a single create, update, delete or reorder call against a
// resource. AffectedKeys lists the cache keys, or key prefixes, to
// invalidate once the server accepts the change.
type Request struct {
	Operation    Operation
	Resource     string
	ID           string
	Payload      any
	AffectedKeys []string
}

// ReorderPayload is the body of a reorder request.
type ReorderPayload struct {
	SlideOrder []string `json:"slideOrder"`
}

// Validate checks the request shape before it is sent.
func (r Request) Validate() error {
	needsID := r.Operation == OpUpdate || r.Operation == OpDelete
	needsPayload := r.Operation != OpDelete

	err := validation.ValidateStruct(&r,
		validation.Field(&r.Operation, validation.Required, validation.In(OpCreate, OpUpdate, OpDelete, OpReorder)),
		validation.Field(&r.Resource, validation.Required),
		validation.Field(&r.ID, validation.When(needsID, validation.Required)),
		validation.Field(&r.Payload, validation.When(needsPayload, validation.By(notNil))),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid mutation request")
	}
	return nil
}

func notNil(value any) error {
	if value == nil {
		return validation.NewError("validation_required", "cannot be blank")
	}
	return nil
}

// Keys renders query keys as invalidation targets.
func Keys(keys ...query.Key) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.String())
	}
	return out
}

// Response is the server reply to a successful mutation.
type Response struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the response data into v. It is a no-op when the
// server sent no data.
func (r Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "malformed response data")
	}
	return nil
}
