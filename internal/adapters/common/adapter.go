package common

import (
	"context"

	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
)

// Adapter builds provider requests for the operations of one channel.
// Implementations are pure apart from template lookups.
type Adapter interface {
	Channel() models.Channel
	Supports(op models.Operation) bool
	Build(ctx context.Context, op models.Operation, params models.Params, templates TemplateLookup) (*OutboundRequest, error)
}

// TemplateLookup resolves a template id against the catalog of a channel.
// A missing id is reported with an error wrapping ErrResolution.
type TemplateLookup interface {
	Lookup(ctx context.Context, channel models.Channel, id string) (*models.Template, error)
}

// Invoker is the authenticated HTTP capability. Authentication is injected by
// the implementation; callers only describe the request.
type Invoker interface {
	Invoke(ctx context.Context, method, path string, headers map[string]string, body []byte) ([]byte, error)
}
