package common

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
)

// OutboundRequest is a fully built provider call. Path is relative to the
// provider base URL. Instances are never mutated after construction.
type OutboundRequest struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    []byte
}

// NewJSONRequest marshals body and returns a request carrying the JSON content
// headers expected by the provider.
func NewJSONRequest(method, path string, body any) (*OutboundRequest, error) {
	var raw []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, WrapValidation(fmt.Errorf("marshal %s %s body: %w", method, path, err))
		}
		raw = encoded
	}
	return &OutboundRequest{
		Method: method,
		Path:   path,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		Body: raw,
	}, nil
}

// NewPost is a shorthand for a JSON POST request.
func NewPost(path string, body any) (*OutboundRequest, error) {
	return NewJSONRequest(http.MethodPost, path, body)
}

var numericID = regexp.MustCompile(`^(0|[1-9][0-9]{0,17})$`)

// TemplateRef renders a template id as a JSON number when it is a canonical
// integer and as a string otherwise, so zero-padded ids keep their digits.
func TemplateRef(id string) any {
	if numericID.MatchString(id) {
		return json.Number(id)
	}
	return id
}
