package common

import (
	"encoding/json"
	"strings"

	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
	"github.com/ajayykmr/nvoip-dispatcher/internal/util"
)

// RequireString returns the named parameter or a validation error.
func RequireString(params models.Params, key string) (string, error) {
	value, ok := params.String(key)
	if !ok {
		return "", Validationf("%s is required", key)
	}
	return value, nil
}

// RequirePhone returns the named parameter normalised as a phone number.
func RequirePhone(params models.Params, key string) (string, error) {
	raw, err := RequireString(params, key)
	if err != nil {
		return "", err
	}
	phone, err := util.NormalizePhone(raw)
	if err != nil {
		return "", Validationf("%s: %v", key, err)
	}
	return phone, nil
}

// RequireTemplateID returns the template id parameter after shape validation.
// A JSON option value such as {"id":12,"instance":"A"} is reduced to its id;
// the remaining fields are ignored because the catalog is authoritative.
func RequireTemplateID(params models.Params) (string, error) {
	raw, err := RequireString(params, models.ParamTemplateID)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(raw, "{") {
		var option models.Params
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&option); err != nil {
			return "", Validationf("%s: malformed template option", models.ParamTemplateID)
		}
		raw, _ = option.String("id")
	}
	id, err := util.ValidateTemplateID(raw)
	if err != nil {
		return "", Validationf("%s: %v", models.ParamTemplateID, err)
	}
	return id, nil
}

// Variables returns the ordered variable values. Blank entries are kept so
// positions are not shifted.
func Variables(params models.Params) ([]string, error) {
	values, err := params.Strings(models.ParamVariables)
	if err != nil {
		return nil, WrapValidation(err)
	}
	return values, nil
}

// RequireVariables rejects an empty variable list for templates that reference
// placeholders. Padding with blanks is deliberately not done.
func RequireVariables(tpl *models.Template, values []string) error {
	if !tpl.RequiresVariables() || len(values) > 0 {
		return nil
	}
	return Validationf("template %s requires %d variable(s) but none were supplied; provide the values in placeholder order",
		tpl.ID, tpl.MaxIndex)
}

// OptionalURL validates an optional http(s) URL parameter.
func OptionalURL(params models.Params, key string) (string, error) {
	raw, ok := params.String(key)
	if !ok {
		return "", nil
	}
	u, err := util.ValidateHTTPURL(raw)
	if err != nil {
		return "", Validationf("%s: %v", key, err)
	}
	return strings.TrimSpace(u), nil
}

// NonNil returns values or an empty slice so it encodes as [] rather than null.
func NonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
