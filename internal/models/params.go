package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Parameter names understood by the dispatcher. Aliases used by the workflow
// host are resolved by the getters below.
const (
	ParamChannel      = "channel"
	ParamOperation    = "operation"
	ParamDestination  = "destination"
	ParamMessage      = "message"
	ParamTemplateID   = "templateId"
	ParamVariables    = "variables"
	ParamImageURL     = "imageUrl"
	ParamCallerID     = "callerId"
	ParamTransfer     = "transfer"
	ParamAudioContent = "audioContent"
	ParamAudio1       = "audio1"
	ParamAudio2       = "audio2"
)

var paramAliases = map[string][]string{
	ParamChannel:     {"resource"},
	ParamDestination: {"to", "toWhatsapp"},
	ParamTemplateID:  {"templateIdWhatsapp"},
	ParamVariables:   {"variablesWhatsapp"},
}

// Free text is passed to the provider verbatim.
var verbatimParams = map[string]bool{
	ParamMessage:      true,
	ParamAudioContent: true,
}

// Params is the parameter bag bound to a single work item.
type Params map[string]any

// Lookup returns the raw value stored under key or one of its aliases.
func (p Params) Lookup(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	if v, ok := p[key]; ok && v != nil {
		return v, true
	}
	for _, alias := range paramAliases[key] {
		if v, ok := p[alias]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String returns the trimmed string value for key. Message bodies keep their
// surrounding whitespace but still count as missing when blank. Numbers are
// formatted without exponent so numeric template ids survive JSON decoding.
func (p Params) String(key string) (string, bool) {
	raw, ok := p.Lookup(key)
	if !ok {
		return "", false
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case bool:
		s = strconv.FormatBool(v)
	case fmt.Stringer:
		s = v.String()
	default:
		return "", false
	}
	if verbatimParams[key] {
		return s, strings.TrimSpace(s) != ""
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Bool returns the boolean value for key. Strings such as "true" or "1" are
// accepted. The second result is false when the key is absent.
func (p Params) Bool(key string) (bool, bool, error) {
	raw, ok := p.Lookup(key)
	if !ok {
		return false, false, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, true, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return false, false, nil
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, true, fmt.Errorf("%s must be a boolean", key)
		}
		return parsed, true, nil
	case float64:
		return v != 0, true, nil
	default:
		return false, true, fmt.Errorf("%s must be a boolean", key)
	}
}

// Strings returns the ordered list of values stored under key. Besides plain
// lists it accepts the host's fixed collection shape
// {"variable": [{"value": "..."}]}.
func (p Params) Strings(key string) ([]string, error) {
	raw, ok := p.Lookup(key)
	if !ok {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		return stringsFromList(key, v)
	case map[string]any:
		inner, ok := v["variable"]
		if !ok || inner == nil {
			return nil, nil
		}
		list, ok := inner.([]any)
		if !ok {
			return nil, fmt.Errorf("%s.variable must be a list", key)
		}
		return stringsFromList(key, list)
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return []string{v}, nil
	default:
		return nil, fmt.Errorf("%s has unsupported type %T", key, raw)
	}
}

func stringsFromList(key string, list []any) ([]string, error) {
	out := make([]string, 0, len(list))
	for i, item := range list {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case json.Number:
			out = append(out, v.String())
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			out = append(out, strconv.FormatBool(v))
		case map[string]any:
			value, ok := v["value"]
			if !ok || value == nil {
				out = append(out, "")
				continue
			}
			out = append(out, fmt.Sprint(value))
		default:
			return nil, fmt.Errorf("%s[%d] has unsupported type %T", key, i, item)
		}
	}
	return out, nil
}
