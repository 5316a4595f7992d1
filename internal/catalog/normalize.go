package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
	"github.com/ajayykmr/nvoip-dispatcher/internal/template"
	"github.com/ajayykmr/nvoip-dispatcher/internal/util"
)

// ErrUnexpectedShape is returned when a template listing cannot be decoded into
// the documented structure.
var ErrUnexpectedShape = errors.New("catalog: unexpected listing shape")

// flexibleID accepts ids encoded either as JSON strings or numbers.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

type smsEntry struct {
	ID           flexibleID `json:"id"`
	TemplateName string     `json:"templateName"`
	Name         string     `json:"name"`
	BodyText     string     `json:"bodyText"`
	Body         string     `json:"body"`
}

type waInstance struct {
	Instance flexibleID       `json:"instance"`
	Data     *json.RawMessage `json:"data"`
}

type waEntry struct {
	ID         flexibleID                 `json:"id"`
	Name       string                     `json:"name"`
	Language   string                     `json:"language"`
	Components []models.TemplateComponent `json:"components"`
}

// parseSMS normalises the flat SMS listing. Entries without an id are dropped.
func parseSMS(body []byte) ([]models.Template, error) {
	var entries []smsEntry
	if err := decodeList(body, &entries); err != nil {
		return nil, err
	}

	out := make([]models.Template, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		text := firstNonEmpty(e.BodyText, e.Body)
		placeholders := template.Extract(text)
		out = append(out, models.Template{
			Channel:      models.ChannelSMS,
			ID:           string(e.ID),
			Name:         firstNonEmpty(e.TemplateName, e.Name, string(e.ID)),
			Body:         text,
			Description:  fmt.Sprintf("Variables: %d - %s", placeholders.Count(), text),
			Placeholders: placeholders.Indices,
			MaxIndex:     placeholders.Max,
		})
	}
	return out, nil
}

// parseWhatsApp flattens the instance-nested WhatsApp listing into one entry
// per template, in provider order. Instances without a data list are skipped.
func parseWhatsApp(body []byte, previewChars int, logger zerolog.Logger) ([]models.Template, error) {
	var instances []waInstance
	if err := decodeList(body, &instances); err != nil {
		return nil, err
	}

	var out []models.Template
	for i, inst := range instances {
		var entries []waEntry
		if inst.Data == nil {
			logger.Warn().Int("index", i).Str("instance", string(inst.Instance)).Msg("whatsapp instance has no data list; skipping")
			continue
		}
		if err := decodeList(*inst.Data, &entries); err != nil {
			logger.Warn().Err(err).Int("index", i).Str("instance", string(inst.Instance)).Msg("whatsapp instance data unreadable; skipping")
			continue
		}
		for _, e := range entries {
			if e.ID == "" {
				continue
			}
			out = append(out, whatsAppTemplate(string(inst.Instance), e, previewChars))
		}
	}
	return out, nil
}

func whatsAppTemplate(instance string, e waEntry, previewChars int) models.Template {
	fragments := template.Fragments(e.Components)
	placeholders := template.Extract(fragments...)

	var headerFormat, headerText, body string
	for _, c := range e.Components {
		switch strings.ToUpper(c.Type) {
		case "HEADER":
			if headerFormat == "" && headerText == "" {
				headerFormat, headerText = c.Format, c.Text
			}
		case "BODY":
			if body == "" {
				body = c.Text
			}
		}
	}

	parts := make([]string, 0, len(fragments)+1)
	if headerFormat != "" {
		parts = append(parts, fmt.Sprintf("HEADER (%s)", headerFormat))
	}
	parts = append(parts, fragments...)
	preview := util.Truncate(strings.Join(parts, " | "), previewChars)

	return models.Template{
		Channel:      models.ChannelWhatsApp,
		ID:           string(e.ID),
		Name:         firstNonEmpty(e.Name, string(e.ID)),
		Body:         body,
		Description:  fmt.Sprintf("Variables: %d - %s", placeholders.Count(), preview),
		Placeholders: placeholders.Indices,
		MaxIndex:     placeholders.Max,
		Instance:     instance,
		Language:     e.Language,
		HeaderFormat: headerFormat,
		HeaderText:   headerText,
		Components:   e.Components,
	}
}

// decodeList requires body to be a JSON array.
func decodeList(body []byte, dst any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return fmt.Errorf("%w: expected a list", ErrUnexpectedShape)
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
