package validation

import (
	"github.com/xeipuuv/gojsonschema"
)

// triggerSchema describes the inbound trigger shape owned by the transport
// collaborator. Every field is optional; the check is advisory and its
// result is only logged, never used to reject an event.
var triggerSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"notification": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"title": map[string]interface{}{"type": "string"},
				"body":  map[string]interface{}{"type": "string"},
			},
		},
		"data": map[string]interface{}{
			"type": "object",
			"additionalProperties": map[string]interface{}{
				"type": "string",
			},
		},
		"messageId": map[string]interface{}{"type": "string"},
		"sentTime":  map[string]interface{}{"type": "string"},
	},
}

// CheckTrigger validates a raw trigger against the expected shape and
// returns human-readable deviations. An empty slice means conforming;
// a nil error with deviations means the trigger is usable but odd.
func CheckTrigger(raw map[string]interface{}) ([]string, error) {
	schemaLoader := gojsonschema.NewGoLoader(triggerSchema)
	documentLoader := gojsonschema.NewGoLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, err
	}

	if result.Valid() {
		return nil, nil
	}

	deviations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		deviations = append(deviations, desc.String())
	}
	return deviations, nil
}
