package langgraph

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/huynhbao103/dietchat/internal/ports/outbound"
)

// rawPayload mirrors the superset of fields the backend has been observed to
// send. Message/Response/Answer stay raw because their types vary.
type rawPayload struct {
	Status              string                     `json:"status"`
	Message             json.RawMessage            `json:"message"`
	Response            json.RawMessage            `json:"response"`
	Answer              json.RawMessage            `json:"answer"`
	AnalysisSteps       []outbound.AnalysisStep    `json:"analysis_steps"`
	SessionID           string                     `json:"session_id"`
	CookingMethodPrompt *outbound.PreferencePrompt `json:"cooking_method_prompt"`
	AllergyPrompt       *outbound.PreferencePrompt `json:"allergy_prompt"`
}

// Normalize decodes a backend payload of arbitrary shape into the canonical
// Reply. It never fails: an unrecognized payload degrades to a Reply whose
// Message is the stringified payload, and the returned error exists only for
// diagnostics.
//
// Decoding order:
//  1. a `message` field that is itself a JSON-encoded object with a `status`
//     field replaces the payload (double-encoding);
//  2. status == "analysis_complete" with an analysis_steps array classifies
//     as analysis-complete;
//  3. otherwise the first present of raw string payload, message, response,
//     answer becomes the display text, falling back to the whole payload.
func Normalize(raw []byte) (*outbound.Reply, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return &outbound.Reply{}, fmt.Errorf("empty payload")
	}

	// Raw string payload, possibly a string-encoded object.
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		if reply, ok := tryObject([]byte(s)); ok {
			return reply, nil
		}
		return &outbound.Reply{Message: s}, nil
	}

	if reply, ok := tryObject(trimmed); ok {
		return reply, nil
	}

	// Last resort: surface the payload itself so the user sees something.
	return &outbound.Reply{Message: string(trimmed)}, fmt.Errorf("unrecognized payload shape")
}

// tryObject normalizes an object payload, reporting false when the bytes do
// not decode as a JSON object.
func tryObject(data []byte) (*outbound.Reply, bool) {
	var payload rawPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, false
	}

	// Double-encoded: message holds a JSON string whose content is itself an
	// object carrying a status field.
	if inner, ok := decodeStringField(payload.Message); ok {
		var probe struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal([]byte(inner), &probe); err == nil && probe.Status != "" {
			if reply, ok := tryObject([]byte(inner)); ok {
				return reply, true
			}
		}
	}

	reply := &outbound.Reply{
		Status:    payload.Status,
		SessionID: payload.SessionID,
	}

	if payload.Status == outbound.StatusAnalysisComplete && payload.AnalysisSteps != nil {
		reply.AnalysisSteps = payload.AnalysisSteps
		reply.CookingMethodPrompt = payload.CookingMethodPrompt
		reply.AllergyPrompt = payload.AllergyPrompt
		reply.Message = extractText(payload)
		return reply, true
	}

	reply.Message = extractText(payload)
	if reply.Message == "" && payload.Status == "" {
		// Nothing displayable and no recognizable status; stringify the
		// whole payload. A bare status with no text stays empty so callers
		// can apply their own fallback wording.
		reply.Message = string(data)
	}
	return reply, true
}

// extractText picks the first displayable string among message, response and
// answer. Non-string values are stringified.
func extractText(payload rawPayload) string {
	for _, field := range []json.RawMessage{payload.Message, payload.Response, payload.Answer} {
		if len(field) == 0 || bytes.Equal(field, []byte("null")) {
			continue
		}
		if s, ok := decodeStringField(field); ok {
			return s
		}
		return string(field)
	}
	return ""
}

func decodeStringField(field json.RawMessage) (string, bool) {
	if len(field) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(field, &s); err != nil {
		return "", false
	}
	return s, true
}
