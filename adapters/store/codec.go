package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"driftgate/internal/schema"
)

// codecVersion is the current envelope version. Bump when the payload
// layout changes; readers reject versions they do not understand.
const codecVersion = 1

// envelope is the stored payload: a version tag plus the named features.
// The tag lets schema evolution (an added feature) be detected on read
// instead of silently defaulting old payloads.
type envelope struct {
	V        int                `json:"v"`
	Features map[string]float64 `json:"features"`
}

// codec serializes feature vectors against a fixed schema. Both directions
// are strict: a vector or payload that does not carry exactly the declared
// feature set is rejected.
type codec struct {
	schema *schema.Schema
}

func (c codec) encode(features map[string]float64) ([]byte, error) {
	if err := c.schema.Validate(features); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	return json.Marshal(envelope{V: codecVersion, Features: features})
}

func (c codec) decode(data []byte) (map[string]float64, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	if env.V != codecVersion {
		return nil, fmt.Errorf("%w: envelope version %d, want %d", ErrCodec, env.V, codecVersion)
	}
	if err := c.schema.Validate(env.Features); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	return env.Features, nil
}
