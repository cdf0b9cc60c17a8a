package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/wikichain/internal/ir"
)

// ErrInvalidOperation wraps every DecodeOperation failure, so callers can
// tell a malformed payload from a storage failure.
var ErrInvalidOperation = errors.New("invalid operation")

// operationPayload is the wire form of an update operation. Author is
// accepted so existing payloads decode, but its value is discarded.
type operationPayload struct {
	Page   *ir.WikiPage     `json:"page"`
	Target ir.Address       `json:"target"`
	Author *json.RawMessage `json:"author,omitempty"`
}

// DecodeOperation parses a serialized update operation. Unknown fields, at
// any depth, are an error. A missing target decodes as empty and is
// rejected by Validate as an unknown predecessor. The operation's author is
// always the caller-supplied agent.
func DecodeOperation(payload []byte, author ir.AgentID) (ir.UpdateOperation, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	var p operationPayload
	if err := dec.Decode(&p); err != nil {
		return ir.UpdateOperation{}, fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}
	if dec.More() {
		return ir.UpdateOperation{}, fmt.Errorf("%w: trailing data after object", ErrInvalidOperation)
	}
	if p.Page == nil {
		return ir.UpdateOperation{}, fmt.Errorf("%w: page is required", ErrInvalidOperation)
	}

	return ir.UpdateOperation{
		Page:   *p.Page,
		Target: p.Target,
		Author: author,
	}, nil
}

// ValidateJSON is the serialized entry point: an encoded UpdateOperation
// in, an encoded Verdict out. Decode failures wrap ErrInvalidOperation;
// storage failures are *ir.StorageError.
func ValidateJSON(ctx context.Context, v *Validator, payload []byte, author ir.AgentID) ([]byte, error) {
	op, err := DecodeOperation(payload, author)
	if err != nil {
		return nil, err
	}
	verdict, err := v.Validate(ctx, op)
	if err != nil {
		return nil, err
	}
	return json.Marshal(verdict)
}
