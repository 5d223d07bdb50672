package export

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct converts any JSON-serialisable value (outcomes, comparisons,
// detections) to a protobuf Struct for task-queue payloads. The value must
// encode as a JSON object.
func ToStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("value is not an object: %w", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("to struct: %w", err)
	}
	return s, nil
}

// FromStruct decodes a Struct produced by ToStruct back into out.
func FromStruct(s *structpb.Struct, out any) error {
	raw, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
