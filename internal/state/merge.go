package state

import (
	"encoding/json"
	"fmt"

	"meypark-backend/internal/apperr"
)

// mergePatch shallow-merges the JSON object patch into current. Keys absent from
// the patch keep their value; nested objects are replaced as a whole. Keys listed
// in immutable are ignored.
func mergePatch[T any](current T, patch json.RawMessage, immutable ...string) (T, error) {
	fields, err := patchFields(patch)
	if err != nil {
		return current, err
	}
	if len(fields) == 0 {
		return current, nil
	}
	for _, k := range immutable {
		delete(fields, k)
	}

	base, err := json.Marshal(current)
	if err != nil {
		return current, apperr.Internal(fmt.Errorf("encode entity: %w", err))
	}
	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &merged); err != nil {
		return current, apperr.Internal(fmt.Errorf("decode entity: %w", err))
	}
	for k, v := range fields {
		merged[k] = v
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return current, apperr.Internal(fmt.Errorf("encode merged entity: %w", err))
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return current, apperr.Validation(fmt.Sprintf("Datos de actualización inválidos: %v", err))
	}
	return out, nil
}

func patchFields(patch json.RawMessage) (map[string]json.RawMessage, error) {
	if len(patch) == 0 || string(patch) == "null" {
		return nil, nil
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(patch, &fields); err != nil {
		return nil, apperr.Validation("Las actualizaciones deben ser un objeto JSON")
	}
	return fields, nil
}
