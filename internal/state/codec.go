package state

import (
	"encoding/json"
	"fmt"

	"github.com/overcast-io/overcast/internal/interfaces"
)

func encodeInfrastructure(infra *interfaces.Infrastructure) ([]byte, error) {
	payload, err := json.Marshal(infra)
	if err != nil {
		return nil, fmt.Errorf("failed to encode infrastructure %s: %w", infra.ID, err)
	}
	return payload, nil
}

func decodeInfrastructure(payload []byte) (*interfaces.Infrastructure, error) {
	var infra interfaces.Infrastructure
	if err := json.Unmarshal(payload, &infra); err != nil {
		return nil, fmt.Errorf("failed to decode infrastructure snapshot: %w", err)
	}
	return &infra, nil
}

func encodeOperation(op *interfaces.Operation) ([]byte, error) {
	payload, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("failed to encode operation %s: %w", op.ID, err)
	}
	return payload, nil
}

func decodeOperation(payload []byte) (*interfaces.Operation, error) {
	var op interfaces.Operation
	if err := json.Unmarshal(payload, &op); err != nil {
		return nil, fmt.Errorf("failed to decode operation snapshot: %w", err)
	}
	return &op, nil
}
