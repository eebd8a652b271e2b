package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType matches decode failures caused by an unrecognized type tag.
var ErrUnknownType = errors.New("unknown message type")

// UnknownTypeError carries the unrecognized tag.
type UnknownTypeError struct {
	Tag string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown message type %q", e.Tag)
}

func (e *UnknownTypeError) Is(target error) bool {
	return target == ErrUnknownType
}

var registry = map[string]func() Message{}

func register(ctors ...func() Message) {
	for _, ctor := range ctors {
		registry[ctor().Type()] = ctor
	}
}

func init() {
	register(
		func() Message { return &GetData{} },
		func() Message { return &UpdateCompany{} },
		func() Message { return &AddCompany{} },
		func() Message { return &DeleteCompany{} },
		func() Message { return &UpdateZone{} },
		func() Message { return &AddZone{} },
		func() Message { return &DeleteZone{} },
		func() Message { return &UpdateOperator{} },
		func() Message { return &AddOperator{} },
		func() Message { return &DeleteOperator{} },
		func() Message { return &UpdateAccessibility{} },
		func() Message { return &UpdateStats{} },
		func() Message { return &ResetDayCounters{} },
		func() Message { return &TechDiagnostics{} },
		func() Message { return &UpdatePaymentConfig{} },
		func() Message { return &UpdateKioskConfig{} },
		func() Message { return &UpdateParkingMeter{} },
		func() Message { return &AssignCompanyToMeter{} },
		func() Message { return &UpdateMeterStatus{} },
		func() Message { return &UpdateMeterScreen{} },
		func() Message { return &AddMeterError{} },
		func() Message { return &RegisterApp{} },
		func() Message { return &AddSession{} },
		func() Message { return &RemoveSession{} },
		func() Message { return &ExtendSession{} },
		func() Message { return &EndSession{} },
		func() Message { return &SendCommand{} },
	)
}

// Decode parses one inbound frame into its message type.
func Decode(raw []byte) (Message, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	ctor, ok := registry[envelope.Type]
	if !ok {
		return nil, &UnknownTypeError{Tag: envelope.Type}
	}
	m := ctor()
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", envelope.Type, err)
	}
	return m, nil
}

// Types lists every registered inbound type tag.
func Types() []string {
	out := make([]string, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	return out
}
