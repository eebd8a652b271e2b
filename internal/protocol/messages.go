// Package protocol defines the realtime messages exchanged with kiosks and
// dashboards. Inbound messages form a closed set: every type implements Message
// and is handled by exactly one Visitor method.
package protocol

import (
	"context"
	"encoding/json"

	"meypark-backend/internal/model"
)

// Message is an inbound realtime message.
type Message interface {
	Type() string
	accept(ctx context.Context, v Visitor) Outcome
}

// Visitor handles each inbound message type. Adding a message type adds a
// method here, so every handler set must be extended to keep compiling.
type Visitor interface {
	GetData(ctx context.Context, m *GetData) Outcome
	UpdateCompany(ctx context.Context, m *UpdateCompany) Outcome
	AddCompany(ctx context.Context, m *AddCompany) Outcome
	DeleteCompany(ctx context.Context, m *DeleteCompany) Outcome
	UpdateZone(ctx context.Context, m *UpdateZone) Outcome
	AddZone(ctx context.Context, m *AddZone) Outcome
	DeleteZone(ctx context.Context, m *DeleteZone) Outcome
	UpdateOperator(ctx context.Context, m *UpdateOperator) Outcome
	AddOperator(ctx context.Context, m *AddOperator) Outcome
	DeleteOperator(ctx context.Context, m *DeleteOperator) Outcome
	UpdateAccessibility(ctx context.Context, m *UpdateAccessibility) Outcome
	UpdateStats(ctx context.Context, m *UpdateStats) Outcome
	ResetDayCounters(ctx context.Context, m *ResetDayCounters) Outcome
	TechDiagnostics(ctx context.Context, m *TechDiagnostics) Outcome
	UpdatePaymentConfig(ctx context.Context, m *UpdatePaymentConfig) Outcome
	UpdateKioskConfig(ctx context.Context, m *UpdateKioskConfig) Outcome
	UpdateParkingMeter(ctx context.Context, m *UpdateParkingMeter) Outcome
	AssignCompanyToMeter(ctx context.Context, m *AssignCompanyToMeter) Outcome
	UpdateMeterStatus(ctx context.Context, m *UpdateMeterStatus) Outcome
	UpdateMeterScreen(ctx context.Context, m *UpdateMeterScreen) Outcome
	AddMeterError(ctx context.Context, m *AddMeterError) Outcome
	RegisterApp(ctx context.Context, m *RegisterApp) Outcome
	AddSession(ctx context.Context, m *AddSession) Outcome
	RemoveSession(ctx context.Context, m *RemoveSession) Outcome
	ExtendSession(ctx context.Context, m *ExtendSession) Outcome
	EndSession(ctx context.Context, m *EndSession) Outcome
	SendCommand(ctx context.Context, m *SendCommand) Outcome
}

// Dispatch hands m to the matching method of v.
func Dispatch(ctx context.Context, m Message, v Visitor) Outcome {
	return m.accept(ctx, v)
}

type GetData struct{}

type UpdateCompany struct {
	CompanyID string          `json:"companyId"`
	Updates   json.RawMessage `json:"updates"`
}

type AddCompany struct {
	Company model.Company `json:"company"`
}

type DeleteCompany struct {
	CompanyID string `json:"companyId"`
}

type UpdateZone struct {
	ZoneID  string          `json:"zoneId"`
	Updates json.RawMessage `json:"updates"`
}

type AddZone struct {
	Zone model.Zone `json:"zone"`
}

type DeleteZone struct {
	ZoneID string `json:"zoneId"`
}

type UpdateOperator struct {
	OperatorID string          `json:"operatorId"`
	Updates    json.RawMessage `json:"updates"`
}

type AddOperator struct {
	Operator model.Operator `json:"operator"`
	Password string         `json:"password"`
}

type DeleteOperator struct {
	OperatorID string `json:"operatorId"`
}

type UpdateAccessibility struct {
	Updates json.RawMessage `json:"updates"`
}

type UpdateStats struct {
	Updates json.RawMessage `json:"updates"`
}

// ResetDayCounters zeroes today's income at the start of a business day.
type ResetDayCounters struct{}

type TechDiagnostics struct {
	Diagnostics json.RawMessage `json:"diagnostics"`
}

type UpdatePaymentConfig struct {
	Updates json.RawMessage `json:"updates"`
}

type UpdateKioskConfig struct {
	Updates json.RawMessage `json:"updates"`
}

type UpdateParkingMeter struct {
	MeterID string          `json:"meterId"`
	Updates json.RawMessage `json:"updates"`
}

type AssignCompanyToMeter struct {
	MeterID    string `json:"meterId"`
	CompanyID  string `json:"companyId"`
	OperatorID string `json:"operatorId"`
}

type UpdateMeterStatus struct {
	MeterID        string            `json:"meterId"`
	Status         model.MeterStatus `json:"status"`
	HardwareStatus json.RawMessage   `json:"hardwareStatus"`
}

type UpdateMeterScreen struct {
	MeterID string `json:"meterId"`
	Screen  string `json:"screen"`
}

type AddMeterError struct {
	MeterID string `json:"meterId"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// RegisterApp binds the connection to AppID. An empty AppID keeps the
// connection's generated identity.
type RegisterApp struct {
	AppID   string        `json:"appId"`
	AppInfo model.AppInfo `json:"appInfo"`
}

type AddSession struct {
	SessionID string        `json:"sessionId"`
	Session   model.Session `json:"session"`
}

type RemoveSession struct {
	SessionID string `json:"sessionId"`
}

// ExtendSession carries the new end time as RFC3339 or "HH:MM".
type ExtendSession struct {
	SessionID  string `json:"sessionId"`
	NewEndTime string `json:"newEndTime"`
}

type EndSession struct {
	SessionID     string `json:"sessionId"`
	PaymentMethod string `json:"paymentMethod"`
}

// SendCommand asks a kiosk to run a remote command.
type SendCommand struct {
	MeterID string          `json:"meterId"`
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (*GetData) Type() string { return "get_data" }
func (*UpdateCompany) Type() string { return "update_company" }
func (*AddCompany) Type() string { return "add_company" }
func (*DeleteCompany) Type() string { return "delete_company" }
func (*UpdateZone) Type() string { return "update_zone" }
func (*AddZone) Type() string { return "add_zone" }
func (*DeleteZone) Type() string { return "delete_zone" }
func (*UpdateOperator) Type() string { return "update_operator" }
func (*AddOperator) Type() string { return "add_operator" }
func (*DeleteOperator) Type() string { return "delete_operator" }
func (*UpdateAccessibility) Type() string { return "update_accessibility" }
func (*UpdateStats) Type() string { return "update_stats" }
func (*ResetDayCounters) Type() string { return "reset_day_counters" }
func (*TechDiagnostics) Type() string { return "tech_diagnostics" }
func (*UpdatePaymentConfig) Type() string { return "update_payment_config" }
func (*UpdateKioskConfig) Type() string { return "update_kiosk_config" }
func (*UpdateParkingMeter) Type() string { return "update_parking_meter" }
func (*AssignCompanyToMeter) Type() string { return "assign_company_to_meter" }
func (*UpdateMeterStatus) Type() string { return "update_meter_status" }
func (*UpdateMeterScreen) Type() string { return "update_meter_screen" }
func (*AddMeterError) Type() string { return "add_meter_error" }
func (*RegisterApp) Type() string { return "register_app" }
func (*AddSession) Type() string { return "add_session" }
func (*RemoveSession) Type() string { return "remove_session" }
func (*ExtendSession) Type() string { return "extend_session" }
func (*EndSession) Type() string { return "end_session" }
func (*SendCommand) Type() string { return "send_command" }

func (m *GetData) accept(ctx context.Context, v Visitor) Outcome {
	return v.GetData(ctx, m)
}

func (m *UpdateCompany) accept(ctx context.Context, v Visitor) Outcome {
	return v.UpdateCompany(ctx, m)
}

func (m *AddCompany) accept(ctx context.Context, v Visitor) Outcome {
	return v.AddCompany(ctx, m)
}

func (m *DeleteCompany) accept(ctx context.Context, v Visitor) Outcome {
	return v.DeleteCompany(ctx, m)
}

func (m *UpdateZone) accept(ctx context.Context, v Visitor) Outcome {
	return v.UpdateZone(ctx, m)
}

func (m *AddZone) accept(ctx context.Context, v Visitor) Outcome {
	return v.AddZone(ctx, m)
}

func (m *DeleteZone) accept(ctx context.Context, v Visitor) Outcome {
	return v.DeleteZone(ctx, m)
}

func (m *UpdateOperator) accept(ctx context.Context, v Visitor) Outcome {
	return v.UpdateOperator(ctx, m)
}

func (m *AddOperator) accept(ctx context.Context, v Visitor) Outcome {
	return v.AddOperator(ctx, m)
}

func (m *DeleteOperator) accept(ctx context.Context, v Visitor) Outcome {
	return v.DeleteOperator(ctx, m)
}

func (m *UpdateAccessibility) accept(ctx context.Context, v Visitor) Outcome {
	return v.UpdateAccessibility(ctx, m)
}

func (m *UpdateStats) accept(ctx context.Context, v Visitor) Outcome {
	return v.UpdateStats(ctx, m)
}

func (m *ResetDayCounters) accept(ctx context.Context, v Visitor) Outcome {
	return v.ResetDayCounters(ctx, m)
}

func (m *TechDiagnostics) accept(ctx context.Context, v Visitor) Outcome {
	return v.TechDiagnostics(ctx, m)
}

func (m *UpdatePaymentConfig) accept(ctx context.Context, v Visitor) Outcome {
	return v.UpdatePaymentConfig(ctx, m)
}

func (m *UpdateKioskConfig) accept(ctx context.Context, v Visitor) Outcome {
	return v.UpdateKioskConfig(ctx, m)
}

func (m *UpdateParkingMeter) accept(ctx context.Context, v Visitor) Outcome {
	return v.UpdateParkingMeter(ctx, m)
}

func (m *AssignCompanyToMeter) accept(ctx context.Context, v Visitor) Outcome {
	return v.AssignCompanyToMeter(ctx, m)
}

func (m *UpdateMeterStatus) accept(ctx context.Context, v Visitor) Outcome {
	return v.UpdateMeterStatus(ctx, m)
}

func (m *UpdateMeterScreen) accept(ctx context.Context, v Visitor) Outcome {
	return v.UpdateMeterScreen(ctx, m)
}

func (m *AddMeterError) accept(ctx context.Context, v Visitor) Outcome {
	return v.AddMeterError(ctx, m)
}

func (m *RegisterApp) accept(ctx context.Context, v Visitor) Outcome {
	return v.RegisterApp(ctx, m)
}

func (m *AddSession) accept(ctx context.Context, v Visitor) Outcome {
	return v.AddSession(ctx, m)
}

func (m *RemoveSession) accept(ctx context.Context, v Visitor) Outcome {
	return v.RemoveSession(ctx, m)
}

func (m *ExtendSession) accept(ctx context.Context, v Visitor) Outcome {
	return v.ExtendSession(ctx, m)
}

func (m *EndSession) accept(ctx context.Context, v Visitor) Outcome {
	return v.EndSession(ctx, m)
}

func (m *SendCommand) accept(ctx context.Context, v Visitor) Outcome {
	return v.SendCommand(ctx, m)
}
