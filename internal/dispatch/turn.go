package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"meypark-backend/internal/apperr"
	"meypark-backend/internal/model"
	"meypark-backend/internal/notification"
	"meypark-backend/internal/parse"
	"meypark-backend/internal/protocol"
)

// turn handles one message for one origin. origin is nil for REST calls.
type turn struct {
	d      *Dispatcher
	origin Peer
}

var _ protocol.Visitor = (*turn)(nil)

// changed replies to the origin and broadcasts on success; failures go to the
// origin only.
func changed(typ string, err error, fields map[string]any) protocol.Outcome {
	if err != nil {
		return protocol.Outcome{Reply: protocol.Fail(typ, err)}
	}
	r := protocol.OK(typ, fields)
	return protocol.Outcome{Reply: r, Broadcast: r}
}

func (t *turn) GetData(context.Context, *protocol.GetData) protocol.Outcome {
	return protocol.Outcome{Reply: protocol.NewFullData(t.d.store.Snapshot())}
}

func (t *turn) UpdateCompany(ctx context.Context, m *protocol.UpdateCompany) protocol.Outcome {
	c, err := t.d.store.UpdateCompany(ctx, m.CompanyID, m.Updates)
	return changed("company_updated", err, map[string]any{"company": c})
}

func (t *turn) AddCompany(ctx context.Context, m *protocol.AddCompany) protocol.Outcome {
	c, err := t.d.store.AddCompany(ctx, m.Company)
	return changed("company_added", err, map[string]any{"company": c})
}

func (t *turn) DeleteCompany(ctx context.Context, m *protocol.DeleteCompany) protocol.Outcome {
	err := t.d.store.DeleteCompany(ctx, m.CompanyID)
	return changed("company_deleted", err, map[string]any{"companyId": m.CompanyID})
}

func (t *turn) UpdateZone(ctx context.Context, m *protocol.UpdateZone) protocol.Outcome {
	z, err := t.d.store.UpdateZone(ctx, m.ZoneID, m.Updates)
	return changed("zone_updated", err, map[string]any{"zone": z})
}

func (t *turn) AddZone(ctx context.Context, m *protocol.AddZone) protocol.Outcome {
	z, err := t.d.store.AddZone(ctx, m.Zone)
	return changed("zone_added", err, map[string]any{"zone": z})
}

func (t *turn) DeleteZone(ctx context.Context, m *protocol.DeleteZone) protocol.Outcome {
	err := t.d.store.DeleteZone(ctx, m.ZoneID)
	return changed("zone_deleted", err, map[string]any{"zoneId": m.ZoneID})
}

func (t *turn) UpdateOperator(ctx context.Context, m *protocol.UpdateOperator) protocol.Outcome {
	op, err := t.d.store.UpdateOperator(ctx, m.OperatorID, m.Updates)
	return changed("operator_updated", err, map[string]any{"operator": op})
}

func (t *turn) AddOperator(ctx context.Context, m *protocol.AddOperator) protocol.Outcome {
	op, err := t.d.store.AddOperator(ctx, m.Operator, m.Password)
	return changed("operator_added", err, map[string]any{"operator": op})
}

func (t *turn) DeleteOperator(ctx context.Context, m *protocol.DeleteOperator) protocol.Outcome {
	err := t.d.store.DeleteOperator(ctx, m.OperatorID)
	return changed("operator_deleted", err, map[string]any{"operatorId": m.OperatorID})
}

func (t *turn) UpdateAccessibility(ctx context.Context, m *protocol.UpdateAccessibility) protocol.Outcome {
	a, err := t.d.store.UpdateAccessibility(ctx, m.Updates)
	return changed("accessibility_updated", err, map[string]any{"accessibility": a})
}

func (t *turn) UpdateStats(ctx context.Context, m *protocol.UpdateStats) protocol.Outcome {
	s, err := t.d.store.UpdateStats(ctx, m.Updates)
	return changed("stats_updated", err, map[string]any{"stats": s})
}

func (t *turn) ResetDayCounters(ctx context.Context, _ *protocol.ResetDayCounters) protocol.Outcome {
	s, err := t.d.store.ResetDayCounters(ctx)
	return changed("stats_updated", err, map[string]any{"stats": s})
}

func (t *turn) TechDiagnostics(ctx context.Context, m *protocol.TechDiagnostics) protocol.Outcome {
	diag, err := t.d.store.UpdateTechDiagnostics(ctx, m.Diagnostics)
	return changed("tech_diagnostics", err, map[string]any{"techDiagnostics": diag})
}

func (t *turn) UpdatePaymentConfig(ctx context.Context, m *protocol.UpdatePaymentConfig) protocol.Outcome {
	pc, err := t.d.store.UpdatePaymentConfig(ctx, m.Updates)
	return changed("payment_config_updated", err, map[string]any{"paymentConfig": pc})
}

func (t *turn) UpdateKioskConfig(ctx context.Context, m *protocol.UpdateKioskConfig) protocol.Outcome {
	kc, err := t.d.store.UpdateKioskConfig(ctx, m.Updates)
	return changed("kiosk_config_updated", err, map[string]any{"kioscoConfig": kc})
}

func (t *turn) UpdateParkingMeter(ctx context.Context, m *protocol.UpdateParkingMeter) protocol.Outcome {
	meter, err := t.d.store.UpdateParkingMeter(ctx, m.MeterID, m.Updates)
	return changed("parking_meter_updated", err, map[string]any{"meterId": m.MeterID, "meter": meter})
}

func (t *turn) AssignCompanyToMeter(ctx context.Context, m *protocol.AssignCompanyToMeter) protocol.Outcome {
	meter, err := t.d.store.AssignCompanyToMeter(ctx, m.MeterID, m.CompanyID, m.OperatorID)
	return changed("company_assigned_to_meter", err, map[string]any{"meterId": m.MeterID, "meter": meter})
}

func (t *turn) UpdateMeterStatus(ctx context.Context, m *protocol.UpdateMeterStatus) protocol.Outcome {
	meter, err := t.d.store.UpdateMeterStatus(ctx, m.MeterID, m.Status, m.HardwareStatus)
	if err == nil && meter.Status != model.MeterOnline {
		t.d.alert(notification.Alert{
			MeterID:   meter.ID,
			MeterName: meter.Name,
			Kind:      notification.AlertKind(meter.Status),
			Message:   fmt.Sprintf("Estado del parkímetro: %s", meter.Status),
		})
	}
	return changed("meter_status_updated", err, map[string]any{"meterId": m.MeterID, "meter": meter})
}

func (t *turn) UpdateMeterScreen(ctx context.Context, m *protocol.UpdateMeterScreen) protocol.Outcome {
	meter, err := t.d.store.UpdateMeterScreen(ctx, m.MeterID, m.Screen)
	return changed("meter_screen_updated", err, map[string]any{"meterId": m.MeterID, "meter": meter})
}

func (t *turn) AddMeterError(ctx context.Context, m *protocol.AddMeterError) protocol.Outcome {
	meter, err := t.d.store.AddMeterError(ctx, m.MeterID, m.Error.Code, m.Error.Message)
	if err == nil {
		t.d.alert(notification.Alert{
			MeterID:   meter.ID,
			MeterName: meter.Name,
			Kind:      notification.AlertError,
			Message:   strings.TrimSpace(m.Error.Code + " " + m.Error.Message),
		})
	}
	return changed("meter_error_added", err, map[string]any{"meterId": m.MeterID, "meter": meter})
}

// RegisterApp binds the connection to the app's meter. Success is announced by
// broadcast only, which also reaches the origin.
func (t *turn) RegisterApp(ctx context.Context, m *protocol.RegisterApp) protocol.Outcome {
	if t.origin == nil {
		return protocol.Outcome{Reply: protocol.Fail("app_registered", apperr.Validation("register_app requiere una conexión en tiempo real"))}
	}
	id := m.AppID
	if id == "" {
		id = t.origin.Identity()
	}
	meter, err := t.d.store.RegisterApp(ctx, id, m.AppInfo)
	if err != nil {
		return protocol.Outcome{Reply: protocol.Fail("app_registered", err)}
	}
	t.origin.SetIdentity(id)
	t.d.log.Info("app registered", zap.String("meter_id", id), zap.String("version", meter.Version))
	return protocol.Outcome{Broadcast: protocol.OK("app_registered", map[string]any{
		"meterId": id,
		"appInfo": m.AppInfo,
		"meter":   meter,
	})}
}

func (t *turn) AddSession(ctx context.Context, m *protocol.AddSession) protocol.Outcome {
	sess, err := t.d.store.AddSession(ctx, m.SessionID, m.Session)
	id := m.SessionID
	if id == "" {
		id = sess.Plate
	}
	return changed("session_added", err, map[string]any{"sessionId": id, "session": sess})
}

func (t *turn) RemoveSession(ctx context.Context, m *protocol.RemoveSession) protocol.Outcome {
	err := t.d.store.RemoveSession(ctx, m.SessionID)
	return changed("session_removed", err, map[string]any{"sessionId": m.SessionID})
}

func (t *turn) ExtendSession(ctx context.Context, m *protocol.ExtendSession) protocol.Outcome {
	const typ = "session_extended"
	cur, err := t.d.store.Session(m.SessionID)
	if err != nil {
		return changed(typ, err, nil)
	}
	ref := cur.End
	if ref.IsZero() {
		ref = cur.Start
	}
	newEnd, err := parse.EndTime(m.NewEndTime, ref)
	if err != nil {
		return changed(typ, apperr.Validation(fmt.Sprintf("Hora de fin inválida: %v", err)), nil)
	}
	sess, extra, err := t.d.store.ExtendSession(ctx, m.SessionID, newEnd)
	return changed(typ, err, map[string]any{
		"sessionId":        m.SessionID,
		"session":          sess,
		"additionalAmount": extra,
	})
}

func (t *turn) EndSession(ctx context.Context, m *protocol.EndSession) protocol.Outcome {
	p, err := t.d.store.EndSession(ctx, m.SessionID, m.PaymentMethod)
	return changed("session_ended", err, map[string]any{"sessionId": m.SessionID, "payment": p})
}

// SendCommand forwards a remote command to the kiosk bound to the meter.
func (t *turn) SendCommand(ctx context.Context, m *protocol.SendCommand) protocol.Outcome {
	const typ = "command_sent"
	if m.MeterID == "" || m.Command == "" {
		return protocol.Outcome{Reply: protocol.Fail(typ, apperr.Validation("meterId y command son requeridos"))}
	}
	if _, err := t.d.store.TouchMeter(ctx, m.MeterID); err != nil {
		return protocol.Outcome{Reply: protocol.Fail(typ, err)}
	}
	delivered := false
	if t.d.out != nil {
		delivered = t.d.out.SendTo(m.MeterID, protocol.NewCommand(m.MeterID, m.Command, m.Data))
	}
	t.d.log.Info("command sent",
		zap.String("meter_id", m.MeterID),
		zap.String("command", m.Command),
		zap.Bool("delivered", delivered))
	return protocol.Outcome{Reply: protocol.OK(typ, map[string]any{
		"meterId":   m.MeterID,
		"command":   m.Command,
		"message":   CommandMessage(m.Command, m.Data),
		"delivered": delivered,
	})}
}

// CommandMessage is the human readable acknowledgement of a remote command.
func CommandMessage(command string, data json.RawMessage) string {
	switch command {
	case "restart":
		return "Comando de reinicio enviado"
	case "update_config":
		return "Configuración actualizada"
	case "sync_data":
		return "Datos sincronizados"
	case "test_connection":
		return "Test de conexión ejecutado"
	case "assign_zone":
		var payload struct {
			ZoneName string `json:"zoneName"`
		}
		_ = json.Unmarshal(data, &payload)
		if payload.ZoneName == "" {
			payload.ZoneName = "desconocida"
		}
		return fmt.Sprintf("Zona %s asignada", payload.ZoneName)
	default:
		return fmt.Sprintf("Comando %s ejecutado", command)
	}
}
