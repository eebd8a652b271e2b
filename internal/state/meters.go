package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"meypark-backend/internal/apperr"
	"meypark-backend/internal/model"
)

var defaultAppGPS = model.GeoPoint{Lat: 40.4168, Lng: -3.7038}

// updateMeter runs fn on the meter with id and stamps lastConnection.
func (s *Store) updateMeter(ctx context.Context, id string, fn func(next *model.Snapshot, m *model.ParkingMeter) error) (model.ParkingMeter, error) {
	var out model.ParkingMeter
	err := s.apply(ctx, func(next *model.Snapshot) error {
		m, ok := next.ParkingMeters[id]
		if !ok {
			return errMeterNotFound
		}
		if err := fn(next, &m); err != nil {
			return err
		}
		m.LastConnection = s.now()
		next.ParkingMeters[id] = m
		out = m
		return nil
	})
	return out, err
}

// UpdateParkingMeter merges patch into the meter with id.
func (s *Store) UpdateParkingMeter(ctx context.Context, id string, patch json.RawMessage) (model.ParkingMeter, error) {
	return s.updateMeter(ctx, id, func(next *model.Snapshot, m *model.ParkingMeter) error {
		merged, err := mergePatch(*m, patch, "id", "createdAt")
		if err != nil {
			return err
		}
		if merged.Status != m.Status && !merged.Status.Valid() {
			return apperr.Validation(fmt.Sprintf("Estado de parkímetro inválido: %q", merged.Status))
		}
		if merged.AssignedCompany != m.AssignedCompany || merged.AssignedOperator != m.AssignedOperator {
			if err := validateAssignment(next, merged.AssignedCompany, merged.AssignedOperator); err != nil {
				return err
			}
		}
		*m = merged
		return nil
	})
}

// AssignCompanyToMeter binds a meter to a company and, optionally, one of its operators.
func (s *Store) AssignCompanyToMeter(ctx context.Context, id, companyID, operatorID string) (model.ParkingMeter, error) {
	return s.updateMeter(ctx, id, func(next *model.Snapshot, m *model.ParkingMeter) error {
		if companyID == "" {
			return apperr.Validation("La empresa es obligatoria")
		}
		if err := validateAssignment(next, companyID, operatorID); err != nil {
			return err
		}
		m.AssignedCompany = companyID
		m.AssignedOperator = operatorID
		return nil
	})
}

// validateAssignment checks that a meter assignment refers to existing entities.
// An empty company clears the assignment and then allows no operator.
func validateAssignment(snap *model.Snapshot, companyID, operatorID string) error {
	if companyID == "" {
		if operatorID != "" {
			return apperr.Validation("El operador requiere una empresa asignada")
		}
		return nil
	}
	if _, ok := snap.Companies[companyID]; !ok {
		return apperr.Validation(fmt.Sprintf("La empresa %q no existe", companyID))
	}
	if operatorID == "" {
		return nil
	}
	op, ok := snap.Operators[operatorID]
	if !ok {
		return apperr.Validation(fmt.Sprintf("El operador %q no existe", operatorID))
	}
	if op.CompanyID != companyID {
		return apperr.Validation("El operador no pertenece a la empresa")
	}
	return nil
}

// UpdateMeterStatus sets the status and merges the reported hardware flags.
func (s *Store) UpdateMeterStatus(ctx context.Context, id string, status model.MeterStatus, hardware json.RawMessage) (model.ParkingMeter, error) {
	if !status.Valid() {
		return model.ParkingMeter{}, apperr.Validation(fmt.Sprintf("Estado de parkímetro inválido: %q", status))
	}
	return s.updateMeter(ctx, id, func(_ *model.Snapshot, m *model.ParkingMeter) error {
		hw, err := mergePatch(m.HardwareStatus, hardware)
		if err != nil {
			return err
		}
		m.Status = status
		m.HardwareStatus = hw
		return nil
	})
}

// UpdateMeterScreen records the screen the kiosk is showing.
func (s *Store) UpdateMeterScreen(ctx context.Context, id, screen string) (model.ParkingMeter, error) {
	return s.updateMeter(ctx, id, func(_ *model.Snapshot, m *model.ParkingMeter) error {
		m.CurrentScreen = screen
		return nil
	})
}

// AddMeterError records the last error of a meter and flags it as failing.
func (s *Store) AddMeterError(ctx context.Context, id, code, message string) (model.ParkingMeter, error) {
	return s.updateMeter(ctx, id, func(_ *model.Snapshot, m *model.ParkingMeter) error {
		m.LastError = &model.MeterFault{Code: code, Message: message, Timestamp: s.now()}
		m.Status = model.MeterError
		return nil
	})
}

// MarkMeterOffline flags a meter as disconnected.
func (s *Store) MarkMeterOffline(ctx context.Context, id string) (model.ParkingMeter, error) {
	return s.updateMeter(ctx, id, func(_ *model.Snapshot, m *model.ParkingMeter) error {
		m.Status = model.MeterOffline
		return nil
	})
}

// TouchMeter refreshes lastConnection only.
func (s *Store) TouchMeter(ctx context.Context, id string) (model.ParkingMeter, error) {
	return s.updateMeter(ctx, id, func(*model.Snapshot, *model.ParkingMeter) error { return nil })
}

// RegisterApp creates the meter record of an app-based kiosk, or refreshes it
// when the app reconnects. A new app is not assigned to any company.
func (s *Store) RegisterApp(ctx context.Context, id string, info model.AppInfo) (model.ParkingMeter, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.ParkingMeter{}, apperr.Validation("El identificador de la app es obligatorio")
	}
	var out model.ParkingMeter
	err := s.apply(ctx, func(next *model.Snapshot) error {
		now := s.now()
		m, exists := next.ParkingMeters[id]
		if !exists {
			m = model.ParkingMeter{
				ID:            id,
				Name:          "App Kiosco - " + now.Format("15:04:05"),
				Location:      "Aplicación Móvil",
				GPS:           defaultAppGPS,
				CurrentScreen: "zone_selection",
				HardwareStatus: model.HardwareStatus{
					Display: true, Touch: true, Cards: true, Network: true,
				},
				Version:   "1.0.0",
				CreatedAt: now,
			}
		}
		if info.Name != "" {
			m.Name = info.Name
		}
		if info.Location != "" {
			m.Location = info.Location
		}
		if info.GPS != nil {
			m.GPS = *info.GPS
		}
		if info.Version != "" {
			m.Version = info.Version
		}
		if hw := info.Hardware; hw != nil {
			if hw.Printer != nil {
				m.HardwareStatus.Printer = *hw.Printer
			}
			if hw.Coins != nil {
				m.HardwareStatus.Coins = *hw.Coins
			}
		}
		m.Status = model.MeterOnline
		m.IsApp = true
		m.LastConnection = now
		next.ParkingMeters[id] = m
		out = m
		return nil
	})
	return out, err
}
