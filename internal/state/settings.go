package state

import (
	"context"
	"encoding/json"

	"meypark-backend/internal/model"
)

// UpdateAccessibility merges patch into the accessibility settings.
func (s *Store) UpdateAccessibility(ctx context.Context, patch json.RawMessage) (model.Accessibility, error) {
	var out model.Accessibility
	err := s.apply(ctx, func(next *model.Snapshot) error {
		merged, err := mergePatch(next.Accessibility, patch)
		if err != nil {
			return err
		}
		next.Accessibility = merged
		out = merged
		return nil
	})
	return out, err
}

// UpdateStats merges patch into the counters. Only the income values are
// honored; counts always reflect the entity maps.
func (s *Store) UpdateStats(ctx context.Context, patch json.RawMessage) (model.Stats, error) {
	var committed *model.Snapshot
	err := s.apply(ctx, func(next *model.Snapshot) error {
		merged, err := mergePatch(next.Stats, patch,
			"activeSessions", "totalCompanies", "totalZones", "totalOperators")
		if err != nil {
			return err
		}
		next.Stats = merged
		committed = next
		return nil
	})
	if err != nil {
		return model.Stats{}, err
	}
	return committed.Stats, nil
}

// ResetDayCounters zeroes today's income on the stats and on every meter.
func (s *Store) ResetDayCounters(ctx context.Context) (model.Stats, error) {
	var committed *model.Snapshot
	err := s.apply(ctx, func(next *model.Snapshot) error {
		next.Stats.TodayIncome = 0
		for id, m := range next.ParkingMeters {
			m.TodayIncome = 0
			next.ParkingMeters[id] = m
		}
		committed = next
		return nil
	})
	if err != nil {
		return model.Stats{}, err
	}
	return committed.Stats, nil
}

// UpdateTechDiagnostics merges patch into the diagnostics and stamps lastUpdate.
func (s *Store) UpdateTechDiagnostics(ctx context.Context, patch json.RawMessage) (model.TechDiagnostics, error) {
	var out model.TechDiagnostics
	err := s.apply(ctx, func(next *model.Snapshot) error {
		merged, err := mergePatch(next.TechDiagnostics, patch, "lastUpdate")
		if err != nil {
			return err
		}
		merged.LastUpdate = s.now()
		next.TechDiagnostics = merged
		out = merged
		return nil
	})
	return out, err
}

// UpdatePaymentConfig merges patch into the payment configuration.
func (s *Store) UpdatePaymentConfig(ctx context.Context, patch json.RawMessage) (model.PaymentConfig, error) {
	var out model.PaymentConfig
	err := s.apply(ctx, func(next *model.Snapshot) error {
		merged, err := mergePatch(next.PaymentConfig, patch)
		if err != nil {
			return err
		}
		next.PaymentConfig = merged
		out = merged
		return nil
	})
	return out, err
}

// UpdateKioskConfig merges patch into the kiosk configuration.
func (s *Store) UpdateKioskConfig(ctx context.Context, patch json.RawMessage) (model.KioskConfig, error) {
	var out model.KioskConfig
	err := s.apply(ctx, func(next *model.Snapshot) error {
		merged, err := mergePatch(next.KioskConfig, patch)
		if err != nil {
			return err
		}
		next.KioskConfig = merged
		out = merged
		return nil
	})
	return out, err
}
