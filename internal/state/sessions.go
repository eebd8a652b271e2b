package state

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"meypark-backend/internal/apperr"
	"meypark-backend/internal/model"
	"meypark-backend/internal/parse"
)

// AddSession stores sess under id, replacing an existing session with the same
// id. An empty id defaults to the normalized plate.
func (s *Store) AddSession(ctx context.Context, id string, sess model.Session) (model.Session, error) {
	plate, err := parse.Plate(sess.Plate)
	if err != nil {
		return model.Session{}, apperr.Validation(fmt.Sprintf("Matrícula inválida: %v", err))
	}
	sess.Plate = plate
	if id == "" {
		id = plate
	}
	if sess.Start.IsZero() {
		sess.Start = s.now()
	}
	if !sess.End.IsZero() && !sess.End.After(sess.Start) {
		return model.Session{}, apperr.Validation("La hora de fin debe ser posterior a la de inicio")
	}
	if sess.Price < 0 {
		return model.Session{}, apperr.Validation("El precio no puede ser negativo")
	}
	sess.Status = model.SessionActive

	err = s.apply(ctx, func(next *model.Snapshot) error {
		zone, ok := next.Zones[sess.ZoneID]
		if !ok {
			return apperr.Validation(fmt.Sprintf("La zona %q no existe", sess.ZoneID))
		}
		if sess.MeterID != "" {
			if _, ok := next.ParkingMeters[sess.MeterID]; !ok {
				return apperr.Validation(fmt.Sprintf("El parkímetro %q no existe", sess.MeterID))
			}
		}
		if sess.Price == 0 && !sess.End.IsZero() {
			sess.Price = price(zone, parse.Hours(sess.Start, sess.End))
		}
		next.ActiveSessions[id] = sess
		return nil
	})
	if err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// RemoveSession drops a session without recording a payment.
func (s *Store) RemoveSession(ctx context.Context, id string) error {
	return s.apply(ctx, func(next *model.Snapshot) error {
		if _, ok := next.ActiveSessions[id]; !ok {
			return errSessionNotFound
		}
		delete(next.ActiveSessions, id)
		return nil
	})
}

// ExtendSession moves the end of a session to newEnd and adds the price of the
// extra time at the zone's hourly rate. It returns the session and the added amount.
func (s *Store) ExtendSession(ctx context.Context, id string, newEnd time.Time) (model.Session, float64, error) {
	var (
		out   model.Session
		extra float64
	)
	err := s.apply(ctx, func(next *model.Snapshot) error {
		sess, ok := next.ActiveSessions[id]
		if !ok {
			return errSessionNotFound
		}
		zone, ok := next.Zones[sess.ZoneID]
		if !ok {
			return errZoneNotFound
		}
		from := sess.End
		if from.IsZero() {
			from = s.now()
		}
		if !newEnd.After(from) {
			return apperr.Validation("La nueva hora de fin debe ser posterior a la actual")
		}
		if zone.MaxHours > 0 && parse.Hours(sess.Start, newEnd) > zone.MaxHours+1e-9 {
			return apperr.Validation(fmt.Sprintf("La zona %s permite como máximo %g horas", zone.Name, zone.MaxHours))
		}
		extra = price(zone, parse.Hours(from, newEnd))
		sess.End = newEnd
		sess.Price = round2(sess.Price + extra)
		next.ActiveSessions[id] = sess
		out = sess
		return nil
	})
	if err != nil {
		return model.Session{}, 0, err
	}
	return out, extra, nil
}

// EndSession closes a session, records its payment and adds the amount to the
// income counters, including those of the meter that sold the session.
func (s *Store) EndSession(ctx context.Context, id, method string) (model.Payment, error) {
	if method == "" {
		method = "cash"
	}
	var p model.Payment
	err := s.apply(ctx, func(next *model.Snapshot) error {
		sess, ok := next.ActiveSessions[id]
		if !ok {
			return errSessionNotFound
		}
		p = model.Payment{
			ID:      uuid.NewString(),
			Plate:   sess.Plate,
			ZoneID:  sess.ZoneID,
			Method:  method,
			Amount:  sess.Price,
			Date:    s.now(),
			Status:  "completed",
			MeterID: sess.MeterID,
		}
		next.Payments = append(next.Payments, p)
		next.Stats.TotalIncome = round2(next.Stats.TotalIncome + p.Amount)
		next.Stats.TodayIncome = round2(next.Stats.TodayIncome + p.Amount)
		if m, ok := next.ParkingMeters[sess.MeterID]; ok && sess.MeterID != "" {
			m.TotalSessions++
			m.TodayIncome = round2(m.TodayIncome + p.Amount)
			next.ParkingMeters[sess.MeterID] = m
		}
		delete(next.ActiveSessions, id)
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

func price(z model.Zone, hours float64) float64 {
	if hours <= 0 {
		return 0
	}
	return round2(z.PricePerHour * hours)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
