package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"meypark-backend/internal/apperr"
	"meypark-backend/internal/model"
)

// AddCompany creates a company. The id must be unused.
func (s *Store) AddCompany(ctx context.Context, c model.Company) (model.Company, error) {
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" || strings.TrimSpace(c.Name) == "" {
		return model.Company{}, apperr.Validation("La empresa requiere id y nombre")
	}
	var committed *model.Snapshot
	err := s.apply(ctx, func(next *model.Snapshot) error {
		if _, ok := next.Companies[c.ID]; ok {
			return apperr.Validation(fmt.Sprintf("La empresa %s ya existe", c.ID))
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = s.now()
		}
		next.Companies[c.ID] = c
		committed = next
		return nil
	})
	if err != nil {
		return model.Company{}, err
	}
	// counts are filled in by derive after fn returns
	return committed.Companies[c.ID], nil
}

// UpdateCompany merges patch into the company with id.
func (s *Store) UpdateCompany(ctx context.Context, id string, patch json.RawMessage) (model.Company, error) {
	var committed *model.Snapshot
	err := s.apply(ctx, func(next *model.Snapshot) error {
		cur, ok := next.Companies[id]
		if !ok {
			return errCompanyNotFound
		}
		merged, err := mergePatch(cur, patch, "id", "zones", "operators")
		if err != nil {
			return err
		}
		next.Companies[id] = merged
		committed = next
		return nil
	})
	if err != nil {
		return model.Company{}, err
	}
	return committed.Companies[id], nil
}

// DeleteCompany removes a company that no zone, operator or meter refers to.
func (s *Store) DeleteCompany(ctx context.Context, id string) error {
	return s.apply(ctx, func(next *model.Snapshot) error {
		if _, ok := next.Companies[id]; !ok {
			return errCompanyNotFound
		}
		for _, z := range next.Zones {
			if z.CompanyID == id {
				return apperr.Validation("La empresa tiene zonas asociadas")
			}
		}
		for _, op := range next.Operators {
			if op.CompanyID == id {
				return apperr.Validation("La empresa tiene operadores asociados")
			}
		}
		for _, m := range next.ParkingMeters {
			if m.AssignedCompany == id {
				return apperr.Validation("La empresa tiene parkímetros asignados")
			}
		}
		delete(next.Companies, id)
		return nil
	})
}

// AddZone creates a zone owned by an existing company.
func (s *Store) AddZone(ctx context.Context, z model.Zone) (model.Zone, error) {
	z.ID = strings.TrimSpace(z.ID)
	if z.ID == "" || strings.TrimSpace(z.Name) == "" {
		return model.Zone{}, apperr.Validation("La zona requiere id y nombre")
	}
	err := s.apply(ctx, func(next *model.Snapshot) error {
		if _, ok := next.Zones[z.ID]; ok {
			return apperr.Validation(fmt.Sprintf("La zona %s ya existe", z.ID))
		}
		if err := validateZone(next, z); err != nil {
			return err
		}
		next.Zones[z.ID] = z
		return nil
	})
	if err != nil {
		return model.Zone{}, err
	}
	return z, nil
}

// UpdateZone merges patch into the zone with id.
func (s *Store) UpdateZone(ctx context.Context, id string, patch json.RawMessage) (model.Zone, error) {
	var out model.Zone
	err := s.apply(ctx, func(next *model.Snapshot) error {
		cur, ok := next.Zones[id]
		if !ok {
			return errZoneNotFound
		}
		merged, err := mergePatch(cur, patch, "id")
		if err != nil {
			return err
		}
		if err := validateZone(next, merged); err != nil {
			return err
		}
		next.Zones[id] = merged
		out = merged
		return nil
	})
	return out, err
}

// DeleteZone removes a zone unless an active session is parked in it.
func (s *Store) DeleteZone(ctx context.Context, id string) error {
	return s.apply(ctx, func(next *model.Snapshot) error {
		if _, ok := next.Zones[id]; !ok {
			return errZoneNotFound
		}
		for _, sess := range next.ActiveSessions {
			if sess.ZoneID == id {
				return apperr.Validation("La zona tiene sesiones activas")
			}
		}
		delete(next.Zones, id)
		return nil
	})
}

func validateZone(snap *model.Snapshot, z model.Zone) error {
	if _, ok := snap.Companies[z.CompanyID]; !ok {
		return apperr.Validation(fmt.Sprintf("La empresa %q no existe", z.CompanyID))
	}
	if z.PricePerHour < 0 || z.MaxHours < 0 {
		return apperr.Validation("El precio y la duración máxima no pueden ser negativos")
	}
	return nil
}

// AddOperator creates an operator. A non-empty password is stored hashed.
func (s *Store) AddOperator(ctx context.Context, op model.Operator, password string) (model.Operator, error) {
	op.ID = strings.TrimSpace(op.ID)
	if op.ID == "" || strings.TrimSpace(op.Username) == "" {
		return model.Operator{}, apperr.Validation("El operador requiere id y usuario")
	}
	op.PasswordHash = ""
	if password != "" {
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return model.Operator{}, apperr.Internal(fmt.Errorf("hash password: %w", err))
		}
		op.PasswordHash = hash
	}
	err := s.apply(ctx, func(next *model.Snapshot) error {
		if _, ok := next.Operators[op.ID]; ok {
			return apperr.Validation(fmt.Sprintf("El operador %s ya existe", op.ID))
		}
		if _, ok := next.Companies[op.CompanyID]; !ok {
			return apperr.Validation(fmt.Sprintf("La empresa %q no existe", op.CompanyID))
		}
		next.Operators[op.ID] = op
		return nil
	})
	if err != nil {
		return model.Operator{}, err
	}
	return op.Public(), nil
}

// UpdateOperator merges patch into the operator with id. A "password" key is
// replaced by its hash; "passwordHash" cannot be set directly.
func (s *Store) UpdateOperator(ctx context.Context, id string, patch json.RawMessage) (model.Operator, error) {
	fields, err := patchFields(patch)
	if err != nil {
		return model.Operator{}, err
	}
	var hash string
	if raw, ok := fields["password"]; ok {
		var plain string
		if err := json.Unmarshal(raw, &plain); err != nil || plain == "" {
			return model.Operator{}, apperr.Validation("La contraseña debe ser un texto no vacío")
		}
		if hash, err = s.hasher.Hash(plain); err != nil {
			return model.Operator{}, apperr.Internal(fmt.Errorf("hash password: %w", err))
		}
	}

	var out model.Operator
	err = s.apply(ctx, func(next *model.Snapshot) error {
		cur, ok := next.Operators[id]
		if !ok {
			return errOperatorNotFound
		}
		merged, err := mergePatch(cur, patch, "id", "password", "passwordHash")
		if err != nil {
			return err
		}
		if _, ok := next.Companies[merged.CompanyID]; !ok {
			return apperr.Validation(fmt.Sprintf("La empresa %q no existe", merged.CompanyID))
		}
		if hash != "" {
			merged.PasswordHash = hash
		}
		next.Operators[id] = merged
		out = merged.Public()
		return nil
	})
	return out, err
}

// DeleteOperator removes an operator and clears it from meter assignments.
func (s *Store) DeleteOperator(ctx context.Context, id string) error {
	return s.apply(ctx, func(next *model.Snapshot) error {
		if _, ok := next.Operators[id]; !ok {
			return errOperatorNotFound
		}
		delete(next.Operators, id)
		for mid, m := range next.ParkingMeters {
			if m.AssignedOperator == id {
				m.AssignedOperator = ""
				next.ParkingMeters[mid] = m
			}
		}
		return nil
	})
}

// VerifyOperator reports whether password matches the operator's stored hash.
func (s *Store) VerifyOperator(id, password string) bool {
	s.mu.RLock()
	op, ok := s.snap.Operators[id]
	s.mu.RUnlock()
	if !ok || op.PasswordHash == "" {
		return false
	}
	return s.hasher.Verify(op.PasswordHash, password)
}
