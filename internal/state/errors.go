package state

import "meypark-backend/internal/apperr"

var (
	errCompanyNotFound  = apperr.NotFound("Empresa no encontrada")
	errZoneNotFound     = apperr.NotFound("Zona no encontrada")
	errOperatorNotFound = apperr.NotFound("Operador no encontrado")
	errSessionNotFound  = apperr.NotFound("Sesión no encontrada")
	errMeterNotFound    = apperr.NotFound("Parkímetro no encontrado")
)
