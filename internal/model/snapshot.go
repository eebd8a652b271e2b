package model

import (
	"maps"
	"slices"
	"time"
)

// Snapshot is the complete state of the centralized backend. It is also the
// on-disk document format.
type Snapshot struct {
	Companies       map[string]Company      `json:"companies"`
	Operators       map[string]Operator     `json:"operators"`
	Zones           map[string]Zone         `json:"zones"`
	ActiveSessions  map[string]Session      `json:"activeSessions"`
	Stats           Stats                   `json:"stats"`
	TechDiagnostics TechDiagnostics         `json:"techDiagnostics"`
	Accessibility   Accessibility           `json:"accessibility"`
	PaymentConfig   PaymentConfig           `json:"paymentConfig"`
	KioskConfig     KioskConfig             `json:"kioscoConfig"`
	ParkingMeters   map[string]ParkingMeter `json:"parkingMeters"`
	Payments        []Payment               `json:"payments"`
}

// DefaultSnapshot returns the state used when nothing was persisted yet.
func DefaultSnapshot(now time.Time) *Snapshot {
	return &Snapshot{
		Companies:      map[string]Company{},
		Operators:      map[string]Operator{},
		Zones:          map[string]Zone{},
		ActiveSessions: map[string]Session{},
		ParkingMeters:  map[string]ParkingMeter{},
		Payments:       []Payment{},
		TechDiagnostics: TechDiagnostics{
			Network: true, Printer: true, Display: true,
			Touch: true, Coins: true, Cards: true,
			LastUpdate: now,
		},
		Accessibility: Accessibility{
			FontSize:        "normal",
			VoiceSpeed:      0.5,
			VoicePitch:      1.0,
			VoiceVolume:     0.8,
			CurrentLanguage: "es-ES",
		},
		PaymentConfig: PaymentConfig{
			AcceptedCoins:    []float64{0.05, 0.10, 0.20, 0.50, 1.00, 2.00},
			AcceptedCards:    []string{"Visa", "Mastercard", "American Express"},
			MaxChangeAmount:  10.0,
			MinPaymentAmount: 0.15,
			Currency:         "EUR",
			Symbol:           "€",
		},
		KioskConfig: KioskConfig{
			Location:    "Centro Comercial",
			Timezone:    "Europe/Madrid",
			LastRestart: now,
		},
	}
}

// Normalize replaces nil collections so the document always has every key.
func (s *Snapshot) Normalize() {
	if s.Companies == nil {
		s.Companies = map[string]Company{}
	}
	if s.Operators == nil {
		s.Operators = map[string]Operator{}
	}
	if s.Zones == nil {
		s.Zones = map[string]Zone{}
	}
	if s.ActiveSessions == nil {
		s.ActiveSessions = map[string]Session{}
	}
	if s.ParkingMeters == nil {
		s.ParkingMeters = map[string]ParkingMeter{}
	}
	if s.Payments == nil {
		s.Payments = []Payment{}
	}
}

// Clone returns a copy that shares no mutable containers with s.
// Entity values are treated as immutable and replaced on update.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Companies = maps.Clone(s.Companies)
	c.Operators = maps.Clone(s.Operators)
	c.Zones = maps.Clone(s.Zones)
	c.ActiveSessions = maps.Clone(s.ActiveSessions)
	c.ParkingMeters = maps.Clone(s.ParkingMeters)
	c.Payments = slices.Clone(s.Payments)
	c.PaymentConfig.AcceptedCoins = slices.Clone(s.PaymentConfig.AcceptedCoins)
	c.PaymentConfig.AcceptedCards = slices.Clone(s.PaymentConfig.AcceptedCards)
	c.Normalize()
	return &c
}

// Redacted returns a clone safe to send to clients.
func (s *Snapshot) Redacted() *Snapshot {
	c := s.Clone()
	for id, op := range c.Operators {
		c.Operators[id] = op.Public()
	}
	return c
}

// Public strips the credential hash.
func (o Operator) Public() Operator {
	o.PasswordHash = ""
	return o
}
