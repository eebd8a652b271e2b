package model

import "time"

// SessionStatus is the lifecycle state of a parking session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// Session is an active parking stay, keyed by plate.
type Session struct {
	Plate  string        `json:"plate"`
	ZoneID string        `json:"zoneId"`
	Start  time.Time     `json:"start"`
	End    time.Time     `json:"end"`
	Price  float64       `json:"price"`
	Status SessionStatus `json:"status"`
	// MeterID is the kiosk that sold the session, if any.
	MeterID string `json:"meterId,omitempty"`
}

// Payment records the income of an ended session.
type Payment struct {
	ID      string    `json:"id"`
	Plate   string    `json:"plate"`
	ZoneID  string    `json:"zoneId"`
	Method  string    `json:"method"`
	Amount  float64   `json:"amount"`
	Date    time.Time `json:"date"`
	Status  string    `json:"status"`
	MeterID string    `json:"meterId,omitempty"`
}
