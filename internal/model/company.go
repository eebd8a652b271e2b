package model

import "time"

// Company is a parking operator brand. Zones and Operators are derived counts.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	BgColor   string    `json:"bgColor,omitempty"`
	Zones     int       `json:"zones"`
	Operators int       `json:"operators"`
	CreatedAt time.Time `json:"createdAt"`
}
