package model

import "time"

// MeterStatus is the presence state of a kiosk.
type MeterStatus string

const (
	MeterOnline  MeterStatus = "online"
	MeterOffline MeterStatus = "offline"
	MeterError   MeterStatus = "error"
)

// Valid reports whether s is one of the known statuses.
func (s MeterStatus) Valid() bool {
	switch s {
	case MeterOnline, MeterOffline, MeterError:
		return true
	}
	return false
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// HardwareStatus holds the health flags reported by a kiosk's subsystems.
type HardwareStatus struct {
	Display bool `json:"display"`
	Touch   bool `json:"touch"`
	Printer bool `json:"printer"`
	Coins   bool `json:"coins"`
	Cards   bool `json:"cards"`
	Network bool `json:"network"`
}

// MeterFault is the last error reported by a kiosk.
type MeterFault struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ParkingMeter is a physical or app-based kiosk.
type ParkingMeter struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Location         string         `json:"location"`
	GPS              GeoPoint       `json:"gps"`
	Status           MeterStatus    `json:"status"`
	LastConnection   time.Time      `json:"lastConnection"`
	AssignedCompany  string         `json:"assignedCompany"`
	AssignedOperator string         `json:"assignedOperator"`
	CurrentScreen    string         `json:"currentScreen"`
	HardwareStatus   HardwareStatus `json:"hardwareStatus"`
	CurrentSession   *string        `json:"currentSession"`
	TotalSessions    int            `json:"totalSessions"`
	TodayIncome      float64        `json:"todayIncome"`
	LastError        *MeterFault    `json:"lastError"`
	Version          string         `json:"version,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	IsApp            bool           `json:"isApp"`
}

// AppInfo is what a kiosk app reports about itself when it registers.
type AppInfo struct {
	Name     string       `json:"name"`
	Location string       `json:"location"`
	GPS      *GeoPoint    `json:"gps,omitempty"`
	Version  string       `json:"version"`
	Hardware *AppHardware `json:"hardware,omitempty"`
}

// AppHardware lists the optional peripherals of an app-based kiosk.
// Nil means the app did not report the peripheral.
type AppHardware struct {
	Printer *bool `json:"printer,omitempty"`
	Coins   *bool `json:"coins,omitempty"`
}
