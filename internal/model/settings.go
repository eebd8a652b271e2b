package model

import "time"

// Stats holds the dashboard counters. Counts are derived from the entity maps;
// income values accumulate from ended sessions.
type Stats struct {
	TotalIncome    float64 `json:"totalIncome"`
	TodayIncome    float64 `json:"todayIncome"`
	ActiveSessions int     `json:"activeSessions"`
	TotalCompanies int     `json:"totalCompanies"`
	TotalZones     int     `json:"totalZones"`
	TotalOperators int     `json:"totalOperators"`
}

type TechDiagnostics struct {
	Network    bool      `json:"network"`
	Printer    bool      `json:"printer"`
	Display    bool      `json:"display"`
	Touch      bool      `json:"touch"`
	Coins      bool      `json:"coins"`
	Cards      bool      `json:"cards"`
	LastUpdate time.Time `json:"lastUpdate"`
}

type Accessibility struct {
	DarkMode         bool    `json:"darkMode"`
	HighContrast     bool    `json:"highContrast"`
	FontSize         string  `json:"fontSize"`
	ReduceAnimations bool    `json:"reduceAnimations"`
	VoiceGuide       bool    `json:"voiceGuide"`
	VoiceSpeed       float64 `json:"voiceSpeed"`
	VoicePitch       float64 `json:"voicePitch"`
	VoiceVolume      float64 `json:"voiceVolume"`
	AdaptiveAI       bool    `json:"adaptiveAI"`
	SimplifiedMode   bool    `json:"simplifiedMode"`
	CurrentLanguage  string  `json:"currentLanguage"`
}

type PaymentConfig struct {
	AcceptedCoins    []float64 `json:"acceptedCoins"`
	AcceptedCards    []string  `json:"acceptedCards"`
	MaxChangeAmount  float64   `json:"maxChangeAmount"`
	MinPaymentAmount float64   `json:"minPaymentAmount"`
	Currency         string    `json:"currency"`
	Symbol           string    `json:"symbol"`
}

type KioskConfig struct {
	ID              string    `json:"id"`
	Location        string    `json:"location"`
	Timezone        string    `json:"timezone"`
	MaintenanceMode bool      `json:"maintenanceMode"`
	LastRestart     time.Time `json:"lastRestart"`
}
