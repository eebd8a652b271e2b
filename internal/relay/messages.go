package relay

import (
	"encoding/json"
	"time"

	"meypark-backend/internal/model"
)

// inbound is every field a kiosk or dashboard may send. Only the fields of
// the given type are read.
type inbound struct {
	Type string `json:"type"`

	Status string `json:"status"`

	Screen       string          `json:"screen"`
	User         json.RawMessage `json:"user"`
	Action       string          `json:"action"`
	Username     string          `json:"username"`
	Password     string          `json:"password"`
	SelectedZone json.RawMessage `json:"selectedZone"`
	Plate        string          `json:"plate"`
	SelectedTime json.RawMessage `json:"selectedTime"`
	Total        json.RawMessage `json:"total"`
	Method       json.RawMessage `json:"method"`
	Zone         json.RawMessage `json:"zone"`
	Time         json.RawMessage `json:"time"`

	Session     json.RawMessage `json:"session"`
	Payment     json.RawMessage `json:"payment"`
	Diagnostics map[string]bool `json:"diagnostics"`
	Data        json.RawMessage `json:"data"`
}

type dataMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type statsMessage struct {
	Type  string      `json:"type"`
	Stats model.Stats `json:"stats"`
}

type statusMessage struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

type screenMessage struct {
	Type   string     `json:"type"`
	Screen ScreenView `json:"screen"`
}

type sessionMessage struct {
	Type    string          `json:"type"`
	Session json.RawMessage `json:"session"`
}

type paymentMessage struct {
	Type    string          `json:"type"`
	Payment json.RawMessage `json:"payment"`
}

type diagnosticsMessage struct {
	Type        string          `json:"type"`
	Diagnostics map[string]bool `json:"diagnostics"`
}

type operatorsMessage struct {
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ScreenView is what dashboards show about the screen a kiosk is on.
type ScreenView struct {
	Screen       string          `json:"screen"`
	Title        string          `json:"title"`
	Status       string          `json:"status"`
	User         json.RawMessage `json:"user"`
	LastAction   string          `json:"lastAction"`
	Connected    bool            `json:"connected"`
	Timestamp    time.Time       `json:"timestamp"`
	Username     string          `json:"username"`
	Password     string          `json:"password"`
	SelectedZone json.RawMessage `json:"selectedZone"`
	Plate        string          `json:"plate"`
	SelectedTime json.RawMessage `json:"selectedTime"`
	Total        json.RawMessage `json:"total"`
	Method       json.RawMessage `json:"method"`
	Zone         json.RawMessage `json:"zone"`
	Time         json.RawMessage `json:"time"`
}

var screenTitles = map[string]string{
	"login":         "Inicio de Sesión",
	"zone":          "Selección de Zona",
	"plate":         "Ingreso de Matrícula",
	"time":          "Tiempo de Estacionamiento",
	"payment":       "Pago",
	"ticket":        "Ticket",
	"extend":        "Extender Sesión",
	"accessibility": "Accesibilidad",
	"tech":          "Modo Técnico",
}

// ScreenTitle is the human readable name of a kiosk screen.
func ScreenTitle(screen string) string {
	if title, ok := screenTitles[screen]; ok {
		return title
	}
	return "Pantalla del Kiosco"
}

func orRaw(v json.RawMessage, def string) json.RawMessage {
	if len(v) == 0 || string(v) == "null" {
		return json.RawMessage(def)
	}
	return v
}

func screenView(m inbound, now time.Time) ScreenView {
	action := m.Action
	if action == "" {
		action = "Navegación"
	}
	password := ""
	if m.Password != "" {
		password = "****"
	}
	return ScreenView{
		Screen:       m.Screen,
		Title:        ScreenTitle(m.Screen),
		Status:       "Activo",
		User:         orRaw(m.User, "null"),
		LastAction:   action,
		Connected:    true,
		Timestamp:    now.UTC(),
		Username:     m.Username,
		Password:     password,
		SelectedZone: orRaw(m.SelectedZone, "null"),
		Plate:        m.Plate,
		SelectedTime: orRaw(m.SelectedTime, "60"),
		Total:        orRaw(m.Total, `"0.00"`),
		Method:       orRaw(m.Method, "null"),
		Zone:         orRaw(m.Zone, "null"),
		Time:         orRaw(m.Time, "null"),
	}
}
