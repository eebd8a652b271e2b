package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"meypark-backend/internal/dispatch"
	"meypark-backend/internal/hub"
	"meypark-backend/internal/model"
	"meypark-backend/internal/persist"
	"meypark-backend/internal/state"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  *state.Store
	hub    *hub.Hub
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	snap := model.DefaultSnapshot(now)
	snap.Companies["C1"] = model.Company{ID: "C1", Name: "Mowiz"}
	snap.Zones["Z1"] = model.Zone{ID: "Z1", CompanyID: "C1", Name: "Centro", PricePerHour: 2.5}
	snap.Operators["OP1"] = model.Operator{ID: "OP1", CompanyID: "C1", Username: "ana"}
	snap.ParkingMeters["PM1"] = model.ParkingMeter{ID: "PM1", Name: "Plaza Mayor", Status: model.MeterOnline}

	committer := persist.NewFileCommitter(filepath.Join(dir, "mock_data.json"))
	require.NoError(t, committer.Commit(context.Background(), snap))
	store := state.New(committer, state.WithClock(func() time.Time { return now }))
	store.Load(context.Background())

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "meypark.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.PushSubscription{}, &model.SubscriptionMeter{}))

	d := dispatch.New(store, nil)
	h := hub.New(d, hub.Options{})
	d.SetBroadcaster(h)

	handler := NewHandler(store, d, db, &webpush.Options{VAPIDPublicKey: "pub-key"}, nil)
	return &testServer{
		router: NewRouter(handler, h, RouterConfig{}),
		store:  store,
		hub:    h,
		db:     db,
	}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestGetData(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/data", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	for _, key := range []string{"companies", "operators", "zones", "activeSessions", "stats", "techDiagnostics", "accessibility", "paymentConfig", "kioscoConfig", "parkingMeters"} {
		assert.Contains(t, body, key)
	}
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMeterReads(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/parking-meters", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["meters"], "PM1")

	w = s.do(http.MethodGet, "/api/parking-meters/PM1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Plaza Mayor", decode(t, w)["meter"].(map[string]any)["name"])

	w = s.do(http.MethodGet, "/api/parking-meters/PM9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Parkímetro no encontrado", decode(t, w)["error"])
}

func TestWriteEndpoints(t *testing.T) {
	testCases := []struct {
		name        string
		method      string
		path        string
		body        string
		wantStatus  int
		wantSuccess bool
		wantError   string
	}{
		{name: "Update zone", method: http.MethodPut, path: "/api/zones", body: `{"id":"Z1","updates":{"pricePerHour":3.0}}`, wantStatus: http.StatusOK, wantSuccess: true},
		{name: "Update unknown company", method: http.MethodPut, path: "/api/companies", body: `{"id":"NOPE","updates":{}}`, wantStatus: http.StatusOK, wantError: "Empresa no encontrada"},
		{name: "Delete unknown zone", method: http.MethodDelete, path: "/api/zones?id=ZONA_999", wantStatus: http.StatusOK, wantError: "Zona no encontrada"},
		{name: "Malformed JSON", method: http.MethodPut, path: "/api/zones", body: `{"id":`, wantStatus: http.StatusBadRequest},
		{name: "Assign company", method: http.MethodPost, path: "/api/parking-meters/assign-company", body: `{"meterId":"PM1","companyId":"C1","operatorId":"OP1"}`, wantStatus: http.StatusOK, wantSuccess: true},
		{name: "Meter status", method: http.MethodPut, path: "/api/parking-meters/status", body: `{"meterId":"PM1","status":"error","hardwareStatus":{"printer":false}}`, wantStatus: http.StatusOK, wantSuccess: true},
		{name: "Meter screen", method: http.MethodPut, path: "/api/parking-meters/screen", body: `{"meterId":"PM1","screen":"payment"}`, wantStatus: http.StatusOK, wantSuccess: true},
		{name: "Update meter", method: http.MethodPut, path: "/api/parking-meters", body: `{"id":"PM1","updates":{"name":"Sol"}}`, wantStatus: http.StatusOK, wantSuccess: true},
		{name: "Update unknown meter", method: http.MethodPut, path: "/api/parking-meters", body: `{"id":"PM9","updates":{}}`, wantStatus: http.StatusOK, wantError: "Parkímetro no encontrado"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t)
			w := s.do(tc.method, tc.path, tc.body)
			require.Equal(t, tc.wantStatus, w.Code, w.Body.String())
			body := decode(t, w)
			assert.Equal(t, tc.wantSuccess, body["success"])
			if tc.wantError != "" {
				assert.Equal(t, tc.wantError, body["error"])
			}
		})
	}
}

func TestPutZoneUpdatesStore(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPut, "/api/zones", `{"id":"Z1","updates":{"pricePerHour":3.0}}`)
	require.Equal(t, http.StatusOK, w.Code)

	z, err := s.store.Zone("Z1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, z.PricePerHour)
	assert.Equal(t, "Centro", z.Name)
}

func TestPostCommand(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name:       "Missing fields",
			body:       `{"meterId":"PM1"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"success": false, "error": "meterId y command son requeridos"},
		},
		{
			name:       "Unknown meter",
			body:       `{"meterId":"PM9","command":"restart"}`,
			wantStatus: http.StatusNotFound,
			wantBody:   map[string]any{"success": false, "error": "Parkímetro no encontrado"},
		},
		{
			name:       "Restart",
			body:       `{"meterId":"PM1","command":"restart"}`,
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"success": true, "message": "Comando de reinicio enviado", "delivered": false},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t)
			w := s.do(http.MethodPost, "/api/commands", tc.body)
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantBody, decode(t, w))
		})
	}
}

func TestRESTChangesReachRealtimeClients(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first map[string]any
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "full_data", first["type"])

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/parking-meters/screen", strings.NewReader(`{"meterId":"PM1","screen":"ticket"}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	var pushed map[string]any
	require.NoError(t, conn.ReadJSON(&pushed))
	assert.Equal(t, "meter_screen_updated", pushed["type"])
	assert.Equal(t, "PM1", pushed["meterId"])
}

func TestSubscriptions(t *testing.T) {
	s := newTestServer(t)
	endpoint := "https://push.example.com/abc%2Fdef"

	w := s.do(http.MethodPut, "/api/subscriptions", `{"endpoint":"`+endpoint+`","p256dh":"k","auth":"a","subscribed_meters":["PM1","PM1"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed_meters":["PM1"]}`, w.Body.String())

	w = s.do(http.MethodPut, "/api/subscriptions", `{"endpoint":"`+endpoint+`","p256dh":"k2","auth":"a2","subscribed_meters":[]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, "")
	assert.JSONEq(t, `{"subscribed_meters":[]}`, w.Body.String())

	w = s.do(http.MethodDelete, "/api/subscriptions", `{"endpoint":"`+endpoint+`"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscriptionValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPut, "/api/subscriptions", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"invalid request"}`, w.Body.String())

	w = s.do(http.MethodPut, "/api/subscriptions", `{"endpoint":"e","p256dh":"k","auth":"a","subscribed_meters":["PM9"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/subscriptions", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVAPIDPublicKey(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/api/vapid_public_key", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"pub-key"}`, w.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Endpoint no encontrado"}`, w.Body.String())
}
