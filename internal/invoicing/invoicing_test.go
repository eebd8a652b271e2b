package invoicing

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"meypark-backend/config"
	"meypark-backend/internal/apperr"
	"meypark-backend/internal/model"
	"meypark-backend/internal/mw"
	"meypark-backend/internal/render"
	"meypark-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRenderer) Render(_ context.Context, data render.InvoiceData) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-" + data.Number), nil
}

type fixture struct {
	svc      *Service
	renderer *fakeRenderer
	dir      string
	router   *gin.Engine
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(root, "invoicing.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Transaction{}, &model.Invoice{}))

	cfg := &config.InvoicingConfig{
		Dir:           filepath.Join(root, "invoices"),
		PublicBaseURL: "http://localhost:3002",
		Expiry:        30 * 24 * time.Hour,
		Zones:         config.DefaultZones(),
		Issuer:        config.IssuerConfig{Name: "MEYPARK S.L.", TaxID: "B12345678"},
	}
	f := &fixture{
		renderer: &fakeRenderer{},
		dir:      cfg.Dir,
		now:      time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	f.svc, err = NewService(cfg, store.NewGormStore(db), f.renderer, WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)

	cache := mw.NewResponseCache(time.Minute)
	f.router = NewRouter(NewHandler(f.svc, cache, nil), cache, RouterConfig{})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var m map[string]any
	if w.Header().Get("Content-Type") != "application/pdf" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	}
	return w, m
}

const billing = `{"transactionId":"T1","nif":"B87654321","companyName":"Acme","address":"Gran Vía 1","city":"Madrid","postalCode":"28013","email":"a@acme.es"}`

func TestTransactionAndInvoiceScenario(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodPost, "/api/transactions", `{"id":"T1","plate":"1234ABC","zoneId":"ZONA_001","amount":2.50}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "T1", body["transactionId"])

	_, body = f.do(t, http.MethodGet, "/api/transaction/T1", "")
	require.Equal(t, true, body["success"])
	tx := body["transaction"].(map[string]any)
	assert.Equal(t, "Centro Histórico", tx["zoneName"])
	assert.Equal(t, "1234ABC", tx["plate"])

	_, body = f.do(t, http.MethodGet, "/api/invoice-status/T1", "")
	assert.Equal(t, map[string]any{"success": false, "errorMessage": "Factura no generada"}, body)

	_, body = f.do(t, http.MethodPost, "/api/generate-invoice", billing)
	require.Equal(t, true, body["success"], body)
	assert.Contains(t, body["invoiceId"], "INV_")
	assert.Equal(t, "http://localhost:3002/invoices/factura_T1.pdf", body["invoiceUrl"])

	_, body = f.do(t, http.MethodPost, "/api/generate-invoice", billing)
	assert.Equal(t, map[string]any{"success": false, "errorMessage": "Esta transacción ya ha sido facturada"}, body)
	assert.Equal(t, 1, f.renderer.calls)

	_, body = f.do(t, http.MethodGet, "/api/invoice-status/T1", "")
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "http://localhost:3002/invoices/factura_T1.pdf", body["invoiceUrl"])

	w, _ = f.do(t, http.MethodGet, "/invoices/factura_T1.pdf", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-INV-T1", w.Body.String())
	assert.Equal(t, `attachment; filename="factura_T1.pdf"`, w.Header().Get("Content-Disposition"))
}

func TestGenerateInvoiceFailures(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want string
	}{
		{name: "Missing fields", body: `{"transactionId":"T1","nif":"B1"}`, want: "Faltan datos requeridos"},
		{name: "Malformed body", body: `{"transactionId":`, want: "Faltan datos requeridos"},
		{name: "Unknown transaction", body: `{"transactionId":"NOPE","nif":"B1","companyName":"A","address":"B","city":"C","postalCode":"1","email":"e"}`, want: "Transacción no encontrada"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			w, body := f.do(t, http.MethodPost, "/api/generate-invoice", tc.body)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, map[string]any{"success": false, "errorMessage": tc.want}, body)
			assert.Zero(t, f.renderer.calls)
		})
	}
}

func TestGenerateInvoiceRenderFailureLeavesTransactionOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	amount := 2.5
	_, err := f.svc.RecordTransaction(ctx, TransactionRequest{ID: "T1", Plate: "1234ABC", ZoneID: "ZONA_001", Amount: &amount})
	require.NoError(t, err)

	f.renderer.err = assert.AnError
	_, err = f.svc.GenerateInvoice(ctx, BillingRequest{TransactionID: "T1", NIF: "B1", CompanyName: "A", Address: "B", City: "C", PostalCode: "1", Email: "e"})
	assert.ErrorIs(t, err, apperr.ErrInternal)

	f.renderer.err = nil
	issued, err := f.svc.GenerateInvoice(ctx, BillingRequest{TransactionID: "T1", NIF: "B1", CompanyName: "A", Address: "B", City: "C", PostalCode: "1", Email: "e"})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.InvoiceID)

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "factura_T1.pdf", entries[0].Name())
}

func TestGenerateInvoiceConcurrentCallsInvoiceOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	amount := 2.5
	_, err := f.svc.RecordTransaction(ctx, TransactionRequest{ID: "T1", Plate: "1234ABC", ZoneID: "ZONA_001", Amount: &amount})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.GenerateInvoice(ctx, BillingRequest{TransactionID: "T1", NIF: "B1", CompanyName: "A", Address: "B", City: "C", PostalCode: "1", Email: "e"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, already int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case apperr.KindOf(err) == apperr.KindAlreadyProcessed:
			already++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, already)
	assert.Equal(t, 1, f.renderer.calls)
}

func TestExpiredTransaction(t *testing.T) {
	f := newFixture(t)
	_, body := f.do(t, http.MethodPost, "/api/transactions", `{"id":"OLD","plate":"1234ABC","zoneId":"ZONA_009","amount":1,"timestamp":"2025-05-01T10:00:00Z"}`)
	require.Equal(t, true, body["success"])

	_, body = f.do(t, http.MethodGet, "/api/transaction/OLD", "")
	assert.Equal(t, map[string]any{"success": false, "error": "La transacción ha expirado"}, body)

	f.now = time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	_, body = f.do(t, http.MethodGet, "/api/transaction/OLD", "")
	assert.Equal(t, "Zona ZONA_009", body["transaction"].(map[string]any)["zoneName"])

	_, body = f.do(t, http.MethodGet, "/api/transaction/NOPE", "")
	assert.Equal(t, map[string]any{"success": false, "error": "Transacción no encontrada"}, body)
}

func TestPostTransactionValidation(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "Missing id", body: `{"plate":"1234ABC","zoneId":"ZONA_001","amount":2.5}`},
		{name: "Missing amount", body: `{"id":"T1","plate":"1234ABC","zoneId":"ZONA_001"}`},
		{name: "Zero amount", body: `{"id":"T1","plate":"1234ABC","zoneId":"ZONA_001","amount":0}`},
		{name: "Malformed", body: `[]`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			w, body := f.do(t, http.MethodPost, "/api/transactions", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, map[string]any{"success": false, "error": "Datos de transacción incompletos"}, body)
		})
	}
}

func TestCreateTestTransactionAndStats(t *testing.T) {
	f := newFixture(t)

	_, body := f.do(t, http.MethodGet, "/api/stats", "")
	assert.Equal(t, float64(0), body["totalTransactions"])

	_, body = f.do(t, http.MethodPost, "/api/create-test-transaction", "")
	require.Equal(t, true, body["success"])
	tx := body["transaction"].(map[string]any)
	id := tx["id"].(string)
	assert.Regexp(t, `^TXN_\d+$`, id)
	assert.Equal(t, "1234ABC", tx["plate"])
	assert.Equal(t, "ZONA_001", tx["zoneId"])
	assert.Equal(t, 2.5, tx["amount"])
	assert.Equal(t, "cash", tx["paymentMethod"])
	assert.Equal(t, float64(60), tx["minutes"])
	assert.Equal(t, "http://localhost:3002/facturacion.html?transactionId="+id, body["qrUrl"])

	_, body = f.do(t, http.MethodPost, "/api/create-test-transaction", `{"plate":"9999XYZ","amount":4,"minutes":90}`)
	require.Equal(t, true, body["success"])

	_, body = f.do(t, http.MethodGet, "/api/stats", "")
	assert.Equal(t, float64(2), body["totalTransactions"])
	assert.Equal(t, float64(0), body["invoicedTransactions"])
	assert.Equal(t, "6.50", body["totalAmount"])
	assert.Equal(t, "0.00", body["invoicedAmount"])
	assert.Equal(t, float64(0), body["invoiceRate"])
}

func TestDocumentPath(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "factura_T1.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(f.dir), "secret.txt"), []byte("x"), 0o644))

	testCases := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{name: "Existing document", filename: "factura_T1.pdf"},
		{name: "Missing document", filename: "factura_T2.pdf", wantErr: true},
		{name: "Traversal", filename: "../secret.txt", wantErr: true},
		{name: "Hidden file", filename: ".factura-1.tmp", wantErr: true},
		{name: "Empty", filename: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path, err := f.svc.DocumentPath(tc.filename)
			if tc.wantErr {
				assert.ErrorIs(t, err, apperr.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(f.dir, tc.filename), path)
		})
	}

	w, body := f.do(t, http.MethodGet, "/invoices/factura_T2.pdf", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, map[string]any{"error": "Archivo no encontrado"}, body)
}
