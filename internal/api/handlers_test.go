package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticovision/reminders/internal/domain"
	"github.com/ticovision/reminders/internal/groupfee"
	"github.com/ticovision/reminders/internal/importer"
	"github.com/ticovision/reminders/internal/notify"
	"github.com/ticovision/reminders/internal/reminder"
	"github.com/ticovision/reminders/internal/repository"
)

const clientsCSV = `id,company_name,group_id,contact_email
c1,Alpha Ltd,g1,alpha@example.co.il
c2,Beta Ltd,g1,
`

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log, _ := test.NewNullLogger()

	db, err := repository.InitDB(repository.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rules := repository.NewRuleRepo(db)
	fees := repository.NewFeeRepo(db)
	clients := repository.NewClientRepo(db)
	reminders := repository.NewReminderRepo(db)

	return NewRouter(
		reminder.NewService(rules, fees, reminders, clients, notify.NewLogNotifier(log), log, 0),
		groupfee.NewService(clients, fees, log),
		importer.NewService(clients, fees, log),
		log,
	)
}

func do(t *testing.T, h http.Handler, method, path, tenantID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if tenantID != "" {
		req.Header.Set(TenantHeader, tenantID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(v))
}

func feesCSV() string {
	created := time.Now().AddDate(0, 0, -10).UTC().Format(time.RFC3339)
	return "id,client_id,year,status,base_amount,discount_percentage,discount_amount,previous_year_discount,total_amount,payment_method_selected,payment_method_selected_at,created_at\n" +
		"f1,c1,2026,pending,1000,10,100,,1062,,," + created + "\n" +
		"f2,c2,2026,pending,2000,5,0,,2242,,," + created + "\n" +
		"f3,c2,2026,paid,500,,,,590,checks,," + created + "\n"
}

func seed(t *testing.T, h http.Handler) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/imports/clients", "t1", clientsCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodPost, "/api/v1/imports/fees", "t1", feesCSV())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTenantHeaderRequired(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/api/v1/reminders/pending", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPendingRemindersFlow(t *testing.T) {
	h := newTestRouter(t)
	seed(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/reminder-rules", "t1",
		`{"name":"unpaid after a week","priority":1,"is_active":true,
		  "trigger_conditions":{"payment_status":["pending"],"payment_method_selected":"not_selected","days_since_sent":7},
		  "actions":{"email_template":"payment_reminder"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/v1/reminders/pending", "t1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var scan reminder.ScanResult
	decode(t, rec, &scan)
	assert.Equal(t, 1, scan.RulesEvaluated)
	require.Len(t, scan.Reminders, 2)
	assert.Equal(t, "payment_reminder", scan.Reminders[0].Template)

	// Another tenant sees nothing.
	rec = do(t, h, http.MethodGet, "/api/v1/reminders/pending", "t2", "")
	decode(t, rec, &scan)
	assert.Empty(t, scan.Reminders)

	rec = do(t, h, http.MethodPost, "/api/v1/reminders/run", "t1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary reminder.DispatchSummary
	decode(t, rec, &summary)
	assert.Equal(t, 2, summary.Recorded)
	assert.Equal(t, 1, summary.Delivered)

	rec = do(t, h, http.MethodGet, "/api/v1/fees/f2/reminders", "t1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Reminders []map[string]any `json:"reminders"`
	}
	decode(t, rec, &history)
	require.Len(t, history.Reminders, 1)
	assert.Equal(t, "automatic", history.Reminders[0]["reminder_type"])
}

func TestCreateRuleValidation(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/v1/reminder-rules", "t1", `{"name":"x","actions":{}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/reminder-rules", "t1", `{"name":"x","trigger_conditions":{"payment_method_selected":42}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/reminder-rules", "t1", `{"name":"catch-all","actions":{"email_template":"generic"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Warnings []string `json:"warnings"`
	}
	decode(t, rec, &created)
	assert.Len(t, created.Warnings, 1)
}

func TestUpdateRule(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPatch, "/api/v1/reminder-rules/missing", "t1", `{"is_active":false}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPatch, "/api/v1/reminder-rules/missing", "t1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestManualReminder(t *testing.T) {
	h := newTestRouter(t)
	seed(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/fees/f1/reminders", "t1", `{"template":"payment_reminder"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res reminder.DispatchResult
	decode(t, rec, &res)
	assert.True(t, res.Delivered)
	assert.Equal(t, "manual", string(res.Reminder.ReminderType))

	rec = do(t, h, http.MethodPost, "/api/v1/fees/unknown/reminders", "t1", `{"template":"payment_reminder"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/fees/f1/reminders", "t1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGroupFees(t *testing.T) {
	h := newTestRouter(t)
	seed(t, h)

	rec := do(t, h, http.MethodGet, "/api/v1/groups/g1/fees?year=2026", "t1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var agg struct {
		ClientCount    int    `json:"client_count"`
		FeeCount       int    `json:"fee_count"`
		BaseAmount     string `json:"base_amount"`
		DiscountAmount string `json:"discount_amount"`
		TotalWithVAT   string `json:"total_with_vat"`
	}
	decode(t, rec, &agg)
	assert.Equal(t, 2, agg.ClientCount)
	assert.Equal(t, 3, agg.FeeCount)
	assert.Equal(t, "3500", agg.BaseAmount)
	assert.Equal(t, "200", agg.DiscountAmount)
	assert.Equal(t, "3894", agg.TotalWithVAT)

	rec = do(t, h, http.MethodGet, "/api/v1/groups/g1/fees?year=abc", "t1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportErrors(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/v1/imports/invoices", "t1", "a,b\n")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/imports/fees", "t1", "id,client_id\n")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

type failingClientStore struct{}

func (failingClientStore) BulkUpsert(ctx context.Context, clients []domain.Client) (int, error) {
	return 0, errors.New("commit: disk I/O error")
}

func TestImportStoreFailureIs500(t *testing.T) {
	log, _ := test.NewNullLogger()
	db, err := repository.InitDB(repository.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewRouter(nil, nil, importer.NewService(failingClientStore{}, repository.NewFeeRepo(db), log), log)

	rec := do(t, h, http.MethodPost, "/api/v1/imports/clients", "t1", clientsCSV)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestImportSameIDsUnderTwoTenants(t *testing.T) {
	h := newTestRouter(t)
	seed(t, h)

	other := "id,client_id,year,status,base_amount,total_amount\nf1,c1,2026,paid,9999,9999\n"
	rec := do(t, h, http.MethodPost, "/api/v1/imports/fees", "t2", other)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/v1/groups/g1/fees?year=2026", "t1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var agg struct {
		BaseAmount string `json:"base_amount"`
	}
	decode(t, rec, &agg)
	assert.Equal(t, "3500", agg.BaseAmount)
}
