package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"chargeback/internal/clock"
	"chargeback/internal/models"
	"chargeback/internal/repositories"
	"chargeback/internal/services/audit"
	"chargeback/internal/services/currency"
	"chargeback/internal/services/customfield"
	"chargeback/internal/services/dispute"
	"chargeback/internal/services/project"
	"chargeback/internal/services/report"
	"chargeback/internal/services/stripepull"
	"chargeback/internal/services/vamp"
	"chargeback/internal/services/workflow"
	"chargeback/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubConverter struct{}

func (stubConverter) Convert(_ context.Context, req currency.Request) (*currency.Result, error) {
	switch strings.ToUpper(req.Currency) {
	case "EUR":
		return &currency.Result{USDAmount: req.Amount * 1.1, Rate: 1.1, Currency: "EUR", Date: "2024-03-01"}, nil
	case "XXX":
		return nil, currency.ErrRateUnavailable
	case "BROKEN":
		return nil, currency.ErrInvalidCurrency
	}
	return nil, io.ErrUnexpectedEOF
}

type stubPuller struct{ err error }

func (p stubPuller) Pull(_ context.Context, req stripepull.Request) (*stripepull.Result, error) {
	if p.err != nil {
		return nil, p.err
	}
	if _, _, err := stripepull.PeriodBounds(req.PeriodMonth); err != nil {
		return nil, err
	}
	return &stripepull.Result{ProjectID: req.ProjectID, PeriodMonth: req.PeriodMonth, TC05Count: 3}, nil
}

type testEnv struct {
	app      *fiber.App
	disputes repositories.DisputeRepository
	vamp     vamp.Service
}

func newTestEnv(t *testing.T, puller stripepull.Service) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))

	disputeRepo := repositories.NewDisputeRepository(db)
	fields := customfield.NewService(repositories.NewCustomFieldRepository(db), audit.Nop{})
	disputeService := dispute.NewService(disputeRepo, fields, stubConverter{}, audit.Nop{}, log)
	workflowService := workflow.NewService(repositories.NewTaskRepository(db), disputeRepo, audit.Nop{}, clk, 50, log)
	vampService := vamp.NewService(repositories.NewVampRepository(db), audit.Nop{}, nil, log)
	reportService := report.NewService(disputeRepo, nil, clk, report.DefaultAnomalyThreshold, log)
	projectService := project.NewService(repositories.NewProjectRepository(db), audit.Nop{})
	auditService := audit.NewService(repositories.NewAuditRepository(db), log)
	if puller == nil {
		puller = stubPuller{}
	}

	dh := NewDisputeHandler(disputeService, log)
	wh := NewWorkflowHandler(workflowService, log)
	vh := NewVampHandler(vampService, log)
	rh := NewReportHandler(reportService, log)
	fh := NewFunctionsHandler(stubConverter{}, puller, log)
	sh := NewSettingsHandler(projectService, fields, auditService, log)
	hh := NewHealthHandler(PingFunc(func(context.Context) error { return nil }), nil)

	app := fiber.New()
	app.Get("/health", hh.HealthCheck)
	app.Get("/disputes", dh.GetDisputes)
	app.Post("/disputes", dh.CreateDispute)
	app.Post("/disputes/bulk-status", dh.BulkStatus)
	app.Get("/disputes/:id", dh.GetDispute)
	app.Patch("/disputes/:id/status", dh.PatchStatus)
	app.Delete("/disputes/:id", dh.DeleteDispute)
	app.Post("/disputes/:id/tasks/generate", wh.GenerateTasks)
	app.Get("/disputes/:id/tasks", wh.GetChecklist)
	app.Patch("/tasks/:id", wh.UpdateTask)
	app.Post("/vamp", vh.CreateRecord)
	app.Get("/vamp", vh.GetRecords)
	app.Get("/vamp/summary", vh.GetSummary)
	app.Get("/vamp/export", vh.Export)
	app.Get("/reports/aggregate", rh.Aggregate)
	app.Get("/reports/dashboard", rh.Dashboard)
	app.Post("/functions/convert-currency", fh.ConvertCurrency)
	app.Post("/functions/stripe-vamp-pull", fh.StripeVampPull)
	app.Post("/projects", sh.CreateProject)
	app.Get("/projects/:id", sh.GetProject)
	app.Post("/custom-fields", sh.CreateCustomField)

	return &testEnv{app: app, disputes: disputeRepo, vamp: vampService}
}

func (e *testEnv) do(t *testing.T, method, path, contentType, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (e *testEnv) json(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	code, raw := e.do(t, method, path, fiber.MIMEApplicationJSON, body)
	var out map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return code, out
}

func TestDisputeCRUD(t *testing.T) {
	env := newTestEnv(t, nil)

	code, body := env.json(t, "POST", "/disputes", `{"case_id":"CB-1","amount":100,"currency":"eur","chargeback_date":"2024-03-01"}`)
	require.Equal(t, fiber.StatusCreated, code, body)
	assert.Equal(t, "EUR", body["currency"])
	assert.InDelta(t, 110.0, body["amount_usd"], 0.001)

	code, body = env.json(t, "POST", "/disputes", `{"case_id":"CB-1","amount":5}`)
	assert.Equal(t, fiber.StatusConflict, code)

	code, body = env.json(t, "POST", "/disputes", `{"amount":5,"status":"maybe"}`)
	require.Equal(t, fiber.StatusBadRequest, code)
	fields := body["fields"].(map[string]interface{})
	assert.Contains(t, fields, "case_id")
	assert.Contains(t, fields, "status")

	code, body = env.json(t, "GET", "/disputes?status=new&limit=10", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, body["data"], 1)
	assert.EqualValues(t, 1, body["pagination"].(map[string]interface{})["total"])

	code, _ = env.json(t, "GET", "/disputes/999", "")
	assert.Equal(t, fiber.StatusNotFound, code)
	code, _ = env.json(t, "GET", "/disputes/abc", "")
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestPatchStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	d := &models.Dispute{CaseID: "CB-9", Amount: 20, Status: models.DisputeStatusSubmitted}
	require.NoError(t, env.disputes.Create(context.Background(), d))

	code, body := env.json(t, "PATCH", "/disputes/"+itoa(d.ID)+"/status", `{"status":"won","resolution_date":"2024-03-10"}`)
	require.Equal(t, fiber.StatusOK, code, body)
	assert.Equal(t, "won", body["status"])

	code, _ = env.json(t, "PATCH", "/disputes/"+itoa(d.ID)+"/status", `{"status":"nope"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = env.do(t, "DELETE", "/disputes/"+itoa(d.ID), "", "")
	assert.Equal(t, fiber.StatusNoContent, code)
}

func TestBulkStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	for _, id := range []string{"CB-1", "CB-2"} {
		require.NoError(t, env.disputes.Create(ctx, &models.Dispute{CaseID: id, Amount: 10, Status: models.DisputeStatusSubmitted}))
	}
	csv := "case_id,new_status\nCB-1,won\nCB-X,won\nCB-2,bogus\n"

	t.Run("multipart", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "statuses.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(csv))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		code, raw := env.do(t, "POST", "/disputes/bulk-status", mw.FormDataContentType(), buf.String())
		require.Equal(t, fiber.StatusOK, code, string(raw))

		var res dispute.ImportResult
		require.NoError(t, json.Unmarshal(raw, &res))
		assert.Equal(t, 1, res.Updated)
		require.Len(t, res.Errors, 2)
		assert.Equal(t, 2, res.Errors[0].Row)
		assert.Equal(t, "CB-X", res.Errors[0].CaseID)
		assert.Equal(t, 3, res.Errors[1].Row)
	})

	t.Run("missing columns", func(t *testing.T) {
		code, body := env.json(t, "POST", "/disputes/bulk-status", "case_id,status\nCB-1,won\n")
		assert.Equal(t, fiber.StatusBadRequest, code)
		assert.Contains(t, body["error"], "new_status")
	})
}

func TestWorkflowEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	d := &models.Dispute{CaseID: "CB-W", Amount: 10}
	require.NoError(t, env.disputes.Create(context.Background(), d))
	path := "/disputes/" + itoa(d.ID) + "/tasks"

	code, body := env.json(t, "POST", path+"/generate", "")
	require.Equal(t, fiber.StatusCreated, code, body)
	assert.Equal(t, true, body["generated"])

	code, body = env.json(t, "POST", path+"/generate", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, false, body["generated"])

	code, body = env.json(t, "GET", path, "")
	require.Equal(t, fiber.StatusOK, code)
	tasks := body["tasks"].([]interface{})
	require.NotEmpty(t, tasks)
	assert.EqualValues(t, 0, body["stage"])
	taskID := uint(tasks[0].(map[string]interface{})["ID"].(float64))

	code, body = env.json(t, "PATCH", "/tasks/"+itoa(taskID), `{"status":"completed"}`)
	require.Equal(t, fiber.StatusOK, code, body)
	assert.Equal(t, "completed", body["status"])
	assert.NotNil(t, body["completed_at"])

	code, _ = env.json(t, "PATCH", "/tasks/"+itoa(taskID), `{"status":"done"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	code, _ = env.json(t, "GET", "/disputes/424242/tasks", "")
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestVampEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	code, body := env.json(t, "POST", "/vamp", `{"merchant_id":"MID-1","merchant_alias":"Acme","period_month":"2024-03","card_network":"Visa","tc05_count":1000,"tc40_count":8,"tc15_count":6,"ce30_count":1}`)
	require.Equal(t, fiber.StatusCreated, code, body)
	assert.Equal(t, "standard", body["risk"])

	code, _ = env.json(t, "POST", "/vamp", `{"merchant_id":"MID-1","period_month":"2024-13","card_network":"Visa"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, body = env.json(t, "GET", "/vamp/summary", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.EqualValues(t, 1, body["total"])

	code, raw := env.do(t, "GET", "/vamp/export", "", "")
	require.Equal(t, fiber.StatusOK, code)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "MID,Merchant Alias,Period"))
	assert.Contains(t, lines[1], "1.3000%")
}

func TestReportEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.disputes.Create(ctx, &models.Dispute{CaseID: "A", Amount: 100, Status: "won", Processor: "Stripe", ChargebackDate: "2024-01-10"}))
	require.NoError(t, env.disputes.Create(ctx, &models.Dispute{CaseID: "B", Amount: 50, Status: "lost", Processor: "Adyen", ChargebackDate: "2024-02-10"}))

	code, body := env.json(t, "GET", "/reports/aggregate?metric=volume&group_by=month", "")
	require.Equal(t, fiber.StatusOK, code, body)
	rows := body["rows"].([]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01", rows[0].(map[string]interface{})["group_key"])

	code, _ = env.json(t, "GET", "/reports/aggregate?metric=median", "")
	assert.Equal(t, fiber.StatusBadRequest, code)
	code, _ = env.json(t, "GET", "/reports/aggregate?metric=volume&group_by=weekday", "")
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, body = env.json(t, "GET", "/reports/dashboard", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.EqualValues(t, 2, body["totals"].(map[string]interface{})["disputes"])
}

func TestFunctionEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	code, body := env.json(t, "POST", "/functions/convert-currency", `{"currency":"EUR","amount":10}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.InDelta(t, 11.0, body["usd_amount"], 0.0001)

	code, _ = env.json(t, "POST", "/functions/convert-currency", `{"currency":"EUR"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	code, _ = env.json(t, "POST", "/functions/convert-currency", `{"currency":"BROKEN","amount":1}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	code, _ = env.json(t, "POST", "/functions/convert-currency", `{"currency":"XXX","amount":1}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)
	code, body = env.json(t, "POST", "/functions/convert-currency", `{"currency":"GBP","amount":1}`)
	assert.Equal(t, fiber.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", body["error"])

	code, body = env.json(t, "POST", "/functions/stripe-vamp-pull", `{"project_id":1,"stripe_secret_key":"sk_test","period_month":"2024-03"}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.EqualValues(t, 3, body["tc05_count"])

	code, _ = env.json(t, "POST", "/functions/stripe-vamp-pull", `{"project_id":1,"stripe_secret_key":"sk_test","period_month":"2024-3"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	upstream := newTestEnv(t, stubPuller{err: &stripepull.UpstreamError{Status: 401, Message: "Invalid API Key provided"}})
	code, body = upstream.json(t, "POST", "/functions/stripe-vamp-pull", `{"project_id":1,"stripe_secret_key":"sk_bad","period_month":"2024-03"}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)
	assert.Equal(t, "stripe: Invalid API Key provided", body["error"])
}

func TestSettingsAndHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	code, body := env.json(t, "POST", "/projects", `{"name":"Acme","merchant_id":"MID-1"}`)
	require.Equal(t, fiber.StatusCreated, code, body)
	id := uint(body["ID"].(float64))

	code, body = env.json(t, "GET", "/projects/"+itoa(id), "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "Acme", body["name"])

	code, _ = env.json(t, "POST", "/custom-fields", `{"key":"channel","label":"Channel","type":"dropdown"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	code, _ = env.json(t, "POST", "/custom-fields", `{"key":"channel","label":"Channel","type":"dropdown","options":["web","pos"]}`)
	assert.Equal(t, fiber.StatusCreated, code)

	code, body = env.json(t, "GET", "/health", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "disabled", body["services"].(map[string]interface{})["redis"])
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
