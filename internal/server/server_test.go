package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencarbon/carbonfocus/internal/auth"
	"github.com/opencarbon/carbonfocus/internal/store"
)

type testAPI struct {
	t      *testing.T
	server *httptest.Server
	store  *store.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	srv := New(st, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	require.NoError(t, BootstrapAdmin(t.Context(), st, "admin1234"))
	return &testAPI{t: t, server: ts, store: st}
}

func (a *testAPI) createUser(username, password string, roles ...string) {
	a.t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(a.t, err)
	require.NoError(a.t, a.store.CreateUser(a.t.Context(), &store.User{
		Username:     username,
		PasswordHash: hash,
		Roles:        roles,
		IsActive:     true,
	}))
}

func (a *testAPI) login(username, password string) string {
	a.t.Helper()
	status, body := a.request(http.MethodPost, "/api/auth/login", "",
		fmt.Sprintf(`{"username":%q,"password":%q}`, username, password))
	require.Equal(a.t, http.StatusOK, status, string(body))

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(body, &out))
	require.NotEmpty(a.t, out.Token)
	return out.Token
}

func (a *testAPI) request(method, path, token, body string) (int, []byte) {
	a.t.Helper()
	req, err := http.NewRequest(method, a.server.URL+path, strings.NewReader(body))
	require.NoError(a.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(a.t, err)
	return resp.StatusCode, buf.Bytes()
}

func TestHealthzIsPublic(t *testing.T) {
	api := newTestAPI(t)
	status, body := api.request(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestLoginRejectsBadPassword(t *testing.T) {
	api := newTestAPI(t)
	status, _ := api.request(http.MethodPost, "/api/auth/login", "",
		`{"username":"admin","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPIRequiresToken(t *testing.T) {
	api := newTestAPI(t)
	status, _ := api.request(http.MethodGet, "/api/efs", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCalculationFlow(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("admin", "admin1234")

	// Register a factor.
	status, body := api.request(http.MethodPost, "/api/efs", token, `{
		"key": "diesel_litres",
		"name": "Diesel",
		"unit": "litre",
		"value": 2.68,
		"scope": "Scope1",
		"category": "fuel",
		"activity_id_fields": {"required": ["litres"]}
	}`)
	require.Equal(t, http.StatusOK, status, string(body))

	// Record an activity against it.
	status, body = api.request(http.MethodPost, "/api/activities", token, `{
		"name": "Fleet diesel",
		"ef_key": "diesel_litres",
		"inputs": {"litres": 100}
	}`)
	require.Equal(t, http.StatusOK, status, string(body))
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &created))

	// Run the calculation.
	status, body = api.request(http.MethodPost, "/api/calc/run", token,
		fmt.Sprintf(`{"run_type":"CFO","activity_ids":[%d]}`, created.ID))
	require.Equal(t, http.StatusOK, status, string(body))

	var run struct {
		RunID       int64   `json:"run_id"`
		TotalKgCO2e float64 `json:"total_kgco2e"`
		TotalTCO2e  float64 `json:"total_tco2e"`
	}
	require.NoError(t, json.Unmarshal(body, &run))
	assert.InDelta(t, 268, run.TotalKgCO2e, 1e-9)
	assert.InDelta(t, 0.268, run.TotalTCO2e, 1e-9)

	// Audit it: stored and recomputed values agree.
	status, body = api.request(http.MethodPost, fmt.Sprintf("/api/audit/run/%d", run.RunID), token, "")
	require.Equal(t, http.StatusOK, status, string(body))
	var auditOut struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body, &auditOut))
	assert.Equal(t, "PASS", auditOut.Status)

	// Export the report.
	status, body = api.request(http.MethodGet, fmt.Sprintf("/api/reports/run/%d.csv", run.RunID), token, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "diesel_litres")
	assert.Contains(t, string(body), "TOTAL")
}

func TestCalcRunUnknownActivity(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("admin", "admin1234")

	status, body := api.request(http.MethodPost, "/api/calc/run", token,
		`{"activity_ids":[999]}`)
	assert.Equal(t, http.StatusNotFound, status, string(body))
}

func TestUpsertEFRejectsUnknownFields(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("admin", "admin1234")

	status, body := api.request(http.MethodPost, "/api/efs", token,
		`{"key":"x","bogus_field":1}`)
	assert.Equal(t, http.StatusBadRequest, status, string(body))
}

func TestRoleEnforcement(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("calc", "secret123", auth.RoleCalculator)
	token := api.login("calc", "secret123")

	// Calculators may read factors but not write them.
	status, _ := api.request(http.MethodGet, "/api/efs", token, "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.request(http.MethodPost, "/api/efs", token, `{"key":"x"}`)
	assert.Equal(t, http.StatusForbidden, status)

	// Nor run audits.
	status, _ = api.request(http.MethodPost, "/api/audit/run/1", token, "")
	assert.Equal(t, http.StatusForbidden, status)
}

func TestCreditFlow(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("dev", "secret123", auth.RoleProjectDeveloper)
	token := api.login("dev", "secret123")

	status, body := api.request(http.MethodPost, "/api/credit/projects", token, `{
		"project_code": "FOREST-001",
		"name": "Reforestation",
		"baseline_tco2e": 1000,
		"project_tco2e": 200,
		"leakage_tco2e": 50,
		"buffer_pct": 15
	}`)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = api.request(http.MethodPost, "/api/credit/calc", token,
		`{"project_code":"FOREST-001"}`)
	require.Equal(t, http.StatusOK, status, string(body))

	var out struct {
		Trace struct {
			ReductionTCO2e float64 `json:"reduction_tco2e"`
			NetTCO2e       float64 `json:"net_tco2e"`
		} `json:"trace"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.InDelta(t, 750, out.Trace.ReductionTCO2e, 1e-9)
	assert.InDelta(t, 637.5, out.Trace.NetTCO2e, 1e-9)
}

func TestImportEFsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("admin", "admin1234")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "factors.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("key,name,unit,scope,category,value\ngrid,Grid,kWh,Scope2,energy,0.45\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, api.server.URL+"/api/efs/import", &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Imported int `json:"imported"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out.Imported)
}

func TestDashboard(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("admin", "admin1234")

	status, body := api.request(http.MethodGet, "/api/dashboard", token, "")
	require.Equal(t, http.StatusOK, status)

	var out struct {
		Counts store.Counts `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 0, out.Counts.Runs)
}
