package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draw-service/internal/handlers"
	"draw-service/internal/models"
	"draw-service/internal/services"
	"draw-service/internal/testutil"
)

type apiResponse struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type api struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	rules := services.DefaultRules()
	rules.CompletionThreshold = 2
	locks := services.NewLocalLocker()
	dispatcher := &testutil.FakeDispatcher{}
	ledger := services.NewLedgerService(db, locks, services.DefaultLedgerNode())
	draws := services.NewDrawService(db, ledger, locks, dispatcher, rules)
	draws.NewRandom = func() services.RandomSource { return services.SeededSource(1) }

	h := &handlers.Handler{
		Users:   services.NewUserService(db),
		Ledger:  ledger,
		Entries: services.NewEntryService(db, ledger, dispatcher, rules),
		Draws:   draws,
		Claims:  services.NewClaimService(db, ledger, dispatcher, rules),
		Tasks:   services.NewTaskService(db, locks, rules),
	}
	testutil.CreateUser(t, db, "alice", 500)
	testutil.CreateUser(t, db, "bob", 0)
	return &api{t: t, router: handlers.NewRouter(h)}
}

func (a *api) do(method, path, user, role string, body interface{}) (int, apiResponse) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(handlers.HeaderUserID, user)
		req.Header.Set(handlers.HeaderUserRole, role)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func (a *api) createDraw(number int) models.Draw {
	a.t.Helper()
	code, resp := a.do(http.MethodPost, "/admin/draws", "root", "admin", map[string]interface{}{
		"draw_number": number,
		"draw_time":   time.Now().UTC().Format(time.RFC3339),
	})
	require.Equal(a.t, http.StatusCreated, code, resp.Message)
	var draw models.Draw
	require.NoError(a.t, json.Unmarshal(resp.Data, &draw))
	return draw
}

func TestPing(t *testing.T) {
	a := newAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIdentityRequired(t *testing.T) {
	a := newAPI(t)

	code, _ := a.do(http.MethodGet, "/me", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(http.MethodPost, "/admin/draws", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(http.MethodPost, "/admin/draws", "alice", "user", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp := a.do(http.MethodGet, "/me", "alice", "user", nil)
	assert.Equal(t, http.StatusOK, code)
	var user models.User
	require.NoError(t, json.Unmarshal(resp.Data, &user))
	assert.Equal(t, int64(500), user.Balance)
}

func TestPurchaseFlow(t *testing.T) {
	a := newAPI(t)
	draw := a.createDraw(1)

	code, resp := a.do(http.MethodGet, "/draws/active", "", "", nil)
	require.Equal(t, http.StatusOK, code)
	var active models.Draw
	require.NoError(t, json.Unmarshal(resp.Data, &active))
	assert.Equal(t, draw.ID, active.ID)

	code, resp = a.do(http.MethodPost, "/draws/"+draw.ID+"/entries", "alice", "user", nil)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var result services.PurchaseResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, int64(400), result.NewBalance)

	code, resp = a.do(http.MethodPost, "/draws/"+draw.ID+"/entries", "bob", "user", nil)
	assert.Equal(t, http.StatusPaymentRequired, code)
	assert.Equal(t, "InsufficientFunds", resp.Code)
	assert.False(t, resp.Success)

	code, resp = a.do(http.MethodPost, "/draws/missing/entries", "alice", "user", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NotFound", resp.Code)

	code, resp = a.do(http.MethodGet, "/me/entries?draw_id="+draw.ID, "alice", "user", nil)
	require.Equal(t, http.StatusOK, code)
	var entries []models.Entry
	require.NoError(t, json.Unmarshal(resp.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, result.TicketID, entries[0].TicketID)
}

func TestAdminClaimReview(t *testing.T) {
	a := newAPI(t)

	code, resp := a.do(http.MethodPost, "/deposits", "bob", "user", map[string]interface{}{
		"amount":          1000,
		"method":          "bank",
		"external_txn_id": "B-1",
		"sender_name":     "Bob",
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var claim models.Transaction
	require.NoError(t, json.Unmarshal(resp.Data, &claim))

	code, _ = a.do(http.MethodGet, "/admin/claims?type=deposit", "root", "admin", nil)
	assert.Equal(t, http.StatusOK, code)

	path := "/admin/claims/" + jsonID(claim.ID) + "/reject"
	code, resp = a.do(http.MethodPost, path, "root", "admin", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "ValidationError", resp.Code)

	code, _ = a.do(http.MethodPost, "/admin/claims/"+jsonID(claim.ID)+"/approve", "root", "admin", nil)
	require.Equal(t, http.StatusOK, code)

	code, resp = a.do(http.MethodPost, "/admin/claims/"+jsonID(claim.ID)+"/approve", "root", "admin", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "AlreadyClaimed", resp.Code)

	code, resp = a.do(http.MethodGet, "/me", "bob", "user", nil)
	require.Equal(t, http.StatusOK, code)
	var user models.User
	require.NoError(t, json.Unmarshal(resp.Data, &user))
	assert.Equal(t, int64(1000), user.Balance)

	code, resp = a.do(http.MethodGet, "/admin/ledger/audit", "root", "admin", nil)
	require.Equal(t, http.StatusOK, code)
	var audit struct {
		Consistent bool `json:"consistent"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &audit))
	assert.True(t, audit.Consistent)

	code, _ = a.do(http.MethodPost, "/admin/claims/abc/approve", "root", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAdminDrawLifecycle(t *testing.T) {
	a := newAPI(t)
	draw := a.createDraw(1)

	code, _ := a.do(http.MethodPost, "/admin/draws/"+draw.ID+"/pause", "root", "admin", nil)
	require.Equal(t, http.StatusOK, code)

	code, resp := a.do(http.MethodPost, "/draws/"+draw.ID+"/entries", "alice", "user", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "DrawNotActive", resp.Code)

	code, _ = a.do(http.MethodPost, "/admin/draws/"+draw.ID+"/resume", "root", "admin", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = a.do(http.MethodPost, "/draws/"+draw.ID+"/entries", "alice", "user", nil)
	require.Equal(t, http.StatusCreated, code)

	code, resp = a.do(http.MethodPost, "/admin/draws/"+draw.ID+"/complete", "root", "admin", map[string]bool{"pay_direct": true})
	require.Equal(t, http.StatusOK, code, resp.Message)
	var winners []models.Winner
	require.NoError(t, json.Unmarshal(resp.Data, &winners))
	require.Len(t, winners, 1)
	assert.Equal(t, "alice", winners[0].UserID)

	code, resp = a.do(http.MethodGet, "/draws/previous", "", "", nil)
	require.Equal(t, http.StatusOK, code)
	var previous []services.DrawSummary
	require.NoError(t, json.Unmarshal(resp.Data, &previous))
	require.Len(t, previous, 1)
	assert.Equal(t, 1, previous[0].UniqueParticipants)

	code, resp = a.do(http.MethodDelete, "/admin/draws/"+draw.ID, "root", "admin", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "DrawNotActive", resp.Code)
}

func TestTaskRoutes(t *testing.T) {
	a := newAPI(t)

	code, resp := a.do(http.MethodGet, "/tasks", "", "", nil)
	require.Equal(t, http.StatusOK, code)
	var tasks []models.TaskDefinition
	require.NoError(t, json.Unmarshal(resp.Data, &tasks))
	assert.Len(t, tasks, 10)

	code, resp = a.do(http.MethodPost, "/tasks/task1/complete?date=2026-01-05", "bob", "user", nil)
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, resp = a.do(http.MethodPost, "/tasks/reward", "bob", "user", map[string]string{"date": "2026-01-05"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "TasksIncomplete", resp.Code)
}

func jsonID(id int64) string {
	return strconv.FormatInt(id, 10)
}
