package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"juscat/classifier"
	"juscat/gateway/middleware"
	"juscat/history"
	"juscat/native/rewards"
)

const (
	fixtureOperator = "0xoperator"
	fixtureSecret   = "gateway-secret"
)

type allowRegistry map[string]bool

func (r allowRegistry) QueryAccess(_ context.Context, actor string) (bool, error) {
	return r[rewards.NormalizeActor(actor)], nil
}

type nullSink struct{}

func (nullSink) Payout(context.Context, string, *big.Int) error { return nil }

type chainHead struct {
	height uint64
}

func (c *chainHead) CurrentBlock(context.Context) (uint64, error) { return c.height, nil }

type fixture struct {
	handler http.Handler
	engine  *rewards.Engine
	store   *history.Store
	blocks  *chainHead
}

func newFixture(t *testing.T, oracle classifier.Oracle) *fixture {
	t.Helper()
	blocks := &chainHead{height: 500}
	engine, err := rewards.NewEngine(rewards.Config{
		Params: rewards.Params{
			MaxSubmissionsPerCycle: 2,
			RewardPerSubmission:    big.NewInt(1),
			CycleLengthBlocks:      100,
			GateRequired:           true,
		},
		Operator:     fixtureOperator,
		Registry:     allowRegistry{"0xactor1": true},
		Payout:       nullSink{},
		Blocks:       blocks,
		GenesisBlock: 10,
	})
	require.NoError(t, err)
	require.NoError(t, engine.SetNextBudget(fixtureOperator, big.NewInt(5)))
	_, err = engine.TriggerCycle(context.Background(), fixtureOperator)
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	store, err := history.NewStore(db)
	require.NoError(t, err)

	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    true,
		HMACSecret: fixtureSecret,
	}, nil)

	handler, err := New(Config{
		Engine:            engine,
		History:           store,
		Classifier:        oracle,
		ValidityThreshold: 0.5,
		Authenticator:     auth,
	})
	require.NoError(t, err)
	return &fixture{handler: handler, engine: engine, store: store, blocks: blocks}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	f.handler.ServeHTTP(recorder, req)
	return recorder
}

func adminToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "operator",
		"scope": "admin",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(fixtureSecret))
	require.NoError(t, err)
	return signed
}

func TestSubmitPipelineRecordsHistory(t *testing.T) {
	f := newFixture(t, classifier.StaticOracle(0.9))

	res := f.do(t, http.MethodPost, "/api/submissions",
		submitRequest{Actor: "0xactor1", Image: "photo-one"}, "")
	require.Equal(t, http.StatusCreated, res.Code)

	var resp submitResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &resp))
	require.Equal(t, uint64(1), resp.Cycle)
	require.Equal(t, uint64(1), resp.Count)
	require.Equal(t, "1", resp.Reward)
	require.Equal(t, 0.9, resp.Validity)

	records, err := f.store.ByActor(context.Background(), "0xactor1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, history.Fingerprint("photo-one"), records[0].Fingerprint)
}

func TestSubmitRejectsDuplicateImage(t *testing.T) {
	f := newFixture(t, classifier.StaticOracle(0.9))

	res := f.do(t, http.MethodPost, "/api/submissions",
		submitRequest{Actor: "0xactor1", Image: "photo-one"}, "")
	require.Equal(t, http.StatusCreated, res.Code)

	res = f.do(t, http.MethodPost, "/api/submissions",
		submitRequest{Actor: "0xactor1", Image: "photo-one"}, "")
	require.Equal(t, http.StatusConflict, res.Code)
	require.Equal(t, uint64(1), f.engine.SubmissionCount(1, "0xactor1"))
}

func TestSubmitRejectsLowValidity(t *testing.T) {
	f := newFixture(t, classifier.StaticOracle(0.3))

	res := f.do(t, http.MethodPost, "/api/submissions",
		submitRequest{Actor: "0xactor1", Image: "photo-one"}, "")
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	require.Equal(t, uint64(0), f.engine.SubmissionCount(1, "0xactor1"))

	records, err := f.store.ByActor(context.Background(), "0xactor1", 10)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestSubmitRejectsWithoutPassport(t *testing.T) {
	f := newFixture(t, classifier.StaticOracle(0.9))

	res := f.do(t, http.MethodPost, "/api/submissions",
		submitRequest{Actor: "0xnobody", Image: "photo-one"}, "")
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestSubmitCapExceeded(t *testing.T) {
	f := newFixture(t, classifier.StaticOracle(0.9))

	for i, image := range []string{"photo-one", "photo-two"} {
		res := f.do(t, http.MethodPost, "/api/submissions",
			submitRequest{Actor: "0xactor1", Image: image}, "")
		require.Equal(t, http.StatusCreated, res.Code, "submission %d", i)
	}

	res := f.do(t, http.MethodPost, "/api/submissions",
		submitRequest{Actor: "0xactor1", Image: "photo-three"}, "")
	require.Equal(t, http.StatusConflict, res.Code)
}

func TestAdminRequiresToken(t *testing.T) {
	f := newFixture(t, classifier.StaticOracle(0.9))

	res := f.do(t, http.MethodPost, "/api/admin/budget",
		budgetRequest{Amount: "10"}, "")
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAdminBudgetAndWithdraw(t *testing.T) {
	f := newFixture(t, classifier.StaticOracle(0.9))
	token := adminToken(t)

	res := f.do(t, http.MethodPost, "/api/admin/budget",
		budgetRequest{Amount: "10"}, token)
	require.Equal(t, http.StatusOK, res.Code)

	f.blocks.height += 100
	res = f.do(t, http.MethodPost, "/api/admin/cycle", nil, token)
	require.Equal(t, http.StatusOK, res.Code)

	res = f.do(t, http.MethodPost, "/api/admin/withdraw",
		withdrawRequest{Cycle: 1}, token)
	require.Equal(t, http.StatusOK, res.Code)
	var withdrawn map[string]string
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &withdrawn))
	require.Equal(t, "5", withdrawn["amount"])

	res = f.do(t, http.MethodPost, "/api/admin/withdraw",
		withdrawRequest{Cycle: 1}, token)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestStatsEndpoint(t *testing.T) {
	f := newFixture(t, classifier.StaticOracle(0.9))

	res := f.do(t, http.MethodGet, "/api/stats", nil, "")
	require.Equal(t, http.StatusOK, res.Code)

	var stats statsResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &stats))
	require.Equal(t, uint64(1), stats.CurrentCycle)
	require.Equal(t, "5", stats.RewardsLeft)
	require.Equal(t, uint64(2), stats.MaxSubmissions)
	// No registry counter configured; totals fall back to the grant cache.
	require.Equal(t, stats.AccessGrants, stats.TotalPassports)
}

func TestPreflightEndpoint(t *testing.T) {
	f := newFixture(t, classifier.StaticOracle(0.9))

	res := f.do(t, http.MethodPost, "/api/submissions",
		submitRequest{Actor: "0xactor1", Image: "photo-one"}, "")
	require.Equal(t, http.StatusCreated, res.Code)

	res = f.do(t, http.MethodGet, "/api/preflight/0xactor1", nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	var resp preflightResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &resp))
	require.True(t, resp.HasAccess)
	require.Equal(t, uint64(1), resp.SubmissionsUsed)
	require.Equal(t, uint64(2), resp.MaxSubmissions)
	require.Equal(t, "4", resp.RewardsLeft)

	res = f.do(t, http.MethodGet, "/api/preflight/0xnobody", nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &resp))
	require.False(t, resp.HasAccess)
	require.Equal(t, uint64(0), resp.SubmissionsUsed)
}

func TestPassportEndpoint(t *testing.T) {
	f := newFixture(t, classifier.StaticOracle(0.9))

	res := f.do(t, http.MethodGet, "/api/passport/0xactor1", nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	var resp passportResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &resp))
	require.True(t, resp.HasAccess)

	res = f.do(t, http.MethodGet, "/api/passport/0xnobody", nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &resp))
	require.False(t, resp.HasAccess)
}

func TestCycleInfoEndpoint(t *testing.T) {
	f := newFixture(t, classifier.StaticOracle(0.9))

	res := f.do(t, http.MethodGet, "/api/cycles/1", nil, "")
	require.Equal(t, http.StatusOK, res.Code)
	var resp cycleResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &resp))
	require.Equal(t, "5", resp.BudgetTotal)

	res = f.do(t, http.MethodGet, "/api/cycles/42", nil, "")
	require.Equal(t, http.StatusNotFound, res.Code)
}
