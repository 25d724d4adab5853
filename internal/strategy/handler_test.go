// AngelaMos | 2026
// handler_test.go

package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvix/planvix-api/internal/core"
	"github.com/planvix/planvix-api/internal/middleware"
	"github.com/planvix/planvix-api/internal/quota"
)

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := req.Context()
	ctx = context.WithValue(ctx, middleware.UserIDKey, "u1")
	ctx = context.WithValue(ctx, middleware.UserTierKey, "free")
	return req.WithContext(ctx)
}

func passthroughAuth(next http.Handler) http.Handler {
	return next
}

func newTestRouter(svc *Service) chi.Router {
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, passthroughAuth)
	return r
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGenerateRejectsInvalidRequestBeforeQuota(t *testing.T) {
	ledger := &fakeLedger{checkDecision: admitted()}
	svc := newTestService(&fakeRepo{}, ledger, &fakeCache{}, &fakeGenerator{})
	router := newTestRouter(svc)

	payload, _ := json.Marshal(map[string]string{
		"goal":     "too short",
		"audience": "Indie makers",
		"industry": "SaaS",
		"platform": "LinkedIn",
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/strategy", payload))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, ledger.checkCalls, "validation must run before the ledger")
}

func TestGenerateRejectsUnknownMode(t *testing.T) {
	svc := newTestService(
		&fakeRepo{}, &fakeLedger{checkDecision: admitted()},
		&fakeCache{}, &fakeGenerator{},
	)
	router := newTestRouter(svc)

	payload, _ := json.Marshal(map[string]string{
		"goal":          "Grow my newsletter to ten thousand subscribers",
		"audience":      "Indie makers and bootstrapped founders",
		"industry":      "SaaS",
		"platform":      "LinkedIn",
		"strategy_mode": "reckless",
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/strategy", payload))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateRendersQuotaRejectionAs429(t *testing.T) {
	ledger := &fakeLedger{checkDecision: rejected(quota.ScopeBurst)}
	svc := newTestService(&fakeRepo{}, ledger, &fakeCache{}, &fakeGenerator{})
	router := newTestRouter(svc)

	payload, _ := json.Marshal(map[string]string{
		"goal":     "Grow my newsletter to ten thousand subscribers",
		"audience": "Indie makers and bootstrapped founders",
		"industry": "SaaS",
		"platform": "LinkedIn",
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/strategy", payload))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	body := decodeEnvelope(t, rec)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "RATE_LIMITED", errBody["code"])
	assert.Contains(t, errBody["message"], "burst limit")

	details := errBody["details"].(map[string]any)
	assert.Equal(t, true, details["exceeded"])
	assert.Equal(t, "burst", details["scope"])
	assert.NotEmpty(t, details["reset_at"])
}

func TestGenerateRendersGenerationFailureAsGenericError(t *testing.T) {
	svc := newTestService(
		&fakeRepo{},
		&fakeLedger{checkDecision: admitted(), recordDecision: admitted()},
		&fakeCache{},
		&fakeGenerator{err: ErrGenerationFailed},
	)
	router := newTestRouter(svc)

	payload, _ := json.Marshal(map[string]string{
		"goal":     "Grow my newsletter to ten thousand subscribers",
		"audience": "Indie makers and bootstrapped founders",
		"industry": "SaaS",
		"platform": "LinkedIn",
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/strategy", payload))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeEnvelope(t, rec)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "INTERNAL_ERROR", errBody["code"])
	assert.NotContains(t, errBody["message"], "generation",
		"upstream detail stays out of the response")
}

func TestGetUnknownStrategyReturns404(t *testing.T) {
	repo := &fakeRepo{getErr: core.ErrNotFound}
	svc := newTestService(repo, &fakeLedger{}, &fakeCache{}, &fakeGenerator{})
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/history/missing-id", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryReturnsItems(t *testing.T) {
	repo := &fakeRepo{listResult: []Strategy{
		{ID: "s1", Goal: "Grow my newsletter", Revision: 2},
		{ID: "s2", Goal: "Launch a podcast", Revision: 1},
	}}
	svc := newTestService(repo, &fakeLedger{}, &fakeCache{}, &fakeGenerator{})
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/history", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(2), data["count"])
}
