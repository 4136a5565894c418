package reports

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"webpage-auditor/internal/audit"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func serve(t *testing.T, h *GetByIDHandler, path string) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	h.RegisterRoute(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestGetByIDHandler_Success(t *testing.T) {
	t.Parallel()

	store := NewStoreWithConn(newTestSQLiteDB(t), zap.NewNop().Sugar())
	report := sampleReport()
	require.NoError(t, store.Save(context.Background(), SaveInput{
		ID:     "audit_1",
		URL:    report.URL,
		Checks: []string{"validate", "seo"},
		Report: &report,
	}))

	h := &GetByIDHandler{store: store, logger: zap.NewNop().Sugar()}
	rr := serve(t, h, "/v1/audits/audit_1")
	require.Equal(t, http.StatusOK, rr.Code)

	var got struct {
		ID     string       `json:"id"`
		Status string       `json:"status"`
		Checks []string     `json:"checks"`
		Report audit.Report `json:"report"`
		Error  *string      `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, "audit_1", got.ID)
	require.Equal(t, "DONE", got.Status)
	require.Equal(t, []string{"validate", "seo"}, got.Checks)
	require.Equal(t, "https://example.com", got.Report.URL)
	require.Nil(t, got.Error)
}

func TestGetByIDHandler_NotFound(t *testing.T) {
	t.Parallel()

	store := NewStoreWithConn(newTestSQLiteDB(t), zap.NewNop().Sugar())
	h := &GetByIDHandler{store: store, logger: zap.NewNop().Sugar()}

	rr := serve(t, h, "/v1/audits/missing")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetByIDHandler_Disabled(t *testing.T) {
	t.Parallel()

	h := NewGetByIDHandler(NewGetByIDHandlerParams{
		Store:  NewStore(NewStoreParams{Logger: zap.NewNop().Sugar()}),
		Logger: zap.NewNop().Sugar(),
	})

	rr := serve(t, h, "/v1/audits/any")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
