package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purelab/lis-gateway/internal/auth"
	"github.com/purelab/lis-gateway/internal/bridge"
	"github.com/purelab/lis-gateway/internal/config"
	"github.com/purelab/lis-gateway/internal/lis"
	"github.com/purelab/lis-gateway/internal/store"
)

func newTestLISServer(t *testing.T, ttl time.Duration) (*LISServer, *store.MessageStore) {
	t.Helper()

	tokens, err := auth.NewTokenService(auth.StaticCredentials{
		Username: "wsadmin",
		Password: "password",
	}, ttl)
	require.NoError(t, err)

	st := store.NewMessageStore()
	directory := lis.DefaultDirectory()
	forwarder := bridge.NewResultForwarder(st, directory, true)

	s := NewLISServer(&config.Config{}, tokens, directory, forwarder)
	s.setupRoutes()
	return s, st
}

func lisRequest(s *LISServer, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *LISServer) string {
	t.Helper()

	rec := lisRequest(s, http.MethodGet, "/lis_apis/applogin?userName=wsadmin&password=password", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, "OK_LOGIN|"), "unexpected login response: %s", body)
	return strings.TrimPrefix(body, "OK_LOGIN|")
}

func TestAppLogin(t *testing.T) {
	s, _ := newTestLISServer(t, time.Hour)

	token := login(t, s)
	assert.NotEmpty(t, token)

	rec := lisRequest(s, http.MethodGet, "/lis_apis/applogin?userName=wsadmin&password=wrong", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "INVALID_LOGIN", rec.Body.String())
}

func TestGatedEndpointsRequireToken(t *testing.T) {
	s, _ := newTestLISServer(t, time.Hour)

	tests := []struct {
		name   string
		method string
		target string
	}{
		{"tests download", http.MethodGet, "/lis_apis/tests_lis_download/S001"},
		{"results upload", http.MethodPost, "/lis_apis/results_lis_upload/S001%7CCBC=4.9"},
		{"tests list", http.MethodGet, "/lis_apis/get_tests_list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No token at all
			rec := lisRequest(s, tt.method, tt.target, "")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "INVALID_LOGIN", rec.Body.String())

			// Garbage token
			rec = lisRequest(s, tt.method, tt.target, "bogus")
			assert.Equal(t, "INVALID_LOGIN", rec.Body.String())
		})
	}
}

func TestGateReportsExpiredToken(t *testing.T) {
	// Negative TTL issues tokens that are already expired
	s, _ := newTestLISServer(t, -time.Minute)
	token := login(t, s)

	rec := lisRequest(s, http.MethodGet, "/lis_apis/tests_lis_download/S001", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EXPIRED_TOKEN", rec.Body.String())
}

func TestTestsDownload(t *testing.T) {
	s, _ := newTestLISServer(t, time.Hour)
	token := login(t, s)

	rec := lisRequest(s, http.MethodGet, "/lis_apis/tests_lis_download/S001", token)
	assert.Equal(t, "QUERY_OK|3|P12345|John Doe|M|1980-01-15|CBC|GLU|CRE", rec.Body.String())

	rec = lisRequest(s, http.MethodGet, "/lis_apis/tests_lis_download/S999", token)
	assert.Equal(t, "NOT_FOUND", rec.Body.String())
}

func TestResultsUpload(t *testing.T) {
	s, st := newTestLISServer(t, time.Hour)
	token := login(t, s)

	rec := lisRequest(s, http.MethodPost, "/lis_apis/results_lis_upload/S001%7CCBC=4.9%7CXXX=1%7CGLU=5.2", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "UPLOADED|NOT_FOUND|UPLOADED", rec.Body.String())

	// Accepted results crossed the bridge into the HL7 store
	records := st.List()
	require.Len(t, records, 1)
	assert.Equal(t, "ORU^R01", records[0].MessageType)
}

func TestResultsUploadRawPipes(t *testing.T) {
	s, _ := newTestLISServer(t, time.Hour)
	token := login(t, s)

	rec := lisRequest(s, http.MethodPost, "/lis_apis/results_lis_upload/S002|HBA1C=6.1|TSH=2.4", token)
	assert.Equal(t, "UPLOADED|UPLOADED", rec.Body.String())
}

func TestResultsUploadNotFound(t *testing.T) {
	s, st := newTestLISServer(t, time.Hour)
	token := login(t, s)

	tests := []struct {
		name     string
		pathData string
	}{
		{"unknown sample", "S999%7CCBC=4.9"},
		{"sample only", "S001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := lisRequest(s, http.MethodPost, "/lis_apis/results_lis_upload/"+tt.pathData, token)
			assert.Equal(t, "NOT_FOUND", rec.Body.String())
		})
	}

	assert.Empty(t, st.List())
}

func TestUploadFlagOrdering(t *testing.T) {
	s, _ := newTestLISServer(t, time.Hour)
	token := login(t, s)

	rec := lisRequest(s, http.MethodPost, "/lis_apis/results_lis_upload/S001%7CCBC=1%7CNOPE%7CGLU=2", token)
	flags := strings.Split(rec.Body.String(), "|")
	assert.Equal(t, []string{"UPLOADED", "NOT_FOUND", "UPLOADED"}, flags)
}

func TestTestsList(t *testing.T) {
	s, _ := newTestLISServer(t, time.Hour)
	token := login(t, s)

	rec := lisRequest(s, http.MethodGet, "/lis_apis/get_tests_list", token)
	parts := strings.Split(rec.Body.String(), "|")
	require.Len(t, parts, 9)
	assert.Equal(t, "QUERY_OK", parts[0])
	assert.Equal(t, "7", parts[1])
	assert.Equal(t, "CBC\tComplete Blood Count", parts[2])
}

func TestRootInfo(t *testing.T) {
	s, _ := newTestLISServer(t, time.Hour)

	rec := lisRequest(s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var info struct {
		Message   string   `json:"message"`
		Version   string   `json:"version"`
		Endpoints []string `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.NotEmpty(t, info.Message)
	assert.Len(t, info.Endpoints, 4)
}
