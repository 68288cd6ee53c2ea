package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/models"
)

func TestAPIErrorPermanent(t *testing.T) {
	cases := []struct {
		status    int
		permanent bool
	}{
		{400, true},
		{401, true},
		{404, true},
		{408, false},
		{422, true},
		{429, false},
		{500, false},
		{502, false},
		{503, false},
	}

	for _, tc := range cases {
		err := &APIError{Status: tc.status}
		assert.Equal(t, tc.permanent, err.Permanent(), "status %d", tc.status)
	}
}

func TestCreateCompulsionSendsBearerToken(t *testing.T) {
	var gotAuth, gotPath, gotMethod string
	var gotBody models.Compulsion

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	l := zerolog.Nop()
	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok-123", TokenType: "Bearer"})
	client := NewWithTokenSource(srv.URL, nil, tokens, &l)

	err := client.CreateCompulsion(context.Background(), &models.Compulsion{ID: "c1", UserID: "u1", Type: "checking"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/compulsions", gotPath)
	assert.Equal(t, "c1", gotBody.ID)
}

func TestEndpointPaths(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	l := zerolog.Nop()
	client := NewWithTokenSource(srv.URL, nil, nil, &l)
	ctx := context.Background()

	require.NoError(t, client.UpdateCompulsion(ctx, &models.Compulsion{ID: "c9"}))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/compulsions/c9", gotPath)

	require.NoError(t, client.DeleteCompulsion(ctx, "c9"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/compulsions/c9", gotPath)

	require.NoError(t, client.CreateERPSession(ctx, &models.ERPSession{ID: "s1"}))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/erp/sessions", gotPath)

	require.NoError(t, client.CompleteERPSession(ctx, &models.ERPSession{ID: "s1"}))
	assert.Equal(t, "/api/erp/sessions/s1/complete", gotPath)

	require.NoError(t, client.UpdateUserProgress(ctx, &models.UserProgress{UserID: "u1"}))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/users/u1/progress", gotPath)
}

func TestErrorResponsesBecomeAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "validation failed", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	l := zerolog.Nop()
	client := NewWithTokenSource(srv.URL, nil, nil, &l)

	err := client.CreateCompulsion(context.Background(), &models.Compulsion{ID: "c1"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Body, "validation failed")
	assert.True(t, apiErr.Permanent())
}

func TestPing(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "/healthz", r.URL.Path)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	l := zerolog.Nop()
	client := NewWithTokenSource(srv.URL, nil, nil, &l)

	assert.NoError(t, client.Ping(context.Background()))

	// 4xx still means the host is reachable.
	status = http.StatusNotFound
	assert.NoError(t, client.Ping(context.Background()))

	status = http.StatusBadGateway
	assert.Error(t, client.Ping(context.Background()))
}
