package service

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthzHandle(t *testing.T) {
	h := &HealthzServer{log: log.New()}

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestNew_DefaultsLogger(t *testing.T) {
	s := New(nil)
	require.NotNil(t, s.log)
	require.NotNil(t, s.Healthz)
	require.NotNil(t, s.Metrics)

	s = New(log.New())
	require.NotNil(t, s.Healthz.log)
	require.NotNil(t, s.Metrics.log)
}
