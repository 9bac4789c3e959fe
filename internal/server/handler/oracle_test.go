package handler

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthlabs/vaultkeeper/internal/oracle"
)

func TestSetAndClearMockPrice(t *testing.T) {
	override := oracle.NewOverride(nil, 8)
	h := NewOracleHandler(override, slog.Default())

	rec := httptest.NewRecorder()
	h.SetMockPrice(rec, httptest.NewRequest(http.MethodPost, "/api/oracle/mock",
		strings.NewReader(`{"price":"93000000000"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, override.FixedEnabled())
	assert.Contains(t, rec.Body.String(), `"price":"93000000000"`)

	rec = httptest.NewRecorder()
	h.ClearMockPrice(rec, httptest.NewRequest(http.MethodDelete, "/api/oracle/mock", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, override.FixedEnabled())
}

func TestSetMockPriceValidation(t *testing.T) {
	override := oracle.NewOverride(nil, 8)
	h := NewOracleHandler(override, slog.Default())

	for _, body := range []string{
		`not json`,
		`{"price":""}`,
		`{"price":"0"}`,
		`{"price":"-1"}`,
		`{"price":"3100.5"}`,
	} {
		rec := httptest.NewRecorder()
		h.SetMockPrice(rec, httptest.NewRequest(http.MethodPost, "/api/oracle/mock",
			strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.False(t, override.FixedEnabled(), body)
	}
}
