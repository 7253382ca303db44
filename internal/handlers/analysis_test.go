package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	userID string
	text   string
	err    error
}

func (s *stubAnalyzer) Analyze(_ context.Context, userID string) (string, error) {
	s.userID = userID
	return s.text, s.err
}

func TestAnalyzeReturnsAnalysis(t *testing.T) {
	analyzer := &stubAnalyzer{text: "Resumen: vas bien."}
	h := NewAnalysisHandler(analyzer, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Analyze(rec, httptest.NewRequest(http.MethodGet, "/api/analisis-financiero?user_id=u-9", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-9", analyzer.userID)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Resumen: vas bien.", body["analisis"])
}

func TestAnalyzeStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		analyzer Analyzer
		target   string
		want     int
	}{
		{"missing user", &stubAnalyzer{}, "/api/analisis-financiero", http.StatusBadRequest},
		{"analyzer failure", &stubAnalyzer{err: errors.New("chat completion: 429")}, "/api/analisis-financiero?user_id=u", http.StatusInternalServerError},
		{"disabled", nil, "/api/analisis-financiero?user_id=u", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAnalysisHandler(tt.analyzer, zerolog.Nop())
			rec := httptest.NewRecorder()
			h.Analyze(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.want, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			assert.NotContains(t, body["error"], "429")
		})
	}
}
