package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/persian-voice-chat/internal/ws"
)

func TestRunSessionAgainstHandler(t *testing.T) {
	srv := httptest.NewServer(ws.NewHandler(ws.HandlerConfig{}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	res := runSession(context.Background(), url, []string{"ممنون"}, 3)
	require.Empty(t, res.err)
	require.Len(t, res.turns, 3)
	for _, tr := range res.turns {
		assert.True(t, tr.ok, tr.err)
		assert.Equal(t, "thanks", tr.intent)
	}

	var out bytes.Buffer
	printSummary(&out, []sessionResult{res, {err: "dial: refused"}})
	assert.Contains(t, out.String(), "Turns completed:    3")
	assert.Contains(t, out.String(), "Sessions failed:    1")
	assert.Contains(t, out.String(), "thanks")
}

func TestRunTurnReportsErrorFrames(t *testing.T) {
	srv := httptest.NewServer(ws.NewHandler(ws.HandlerConfig{MaxTextLength: 2}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	res := runSession(context.Background(), url, []string{"سلام"}, 1)
	require.Len(t, res.turns, 1)
	assert.False(t, res.turns[0].ok)
	assert.Contains(t, res.turns[0].err, "error frame")
}

func TestPercentile(t *testing.T) {
	data := []float64{5, 1, 4, 2, 3}
	assert.Equal(t, 3.0, percentile(data, 50))
	assert.Equal(t, 5.0, percentile(data, 99))
	assert.Equal(t, 1.0, percentile(data, 0))
}

func TestLoadTexts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texts.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nسلام\n\n  ممنون  \n"), 0o600))
	texts, err := loadTexts(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"سلام", "ممنون"}, texts)
}
