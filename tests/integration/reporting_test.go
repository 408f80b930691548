//go:build integration

package integration

import (
	"encoding/csv"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/incident-desk/internal/testutil"
)

func TestExport_CSV_AdminOnly(t *testing.T) {
	client := newTestClient()
	client.LoginAs(t, "export.user", "password123")

	resp, err := client.GET("/api/v1/incidents/export")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestExport_CSV_ReturnsAllIncidents(t *testing.T) {
	client := newTestClient()
	client.LoginAs(t, "export.reporter", "password123")
	reportIncident(t, client, "Exported incident")

	admin := newTestClient()
	admin.LoginAs(t, "admin", "admin123")

	resp, err := admin.GET("/api/v1/incidents/export")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, "Internal Ticket", records[0][0])

	var found bool
	for _, row := range records[1:] {
		if strings.Contains(strings.Join(row, ","), "Exported incident") {
			found = true
		}
	}
	assert.True(t, found, "exported incident should appear in CSV")
}

func TestAnalytics_Summary(t *testing.T) {
	client := newTestClient()
	client.LoginAs(t, "analytics.reporter", "password123")
	reportIncident(t, client, "Counted incident")

	admin := newTestClient()
	admin.LoginAs(t, "admin", "admin123")

	resp, err := admin.GET("/api/v1/analytics/summary")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			Total      int            `json:"total"`
			Open       int            `json:"open"`
			ByCategory map[string]int `json:"by_category"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Greater(t, result.Data.Total, 0)
	assert.Greater(t, result.Data.ByCategory["network"], 0)
}
