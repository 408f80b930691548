// Package export renders the incident list as CSV for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/opsdesk/incident-desk/internal/domain"
)

var csvHeader = []string{
	"Internal Ticket",
	"Client Ticket",
	"Category",
	"Status",
	"Description",
	"Location",
	"Reported By",
	"Reported At",
	"Opened At",
	"Closed At",
	"Team Movement",
	"Current Team",
	"Resolving Team",
	"Recurring",
}

// WriteCSV writes the incidents as CSV to w.
func WriteCSV(w io.Writer, incidents []domain.Incident) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, inc := range incidents {
		if err := cw.Write(csvRow(inc)); err != nil {
			return fmt.Errorf("write row for %s: %w", inc.InternalTicketNumber, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Filename returns the date-stamped download filename.
func Filename(now time.Time) string {
	return fmt.Sprintf("incidents-%s.csv", now.UTC().Format("2006-01-02"))
}

func csvRow(inc domain.Incident) []string {
	var closedAt string
	if inc.ClosedAt != nil {
		closedAt = formatTime(*inc.ClosedAt)
	}

	var currentTeam string
	if inc.CurrentTeam != nil {
		currentTeam = string(*inc.CurrentTeam)
	}

	var resolvingTeam string
	if inc.ResolvingTeam != nil {
		resolvingTeam = string(*inc.ResolvingTeam)
	}

	return []string{
		inc.InternalTicketNumber,
		inc.ClientTicketNumber,
		string(inc.Category),
		string(inc.Status),
		inc.Description,
		inc.Location,
		inc.ReportedBy,
		formatTime(inc.ReportedAt),
		formatTime(inc.OpenedAt),
		closedAt,
		inc.TeamMovement(),
		currentTeam,
		resolvingTeam,
		strconv.FormatBool(inc.IsRecurring),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
