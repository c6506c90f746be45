package sheets

import (
	"context"

	"famfin/internal/core"
)

// SnapshotExporter appends agency snapshots to an external tracking sheet.
type SnapshotExporter interface {
	// ExportSnapshot appends one row for s and returns a reference to it.
	ExportSnapshot(ctx context.Context, s core.AgencySnapshot) (rowRef string, err error)
}

// Header names the columns written by SnapshotRow.
var Header = []any{
	"Calculated for", "User", "Credit agency", "Backed agency", "Available credit",
	"Projected obligations", "Upcoming income", "Credit limit", "Outstanding balance",
	"Pending expenses", "Minimum payments", "Buffer", "Notes", "Calculated at",
}

// SnapshotRow renders a snapshot as sheet cells, amounts in currency units.
func SnapshotRow(s core.AgencySnapshot) []any {
	return []any{
		s.CalculatedFor.String(),
		s.UserID,
		core.FormatCents(s.CreditAgencyCents),
		core.FormatCents(s.BackedAgencyCents),
		core.FormatCents(s.AvailableCreditCents),
		core.FormatCents(s.ProjectedObligationsCents),
		core.FormatCents(s.UpcomingIncomeCents),
		core.FormatCents(s.TotalCreditLimitCents),
		core.FormatCents(s.OutstandingBalanceCents),
		core.FormatCents(s.PendingExpensesCents),
		core.FormatCents(s.MinimumPaymentsCents),
		core.FormatCents(s.BufferCents),
		s.Notes,
		s.CalculatedAt.UTC().Format("2006-01-02 15:04:05"),
	}
}
