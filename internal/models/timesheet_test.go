package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWeekStartForTruncatesToSunday(t *testing.T) {
	// 2026-03-04 is a Wednesday; its week opens on Sunday 2026-03-01.
	wednesday := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), WeekStartFor(wednesday))

	sunday := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), WeekStartFor(sunday))

	saturday := time.Date(2026, 3, 7, 0, 0, 1, 0, time.UTC)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), WeekStartFor(saturday))
}

func TestWeekStartForNormalizesZone(t *testing.T) {
	// 03:00 on Wednesday in UTC+7 is still Tuesday in UTC, so the week
	// opens on the prior Sunday.
	zone := time.FixedZone("UTC+7", 7*3600)
	local := time.Date(2026, 3, 4, 3, 0, 0, 0, zone)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), WeekStartFor(local))
}

func TestWeekEndForIsSaturday(t *testing.T) {
	wednesday := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), WeekEndFor(wednesday))
}

func TestTimesheetEntryEditable(t *testing.T) {
	require.True(t, TimesheetEntry{Status: TimesheetStatusDraft}.Editable())
	require.True(t, TimesheetEntry{Status: TimesheetStatusRejected}.Editable())
	require.False(t, TimesheetEntry{Status: TimesheetStatusPendingSupervisor}.Editable())
	require.False(t, TimesheetEntry{Status: TimesheetStatusApproved, Locked: true}.Editable())
}

func TestPlacementLifecycleHelpers(t *testing.T) {
	url := "https://cdn.example.com/policy.pdf"
	require.True(t, Placement{PolicyDocumentURL: &url}.HasPolicyDocument())
	require.False(t, Placement{}.HasPolicyDocument())

	require.True(t, Placement{Status: PlacementStatusComplete}.IsTerminal())
	require.True(t, Placement{Status: PlacementStatusDeclined}.IsTerminal())
	require.False(t, Placement{Status: PlacementStatusActive}.IsTerminal())

	require.True(t, Placement{Status: PlacementStatusActive}.AcceptsTimesheets())
	require.False(t, Placement{Status: PlacementStatusApprovedChecklist}.AcceptsTimesheets())
}
