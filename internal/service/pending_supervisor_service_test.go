package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fieldwork-go-api/internal/dto"
	"github.com/noah-isme/fieldwork-go-api/internal/models"
	"github.com/noah-isme/fieldwork-go-api/internal/service"
)

func (e *testEnv) applyWithNewSupervisor(t *testing.T) (models.User, dto.PlacementResponse, dto.PendingSupervisorResponse) {
	t.Helper()
	ctx := context.Background()

	faculty := e.createUser(t, "Dr. Lee", models.RoleFaculty, nil)
	student := e.createUser(t, "Dana Miles", models.RoleStudent, &faculty.ID)
	class := e.createClass(t, faculty.ID)

	placement, err := e.placements.Apply(ctx, applyPayload(student.ID, class.ID))
	require.NoError(t, err)

	var pending models.PendingSupervisor
	require.NoError(t, e.db.Where("placement_id = ?", placement.ID).First(&pending).Error)

	return student, placement, dto.NewPendingSupervisorResponse(pending)
}

func TestPendingSupervisorApproveLinksPlacement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, placement, pending := env.applyWithNewSupervisor(t)

	actor := service.PlacementActor{ID: 99, Role: models.RoleAdmin}
	resolved, err := env.pending.Approve(ctx, pending.ID, actor)
	require.NoError(t, err)
	require.Equal(t, models.PendingSupervisorStatusApproved, resolved.Status)

	var stored models.Placement
	require.NoError(t, env.db.First(&stored, placement.ID).Error)
	require.NotNil(t, stored.SupervisorID)

	var supervisor models.User
	require.NoError(t, env.db.First(&supervisor, *stored.SupervisorID).Error)
	require.Equal(t, models.RoleSupervisor, supervisor.Role)
	require.Equal(t, pending.Email, supervisor.Email)

	inbox := env.notificationsFor(t, supervisor.ID)
	require.NotEmpty(t, inbox)
	require.Equal(t, models.NotificationKindSupervisorApproved, inbox[0].Kind)

	// Approving again collides with the account it just created.
	_, err = env.pending.Approve(ctx, pending.ID, actor)
	require.ErrorIs(t, err, service.ErrSupervisorEmailInUse)
}

func TestPendingSupervisorRejectKeepsPlacementSupervisorless(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	student, placement, pending := env.applyWithNewSupervisor(t)

	actor := service.PlacementActor{ID: 99, Role: models.RoleAdmin}
	resolved, err := env.pending.Reject(ctx, pending.ID, dto.PendingSupervisorRejectRequest{Reason: "licensure could not be verified"}, actor)
	require.NoError(t, err)
	require.Equal(t, models.PendingSupervisorStatusRejected, resolved.Status)
	require.Equal(t, "licensure could not be verified", resolved.Reason)

	var stored models.Placement
	require.NoError(t, env.db.First(&stored, placement.ID).Error)
	require.Nil(t, stored.SupervisorID)
	require.Equal(t, models.PlacementStatusPending, stored.Status, "rejecting the supervisor leaves the placement untouched")

	inbox := env.notificationsFor(t, student.ID)
	require.NotEmpty(t, inbox)
	require.Equal(t, models.NotificationKindSupervisorRejected, inbox[0].Kind)

	_, err = env.pending.Reject(ctx, pending.ID, dto.PendingSupervisorRejectRequest{Reason: "again"}, actor)
	require.ErrorIs(t, err, service.ErrPendingSupervisorResolved)
}

func TestPendingSupervisorNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	actor := service.PlacementActor{ID: 99, Role: models.RoleAdmin}
	_, err := env.pending.Approve(ctx, 999999, actor)
	require.ErrorIs(t, err, service.ErrPendingSupervisorNotFound)
}

func TestPendingSupervisorListPendingOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, pending := env.applyWithNewSupervisor(t)

	items, err := env.pending.ListPending(ctx)
	require.NoError(t, err)

	var seen bool
	for _, item := range items {
		require.Equal(t, models.PendingSupervisorStatusPending, item.Status)
		if item.ID == pending.ID {
			seen = true
		}
	}
	require.True(t, seen)
}
