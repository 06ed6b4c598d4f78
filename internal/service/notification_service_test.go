package service_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/fieldwork-go-api/internal/dto"
	"github.com/noah-isme/fieldwork-go-api/internal/models"
	"github.com/noah-isme/fieldwork-go-api/internal/repository"
	"github.com/noah-isme/fieldwork-go-api/internal/service"
)

func TestNotificationPublishPersistsAndBroadcasts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	recipient := env.createUser(t, "Dana Miles", models.RoleStudent, nil)

	stream, cleanup := env.notifications.Subscribe(recipient.ID)
	defer cleanup()

	published, err := env.notifications.Publish(ctx, dto.NotificationCreateRequest{
		RecipientID: recipient.ID,
		Kind:        models.NotificationKindPlacementApproved,
		Title:       "Placement approved",
		Message:     "Your placement was <b>approved</b> by faculty.",
	})
	require.NoError(t, err)
	require.Equal(t, "Your placement was approved by faculty.", published.Message, "markup must be stripped")
	require.Equal(t, models.NotificationPriorityMedium, published.Priority, "priority defaults when omitted")

	select {
	case received := <-stream:
		require.Equal(t, published.ID, received.ID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the notification")
	}

	inbox := env.notificationsFor(t, recipient.ID)
	require.Len(t, inbox, 1)
	require.Equal(t, published.ID, inbox[0].ID)
}

func TestNotificationPublishRejectsMarkupOnlyMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	recipient := env.createUser(t, "Dana Miles", models.RoleStudent, nil)

	_, err := env.notifications.Publish(ctx, dto.NotificationCreateRequest{
		RecipientID: recipient.ID,
		Kind:        models.NotificationKindPlacementApproved,
		Title:       "Placement approved",
		Message:     "<script>alert(1)</script>",
	})
	require.Error(t, err)

	inbox := env.notificationsFor(t, recipient.ID)
	require.Empty(t, inbox)
}

func TestNotificationMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	recipient := env.createUser(t, "Dana Miles", models.RoleStudent, nil)
	other := env.createUser(t, "Sam Ortiz", models.RoleSupervisor, nil)

	published, err := env.notifications.Publish(ctx, dto.NotificationCreateRequest{
		RecipientID: recipient.ID,
		Kind:        models.NotificationKindTimesheetApproved,
		Title:       "Timesheet approved",
		Message:     "Your week was approved.",
	})
	require.NoError(t, err)

	read, err := env.notifications.MarkRead(ctx, published.ID, recipient.ID)
	require.NoError(t, err)
	require.True(t, read.Read)
	require.NotNil(t, read.ReadAt)

	// Marking again is a no-op.
	again, err := env.notifications.MarkRead(ctx, published.ID, recipient.ID)
	require.NoError(t, err)
	require.True(t, again.Read)

	// Another user cannot read someone else's notification.
	_, err = env.notifications.MarkRead(ctx, published.ID, other.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestNotificationUnsubscribeClosesChannel(t *testing.T) {
	env := newTestEnv(t)

	stream, cleanup := env.notifications.Subscribe(42)
	cleanup()

	_, open := <-stream
	require.False(t, open)
}

func TestNotificationRedisFanout(t *testing.T) {
	env := newTestEnv(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	userRepo := repository.NewUserRepository(env.db)
	notificationRepo := repository.NewNotificationRepository(env.db)
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := service.NewNotificationService(notificationRepo, userRepo, client, "fieldwork", nil, nil, validate, zerolog.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc.Start(ctx)

	stream, cleanup := svc.Subscribe(77)
	defer cleanup()

	payload, err := json.Marshal(map[string]interface{}{
		"source": "another-node",
		"notification": map[string]interface{}{
			"id":           901,
			"recipient_id": 77,
			"kind":         models.NotificationKindTimesheetSubmitted,
			"title":        "Timesheet awaiting your review",
			"message":      "A week was submitted.",
		},
		"sent_at": time.Now().UTC(),
	})
	require.NoError(t, err)

	// The subscription goroutine attaches asynchronously, so keep
	// re-publishing the same event until it lands.
	require.Eventually(t, func() bool {
		require.NoError(t, client.Publish(context.Background(), "fieldwork:notifications", payload).Err())
		select {
		case received := <-stream:
			require.Equal(t, uint(77), received.RecipientID)
			require.Equal(t, models.NotificationKindTimesheetSubmitted, received.Kind)
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
}
