package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/duragon35SG/habit-bot/internal/models"
	"github.com/duragon35SG/habit-bot/internal/rabbitmq"
	"github.com/duragon35SG/habit-bot/internal/transport"
)

type MockTransport struct{ mock.Mock }

func (m *MockTransport) Send(ctx context.Context, userID string, msg transport.OutMessage) error {
	return m.Called(ctx, userID, msg).Error(0)
}

type MockUsers struct{ mock.Mock }

func (m *MockUsers) DeactivateUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, mandatory, immediate, msg).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

var note = models.Notification{UserID: "42", Slot: "09:00", Habits: []string{"Read", "Run"}}

func TestReminderText(t *testing.T) {
	assert.Equal(t, "⏰ Напоминание! Не забудь про свои привычки:\n• Read\n• Run", ReminderText(note))
}

func TestSenderService_Notify(t *testing.T) {
	tests := []struct {
		name           string
		sendErr        error
		wantErr        bool
		wantDeactivate bool
	}{
		{name: "delivered"},
		{name: "transport error", sendErr: errors.New("timeout"), wantErr: true},
		{
			name:           "blocked by user",
			sendErr:        fmt.Errorf("telegram.Send: %w", transport.ErrRecipientUnavailable),
			wantErr:        true,
			wantDeactivate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := new(MockTransport)
			users := new(MockUsers)
			tr.On("Send", mock.Anything, "42", transport.OutMessage{Text: ReminderText(note)}).Return(tt.sendErr).Once()
			if tt.wantDeactivate {
				users.On("DeactivateUser", mock.Anything, "42").Return(nil).Once()
			}

			s := NewSenderService(tr, users, time.Second, nil, newNoopLogger())
			err := s.Notify(context.Background(), note)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			tr.AssertExpectations(t)
			users.AssertExpectations(t)
		})
	}
}

func TestSenderService_HandleDelivery(t *testing.T) {
	body, err := json.Marshal(note)
	require.NoError(t, err)

	tr := new(MockTransport)
	tr.On("Send", mock.Anything, "42", mock.Anything).Return(nil).Once()
	s := NewSenderService(tr, new(MockUsers), time.Second, nil, newNoopLogger())

	require.NoError(t, s.HandleDelivery(body))
	assert.Error(t, s.HandleDelivery([]byte("not-json")))
	assert.Error(t, s.HandleDelivery([]byte(`{"slot":"09:00"}`)))
	tr.AssertExpectations(t)
}

func TestQueueNotifier_Notify(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", rabbitmq.NotificationsExchange, rabbitmq.RemindersRoutingKey, false, false,
		mock.MatchedBy(func(p amqp.Publishing) bool {
			var got models.Notification
			return json.Unmarshal(p.Body, &got) == nil && assert.ObjectsAreEqual(note, got)
		})).Return(nil).Once()

	q := NewQueueNotifier(pub, newNoopLogger())
	require.NoError(t, q.Notify(context.Background(), note))
	pub.AssertExpectations(t)

	failing := new(MockPublisher)
	failing.On("Publish", mock.Anything, mock.Anything, false, false, mock.Anything).Return(errors.New("closed")).Once()
	assert.Error(t, NewQueueNotifier(failing, newNoopLogger()).Notify(context.Background(), note))
}
