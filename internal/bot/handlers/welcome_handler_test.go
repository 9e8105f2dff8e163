package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/welcomebot/internal/bot/handlers"
	"github.com/edgard/welcomebot/internal/config"
)

const (
	botUsername = "welcome_helper_bot"
	channelURL  = "https://t.me/example_channel"
)

// recordingMessenger records outbound calls instead of talking to Telegram.
type recordingMessenger struct {
	mu        sync.Mutex
	nextID    int
	sends     []*bot.SendMessageParams
	deletes   []*bot.DeleteMessageParams
	sendErr   map[int64]error // keyed by the mentioned user ID
	panicFor  map[int64]bool
	deleteErr error
}

func newRecordingMessenger() *recordingMessenger {
	return &recordingMessenger{nextID: 55, sendErr: map[int64]error{}, panicFor: map[int64]bool{}}
}

func (m *recordingMessenger) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, err := range m.sendErr {
		if strings.Contains(params.Text, fmt.Sprintf("tg://user?id=%d\"", id)) {
			return nil, err
		}
	}
	for id := range m.panicFor {
		if strings.Contains(params.Text, fmt.Sprintf("tg://user?id=%d\"", id)) {
			panic("boom")
		}
	}

	m.sends = append(m.sends, params)
	id := m.nextID
	m.nextID++
	return &models.Message{ID: id, Chat: models.Chat{ID: params.ChatID.(int64)}}, nil
}

func (m *recordingMessenger) DeleteMessage(_ context.Context, params *bot.DeleteMessageParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, params)
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	return true, nil
}

type scheduledTask struct {
	delay time.Duration
	name  string
	task  func(ctx context.Context)
}

// manualScheduler captures tasks so tests decide when they fire.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []scheduledTask
	err   error
}

func (s *manualScheduler) After(delay time.Duration, name string, task func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, scheduledTask{delay: delay, name: name, task: task})
	return nil
}

func (s *manualScheduler) runAll(ctx context.Context) {
	s.mu.Lock()
	tasks := append([]scheduledTask(nil), s.tasks...)
	s.mu.Unlock()
	for _, st := range tasks {
		st.task(ctx)
	}
}

type fixture struct {
	messenger *recordingMessenger
	scheduler *manualScheduler
	logs      *bytes.Buffer
	handler   bot.HandlerFunc
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logs := &bytes.Buffer{}
	cfg := &config.Config{
		Telegram: config.TelegramConfig{
			BotInfo: &models.User{ID: 999, Username: botUsername, IsBot: true},
		},
		Welcome: config.WelcomeConfig{
			Template:    config.DefaultWelcomeTemplate,
			ButtonText:  config.DefaultButtonText,
			ButtonURL:   channelURL,
			DeleteAfter: config.DefaultDeleteAfter,
		},
	}
	f := &fixture{
		messenger: newRecordingMessenger(),
		scheduler: &manualScheduler{},
		logs:      logs,
	}
	f.handler = handlers.NewWelcomeHandler(handlers.HandlerDeps{
		Logger:    slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Config:    cfg,
		Messenger: f.messenger,
		Scheduler: f.scheduler,
	})
	return f
}

func joinUpdate(chatID int64, members ...models.User) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:             10,
			Chat:           models.Chat{ID: chatID, Title: "test group", Type: models.ChatTypeSupergroup},
			NewChatMembers: members,
		},
	}
}

func TestWelcomeSingleMember(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.handler(context.Background(), nil, joinUpdate(100,
		models.User{ID: 7, FirstName: "Rina", Username: "rina_b"},
	))

	require.Len(t, f.messenger.sends, 1)
	sent := f.messenger.sends[0]
	assert.Equal(t, int64(100), sent.ChatID)
	assert.Equal(t, models.ParseModeHTML, sent.ParseMode)
	assert.Contains(t, sent.Text, `<a href="tg://user?id=7">Rina</a>`)
	assert.True(t, strings.HasSuffix(sent.Text, config.DefaultWelcomeTemplate))
	require.NotNil(t, sent.ReplyParameters)
	assert.Equal(t, 10, sent.ReplyParameters.MessageID)

	kb, ok := sent.ReplyMarkup.(*models.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 1)
	assert.Equal(t, channelURL, kb.InlineKeyboard[0][0].URL)
	assert.Equal(t, config.DefaultButtonText, kb.InlineKeyboard[0][0].Text)

	// Nothing is deleted until the scheduled task fires.
	assert.Empty(t, f.messenger.deletes)
	require.Len(t, f.scheduler.tasks, 1)
	assert.Equal(t, 60*time.Second, f.scheduler.tasks[0].delay)
	assert.Equal(t, "delete_welcome_100_55", f.scheduler.tasks[0].name)

	f.scheduler.runAll(context.Background())

	require.Len(t, f.messenger.deletes, 1)
	assert.Equal(t, int64(100), f.messenger.deletes[0].ChatID)
	assert.Equal(t, 55, f.messenger.deletes[0].MessageID)
}

func TestWelcomeSkipsSelf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		member models.User
	}{
		{"same username", models.User{ID: 999, FirstName: "Bot", Username: botUsername, IsBot: true}},
		{"username differs in case", models.User{ID: 12345, FirstName: "Bot", Username: strings.ToUpper(botUsername), IsBot: true}},
		{"same id", models.User{ID: 999, FirstName: "Bot", IsBot: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			f.handler(context.Background(), nil, joinUpdate(100, tt.member))

			assert.Empty(t, f.messenger.sends)
			assert.Empty(t, f.scheduler.tasks)
		})
	}
}

func TestWelcomeMultipleMembers(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.handler(context.Background(), nil, joinUpdate(100,
		models.User{ID: 7, FirstName: "Rina", Username: "rina_b"},
		models.User{ID: 999, FirstName: "Bot", Username: botUsername, IsBot: true},
		models.User{ID: 8, FirstName: "Tom"},
	))

	require.Len(t, f.messenger.sends, 2)
	assert.Contains(t, f.messenger.sends[0].Text, "tg://user?id=7")
	assert.Contains(t, f.messenger.sends[1].Text, "tg://user?id=8")
	require.Len(t, f.scheduler.tasks, 2)

	f.scheduler.runAll(context.Background())
	require.Len(t, f.messenger.deletes, 2)
	assert.Equal(t, 55, f.messenger.deletes[0].MessageID)
	assert.Equal(t, 56, f.messenger.deletes[1].MessageID)
}

func TestWelcomeMalformedUpdates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		update *models.Update
	}{
		{"no message", &models.Update{ID: 3}},
		{"no members", joinUpdate(100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			f.handler(context.Background(), nil, tt.update)

			assert.Empty(t, f.messenger.sends)
			assert.Empty(t, f.messenger.deletes)
			assert.Empty(t, f.scheduler.tasks)
			assert.Contains(t, f.logs.String(), "level=WARN")
		})
	}
}

func TestWelcomeSendFailureContinues(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.messenger.sendErr[7] = errors.New("network unreachable")

	f.handler(context.Background(), nil, joinUpdate(100,
		models.User{ID: 7, FirstName: "Rina"},
		models.User{ID: 8, FirstName: "Tom"},
	))

	require.Len(t, f.messenger.sends, 1)
	assert.Contains(t, f.messenger.sends[0].Text, "tg://user?id=8")
	require.Len(t, f.scheduler.tasks, 1)

	logs := f.logs.String()
	assert.Contains(t, logs, "level=ERROR")
	assert.Contains(t, logs, "Failed to send welcome message")
	assert.Contains(t, logs, "member_id=7")
}

func TestWelcomePanicDoesNotAbortEvent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.messenger.panicFor[7] = true

	require.NotPanics(t, func() {
		f.handler(context.Background(), nil, joinUpdate(100,
			models.User{ID: 7, FirstName: "Rina"},
			models.User{ID: 8, FirstName: "Tom"},
		))
	})

	require.Len(t, f.messenger.sends, 1)
	assert.Contains(t, f.messenger.sends[0].Text, "tg://user?id=8")
	assert.Contains(t, f.logs.String(), "Panic while welcoming member")
	assert.Contains(t, f.logs.String(), "stack=")
}

func TestWelcomeScheduleFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.scheduler.err = errors.New("scheduler is shut down")

	f.handler(context.Background(), nil, joinUpdate(100, models.User{ID: 7, FirstName: "Rina"}))

	require.Len(t, f.messenger.sends, 1)
	assert.Contains(t, f.logs.String(), "Failed to schedule welcome message deletion")
}

func TestWelcomeDeleteFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantLevel string
		wantMsg   string
	}{
		{
			name:      "permission denied",
			err:       fmt.Errorf("%w, %s", bot.ErrorForbidden, "Forbidden: not enough rights"),
			wantLevel: "level=WARN",
			wantMsg:   "can_delete_messages",
		},
		{
			name:      "bad request",
			err:       fmt.Errorf("%w, %s", bot.ErrorBadRequest, "Bad Request: message to delete not found"),
			wantLevel: "level=WARN",
			wantMsg:   "message to delete not found",
		},
		{
			name:      "generic",
			err:       errors.New("internal server error"),
			wantLevel: "level=ERROR",
			wantMsg:   "Failed to delete welcome message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.messenger.deleteErr = tt.err

			f.handler(context.Background(), nil, joinUpdate(100, models.User{ID: 7, FirstName: "Rina"}))
			require.NotPanics(t, func() { f.scheduler.runAll(context.Background()) })

			require.Len(t, f.messenger.deletes, 1)
			logs := f.logs.String()
			assert.Contains(t, logs, tt.wantLevel)
			assert.Contains(t, logs, tt.wantMsg)
		})
	}
}

func TestWelcomeWithoutBotInfo(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	h := handlers.NewWelcomeHandler(handlers.HandlerDeps{
		Logger: slog.New(slog.NewTextHandler(f.logs, nil)),
		Config: &config.Config{Welcome: config.WelcomeConfig{
			Template:    "!",
			ButtonText:  "go",
			ButtonURL:   channelURL,
			DeleteAfter: time.Minute,
		}},
		Messenger: f.messenger,
		Scheduler: f.scheduler,
	})

	h(context.Background(), nil, joinUpdate(100, models.User{ID: 7, FirstName: "Rina"}))
	assert.Len(t, f.messenger.sends, 1)
}

func TestWelcomeDeleteAbandonedOnShutdown(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.messenger.deleteErr = context.Canceled

	f.handler(context.Background(), nil, joinUpdate(100, models.User{ID: 7, FirstName: "Rina"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.scheduler.runAll(ctx)

	logs := f.logs.String()
	assert.Contains(t, logs, "Welcome message deletion abandoned on shutdown")
	assert.NotContains(t, logs, "level=ERROR")
}
