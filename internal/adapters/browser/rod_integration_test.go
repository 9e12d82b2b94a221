//go:build integration

package browser

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bulk-sender/internal/config"
	"bulk-sender/internal/domain"
	"bulk-sender/internal/fakechat"
	"bulk-sender/internal/logging"
	"bulk-sender/internal/service"
)

func launch(t *testing.T) *Session {
	t.Helper()
	l := NewLauncher(config.BrowserConfig{Headless: true}, logging.Discard())
	s, err := l.Launch(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s.(*Session)
}

func TestSession_SendsThroughChatPage(t *testing.T) {
	chat := fakechat.NewServer(logging.Discard(), fakechat.WithChatDelay(300*time.Millisecond))
	ts := httptest.NewServer(chat)
	defer ts.Close()

	s := launch(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, service.BuildDeepLink(ts.URL+"/send", "5511", "Hola Ana")))
	require.NoError(t, s.WaitPresent(ctx, config.DefaultChatInputLocator, 5*time.Second))

	btn, err := s.WaitClickable(ctx, config.DefaultSendControlLocator, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, btn.Click(ctx))

	require.Eventually(t, func() bool { return len(chat.Deliveries()) == 1 }, 5*time.Second, 50*time.Millisecond)
	d := chat.Deliveries()[0]
	require.Equal(t, "5511", d.Phone)
	require.Equal(t, "Hola Ana", d.Text)
}

func TestSession_InvalidNumberPopup(t *testing.T) {
	ts := httptest.NewServer(fakechat.NewServer(logging.Discard(), fakechat.WithInvalidPhones("0000")))
	defer ts.Close()

	s := launch(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, service.BuildDeepLink(ts.URL+"/send", "0000", "hola")))

	err := s.WaitPresent(ctx, config.DefaultChatInputLocator, 500*time.Millisecond)
	require.ErrorIs(t, err, domain.ErrTimeout)

	require.NoError(t, s.WaitPresent(ctx, config.DefaultInvalidPopupLocator, 2*time.Second))
	require.NoError(t, s.Click(ctx, config.DefaultInvalidPopupLocator))

	err = s.Click(ctx, config.DefaultInvalidPopupLocator)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSession_CancelledWaitAndDoubleClose(t *testing.T) {
	ts := httptest.NewServer(fakechat.NewServer(logging.Discard()))
	defer ts.Close()

	s := launch(t)
	require.NoError(t, s.Navigate(context.Background(), ts.URL))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()
	err := s.WaitPresent(ctx, config.DefaultChatInputLocator, time.Minute)
	require.True(t, errors.Is(err, context.Canceled), "got %v", err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Navigate(context.Background(), ts.URL), domain.ErrSessionClosed)
}
