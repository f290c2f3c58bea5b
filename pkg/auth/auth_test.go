package auth

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadgen-scraper/pkg/artifacts"
	"leadgen-scraper/pkg/browser/browsertest"
	"leadgen-scraper/pkg/config"
	"leadgen-scraper/pkg/utils"
)

type recordingPrompter struct {
	calls int
	url   string
	err   error
}

func (p *recordingPrompter) PromptChallenge(url string) error {
	p.calls++
	p.url = url
	return p.err
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Browser: config.BrowserConfig{ElementTimeout: 50 * time.Millisecond},
		Delays: config.DelayConfig{
			TypingMin:        time.Microsecond,
			TypingMax:        2 * time.Microsecond,
			PaginationSettle: time.Millisecond,
		},
	}
}

func testCreds() config.Credentials {
	return config.Credentials{LinkedInUsername: "user@example.com", LinkedInPassword: "pw"}
}

func discardEntry() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func newAuthenticator(t *testing.T, drv *browsertest.ScriptedDriver, prompter ChallengePrompter) (*Authenticator, *artifacts.Writer) {
	t.Helper()
	art, err := artifacts.NewWriter(t.TempDir(), discardEntry())
	require.NoError(t, err)
	return New(drv, testConfig(), art, prompter, discardEntry()), art
}

func artifactCount(t *testing.T, art *artifacts.Writer) int {
	t.Helper()
	entries, err := os.ReadDir(art.Dir())
	require.NoError(t, err)
	return len(entries)
}

func TestIsAuthenticated(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"feed", "https://www.linkedin.com/feed/", true},
		{"my network", "https://www.linkedin.com/mynetwork/grow/", true},
		{"messaging", "https://www.linkedin.com/messaging/thread/1/", true},
		{"login page", "https://www.linkedin.com/login", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := &browsertest.ScriptedDriver{URL: tt.url}
			a, _ := newAuthenticator(t, drv, &recordingPrompter{})
			assert.Equal(t, tt.want, a.IsAuthenticated(context.Background()))
		})
	}
}

func TestLogin_Success(t *testing.T) {
	drv := &browsertest.ScriptedDriver{
		CurrentURLFunc: func() (string, error) { return "https://www.linkedin.com/feed/", nil },
	}
	prompter := &recordingPrompter{}
	a, _ := newAuthenticator(t, drv, prompter)

	require.NoError(t, a.Login(context.Background(), testCreds()))

	assert.Equal(t, []string{loginURL}, drv.CallsTo("Navigate"))
	// One keystroke per character, plus the submit key
	keystrokes := drv.CallsTo("SendKeys")
	assert.Len(t, keystrokes, len("user@example.com")+len("pw")+1)
	assert.Zero(t, prompter.calls)
}

func TestLogin_ConfirmedOnAnyAuthenticatedPage(t *testing.T) {
	// Login confirmation accepts the same URL fragments as IsAuthenticated,
	// so a session landing on messaging is not reported as a failed login.
	for _, url := range []string{
		"https://www.linkedin.com/feed/",
		"https://www.linkedin.com/mynetwork/grow/",
		"https://www.linkedin.com/messaging/thread/1/",
	} {
		drv := &browsertest.ScriptedDriver{
			CurrentURLFunc: func() (string, error) { return url, nil },
		}
		a, _ := newAuthenticator(t, drv, &recordingPrompter{})
		assert.NoError(t, a.Login(context.Background(), testCreds()), "landing URL %s", url)
	}
}

func TestLogin_MissingCredentials(t *testing.T) {
	drv := &browsertest.ScriptedDriver{}
	a, _ := newAuthenticator(t, drv, &recordingPrompter{})

	err := a.Login(context.Background(), config.Credentials{})
	assert.ErrorIs(t, err, utils.ErrMissingSecret)
	assert.Empty(t, drv.CallsTo("Navigate"))
}

func TestLogin_PageLoadTimeout(t *testing.T) {
	drv := &browsertest.ScriptedDriver{
		Source:          "<html><body>blank</body></html>",
		WaitVisibleFunc: func(sel string, timeout time.Duration) error { return assert.AnError },
	}
	a, art := newAuthenticator(t, drv, &recordingPrompter{})

	err := a.Login(context.Background(), testCreds())
	assert.ErrorIs(t, err, utils.ErrLoginPageLoad)
	assert.Positive(t, artifactCount(t, art))
}

func TestLogin_ChallengeHandedToHuman(t *testing.T) {
	urls := []string{
		"https://www.linkedin.com/checkpoint/challenge/xyz",
		"https://www.linkedin.com/feed/",
	}
	calls := 0
	drv := &browsertest.ScriptedDriver{
		CurrentURLFunc: func() (string, error) {
			url := urls[min(calls, len(urls)-1)]
			calls++
			return url, nil
		},
	}
	prompter := &recordingPrompter{}
	a, _ := newAuthenticator(t, drv, prompter)

	require.NoError(t, a.Login(context.Background(), testCreds()))
	assert.Equal(t, 1, prompter.calls)
	assert.Contains(t, prompter.url, "checkpoint")
}

func TestLogin_UnconfirmedFails(t *testing.T) {
	drv := &browsertest.ScriptedDriver{
		Source:         "<html><body>unexpected</body></html>",
		CurrentURLFunc: func() (string, error) { return "https://www.linkedin.com/uas/login-submit", nil },
	}
	a, art := newAuthenticator(t, drv, &recordingPrompter{})

	err := a.Login(context.Background(), testCreds())
	assert.ErrorIs(t, err, utils.ErrLoginFailed)
	assert.Positive(t, artifactCount(t, art))
}

func TestEnsureAuthenticated_SkipsLoginWhenLive(t *testing.T) {
	drv := &browsertest.ScriptedDriver{URL: "https://www.linkedin.com/feed/"}
	a, _ := newAuthenticator(t, drv, &recordingPrompter{})

	require.NoError(t, a.EnsureAuthenticated(context.Background(), testCreds()))
	assert.Empty(t, drv.CallsTo("Navigate"))
}

func TestLogin_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	drv := &browsertest.ScriptedDriver{}
	a, _ := newAuthenticator(t, drv, &recordingPrompter{})
	err := a.Login(ctx, testCreds())
	assert.ErrorIs(t, err, context.Canceled)
}
