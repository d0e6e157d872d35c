package cli

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/app"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/auth"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/domain"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/infra/memory"
	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/sessionapi"
	transport "github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "cli-test-secret"

func startStub(t *testing.T) string {
	t.Helper()
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(sampleBanks()), time.Minute)
	service := app.NewSessionService(memory.NewSessionStore(), banks, nil)
	server := httptest.NewServer(transport.NewRouter(service, auth.NewIssuer(testSecret), zap.NewNop()))
	t.Cleanup(server.Close)
	return server.URL
}

func mint(t *testing.T, p domain.Profile) string {
	t.Helper()
	token, err := auth.NewIssuer(testSecret).Mint(p, time.Hour)
	require.NoError(t, err)
	return token
}

func writeConfig(t *testing.T, baseURL, token string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "api:\n  base_url: " + baseURL + "\n  token: " + token + "\n" +
		"lobby:\n  poll_interval: 10ms\n" +
		"server:\n  jwt_secret: " + testSecret + "\n" +
		"log:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, in io.Reader, out io.Writer, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return cmd.ExecuteContext(ctx)
}

func TestTokenCommand(t *testing.T) {
	path := writeConfig(t, "http://unused", "")
	var out bytes.Buffer
	require.NoError(t, run(t, nil, &out, "token", "--config", path, "--sub", "u1", "--role", "TEACHER"))

	claims, err := auth.NewIssuer(testSecret).Verify(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, domain.RoleTeacher, claims.Role)
	assert.True(t, claims.Registered)

	assert.Error(t, run(t, nil, io.Discard, "token", "--config", path))
}

func TestJoinCommandRedirects(t *testing.T) {
	baseURL := startStub(t)
	host := sessionapi.New(baseURL, sessionapi.WithToken(mint(t, domain.Profile{ID: "t1", Role: domain.RoleTeacher, Registered: true})))
	desc, err := host.CreateSession(context.Background(), "b-1")
	require.NoError(t, err)

	path := writeConfig(t, baseURL, mint(t, domain.Profile{ID: "s1", Registered: true}))

	// a bad code is reported, the next line joins
	in := strings.NewReader("000000\n" + desc.Pin + "\n")
	var out bytes.Buffer
	require.NoError(t, run(t, in, &out, "join", "--config", path))
	assert.Contains(t, out.String(), "could not join (not found)")
	assert.Contains(t, out.String(), "redirect: /quiz/waiting-room/"+desc.ID)

	snap, err := host.GetSessionStatus(context.Background(), desc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.StudentCount)
}

func TestJoinCommandGate(t *testing.T) {
	baseURL := startStub(t)

	var out bytes.Buffer
	err := run(t, nil, &out, "join", "--config", writeConfig(t, baseURL, ""), "--code", "123456")
	require.Error(t, err)
	assert.Contains(t, out.String(), "redirect: /\n")

	out.Reset()
	unregistered := mint(t, domain.Profile{ID: "s1", Registered: false})
	err = run(t, nil, &out, "join", "--config", writeConfig(t, baseURL, unregistered), "--code", "123456")
	require.Error(t, err)
	assert.Contains(t, out.String(), "redirect: /profile/complete")
}

// syncBuffer lets the test read output while the command is still writing it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestHostCommandAutoStarts(t *testing.T) {
	baseURL := startStub(t)
	path := writeConfig(t, baseURL, mint(t, domain.Profile{ID: "t1", Role: domain.RoleTeacher, Registered: true}))

	stdin, stdinW := io.Pipe()
	defer stdinW.Close()
	out := &syncBuffer{}
	errc := make(chan error, 1)
	go func() { errc <- run(t, stdin, out, "host", "--config", path, "--bank", "b-1", "--auto-start") }()

	pinRe := regexp.MustCompile(`PIN (\d{6})`)
	var pin string
	require.Eventually(t, func() bool {
		m := pinRe.FindStringSubmatch(out.String())
		if m == nil {
			return false
		}
		pin = m[1]
		return true
	}, 5*time.Second, 10*time.Millisecond)

	student := sessionapi.New(baseURL, sessionapi.WithToken(mint(t, domain.Profile{ID: "s1", Registered: true})))
	_, err := student.JoinSession(context.Background(), pin)
	require.NoError(t, err)

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("host command did not finish")
	}
	assert.Contains(t, out.String(), "1 Students Joined")
	assert.Contains(t, out.String(), "session is live")
}
