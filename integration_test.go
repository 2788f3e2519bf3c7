//go:build integration

package voicetranslate_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	voicetranslate "github.com/voicetranslate/voicetranslate-go"
)

// These tests run against a live server. Set VT_BASE_URL_TEST plus
// VT_USERNAME_TEST and VT_PASSWORD_TEST for a throwaway account, then:
//
//	go test -tags integration ./...

// helpers ---------------------------------------------------------------

func testBaseURL(t *testing.T) string {
	t.Helper()
	base := os.Getenv("VT_BASE_URL_TEST")
	if base == "" {
		t.Fatal("VT_BASE_URL_TEST environment variable is required")
	}
	return base
}

func credentials(t *testing.T) (string, string) {
	t.Helper()
	user := os.Getenv("VT_USERNAME_TEST")
	pass := os.Getenv("VT_PASSWORD_TEST")
	if user == "" || pass == "" {
		t.Fatal("VT_USERNAME_TEST and VT_PASSWORD_TEST environment variables are required")
	}
	return user, pass
}

func loggedInClient(t *testing.T) *voicetranslate.Client {
	t.Helper()
	client := voicetranslate.NewClient("", voicetranslate.WithBaseURL(testBaseURL(t)))
	user, pass := credentials(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err := client.Login(ctx, user, pass)
	require.NoError(t, err, "login")
	return client
}

// =======================================================================
// REST surface
// =======================================================================

func TestIntegrationLoginAndMe(t *testing.T) {
	client := loggedInClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	me, err := client.Me(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, me.ID)
	require.NotEmpty(t, me.Username)
}

func TestIntegrationListChatsAndFriends(t *testing.T) {
	client := loggedInClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := client.ListChats(ctx)
	require.NoError(t, err)

	_, err = client.ListFriends(ctx)
	require.NoError(t, err)
}

func TestIntegrationRefreshToken(t *testing.T) {
	client := loggedInClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	auth, err := client.RefreshToken(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, auth.Token)
	require.Equal(t, auth.Token, client.Token(), "refresh must adopt the new token")
}

// =======================================================================
// Realtime session
// =======================================================================

func TestIntegrationSessionConnect(t *testing.T) {
	client := loggedInClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session := voicetranslate.NewSession(client, nil)
	connected := make(chan struct{})
	session.OnConnected(func() {
		select {
		case connected <- struct{}{}:
		default:
		}
	})

	require.NoError(t, session.Sync(ctx))
	session.Connect(ctx)
	defer session.Disconnect()

	select {
	case <-connected:
	case <-ctx.Done():
		t.Fatal("session did not connect before the deadline")
	}
	require.Equal(t, voicetranslate.StateConnected, session.State())
}
