package auth

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/justsurfingit/job-tracker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func writeCredentials(t *testing.T, dir, tokenURL string) string {
	t.Helper()
	path := filepath.Join(dir, "credentials.json")
	content := fmt.Sprintf(`{"installed": {
		"client_id": "client-id.apps.googleusercontent.com",
		"client_secret": "secret",
		"auth_uri": "https://accounts.google.com/o/oauth2/auth",
		"token_uri": %q,
		"redirect_uris": ["http://localhost"]
	}}`, tokenURL)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, saveToken(path, &oauth2.Token{AccessToken: "abc", RefreshToken: "def", TokenType: "Bearer"}))

	tok, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.Equal(t, "def", tok.RefreshToken)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNewGmailServiceWithoutToken(t *testing.T) {
	dir := t.TempDir()
	cfg := config.GmailConfig{
		CredentialsFile: writeCredentials(t, dir, "https://oauth2.googleapis.com/token"),
		TokenFile:       filepath.Join(dir, "token.json"),
	}

	_, err := NewGmailService(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestNewGmailServiceWithToken(t *testing.T) {
	dir := t.TempDir()
	cfg := config.GmailConfig{
		CredentialsFile: writeCredentials(t, dir, "https://oauth2.googleapis.com/token"),
		TokenFile:       filepath.Join(dir, "token.json"),
	}
	require.NoError(t, saveToken(cfg.TokenFile, &oauth2.Token{AccessToken: "abc", TokenType: "Bearer"}))

	svc, err := NewGmailService(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, svc.Users)
}

func TestNewGmailServiceMissingCredentials(t *testing.T) {
	_, err := NewGmailService(context.Background(), config.GmailConfig{CredentialsFile: filepath.Join(t.TempDir(), "missing.json")})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoToken)
}

func TestAuthorize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fresh","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := config.GmailConfig{
		CredentialsFile: writeCredentials(t, dir, srv.URL),
		TokenFile:       filepath.Join(dir, "token.json"),
	}

	var out bytes.Buffer
	require.NoError(t, Authorize(context.Background(), cfg, strings.NewReader("the-code\n"), &out))
	assert.Contains(t, out.String(), "access_type=offline")

	tok, err := tokenFromFile(cfg.TokenFile)
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Equal(t, "refresh", tok.RefreshToken)
}
