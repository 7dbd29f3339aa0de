package gdrive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"

	"github.com/Ning0612/Dropzone/internal/testutil"
)

func TestAuthenticator_ReadOnlyScope(t *testing.T) {
	auth := NewAuthenticator("id", "secret", "/tmp/token.json")

	scopes := auth.Config().Scopes
	if len(scopes) != 1 || scopes[0] != drive.DriveReadonlyScope {
		t.Errorf("expected read-only scope, got %v", scopes)
	}
	if auth.TokenPath() != "/tmp/token.json" {
		t.Errorf("unexpected token path %q", auth.TokenPath())
	}
}

func TestAuthenticator_DefaultTokenPath(t *testing.T) {
	auth := NewAuthenticator("id", "secret", "")

	if !strings.HasSuffix(auth.TokenPath(), DefaultTokenFile) {
		t.Errorf("unexpected default token path %q", auth.TokenPath())
	}
}

func TestAuthenticator_TokenRoundTrip(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	path := filepath.Join(dir, "nested", "token.json")
	auth := NewAuthenticator("id", "secret", path)

	want := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Round(time.Second),
	}
	if err := auth.saveToken(want); err != nil {
		t.Fatalf("saveToken() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0077 != 0 {
		t.Errorf("token file is readable by others: %v", info.Mode().Perm())
	}

	got, err := auth.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if got.AccessToken != want.AccessToken || !got.Expiry.Equal(want.Expiry) {
		t.Errorf("Token() = %+v, want %+v", got, want)
	}
}

func TestAuthenticator_NoToken(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	auth := NewAuthenticator("id", "secret", filepath.Join(dir, "missing.json"))

	if _, err := auth.Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("Token() error = %v, want ErrNoToken", err)
	}
}

func TestAuthenticator_EmptyCode(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	auth := NewAuthenticator("id", "secret", filepath.Join(dir, "token.json"))
	var out strings.Builder

	_, err := auth.Authenticate(context.Background(), strings.NewReader("\n"), &out)
	if err == nil {
		t.Fatal("expected error for empty code")
	}
	if !strings.Contains(out.String(), "accounts.google.com") {
		t.Errorf("expected consent URL in output, got %q", out.String())
	}
}
