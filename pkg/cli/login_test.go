package cli

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/sfrecord/pkg/cliconfig"
	"github.com/getmockd/sfrecord/pkg/forcemock"
	"github.com/getmockd/sfrecord/pkg/session"
)

// withConfig installs a default configuration for the duration of the test.
func withConfig(t *testing.T) {
	t.Helper()
	old := cfg
	cfg = cliconfig.NewDefault()
	t.Cleanup(func() { cfg = old })
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to get port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func newMockLogin(t *testing.T, clients ...forcemock.ClientConfig) (*httptest.Server, *session.OAuthConfig) {
	t.Helper()
	srv, err := forcemock.NewServer(forcemock.Config{Clients: clients})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, &session.OAuthConfig{LoginURL: ts.URL, ClientID: "cli-app", HTTPClient: ts.Client()}
}

func TestLoginWeb(t *testing.T) {
	withConfig(t)
	ts, oauth := newMockLogin(t)
	oauth.RedirectURL = "http://127.0.0.1:" + strconv.Itoa(freePort(t)) + "/callback"

	var stderr bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetErr(&stderr)
	cmd.SetContext(context.Background())

	type result struct {
		sess session.Session
		err  error
	}
	done := make(chan result, 1)
	go func() {
		s, err := loginWeb(cmd, oauth)
		done <- result{s, err}
	}()

	// Play the browser: /login redirects to the authorize page, which
	// approves and redirects back to the callback.
	loginPage := strings.TrimSuffix(oauth.RedirectURL, "/callback") + "/login"
	var resp *http.Response
	var err error
	for range 50 {
		resp, err = http.Get(loginPage)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /login error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("callback status = %d, want 200", resp.StatusCode)
	}

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("loginWeb() error = %v", r.err)
		}
		if r.sess.InstanceURL != ts.URL || r.sess.AccessToken == "" {
			t.Errorf("session = %+v", r.sess)
		}
		if r.sess.APIVersion != cliconfig.DefaultAPIVersion {
			t.Errorf("APIVersion = %q", r.sess.APIVersion)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("loginWeb() did not return")
	}

	if !strings.Contains(stderr.String(), loginPage) {
		t.Errorf("stderr = %q, want the login address", stderr.String())
	}
}

func TestLoginWeb_Timeout(t *testing.T) {
	withConfig(t)
	_, oauth := newMockLogin(t)
	oauth.RedirectURL = "http://127.0.0.1:" + strconv.Itoa(freePort(t)) + "/callback"

	old := loginWait
	loginWait = 50 * time.Millisecond
	t.Cleanup(func() { loginWait = old })

	cmd := &cobra.Command{}
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetContext(context.Background())

	_, err := loginWeb(cmd, oauth)
	if err == nil || !strings.Contains(err.Error(), "login not completed") {
		t.Errorf("loginWeb() error = %v, want timeout", err)
	}
}

func TestLoginWeb_BadRedirect(t *testing.T) {
	withConfig(t)
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	for _, redirect := range []string{"not a url", "http://127.0.0.1:1717/oauth"} {
		oauth := &session.OAuthConfig{ClientID: "cli-app", RedirectURL: redirect}
		if _, err := loginWeb(cmd, oauth); err == nil {
			t.Errorf("loginWeb(%q) error = nil, want error", redirect)
		}
	}
}

func TestLoginJWT(t *testing.T) {
	withConfig(t)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	keyFile := filepath.Join(t.TempDir(), "server.key")
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(keyFile, privPEM, 0o600); err != nil {
		t.Fatal(err)
	}

	ts, oauth := newMockLogin(t, forcemock.ClientConfig{
		ClientID:  "cli-app",
		Username:  "ci@example.com",
		PublicKey: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})),
	})

	oldKey, oldUser := loginJWTKey, loginUsername
	t.Cleanup(func() { loginJWTKey, loginUsername = oldKey, oldUser })
	loginJWTKey = keyFile

	loginUsername = ""
	if _, err := loginJWT(context.Background(), oauth); err == nil {
		t.Error("loginJWT() without username error = nil")
	}

	loginUsername = "someone-else@example.com"
	if _, err := loginJWT(context.Background(), oauth); err == nil {
		t.Error("loginJWT() for an unapproved user error = nil")
	}

	loginUsername = "ci@example.com"
	sess, err := loginJWT(context.Background(), oauth)
	if err != nil {
		t.Fatalf("loginJWT() error = %v", err)
	}
	if sess.InstanceURL != ts.URL || sess.AccessToken == "" {
		t.Errorf("session = %+v", sess)
	}
}

func TestLoginJWT_BadKey(t *testing.T) {
	withConfig(t)
	keyFile := filepath.Join(t.TempDir(), "server.key")
	if err := os.WriteFile(keyFile, []byte("not a key"), 0o600); err != nil {
		t.Fatal(err)
	}

	oldKey, oldUser := loginJWTKey, loginUsername
	t.Cleanup(func() { loginJWTKey, loginUsername = oldKey, oldUser })
	loginJWTKey, loginUsername = keyFile, "ci@example.com"

	_, err := loginJWT(context.Background(), &session.OAuthConfig{ClientID: "cli-app"})
	if err == nil || !strings.Contains(err.Error(), "invalid key") {
		t.Errorf("loginJWT() error = %v, want invalid key", err)
	}
}
