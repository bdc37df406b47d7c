package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/getmockd/sfrecord/pkg/cli/internal/output"
	"github.com/getmockd/sfrecord/pkg/cliconfig"
	"github.com/getmockd/sfrecord/pkg/session"
)

var (
	loginURL          string
	loginClientID     string
	loginClientSecret string
	loginRedirectURL  string
	loginJWTKey       string
	loginUsername     string
	loginWait         time.Duration
)

// loginOutput is the JSON output of login.
type loginOutput struct {
	AccessToken  string `json:"accessToken"`
	InstanceURL  string `json:"instanceUrl"`
	APIVersion   string `json:"apiVersion"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain an access token",
	Long: `Obtain an access token from the login host.

Without --jwt-key the web server flow is used: a local listener is started on
the redirect URL's host and port, and the command prints a /login address to
open in a browser. With --jwt-key and --username a signed JWT bearer assertion
is exchanged directly.

On success the session is printed as shell exports:

  eval "$(sfrecord login --client-id $CLIENT_ID)"`,
	Example: `  sfrecord login --client-id 3MVG9... --client-secret s3cr3t
  sfrecord login --client-id 3MVG9... --jwt-key server.key --username ci@example.com
  sfrecord login --login-url https://test.salesforce.com --client-id 3MVG9...`,
	RunE: runLogin,
}

func init() {
	f := loginCmd.Flags()
	f.StringVar(&loginURL, "login-url", "", "Login host (default: "+cliconfig.DefaultLoginURL+")")
	f.StringVar(&loginClientID, "client-id", "", "Connected app consumer key")
	f.StringVar(&loginClientSecret, "client-secret", "", "Connected app consumer secret")
	f.StringVar(&loginRedirectURL, "redirect-url", "", "Callback URL (default: "+cliconfig.DefaultRedirectURL+")")
	f.StringVar(&loginJWTKey, "jwt-key", "", "PEM private key for the JWT bearer flow")
	f.StringVar(&loginUsername, "username", "", "User to log in as with --jwt-key")
	f.DurationVar(&loginWait, "wait", 5*time.Minute, "How long to wait for the browser callback")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	applyLoginFlags(cmd)

	if cfg.ClientID == "" && isatty.IsTerminal(os.Stdin.Fd()) {
		if err := promptClientID(); err != nil {
			return err
		}
	}
	if cfg.ClientID == "" {
		return errUsage(cmd, "login requires --client-id or $"+cliconfig.EnvClientID)
	}

	oauth := &session.OAuthConfig{
		LoginURL:     cfg.LoginURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		HTTPClient:   &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}

	var (
		sess session.Session
		err  error
	)
	if loginJWTKey != "" {
		sess, err = loginJWT(cmd.Context(), oauth)
	} else {
		sess, err = loginWeb(cmd, oauth)
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	out := loginOutput{
		AccessToken:  sess.AccessToken,
		InstanceURL:  sess.InstanceURL,
		APIVersion:   sess.APIVersion,
		RefreshToken: sess.RefreshToken,
	}
	return printResult(w, out, func() {
		fmt.Fprintf(w, "export %s=%s\n", cliconfig.EnvAccessToken, sess.AccessToken)
		fmt.Fprintf(w, "export %s=%s\n", cliconfig.EnvInstanceURL, sess.InstanceURL)
	})
}

// applyLoginFlags layers the login flags over the effective configuration.
func applyLoginFlags(cmd *cobra.Command) {
	flags := &cliconfig.CLIConfig{SetFields: make(map[string]bool)}
	changed := cmd.Flags().Changed
	if changed("login-url") {
		flags.LoginURL = loginURL
	}
	if changed("client-id") {
		flags.ClientID = loginClientID
	}
	if changed("client-secret") {
		flags.ClientSecret = loginClientSecret
	}
	if changed("redirect-url") {
		flags.RedirectURL = loginRedirectURL
	}
	cliconfig.MergeConfig(cfg, flags, cliconfig.SourceFlag)
}

func promptClientID() error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Consumer key").
				Placeholder("3MVG9...").
				Value(&cfg.ClientID).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("consumer key is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Consumer secret").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.ClientSecret),
		),
	)
	return form.Run()
}

func loginJWT(ctx context.Context, oauth *session.OAuthConfig) (session.Session, error) {
	if loginUsername == "" {
		return session.Session{}, errors.New("--username is required with --jwt-key")
	}
	pem, err := os.ReadFile(loginJWTKey)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to read key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pem)
	if err != nil {
		return session.Session{}, fmt.Errorf("invalid key %s: %w", loginJWTKey, err)
	}

	tok, err := oauth.JWTBearer(ctx, loginUsername, key)
	if err != nil {
		return session.Session{}, err
	}
	logger.Info("logged in", "flow", "jwt-bearer", "instanceUrl", tok.InstanceURL)
	return tok.Session(cfg.APIVersion), nil
}

// loginWeb serves the callback handler on the redirect URL's address and
// waits for the browser to complete the flow.
func loginWeb(cmd *cobra.Command, oauth *session.OAuthConfig) (session.Session, error) {
	redirect, err := url.Parse(oauth.RedirectURL)
	if err != nil || redirect.Host == "" {
		return session.Session{}, fmt.Errorf("invalid redirect URL %q", oauth.RedirectURL)
	}
	if redirect.Path != "/callback" {
		return session.Session{}, fmt.Errorf("redirect URL path must be /callback, got %q", redirect.Path)
	}

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	done := make(chan session.Session, 1)
	handler := session.NewCallbackHandler(oauth, session.NewStore(), cfg.APIVersion, logger)
	handler.OnSession = func(s session.Session) {
		select {
		case done <- s:
		default:
		}
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if oauth.ClientSecret == "" {
		output.Warn(cmd.ErrOrStderr(), "no client secret set; the login host may reject the code exchange")
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Open %s://%s/login in your browser to log in\n", redirect.Scheme, redirect.Host)

	ctx, cancel := context.WithTimeout(cmd.Context(), loginWait)
	defer cancel()
	select {
	case s := <-done:
		return s, nil
	case <-ctx.Done():
		return session.Session{}, fmt.Errorf("login not completed: %w", ctx.Err())
	}
}
