package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/sfrecord/pkg/cli/internal/flags"
	"github.com/getmockd/sfrecord/pkg/cli/internal/ports"
	"github.com/getmockd/sfrecord/pkg/cliconfig"
	"github.com/getmockd/sfrecord/pkg/forcemock"
)

var (
	mockHost       string
	mockPort       int
	mockConfigFile string
	mockSeeds      flags.StringSlice
	mockBatchSize  int
	mockSigningKey string
	mockUsername   string
)

// mockOutput is the JSON startup line of the mock command.
type mockOutput struct {
	InstanceURL string         `json:"instanceUrl"`
	AccessToken string         `json:"accessToken"`
	APIVersion  string         `json:"apiVersion"`
	Records     map[string]int `json:"records"`
}

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Run a local mock of the REST API",
	Long: `Run an in-memory mock of the REST API and OAuth endpoints.

Objects, OAuth clients and records come from --config and --seed files (YAML
or JSON). Without objects the default set is used: Account, Contact,
BillOfMaterials__c and LineItem__c. Seed patterns may use ** to match
directories recursively.

On startup an access token is issued and printed as shell exports that point
other sfrecord commands at the mock. The mock runs until interrupted.`,
	Example: `  sfrecord mock
  sfrecord mock --port 8080 --seed 'fixtures/**/*.yaml'
  sfrecord mock --config mock.yaml --batch-size 200`,
	RunE: runMock,
}

func init() {
	f := mockCmd.Flags()
	f.StringVar(&mockHost, "host", "127.0.0.1", "Address to listen on")
	f.IntVarP(&mockPort, "port", "p", 1718, "Port to listen on")
	f.StringVarP(&mockConfigFile, "config", "c", "", "Mock configuration file")
	f.Var(&mockSeeds, "seed", "Seed file glob (repeatable)")
	f.IntVar(&mockBatchSize, "batch-size", 0, "Query page size (default: 2000)")
	f.StringVar(&mockSigningKey, "signing-key", "", "Token signing key, so tokens survive restarts")
	f.StringVar(&mockUsername, "username", "admin@example.com", "User the startup token is issued for")
	rootCmd.AddCommand(mockCmd)
}

func runMock(cmd *cobra.Command, _ []string) error {
	mockCfg, err := loadMockConfig()
	if err != nil {
		return err
	}
	if mockBatchSize != 0 {
		mockCfg.BatchSize = mockBatchSize
	}

	if err := ports.Check(mockHost, mockPort); err != nil {
		return err
	}

	addr := net.JoinHostPort(mockHost, strconv.Itoa(mockPort))
	if mockCfg.InstanceURL == "" {
		mockCfg.InstanceURL = "http://" + addr
	}

	srv, err := forcemock.NewServer(mockCfg,
		forcemock.WithLogger(logger),
		forcemock.WithSigningKey([]byte(mockSigningKey)),
	)
	if err != nil {
		return err
	}
	token, err := srv.IssueToken(mockUsername)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	apiVersion := mockCfg.APIVersion
	if apiVersion == "" {
		apiVersion = forcemock.DefaultAPIVersion
	}
	counts := make(map[string]int)
	for _, t := range srv.Store().Types() {
		counts[t] = srv.Store().Count(t)
	}

	w := cmd.OutOrStdout()
	out := mockOutput{InstanceURL: mockCfg.InstanceURL, AccessToken: token, APIVersion: apiVersion, Records: counts}
	if err := printResult(w, out, func() {
		fmt.Fprintf(w, "export %s=%s\n", cliconfig.EnvInstanceURL, out.InstanceURL)
		fmt.Fprintf(w, "export %s=%s\n", cliconfig.EnvAccessToken, out.AccessToken)
		fmt.Fprintf(w, "export %s=%s\n", cliconfig.EnvAPIVersion, out.APIVersion)
	}); err != nil {
		_ = ln.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serveMock(ctx, ln, srv.Handler())
}

// loadMockConfig merges the --config file and every --seed pattern in the
// order given.
func loadMockConfig() (forcemock.Config, error) {
	var merged forcemock.Config
	if mockConfigFile != "" {
		c, err := forcemock.LoadSeedFile(mockConfigFile)
		if err != nil {
			return forcemock.Config{}, err
		}
		merged.Merge(c)
	}
	for _, pattern := range mockSeeds {
		c, err := forcemock.LoadSeedFiles(pattern)
		if err != nil {
			return forcemock.Config{}, err
		}
		merged.Merge(c)
	}
	return merged, nil
}

// serveMock serves handler on ln until ctx is cancelled, then shuts down.
func serveMock(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down mock")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
