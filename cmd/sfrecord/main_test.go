package main

import (
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/getmockd/sfrecord/pkg/cli"
	"github.com/getmockd/sfrecord/pkg/forcemock"
)

// TestMain acts as the main entrypoint. Testscript requires its own Main wrapper.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"sfrecord": cli.Execute,
	}))
}

func TestCLI(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		// Each script gets its own mock backend with the default objects.
		Setup: func(env *testscript.Env) error {
			srv, err := forcemock.NewServer(forcemock.Config{})
			if err != nil {
				return err
			}
			ts := httptest.NewServer(srv.Handler())
			env.Defer(ts.Close)

			token, err := srv.IssueToken("cli@example.com")
			if err != nil {
				return err
			}
			env.Setenv("MOCK_URL", ts.URL)
			env.Setenv("SFRECORD_INSTANCE_URL", ts.URL)
			env.Setenv("SFRECORD_ACCESS_TOKEN", token)
			return nil
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"capture": captureStdout,
		},
	})
}

// captureStdout stores the trimmed stdout of the previous command in an
// environment variable: capture NAME
func captureStdout(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("unsupported: ! capture")
	}
	if len(args) != 1 {
		ts.Fatalf("usage: capture NAME")
	}
	ts.Setenv(args[0], strings.TrimSpace(ts.ReadFile("stdout")))
}
