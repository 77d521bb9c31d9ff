//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// serviceProcess manages a running `notesync serve` process.
type serviceProcess struct {
	cmd     *exec.Cmd
	dataDir string
	address string
	apiKey  string
	logFile string
}

// startServe launches the note service and waits for it to become healthy.
// It is configured entirely via environment variables.
func startServe(t *testing.T) *serviceProcess {
	t.Helper()
	requireNotesync(t)

	dataDir := t.TempDir()
	port := freePort(t)
	s := &serviceProcess{
		dataDir: dataDir,
		address: fmt.Sprintf("127.0.0.1:%d", port),
		apiKey:  "e2e-service-key",
		logFile: filepath.Join(dataDir, "serve.log"),
	}

	cmd := exec.Command(notesyncBin, "serve")
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("NOTESYNC_PORT=%d", port),
		"NOTESYNC_SERVER_DB_PATH="+filepath.Join(dataDir, "service.db"),
		"NOTESYNC_SERVER_API_KEY="+s.apiKey,
		"NOTESYNC_CONFIG_PATH="+filepath.Join(dataDir, "nonexistent.yaml"),
		"NOTESYNC_ENV_FILE="+filepath.Join(dataDir, "nonexistent.env"),
	)

	lf, err := os.Create(s.logFile)
	if err != nil {
		t.Fatalf("create log file: %v", err)
	}
	cmd.Stdout = lf
	cmd.Stderr = lf

	if err := cmd.Start(); err != nil {
		lf.Close()
		t.Fatalf("start notesync serve: %v", err)
	}
	s.cmd = cmd

	t.Cleanup(func() {
		s.stop()
		lf.Close()
	})

	if err := s.waitHealthy(10 * time.Second); err != nil {
		t.Fatalf("service not healthy: %v", err)
	}
	return s
}

func (s *serviceProcess) stop() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Signal(os.Interrupt)
		_ = s.cmd.Wait()
	}
}

func (s *serviceProcess) baseURL() string {
	return "http://" + s.address
}

func (s *serviceProcess) waitHealthy(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	url := s.baseURL() + "/health"

	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("service not healthy after %s", timeout)
}

// clientCLI runs notesync subcommands against one account and database.
type clientCLI struct {
	t       *testing.T
	svc     *serviceProcess
	dataDir string
	account string
}

func newClientCLI(t *testing.T, svc *serviceProcess, account string) *clientCLI {
	return &clientCLI{t: t, svc: svc, dataDir: t.TempDir(), account: account}
}

func (c *clientCLI) run(args ...string) (stdout string, err error) {
	c.t.Helper()
	cmd := exec.Command(notesyncBin, args...)
	cmd.Env = append(os.Environ(),
		"NOTESYNC_DB_PATH="+filepath.Join(c.dataDir, "notesync.db"),
		"NOTESYNC_ACCOUNT_ID="+c.account,
		"NOTESYNC_REMOTE_URL="+c.svc.baseURL(),
		"NOTESYNC_REMOTE_API_KEY="+c.svc.apiKey,
		"NOTESYNC_CONFIG_PATH="+filepath.Join(c.dataDir, "nonexistent.yaml"),
		"NOTESYNC_ENV_FILE="+filepath.Join(c.dataDir, "nonexistent.env"),
		"NOTESYNC_LOG_LEVEL=error",
	)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("notesync %v: %w\nstderr: %s", args, err, errOut.String())
	}
	return out.String(), nil
}

func (c *clientCLI) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatal(err)
	}
	return out
}

func (c *clientCLI) runJSON(v any, args ...string) {
	c.t.Helper()
	out := c.mustRun(append(args, "--json")...)
	if err := json.Unmarshal([]byte(out), v); err != nil {
		c.t.Fatalf("decode %q: %v", out, err)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
