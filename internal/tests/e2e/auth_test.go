//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"github.com/ezasdf/users-api/config"
	"github.com/ezasdf/users-api/internal/db"
	"github.com/ezasdf/users-api/internal/server"
)

const (
	serverPort = 18080
)

var baseURL = fmt.Sprintf("http://localhost:%d", serverPort)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	setTestEnv()
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := db.MigrateUp(cfg.Database.DSN()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := server.New(ctx, cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}
	go func() {
		_ = srv.Start()
	}()

	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown(context.Background())
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown(context.Background())
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func TestAccountLifecycle(t *testing.T) {
	suffix := time.Now().UnixNano()
	username := fmt.Sprintf("user_%d", suffix)
	email := fmt.Sprintf("%s@example.com", username)
	password := "greaterthaneight"

	code, env := call(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": username, "email": email, "password": password,
	})
	if code != http.StatusCreated || env.Message != email+" signed up." {
		t.Fatalf("signup: %d %q", code, env.Message)
	}

	code, env = call(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": username, "email": "other-" + email, "password": password,
	})
	if code != http.StatusBadRequest || env.Message != "User already exists." {
		t.Fatalf("duplicate signup: %d %q", code, env.Message)
	}

	code, env = call(t, http.MethodPost, "/auth/signin", "", map[string]string{
		"username": username, "password": password,
	})
	if code != http.StatusOK {
		t.Fatalf("signin: %d %q", code, env.Message)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("signin token missing: %s", env.Data)
	}

	code, env = call(t, http.MethodGet, "/auth/profile", data.Token, nil)
	if code != http.StatusOK || env.Message != fmt.Sprintf("Fetched %s's profile data.", email) {
		t.Fatalf("profile: %d %q", code, env.Message)
	}

	code, env = call(t, http.MethodGet, "/users", "", nil)
	if code != http.StatusOK || env.Message != "Users fetched." {
		t.Fatalf("list: %d %q", code, env.Message)
	}

	if err := setActive(email, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	code, env = call(t, http.MethodGet, "/auth/profile", data.Token, nil)
	if code != http.StatusUnauthorized || env.Message != "Something went wrong. Please contact us." {
		t.Fatalf("profile after deactivation: %d %q", code, env.Message)
	}
}

func TestTokenExpires(t *testing.T) {
	username := fmt.Sprintf("expiring_%d", time.Now().UnixNano())
	code, env := call(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": username, "email": username + "@example.com", "password": "greaterthaneight",
	})
	if code != http.StatusCreated {
		t.Fatalf("signup: %d %q", code, env.Message)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode token: %v", err)
	}

	// The testing profile issues tokens that live for three seconds.
	time.Sleep(4 * time.Second)

	code, env = call(t, http.MethodGet, "/auth/profile", data.Token, nil)
	if code != http.StatusUnauthorized || env.Message != "Signature expired. Please sign in again." {
		t.Fatalf("expired profile: %d %q", code, env.Message)
	}
}

func call(t *testing.T, method, path, token string, payload any) (int, envelope) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req, err := http.NewRequest(method, baseURL+path, &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func setActive(email string, active bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	conn, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = conn.ExecContext(ctx, "UPDATE users SET active = $1 WHERE email = $2", active, email)
	return err
}

func setTestEnv() {
	_ = os.Setenv("APP_ENV", config.EnvTesting)
	_ = os.Setenv("SECRET_KEY", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "users")
	_ = os.Setenv("DB_PASSWORD", "users")
	_ = os.Setenv("DB_NAME", "users_test")
	_ = os.Setenv("DB_SSL", "false")
}

func waitForPostgres(ctx context.Context, cfg config.Config) error {
	conn, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
