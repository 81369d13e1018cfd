//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/reelhub/apiserver/config"
	"github.com/reelhub/apiserver/internal/server"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestMovieLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	suffix := time.Now().UnixNano()
	password := "testpass123!"

	ownerEmail := fmt.Sprintf("owner_%d@example.com", suffix)
	viewerEmail := fmt.Sprintf("viewer_%d@example.com", suffix)

	ownerToken := registerAndLogin(t, baseURL, fmt.Sprintf("owner_%d", suffix), ownerEmail, password)
	viewerToken := registerAndLogin(t, baseURL, fmt.Sprintf("viewer_%d", suffix), viewerEmail, password)

	// Every catalog route requires a token.
	status, _ := doJSON(t, http.MethodGet, baseURL+"/movies", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}

	movie := createMovie(t, baseURL, ownerToken)
	if movie.ID == 0 {
		t.Fatal("expected movie ID to be set")
	}
	if movie.AvgRating != 0 || movie.TotalRatings != 0 {
		t.Fatalf("fresh movie must have empty aggregates: avg=%v total=%d", movie.AvgRating, movie.TotalRatings)
	}

	// Partial update by the owner leaves unset fields alone.
	status, body := doJSON(t, http.MethodPut, fmt.Sprintf("%s/movies/%d", baseURL, movie.ID), ownerToken,
		map[string]any{"title": "Arrival (Director's Cut)"})
	if status != http.StatusOK {
		t.Fatalf("update status %d: %s", status, body)
	}
	var updated movieResponse
	mustDecode(t, body, &updated)
	if updated.Movie.Title != "Arrival (Director's Cut)" {
		t.Fatalf("title not updated: %q", updated.Movie.Title)
	}
	if updated.Movie.Description != movie.Description {
		t.Fatalf("description must survive a partial update: %q", updated.Movie.Description)
	}

	// Only the creator may update.
	status, _ = doJSON(t, http.MethodPut, fmt.Sprintf("%s/movies/%d", baseURL, movie.ID), viewerToken,
		map[string]any{"title": "Hijacked"})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner update, got %d", status)
	}

	// First rating creates, the second overwrites.
	status, _ = doJSON(t, http.MethodPost, fmt.Sprintf("%s/movies/%d/rate", baseURL, movie.ID), viewerToken,
		map[string]any{"score": 5})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 for first rating, got %d", status)
	}
	status, _ = doJSON(t, http.MethodPost, fmt.Sprintf("%s/movies/%d/rate", baseURL, movie.ID), viewerToken,
		map[string]any{"score": 4})
	if status != http.StatusOK {
		t.Fatalf("expected 200 for overwritten rating, got %d", status)
	}
	status, _ = doJSON(t, http.MethodPost, fmt.Sprintf("%s/movies/%d/rate", baseURL, movie.ID), viewerToken,
		map[string]any{"score": 6})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range score, got %d", status)
	}

	status, _ = doJSON(t, http.MethodPost, fmt.Sprintf("%s/movies/%d/rate", baseURL, movie.ID), ownerToken,
		map[string]any{"score": 5})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 for second user's rating, got %d", status)
	}

	// Two ratings, 4 and 5, round to 4.5.
	listed := getMovie(t, baseURL, ownerToken, movie.ID)
	if listed.TotalRatings != 2 {
		t.Fatalf("expected 2 ratings, got %d", listed.TotalRatings)
	}
	if listed.AvgRating != 4.5 {
		t.Fatalf("expected avg 4.5, got %v", listed.AvgRating)
	}

	// Moderation: a viewer files a report, only an admin resolves it.
	status, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/movies/%d/report", baseURL, movie.ID), viewerToken,
		map[string]any{"reason": "misleading description"})
	if status != http.StatusCreated {
		t.Fatalf("report status %d: %s", status, body)
	}
	var filed reportResponse
	mustDecode(t, body, &filed)
	if filed.Report.Status != "pending" {
		t.Fatalf("new report must be pending, got %q", filed.Report.Status)
	}

	status, _ = doJSON(t, http.MethodGet, baseURL+"/admin/reports", viewerToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin report listing, got %d", status)
	}

	if err := promoteUserToAdmin(ownerEmail); err != nil {
		t.Fatalf("promote user: %v", err)
	}
	// The old token still carries the user role; log in again.
	adminToken := login(t, baseURL, ownerEmail, password)

	status, body = doJSON(t, http.MethodGet, baseURL+"/admin/reports", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("list reports status %d: %s", status, body)
	}
	var reports reportListResponse
	mustDecode(t, body, &reports)
	found := false
	for _, r := range reports.Reports {
		if r.ID == filed.Report.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("filed report %d missing from admin listing", filed.Report.ID)
	}

	status, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/admin/reports/%d/resolve", baseURL, filed.Report.ID), adminToken,
		map[string]any{"action": "approve"})
	if status != http.StatusOK {
		t.Fatalf("resolve status %d: %s", status, body)
	}
	var resolved reportResponse
	mustDecode(t, body, &resolved)
	if resolved.Report.Status != "approved" {
		t.Fatalf("expected approved, got %q", resolved.Report.Status)
	}

	// Resolution is terminal.
	status, _ = doJSON(t, http.MethodPost, fmt.Sprintf("%s/admin/reports/%d/resolve", baseURL, filed.Report.ID), adminToken,
		map[string]any{"action": "reject"})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for a second resolution, got %d", status)
	}

	// Cleanup path: the owner deletes their movie.
	status, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/movies/%d", baseURL, movie.ID), adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 deleting own movie, got %d", status)
	}
	status, _ = doJSON(t, http.MethodGet, fmt.Sprintf("%s/movies/%d", baseURL, movie.ID), viewerToken, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}
}

type movieBody struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	AvgRating    float64 `json:"avg_rating"`
	TotalRatings int     `json:"total_ratings"`
}

type movieResponse struct {
	Movie movieBody `json:"movie"`
}

type reportBody struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
}

type reportResponse struct {
	Report reportBody `json:"report"`
}

type reportListResponse struct {
	Reports []reportBody `json:"reports"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func registerAndLogin(t *testing.T, baseURL, username, email, password string) string {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, baseURL+"/register", "", map[string]any{
		"username": username,
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("register status %d: %s", status, body)
	}
	return login(t, baseURL, email, password)
}

func login(t *testing.T, baseURL, email, password string) string {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, baseURL+"/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login status %d: %s", status, body)
	}
	var parsed loginResponse
	mustDecode(t, body, &parsed)
	if parsed.Token == "" {
		t.Fatal("missing token in login response")
	}
	return parsed.Token
}

func createMovie(t *testing.T, baseURL, token string) movieBody {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, baseURL+"/movies", token, map[string]any{
		"title":       "Arrival",
		"description": "A linguist decodes an alien language.",
		"released_at": "2016-11-11",
		"duration":    116,
		"genre":       "sci-fi",
		"language":    "en",
	})
	if status != http.StatusCreated {
		t.Fatalf("create movie status %d: %s", status, body)
	}
	var parsed movieResponse
	mustDecode(t, body, &parsed)
	return parsed.Movie
}

func getMovie(t *testing.T, baseURL, token string, id int) movieBody {
	t.Helper()

	status, body := doJSON(t, http.MethodGet, fmt.Sprintf("%s/movies/%d", baseURL, id), token, nil)
	if status != http.StatusOK {
		t.Fatalf("get movie status %d: %s", status, body)
	}
	var parsed movieResponse
	mustDecode(t, body, &parsed)
	return parsed.Movie
}

func doJSON(t *testing.T, method, url, token string, payload any) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp.StatusCode, data
}

func mustDecode(t *testing.T, data []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decode %q: %v", strings.TrimSpace(string(data)), err)
	}
}

func promoteUserToAdmin(email string) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = db.ExecContext(ctx, "UPDATE users SET role = 'admin', updated_at = NOW() WHERE email = $1", email)
	return err
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := db.PingContext(pingCtx)
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

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func buildPostgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}
	host := fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port)
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		host,
		cfg.Database.DBName,
		sslmode,
	)
}

func startServer() (*server.Server, error) {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "reelhub")
	_ = os.Setenv("DB_PASSWORD", "password")
	_ = os.Setenv("DB_NAME", "reelhub_db")
	_ = os.Setenv("DB_USE_SSL", "false")

	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
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
