package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/messageme/messageme-server/internal/auth"
	"github.com/messageme/messageme-server/internal/config"
	"github.com/messageme/messageme-server/internal/core"
	"github.com/messageme/messageme-server/internal/store"
	"github.com/messageme/messageme-server/internal/store/sqlite"
)

// testDirectory adapts the user store to the engine's display-name lookup
// the same way the app wiring does.
type testDirectory struct {
	store store.UserStore
}

func (d testDirectory) DisplayName(ctx context.Context, userID int64) (string, error) {
	user, err := d.store.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, st store.Store, jwtSecret string) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(jwtSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return auth.NewService(st, jwtConfig)
}

// startTestServer spins up the full HTTP surface backed by an in-memory store.
func startTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()

	logger := zerolog.Nop()
	st := createTestStore(t)
	authService := createTestAuthService(t, st, "test-secret")

	rooms := core.NewRooms(&logger)
	registry := core.NewRegistry(rooms, &logger)
	engine := core.NewEngine(registry, rooms, st, testDirectory{store: st}, core.DefaultOptions(), &logger)

	server := NewServer(engine, authService, st, config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, st
}
