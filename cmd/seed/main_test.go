package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"healthtrack/internal/database"
	"healthtrack/internal/repository"
)

func newUsers(t *testing.T) *repository.UserRepository {
	t.Helper()

	db, err := database.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return repository.NewUserRepository(db, repository.WithBcryptCost(bcrypt.MinCost))
}

func TestRun_CreateThenReset(t *testing.T) {
	users := newUsers(t)
	log, hook := test.NewNullLogger()
	ctx := context.Background()
	opts := options{username: "kavin", email: "kavin@example.com", password: "Kavin@123"}

	require.NoError(t, run(ctx, users, opts, log))
	u, err := users.FindByUsername(ctx, "kavin")
	require.NoError(t, err)
	assert.True(t, users.VerifyPassword(u, "Kavin@123"))

	// running again is a no-op
	require.NoError(t, run(ctx, users, opts, log))
	assert.Equal(t, "user already exists", hook.LastEntry().Message)

	opts.reset, opts.password = true, "N3w@Passw0rd"
	require.NoError(t, run(ctx, users, opts, log))
	u, err = users.FindByUsername(ctx, "kavin")
	require.NoError(t, err)
	assert.True(t, users.VerifyPassword(u, "N3w@Passw0rd"))
	assert.False(t, users.VerifyPassword(u, "Kavin@123"))
}

func TestRun_ResetUnknownUser(t *testing.T) {
	log, _ := test.NewNullLogger()
	err := run(context.Background(), newUsers(t), options{username: "ghost", password: "x", reset: true}, log)
	assert.ErrorContains(t, err, `"ghost" not found`)
}

func TestRun_NeverLogsPassword(t *testing.T) {
	users := newUsers(t)
	log, hook := test.NewNullLogger()
	ctx := context.Background()
	opts := options{username: "kavin", email: "kavin@example.com", password: "Kavin@123"}

	require.NoError(t, run(ctx, users, opts, log))
	opts.reset = true
	require.NoError(t, run(ctx, users, opts, log))

	require.NotEmpty(t, hook.AllEntries())
	for _, e := range hook.AllEntries() {
		line, err := e.String()
		require.NoError(t, err)
		assert.NotContains(t, line, "Kavin@123")
		assert.NotContains(t, e.Data, "password")
	}
}
