// Package testdb поднимает реальный Postgres в контейнере для
// интеграционных тестов и подключает к нему общий пул db.Pool.
package testdb

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rajivgeraev/skilltrade-api/internal/db"
)

var (
	mu      sync.Mutex
	started bool
)

// Setup поднимает общий контейнер Postgres (один на пакет тестов),
// применяет миграции и инициализирует db.Pool. Перед каждым тестом
// таблицы очищаются для изоляции.
func Setup(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("пропускаем интеграционный тест в режиме -short")
	}

	mu.Lock()
	defer mu.Unlock()

	ctx := context.Background()

	if !started {
		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("skilltrade_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		require.NoError(t, err, "не удалось запустить контейнер Postgres")

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err, "не удалось получить строку подключения")

		migrationsPath := findMigrationsPath()
		require.NotEmpty(t, migrationsPath, "не найден каталог миграций")

		// Драйвер pgx5 регистрируется blank-импортами пакета db
		m, err := migrate.New(
			"file://"+migrationsPath,
			strings.Replace(dsn, "postgres://", "pgx5://", 1),
		)
		require.NoError(t, err, "не удалось инициализировать миграции")

		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			require.NoError(t, err, "не удалось применить миграции")
		}
		m.Close()

		pool, err := pgxpool.New(ctx, dsn)
		require.NoError(t, err, "не удалось создать пул соединений")

		db.Pool = pool
		started = true
	}

	cleanTables(t)
}

// cleanTables очищает все таблицы, кроме schema_migrations
func cleanTables(t *testing.T) {
	t.Helper()

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public' AND tablename != 'schema_migrations'
	`)
	require.NoError(t, err)

	var tables []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	rows.Close()

	if len(tables) == 0 {
		return
	}

	_, err = db.Pool.Exec(ctx, "TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE")
	require.NoError(t, err)
}

// findMigrationsPath ищет каталог миграций относительно этого файла
func findMigrationsPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}

	dir := filepath.Dir(filename)
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "migrations")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	return ""
}

// CreateUser создает тестового пользователя и возвращает его ID
func CreateUser(t *testing.T, nickname string) uuid.UUID {
	t.Helper()

	ctx, cancel := db.GetContext()
	defer cancel()

	userID := uuid.New()
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, nickname)
		VALUES ($1, $2, 'x', $3)
	`, userID, nickname+"@example.com", nickname)
	require.NoError(t, err, "не удалось создать пользователя")

	return userID
}

// CreateTrade создает тестовое объявление и возвращает его ID
func CreateTrade(t *testing.T, creatorID uuid.UUID, status string) uuid.UUID {
	t.Helper()

	ctx, cancel := db.GetContext()
	defer cancel()

	tradeID := uuid.New()
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO trades (id, creator_id, name, description, difficulty, service_given, service_wanted, status)
		VALUES ($1, $2, 'Тестовое объявление', 'Описание', 'beginner', 'Дизайн', 'Верстка', $3)
	`, tradeID, creatorID, status)
	require.NoError(t, err, "не удалось создать объявление")

	return tradeID
}

// CreateRequest создает запрос на совместную работу и возвращает его ID
func CreateRequest(t *testing.T, tradeID, requesterID, creatorID uuid.UUID, status string) uuid.UUID {
	t.Helper()

	ctx, cancel := db.GetContext()
	defer cancel()

	requestID := uuid.New()
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO collaboration_requests (id, trade_id, requester_id, creator_id, message, status)
		VALUES ($1, $2, $3, $4, 'Хочу обменяться', $5)
	`, requestID, tradeID, requesterID, creatorID, status)
	require.NoError(t, err, "не удалось создать запрос")

	return requestID
}
