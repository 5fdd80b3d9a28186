package database

import (
	"fmt"
	"log/slog"
)

const (
	TypeSQLite = "sqlite"
	TypeRedis  = "redis"
	TypeMemory = "memory"
)

func NewDatabase(databaseType, connectionString string) (database DatabaseService, err error) {
	switch databaseType {
	case TypeSQLite:
		database, err = NewSQLiteDatabase(connectionString)
	case TypeRedis:
		database, err = NewRedisDatabase(connectionString)
	case TypeMemory:
		database = NewMemoryDatabase()
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}
	if err != nil {
		return nil, err
	}

	// Ensure the schema exists (idempotent), important for in-memory SQLite
	slog.Info("initializing database schema", "type", databaseType)
	if err = database.CreateDatabase(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	return database, nil
}
