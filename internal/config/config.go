// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the top-level service configuration
type Config struct {
	DB      DB
	RPC     RPC
	Storage Storage
	Jobs    Jobs
}

// DB holds database settings
type DB struct {
	// Connection URL of the database
	URL string

	// Number of maximum simultaneous connections
	MaxConnections int

	// Timeout of the connection check made when the database is opened;
	// later queries are not bounded by it
	ConnectionTimeout time.Duration
}

// RPC holds the listen addresses of both service surfaces
type RPC struct {
	ImportAddr string
	TaskAddr   string

	// Cleanup releases all existing leases on startup
	Cleanup bool
}

// Storage holds object storage settings
type Storage struct {
	Host   string
	Bucket string
	Region string
	Key    string
	Secret string
}

// Jobs holds background job settings; an empty RedisAddr disables them
type Jobs struct {
	RedisAddr string
}

// Load reads the configuration from the environment, applying defaults
// for everything but credentials
func Load() (*Config, error) {
	maxConns, err := intVar("DB_MAX_CONNECTIONS", 8)
	if err != nil {
		return nil, err
	}

	connTimeout, err := intVar("DB_CONNECTION_TIMEOUT", 5)
	if err != nil {
		return nil, err
	}

	cleanup, err := boolVar("TASK_CLEANUP", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DB: DB{
			URL:               stringVar("DB_URL", "postgres://localhost:5432/satelit?sslmode=disable"),
			MaxConnections:    maxConns,
			ConnectionTimeout: time.Duration(connTimeout) * time.Second,
		},
		RPC: RPC{
			ImportAddr: stringVar("IMPORT_ADDR", ":8081"),
			TaskAddr:   stringVar("TASK_ADDR", ":8082"),
			Cleanup:    cleanup,
		},
		Storage: Storage{
			Host:   stringVar("STORAGE_HOST", ""),
			Bucket: stringVar("STORAGE_BUCKET", "satelit"),
			Region: stringVar("STORAGE_REGION", "us-east-1"),
			Key:    stringVar("STORAGE_KEY", ""),
			Secret: stringVar("STORAGE_SECRET", ""),
		},
		Jobs: Jobs{
			RedisAddr: stringVar("REDIS_ADDR", ""),
		},
	}

	return cfg, nil
}

func stringVar(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}

	return fallback
}

func intVar(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}

	return parsed, nil
}

func boolVar(name string, fallback bool) (bool, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}

	return parsed, nil
}
