/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/datastore/ddb"
	"github.com/suparena/tablestore/errors"
)

// Config describes how to reach one table.
//
//	connectionString: Region=us-east-1;Endpoint=http://localhost:8000
//	tableName: people
//	createIfNotExists: true
//	maxInFlight: 10
//	log:
//	  level: debug
//	  format: console
type Config struct {
	ConnectionString  string    `yaml:"connectionString" validate:"required"`
	TableName         string    `yaml:"tableName" validate:"required"`
	CreateIfNotExists bool      `yaml:"createIfNotExists"`
	MaxInFlight       int       `yaml:"maxInFlight" validate:"gte=0"`
	StrictTableNames  bool      `yaml:"strictTableNames"`
	Log               LogConfig `yaml:"log"`
}

// LoadConfig reads a YAML config file. A .env file next to the working directory is
// loaded first if present, and ${VAR} references in the file are expanded from the
// environment before parsing.
func LoadConfig(path string) (*Config, error) {
	// A missing .env is not an error.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates YAML config data after environment expansion.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the required fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: config: %w", errors.ErrInvalidInput, err)
	}
	return nil
}

// OpenTable opens the DynamoDB table described by cfg.
func OpenTable(ctx context.Context, cfg *Config, logger *zap.Logger) (*ddb.Table, error) {
	if cfg == nil {
		return nil, errors.NewValidationError("config", "cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []ddb.Option{ddb.WithLogger(logger)}
	if cfg.CreateIfNotExists {
		opts = append(opts, ddb.WithCreateIfNotExists())
	}
	if cfg.StrictTableNames {
		opts = append(opts, ddb.WithTableNameValidator(datastore.NewStrictTableNameValidator()))
	}
	return ddb.Open(ctx, cfg.ConnectionString, cfg.TableName, opts...)
}

// RepositoryOptions returns the repository options implied by cfg.
func (c *Config) RepositoryOptions(logger *zap.Logger) []Option {
	return []Option{WithLogger(logger), WithMaxInFlight(c.MaxInFlight)}
}
