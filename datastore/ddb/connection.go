/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"strings"

	"github.com/suparena/tablestore/errors"
)

// Local development defaults, matching DynamoDB Local.
const (
	developmentEndpoint = "http://localhost:8000"
	developmentRegion   = "us-east-1"
	developmentKey      = "local"
)

// ConnectionSettings is a parsed connection string.
type ConnectionSettings struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// ParseConnectionString parses "Key=Value" pairs separated by ';'. Recognised keys,
// matched case-insensitively:
//
//	Region, Endpoint, AccessKeyId, SecretAccessKey, SessionToken, UseDevelopmentStorage
//
// UseDevelopmentStorage=true targets DynamoDB Local on localhost:8000 with dummy
// credentials. Region is required otherwise.
func ParseConnectionString(connectionString string) (ConnectionSettings, error) {
	var settings ConnectionSettings
	if strings.TrimSpace(connectionString) == "" {
		return settings, errors.NewValidationError("connectionString", "cannot be empty")
	}

	development := false
	for _, part := range strings.Split(connectionString, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return settings, errors.NewValidationError("connectionString", fmt.Sprintf("malformed segment %q", part))
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "region":
			settings.Region = value
		case "endpoint":
			settings.Endpoint = value
		case "accesskeyid":
			settings.AccessKeyID = value
		case "secretaccesskey":
			settings.SecretAccessKey = value
		case "sessiontoken":
			settings.SessionToken = value
		case "usedevelopmentstorage":
			development = strings.EqualFold(value, "true")
		default:
			return settings, errors.NewValidationError("connectionString", fmt.Sprintf("unknown key %q", key))
		}
	}

	if development {
		if settings.Endpoint == "" {
			settings.Endpoint = developmentEndpoint
		}
		if settings.Region == "" {
			settings.Region = developmentRegion
		}
		if settings.AccessKeyID == "" {
			settings.AccessKeyID = developmentKey
			settings.SecretAccessKey = developmentKey
		}
	}

	if settings.Region == "" {
		return settings, errors.NewValidationError("connectionString", "Region is required")
	}
	if (settings.AccessKeyID == "") != (settings.SecretAccessKey == "") {
		return settings, errors.NewValidationError("connectionString", "AccessKeyId and SecretAccessKey must be set together")
	}
	return settings, nil
}
