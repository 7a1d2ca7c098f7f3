/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"testing"

	storeerrors "github.com/suparena/tablestore/errors"
)

func TestParseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ConnectionSettings
		wantErr bool
	}{
		{
			name:  "full",
			input: "Region=eu-west-1;Endpoint=http://dynamo:8000;AccessKeyId=AK;SecretAccessKey=SK",
			want:  ConnectionSettings{Region: "eu-west-1", Endpoint: "http://dynamo:8000", AccessKeyID: "AK", SecretAccessKey: "SK"},
		},
		{
			name:  "keys are case insensitive and trailing separator is ignored",
			input: "region=us-west-2; accesskeyid=AK; secretaccesskey=SK;",
			want:  ConnectionSettings{Region: "us-west-2", AccessKeyID: "AK", SecretAccessKey: "SK"},
		},
		{
			name:  "region only uses default credential chain",
			input: "Region=us-east-2",
			want:  ConnectionSettings{Region: "us-east-2"},
		},
		{
			name:  "development storage",
			input: "UseDevelopmentStorage=true",
			want:  ConnectionSettings{Region: "us-east-1", Endpoint: "http://localhost:8000", AccessKeyID: "local", SecretAccessKey: "local"},
		},
		{name: "empty", input: "  ", wantErr: true},
		{name: "missing region", input: "Endpoint=http://localhost:8000", wantErr: true},
		{name: "unknown key", input: "Region=us-east-1;AccountName=x", wantErr: true},
		{name: "malformed segment", input: "Region", wantErr: true},
		{name: "half credentials", input: "Region=us-east-1;AccessKeyId=AK", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConnectionString(tt.input)
			if tt.wantErr {
				if !storeerrors.IsValidationError(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
