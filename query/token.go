/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	storeerrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/storagemodels"
)

// EncodeToken renders a continuation token as an opaque page token:
// base64 (standard alphabet) of its JSON form. A nil token encodes as "".
func EncodeToken(token *storagemodels.ContinuationToken) (string, error) {
	if token == nil {
		return "", nil
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("encode page token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeToken is the inverse of EncodeToken. An empty page token decodes to nil.
// Malformed input yields an error matching errors.ErrInvalidToken.
func DecodeToken(pageToken string) (*storagemodels.ContinuationToken, error) {
	if pageToken == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(pageToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storeerrors.ErrInvalidToken, err)
	}
	var token storagemodels.ContinuationToken
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("%w: %w", storeerrors.ErrInvalidToken, err)
	}
	return &token, nil
}
