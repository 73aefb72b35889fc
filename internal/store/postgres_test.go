// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zhisi Platform Contributors

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenRejectsMalformedURL(t *testing.T) {
	_, err := Open(context.Background(), "::not-a-url::")
	require.Error(t, err)
}
