package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateFormat_AcceptsJSONAndText(t *testing.T) {
	require.NoError(t, validateFormat("json"))
	require.NoError(t, validateFormat("text"))
}

func TestValidateFormat_RejectsUnknownFormat(t *testing.T) {
	require.Error(t, validateFormat("yaml"))
}
