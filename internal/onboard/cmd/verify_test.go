package cmd

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onboardhq/onboard-cli/internal/onboard/common"
	"github.com/onboardhq/onboard-cli/internal/onboard/verify"
)

func TestVerify_TableOutput(t *testing.T) {
	tmpDir := setupCmdTest(t, map[string]any{"project_id": "proj-1"})
	storeTestCredentials(t, tmpDir, "proj-1")
	h := newFakeHost()
	useFakeHost(t, h)

	output, err := executeCommand("verify")
	require.NoError(t, err)
	assert.Contains(t, output, "search")
	assert.Contains(t, output, "fetch")
	assert.Contains(t, output, "2 tools available at https://app1.eu.api.onboardhq.com")
	assert.Equal(t, "https://app1.eu.api.onboardhq.com", h.Verifier.(*fakeVerifier).baseURL)
}

func TestVerify_Failure(t *testing.T) {
	tmpDir := setupCmdTest(t, map[string]any{"project_id": "proj-1", "output": "json"})
	storeTestCredentials(t, tmpDir, "proj-1")
	h := newFakeHost()
	h.Verifier = &fakeVerifier{outcome: verify.Outcome{Err: verify.ErrNoTools, Attempts: 3}}
	useFakeHost(t, h)

	output, err := executeCommand("verify")
	require.Error(t, err)
	assert.Equal(t, common.ExitVerificationFailed, exitCode(t, err))
	assert.True(t, errors.Is(err, verify.ErrNoTools))

	var result verifyResult
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, verify.ErrNoTools.Error(), result.Error)
}

func TestVerify_NotLoggedIn(t *testing.T) {
	setupCmdTest(t, map[string]any{"project_id": "proj-1"})
	useFakeHost(t, newFakeHost())

	_, err := executeCommand("verify")
	require.Error(t, err)
	assert.Equal(t, common.ExitAuthenticationError, exitCode(t, err))
}
