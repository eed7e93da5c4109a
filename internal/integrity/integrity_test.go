package integrity

import (
	"crypto/sha1" //nolint:gosec // test computes the same legacy hash under test
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sha1Hex(s string) string {
	h := sha1.New() //nolint:gosec
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

func TestVerifyMatch(t *testing.T) {
	content := "tarball bytes go here"
	status, computed, err := Verify(strings.NewReader(content), sha1Hex(content))
	assert.NoError(t, err)
	assert.Equal(t, Verified, status)
	assert.Equal(t, sha1Hex(content), computed)
}

func TestVerifyMismatch(t *testing.T) {
	status, _, err := Verify(strings.NewReader("actual content"), sha1Hex("different content"))
	assert.NoError(t, err)
	assert.Equal(t, Mismatch, status)
}

func TestVerifyEmptyExpectedIsUnverifiable(t *testing.T) {
	status, _, err := Verify(strings.NewReader("content"), "")
	assert.NoError(t, err)
	assert.Equal(t, Unverifiable, status)
}

func TestVerifyChunksAcrossMultipleReads(t *testing.T) {
	content := strings.Repeat("x", chunkSize*3+17)
	status, _, err := Verify(strings.NewReader(content), sha1Hex(content))
	assert.NoError(t, err)
	assert.Equal(t, Verified, status)
}
