package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowReader yields one byte per Read call to exercise chunked reads.
type slowReader struct {
	r io.Reader
}

func (s *slowReader) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	return s.r.Read(p)
}

func TestHashReader_MatchesReferenceDigest(t *testing.T) {
	payload := []byte("token art bytes")
	want := sha256.Sum256(payload)

	hash, size, err := HashBytes(payload)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(want[:]), hash)
	assert.Equal(t, int64(len(payload)), size)
}

func TestHashReader_IndependentOfReadChunking(t *testing.T) {
	payload := strings.Repeat("abc123", 10_000)

	h1, n1, err := HashReader(strings.NewReader(payload))
	require.NoError(t, err)

	h2, n2, err := HashReader(&slowReader{r: strings.NewReader(payload)})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Equal(t, n1, n2)
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.png")
	require.NoError(t, os.WriteFile(path, []byte("pretend png"), 0o600))

	fromFile, size, err := HashFile(path)
	require.NoError(t, err)

	fromBytes, _, err := HashBytes([]byte("pretend png"))
	require.NoError(t, err)

	assert.Equal(t, fromBytes, fromFile)
	assert.Equal(t, int64(len("pretend png")), size)
}

func TestAssetID(t *testing.T) {
	hash, _, err := HashBytes([]byte("x"))
	require.NoError(t, err)

	id, err := AssetID(hash)
	require.NoError(t, err)
	assert.Len(t, id, IDLength)
	assert.Equal(t, hash[:IDLength], id)

	_, err = AssetID("not-a-hash")
	assert.Error(t, err)

	_, err = AssetID(strings.ToUpper(hash))
	assert.Error(t, err, "uppercase digests are rejected")
}
