package media

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeDataURLWithPrefix(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("pixels"))
	contentType, data, err := decodeDataURL("data:image/png;base64," + payload)
	require.NoError(t, err)
	require.Equal(t, "image/png", contentType)
	require.Equal(t, []byte("pixels"), data)
}

func TestDecodeDataURLBarePayload(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("pixels"))
	contentType, data, err := decodeDataURL(payload)
	require.NoError(t, err)
	require.Equal(t, "application/octet-stream", contentType)
	require.Equal(t, []byte("pixels"), data)
}

func TestDecodeDataURLMalformed(t *testing.T) {
	_, _, err := decodeDataURL("data:image/png;base64")
	require.Error(t, err)

	_, _, err = decodeDataURL("data:image/png;base64,%%%")
	require.Error(t, err)
}

func TestExtensionFor(t *testing.T) {
	require.Equal(t, ".png", extensionFor("image/png"))
	require.Equal(t, ".jpg", extensionFor("image/jpeg"))
	require.Equal(t, "", extensionFor("application/pdf"))
}
