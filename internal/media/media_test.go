package media

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestSniff(t *testing.T) {
	ct, ext, full, err := Sniff(strings.NewReader(string(pngHeader) + "rest-of-image"))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, ".png", ext)
	data, err := io.ReadAll(full)
	require.NoError(t, err)
	assert.Equal(t, string(pngHeader)+"rest-of-image", string(data))

	_, _, _, err = Sniff(strings.NewReader("plain text, not a photo"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestPublicID(t *testing.T) {
	id := publicID("My Outback (front).JPG")
	assert.True(t, strings.HasPrefix(id, "my-outback-front-"), id)
	assert.Len(t, id, len("my-outback-front-")+8)

	assert.Len(t, publicID("???.png"), 8)
	assert.NotEqual(t, publicID("a.png"), publicID("a.png"))
}

func TestLocalHost(t *testing.T) {
	dir := t.TempDir()
	h := &LocalHost{Dir: dir, BaseURL: "http://localhost:8080/media/"}

	url, err := h.Upload(context.Background(), "front.png", strings.NewReader(string(pngHeader)))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "http://localhost:8080/media/front-"), url)
	assert.True(t, strings.HasSuffix(url, ".png"))

	name := strings.TrimPrefix(url, "http://localhost:8080/media/")
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	_, err = h.Upload(context.Background(), "notes.txt", strings.NewReader("hello"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestCloudinaryHost(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"public_id":  "showroom/vehicles/front-1",
			"secure_url": "https://res.cloudinary.com/demo/image/upload/showroom/vehicles/front-1.png",
		})
	}))
	defer srv.Close()

	logger := zerolog.New(io.Discard)
	h, err := NewCloudinaryHost("demo", "key", "secret", "showroom/vehicles", &logger)
	require.NoError(t, err)
	h.cld.Upload.Config.API.UploadPrefix = srv.URL

	url, err := h.Upload(context.Background(), "front.png", strings.NewReader(string(pngHeader)))
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/showroom/vehicles/front-1.png", url)
	assert.True(t, strings.HasSuffix(gotPath, "/demo/auto/upload"), gotPath)

	_, err = NewCloudinaryHost("", "key", "secret", "", &logger)
	assert.Error(t, err)
}
