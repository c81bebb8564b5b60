package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func presignHandler(t *testing.T, storage *httptest.Server, fileKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/presigned-url", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req["contentType"])

		resp := map[string]any{
			"success": true,
			"message": "ok",
			"data": map[string]any{
				"presignedUrl": storage.URL + "/bucket/" + fileKey + "?X-Signature=secret&X-Expires=300",
				"fileKey":      fileKey,
				"maxFileSize":  DefaultMaxFileSize,
				"expiresIn":    300,
			},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func TestUpload_PresignThenPut(t *testing.T) {
	var putBody []byte
	var putContentType string
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		putContentType = r.Header.Get("Content-Type")
		putBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer storage.Close()

	api := httptest.NewServer(presignHandler(t, storage, "docs/abc123.pdf"))
	defer api.Close()

	u := NewUploader(api.URL, 5*time.Second, 0, zap.NewNop())
	res, err := u.Upload(context.Background(), "statement.pdf", []byte("pdf bytes"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "docs/abc123.pdf", res.FileKey)
	assert.Equal(t, storage.URL+"/bucket/docs/abc123.pdf", res.CleanURL)
	assert.Equal(t, []byte("pdf bytes"), putBody)
	assert.Equal(t, "application/pdf", putContentType)
}

func TestUpload_ServerRefusal(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "quota exceeded",
		})
	}))
	defer api.Close()

	u := NewUploader(api.URL, 5*time.Second, 0, zap.NewNop())
	_, err := u.Upload(context.Background(), "x.png", []byte("img"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestUpload_PutFailure(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer storage.Close()

	api := httptest.NewServer(presignHandler(t, storage, "k"))
	defer api.Close()

	u := NewUploader(api.URL, 5*time.Second, 0, zap.NewNop())
	_, err := u.Upload(context.Background(), "x.png", []byte("img"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestUploadBatch_ContinuesPastFailures(t *testing.T) {
	var calls int
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer storage.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		resp := map[string]any{
			"success": true,
			"data": map[string]any{
				"presignedUrl": storage.URL + fmt.Sprintf("/f%d?sig=s", calls),
				"fileKey":      fmt.Sprintf("f%d", calls),
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer api.Close()

	u := NewUploader(api.URL, 5*time.Second, 0, zap.NewNop())
	results := u.UploadBatch(context.Background(), []File{
		{Name: "a.png", Content: []byte("a"), ContentType: "image/png"},
		{Name: "b.png", Content: []byte("b"), ContentType: "image/png"},
		{Name: "c.png", Content: []byte("c"), ContentType: "image/png"},
	})

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "f1", results[0].Result.FileKey)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "f3", results[2].Result.FileKey)
}

func TestValidateDocument(t *testing.T) {
	u := NewUploader("http://localhost", time.Second, 0, zap.NewNop())

	assert.NoError(t, u.ValidateDocument("a.png", 1024, "image/png"))
	assert.NoError(t, u.ValidateDocument("a.pdf", 1024, "application/pdf"))
	assert.ErrorIs(t, u.ValidateDocument("a.txt", 1024, "text/plain"), ErrUnsupportedType)
	assert.ErrorIs(t, u.ValidateDocument("big.png", DefaultMaxFileSize+1, "image/png"), ErrFileTooLarge)
	assert.NoError(t, u.ValidateDocument("edge.png", DefaultMaxFileSize, "image/png"))
}

func TestValidateImage(t *testing.T) {
	u := NewUploader("http://localhost", time.Second, 0, zap.NewNop())

	assert.NoError(t, u.ValidateImage("a.jpg", 1024, "image/jpeg"))
	assert.ErrorIs(t, u.ValidateImage("a.pdf", 1024, "application/pdf"), ErrUnsupportedType)
	assert.ErrorIs(t, u.ValidateImage("big.jpg", DefaultMaxFileSize+1, "image/jpeg"), ErrFileTooLarge)
}

func TestCleanURL(t *testing.T) {
	assert.Equal(t, "https://s3.example.com/bucket/key",
		CleanURL("https://s3.example.com/bucket/key?X-Signature=abc&X-Expires=300"))
	assert.Equal(t, "https://s3.example.com/bucket/key",
		CleanURL("https://s3.example.com/bucket/key"))
	// Unparseable input passes through untouched.
	assert.Equal(t, "https://bad url%", CleanURL("https://bad url%"))
}

func TestExtensionForContentType(t *testing.T) {
	assert.Equal(t, "pdf", ExtensionForContentType("application/pdf"))
	assert.Equal(t, "png", ExtensionForContentType("image/png"))
	assert.Equal(t, "webp", ExtensionForContentType("image/webp"))
	assert.Equal(t, "jpg", ExtensionForContentType("application/octet-stream"))
}
