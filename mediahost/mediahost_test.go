package mediahost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cloudflare/cloudflare-go"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/artist-portfolio/log"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestMain(m *testing.M) {
	if err := log.Initialize("", false); err != nil {
		panic(fmt.Errorf("fail to initialize logger with error: %s", err.Error()))
	}
	os.Exit(m.Run())
}

func stagedImage(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "staged.png")
	require.NoError(t, os.WriteFile(path, pngHeader, 0o600))
	return path
}

type recordedRequest struct {
	Method string
	Path   string
	Form   map[string]string
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	form := map[string]string{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for k, v := range r.MultipartForm.Value {
				form[k] = v[0]
			}
		}
	} else if err := r.ParseForm(); err == nil {
		for k, v := range r.PostForm {
			form[k] = v[0]
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Form: form})
	f.mu.Unlock()

	f.handler(w, r)
}

func (f *fakeAPI) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

var _ cloudflare.Logger = log.CloudflareLogger()

func TestErrorUnwrap(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := error(&Error{Provider: ProviderCloudinary, Op: "upload", Err: cause})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cloudinary upload: unexpected EOF", err.Error())

	var hostErr *Error
	assert.True(t, errors.As(err, &hostErr))
	assert.Equal(t, "upload", hostErr.Op)
}

func newTestCloudinary(t *testing.T, api *fakeAPI) *Cloudinary {
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := NewCloudinary(CloudinaryConfig{
		CloudName:    "demo",
		APIKey:       "key",
		APISecret:    "secret",
		Folder:       "artist_portfolio",
		UploadPrefix: srv.URL,
	})
	require.NoError(t, err)
	return c
}

func TestCloudinaryUpload(t *testing.T) {
	api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"public_id":  "artist_portfolio/abc123",
			"secure_url": "https://res.cloudinary.com/demo/image/upload/v1/artist_portfolio/abc123.png",
		})
	}}
	c := newTestCloudinary(t, api)

	asset, err := c.Upload(context.Background(), stagedImage(t), Metadata{
		"mime_type": "image/png",
		"filename":  "sunrise.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "artist_portfolio/abc123", asset.PublicID)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/v1/artist_portfolio/abc123.png", asset.URL)

	requests := api.recorded()
	require.Len(t, requests, 1)
	assert.True(t, strings.HasSuffix(requests[0].Path, "/upload"))
	assert.Equal(t, "artist_portfolio", requests[0].Form["folder"])
	assert.Contains(t, requests[0].Form["context"], "mime_type=image/png")
	assert.Contains(t, requests[0].Form["context"], "filename=sunrise.png")
}

func TestCloudinaryContext(t *testing.T) {
	assert.Nil(t, cloudinaryContext(nil))
	assert.Equal(t, api.CldAPIMap{"mime_type": "image/png", "size": "42"},
		cloudinaryContext(Metadata{"mime_type": "image/png", "size": 42}))
}

func TestCloudinaryUploadAPIError(t *testing.T) {
	api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": map[string]string{"message": "Invalid image file"},
		})
	}}
	c := newTestCloudinary(t, api)

	_, err := c.Upload(context.Background(), stagedImage(t), nil)
	var hostErr *Error
	require.ErrorAs(t, err, &hostErr)
	assert.Equal(t, ProviderCloudinary, hostErr.Provider)
	assert.Equal(t, "upload", hostErr.Op)
}

func TestCloudinaryDestroy(t *testing.T) {
	results := []string{"ok", "not found"}
	api := &fakeAPI{}
	api.handler = func(w http.ResponseWriter, r *http.Request) {
		result := results[len(api.recorded())-1]
		writeJSON(w, http.StatusOK, map[string]string{"result": result})
	}
	c := newTestCloudinary(t, api)

	assert.NoError(t, c.Destroy(context.Background(), "artist_portfolio/abc123"))
	assert.NoError(t, c.Destroy(context.Background(), "artist_portfolio/abc123"))

	requests := api.recorded()
	require.Len(t, requests, 2)
	assert.True(t, strings.HasSuffix(requests[0].Path, "/destroy"))
	assert.Equal(t, "artist_portfolio/abc123", requests[0].Form["public_id"])
}

func TestCloudinaryDestroyAPIError(t *testing.T) {
	api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"error": map[string]string{"message": "Invalid Signature"},
		})
	}}
	c := newTestCloudinary(t, api)

	err := c.Destroy(context.Background(), "artist_portfolio/abc123")
	var hostErr *Error
	require.ErrorAs(t, err, &hostErr)
	assert.Equal(t, "destroy", hostErr.Op)
}

func newTestCloudflare(t *testing.T, api *fakeAPI) *Cloudflare {
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := NewCloudflare(CloudflareConfig{
		AccountID:   "account-1",
		AccountHash: "hash-1",
		APIToken:    "token",
		Folder:      "artist_portfolio",
		BaseURL:     srv.URL,
	})
	require.NoError(t, err)
	return c
}

func cloudflareEnvelope(result interface{}) map[string]interface{} {
	return map[string]interface{}{
		"success":  true,
		"errors":   []interface{}{},
		"messages": []interface{}{},
		"result":   result,
	}
}

func TestCloudflareUpload(t *testing.T) {
	api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cloudflareEnvelope(map[string]interface{}{
			"id":       "img-1",
			"filename": "artist_portfolio/sunset.png",
			"variants": []string{"https://imagedelivery.net/hash-1/img-1/public"},
		}))
	}}
	c := newTestCloudflare(t, api)

	asset, err := c.Upload(context.Background(), stagedImage(t), Metadata{"filename": "sunset.png", "mime_type": "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "img-1", asset.PublicID)
	assert.Equal(t, "https://imagedelivery.net/hash-1/img-1/public", asset.URL)

	requests := api.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodPost, requests[0].Method)
	assert.Equal(t, "/accounts/account-1/images/v1", requests[0].Path)
	assert.Contains(t, requests[0].Form["metadata"], "artist_portfolio")
}

func TestCloudflareUploadRejected(t *testing.T) {
	api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success":  false,
			"errors":   []map[string]interface{}{{"code": 5455, "message": "Unsupported image type"}},
			"messages": []interface{}{},
			"result":   nil,
		})
	}}
	c := newTestCloudflare(t, api)

	_, err := c.Upload(context.Background(), stagedImage(t), nil)
	var hostErr *Error
	require.ErrorAs(t, err, &hostErr)
	assert.Equal(t, ProviderCloudflare, hostErr.Provider)
}

func TestCloudflareUploadMissingFile(t *testing.T) {
	api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}}
	c := newTestCloudflare(t, api)

	_, err := c.Upload(context.Background(), filepath.Join(t.TempDir(), "gone.png"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCloudflareDestroy(t *testing.T) {
	api := &fakeAPI{}
	api.handler = func(w http.ResponseWriter, r *http.Request) {
		if len(api.recorded()) == 1 {
			writeJSON(w, http.StatusOK, cloudflareEnvelope(map[string]interface{}{}))
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success":  false,
			"errors":   []map[string]interface{}{{"code": 5404, "message": "Image not found"}},
			"messages": []interface{}{},
			"result":   nil,
		})
	}
	c := newTestCloudflare(t, api)

	assert.NoError(t, c.Destroy(context.Background(), "img-1"))
	assert.NoError(t, c.Destroy(context.Background(), "img-1"))

	requests := api.recorded()
	require.Len(t, requests, 2)
	assert.Equal(t, http.MethodDelete, requests[0].Method)
	assert.Equal(t, "/accounts/account-1/images/v1/img-1", requests[0].Path)
}
