package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landport/freight-api/internal/config"
	"github.com/landport/freight-api/internal/middleware"
)

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func uploadContext(t *testing.T, dir, target, filename string, content []byte) (echo.Context, *httptest.ResponseRecorder, *UploadHandler) {
	t.Helper()
	body, contentType := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	st := middleware.NewAuthState()
	st.User = &middleware.Principal{UserID: 42, Role: "user"}
	st.UserErr = ""
	middleware.SetAuthState(c, st)

	return c, rec, NewUploadHandler(config.Config{UploadDir: dir})
}

func TestGoodsImageUpload(t *testing.T) {
	dir := t.TempDir()
	c, rec, h := uploadContext(t, dir, "/api/lpwx/upload", "photo.JPG", []byte("fake image bytes"))

	require.NoError(t, h.GoodsImage(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			URL      string `json:"url"`
			Filename string `json:"filename"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Data.URL, "/uploads/"))
	assert.True(t, strings.HasSuffix(resp.Data.Filename, ".jpg"))

	// the file landed under <dir>/YYYY-MM-DD/42/
	rel := strings.TrimPrefix(resp.Data.URL, "/uploads/")
	_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
	assert.NoError(t, err)
	assert.Contains(t, rel, "/42/")
}

func TestUploadRejectsUnknownExtension(t *testing.T) {
	c, _, h := uploadContext(t, t.TempDir(), "/api/lpwx/upload", "report.pdf", []byte("%PDF"))

	err := h.GoodsImage(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestVehicleImageKindValidation(t *testing.T) {
	c, rec, h := uploadContext(t, t.TempDir(), "/api/lpwx/fleet/upload?type=certificate", "cert.png", []byte("png"))
	require.NoError(t, h.VehicleImage(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, _, h = uploadContext(t, t.TempDir(), "/api/lpwx/fleet/upload?type=selfie", "cert.png", []byte("png"))
	err := h.VehicleImage(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestUploadRequiresPrincipal(t *testing.T) {
	body, contentType := multipartBody(t, "photo.jpg", []byte("img"))
	req := httptest.NewRequest(http.MethodPost, "/api/lpwx/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	c := echo.New().NewContext(req, httptest.NewRecorder())

	h := NewUploadHandler(config.Config{UploadDir: t.TempDir()})
	err := h.GoodsImage(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}
