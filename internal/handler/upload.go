package handler

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/landport/freight-api/internal/config"
	"github.com/landport/freight-api/internal/middleware"
	"github.com/landport/freight-api/internal/model"
)

// Upload size ceilings.  Goods photos come from phone cameras; vehicle
// certificate scans can be much larger.
const (
	maxGoodsUpload   = 5 << 20
	maxVehicleUpload = 20 << 20
)

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// UploadHandler stores image uploads on local disk under
// <uploadDir>/YYYY-MM-DD/<userId>/ and returns the public URL.  Files are
// served back by the router's static route on /uploads.
type UploadHandler struct {
	Cfg config.Config
}

func NewUploadHandler(cfg config.Config) *UploadHandler {
	return &UploadHandler{Cfg: cfg}
}

type uploadResp struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// save validates and writes one multipart file, returning its public URL.
func (h *UploadHandler) save(c echo.Context, field string, maxSize int64, ownerID uint64) (*uploadResp, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "请选择要上传的文件")
	}
	if fh.Size > maxSize {
		return nil, echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("文件过大，最大支持 %dMB", maxSize>>20))
	}
	if !allowedImageExts[strings.ToLower(filepath.Ext(fh.Filename))] {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "仅支持 jpg/png/gif 图片")
	}
	return h.writeFile(c, fh, ownerID)
}

// writeFile stores one already-validated file under
// <uploadDir>/YYYY-MM-DD/<ownerID>/ with a timestamp-random name.
func (h *UploadHandler) writeFile(c echo.Context, fh *multipart.FileHeader, ownerID uint64) (*uploadResp, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	var rnd [4]byte
	if _, err := rand.Read(rnd[:]); err != nil {
		return nil, internalError(c, "random filename", err)
	}
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), hex.EncodeToString(rnd[:]), ext)
	relDir := filepath.Join(time.Now().Format("2006-01-02"), fmt.Sprintf("%d", ownerID))
	dir := filepath.Join(h.Cfg.UploadDir, relDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, internalError(c, "create upload dir", err)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, internalError(c, "open upload", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, internalError(c, "create upload file", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return nil, internalError(c, "write upload file", err)
	}

	url := "/uploads/" + filepath.ToSlash(filepath.Join(relDir, name))
	if h.Cfg.AssetHost != "" {
		url = strings.TrimRight(h.Cfg.AssetHost, "/") + url
	}
	return &uploadResp{URL: url, Filename: name, Size: fh.Size}, nil
}

// saveBatch writes every acceptable file in the multipart form.  Files with
// an unsupported extension or over the size limit are skipped, not rejected:
// the client batches whatever the user picked and keeps what made it.
func (h *UploadHandler) saveBatch(c echo.Context, maxSize int64, ownerID uint64) ([]uploadResp, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "请选择要上传的文件")
	}
	var fhs []*multipart.FileHeader
	for _, group := range form.File {
		fhs = append(fhs, group...)
	}
	if len(fhs) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "请选择要上传的文件")
	}

	results := make([]uploadResp, 0, len(fhs))
	for _, fh := range fhs {
		if fh.Size > maxSize || !allowedImageExts[strings.ToLower(filepath.Ext(fh.Filename))] {
			continue
		}
		resp, err := h.writeFile(c, fh, ownerID)
		if err != nil {
			return nil, err
		}
		results = append(results, *resp)
	}
	return results, nil
}

// GoodsImage accepts a waybill photo from the mini-program.
func (h *UploadHandler) GoodsImage(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	resp, err := h.save(c, "file", maxGoodsUpload, p.UserID)
	if err != nil {
		return err
	}
	return okWith(c, "上传成功", resp)
}

// GoodsImages accepts a batch of waybill photos in one request.
func (h *UploadHandler) GoodsImages(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	results, err := h.saveBatch(c, maxGoodsUpload, p.UserID)
	if err != nil {
		return err
	}
	return okWith(c, "上传成功", results)
}

// VehicleImage accepts a certificate or misc photo from the fleet console.
// The ?type= parameter distinguishes the two kinds but both share the same
// storage layout.
func (h *UploadHandler) VehicleImage(c echo.Context) error {
	p, err := currentUser(c)
	if err != nil {
		return err
	}
	kind := c.QueryParam("type")
	if kind == "" {
		kind = model.VehicleImageCertificate
	}
	if kind != model.VehicleImageCertificate && kind != model.VehicleImageOther {
		return echo.NewHTTPError(http.StatusBadRequest, "无效的图片类型")
	}
	resp, err := h.save(c, "file", maxVehicleUpload, p.UserID)
	if err != nil {
		return err
	}
	return okWith(c, "上传成功", resp)
}

// AdminImage accepts a case image from the back office.  Uploads are filed
// under the admin's user id like every other upload.
func (h *UploadHandler) AdminImage(c echo.Context) error {
	p := middleware.AdminUser(c)
	if p == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "未登录，请先登录")
	}
	resp, err := h.save(c, "file", maxGoodsUpload, p.UserID)
	if err != nil {
		return err
	}
	return okWith(c, "上传成功", resp)
}

// AdminImages accepts a batch of case images from the back office.
func (h *UploadHandler) AdminImages(c echo.Context) error {
	p := middleware.AdminUser(c)
	if p == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "未登录，请先登录")
	}
	results, err := h.saveBatch(c, maxGoodsUpload, p.UserID)
	if err != nil {
		return err
	}
	return okWith(c, "上传成功", results)
}
