package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-service/internal/service"
)

// UploadsHandler serves /uploads. File keys contain slashes, so the per-file
// routes take the key from the trailing wildcard.
type UploadsHandler struct {
	Files *service.FileService
}

func NewUploadsHandler(f *service.FileService) *UploadsHandler {
	return &UploadsHandler{Files: f}
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type fileList struct {
	Files      []service.FileInfo `json:"files"`
	Pagination pagination         `json:"pagination"`
}

type downloadResp struct {
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Upload expects a multipart form with a "file" part and an optional
// "folder" field.
func (h *UploadsHandler) Upload(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}
	defer f.Close()

	folder := c.FormValue("folder")
	if folder == "" {
		folder = c.QueryParam("folder")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()
	info, err := h.Files.Upload(ctx, u, folder, fh.Filename, f)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, info, "File uploaded successfully")
}

func (h *UploadsHandler) List(c echo.Context) error {
	page, limit := 1, 10
	if err := echo.QueryParamsBinder(c).Int("page", &page).Int("limit", &limit).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "page and limit must be integers")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.Files.List(ctx, c.QueryParam("folder"), page, limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, fileList{
		Files:      p.Items,
		Pagination: pagination{Page: p.Page, Limit: p.Limit, Total: p.Total, Pages: p.Pages},
	}, "Files listed successfully")
}

func (h *UploadsHandler) Info(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	info, err := h.Files.Info(ctx, c.Param("*"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, info, "File info fetched successfully")
}

func (h *UploadsHandler) Download(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	url, exp, err := h.Files.DownloadURL(ctx, c.Param("*"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, downloadResp{DownloadURL: url, ExpiresAt: exp}, "Download URL fetched successfully")
}

func (h *UploadsHandler) Delete(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Files.Delete(ctx, u, c.Param("*")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "File deleted successfully")
}
