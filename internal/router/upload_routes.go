package router

import (
	"strconv"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/account-service/internal/handler"
	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/service"
)

// multipartOverhead is the slack allowed on top of the file size for the
// multipart envelope.
const multipartOverhead = 1 << 20

// RegisterUploads registers the object storage endpoints. Keys contain
// slashes and are matched by the trailing wildcard.
func RegisterUploads(e *echo.Echo, h *handler.UploadsHandler, gate *service.Gate, maxBytes int64) {
	g := e.Group("/v1/uploads", middleware.RequireUser(gate))
	if maxBytes > 0 {
		g.POST("", h.Upload, echomw.BodyLimit(strconv.FormatInt(maxBytes+multipartOverhead, 10)+"B"))
	} else {
		g.POST("", h.Upload)
	}
	g.GET("", h.List)
	g.GET("/files/*", h.Info)
	g.GET("/download/*", h.Download)
	g.DELETE("/files/*", h.Delete)
}
