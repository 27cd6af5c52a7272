// Package web serves the embedded map page.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

//go:embed dist/*
var pageFiles embed.FS

// PageFS returns the page assets rooted at dist.
func PageFS() (fs.FS, error) {
	return fs.Sub(pageFiles, "dist")
}

// RegisterStaticRoutes serves the page and its assets. Paths that match no
// asset get index.html so the page can be deep-linked; /api/ is left to the
// API routes.
func RegisterStaticRoutes(e *echo.Echo) error {
	page, err := PageFS()
	if err != nil {
		return err
	}

	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Root:       ".",
		Index:      "index.html",
		HTML5:      true,
		Filesystem: http.FS(page),
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/api/")
		},
	}))
	return nil
}

// HasEmbeddedFiles reports whether the page was embedded at build time.
func HasEmbeddedFiles() bool {
	_, err := fs.Stat(pageFiles, "dist/index.html")
	return err == nil
}
