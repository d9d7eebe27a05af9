package http

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed web/templates/*.html web/static
var webFS embed.FS

// Templates 解析内嵌的页面模板，模板名为文件名
func Templates() *template.Template {
	return template.Must(template.ParseFS(webFS, "web/templates/*.html"))
}

// RegisterStatic 在 /static/chat 下提供内嵌的前端资源
func RegisterStatic(r gin.IRouter) {
	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err)
	}
	r.StaticFS("/static/chat", http.FS(static))
}
