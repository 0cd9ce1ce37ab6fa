package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// 每个整页模板都与这些公共模板一起解析。
var shared = []string{"templates/layout.html", "templates/partials.html", "templates/actors.html"}

// 页面模板名。
const (
	PageHome     = "home"
	PageDiscover = "discover"
	PageSearch   = "search"
	PageDetails  = "details"
	PageNotFound = "notfound"
)

// Renderer 持有解析好的模板集合。并发安全（只读）。
type Renderer struct {
	base  *template.Template
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"footer": FooterText,
}

func NewRenderer() (*Renderer, error) {
	base, err := template.New("base").Funcs(funcs).ParseFS(templateFS, shared...)
	if err != nil {
		return nil, fmt.Errorf("解析公共模板失败：%w", err)
	}
	r := &Renderer{base: base, pages: map[string]*template.Template{}}
	for _, name := range []string{PageHome, PageDiscover, PageSearch, PageDetails, PageNotFound} {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("解析模板 %s 失败：%w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Page 先渲染到缓冲区：模板出错时不会给客户端写出半个页面。
func (r *Renderer) Page(w io.Writer, name string, p Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("未知页面模板：%q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// Fragment 渲染一个公共片段（例如演员候选列表）。
func (r *Renderer) Fragment(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.base.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// Static 返回静态资源的 http.Handler（挂在 /static/ 下）。
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
