package browser

import (
	"github.com/hazyhaar/capsync/capture/internal/extract"
)

// jsText prefers the form value over rendered text so compose inputs and
// contenteditable regions both resolve.
const jsText = `(sel) => {
	const el = document.querySelector(sel);
	if (!el) return "";
	return el.value || el.innerText || el.textContent || "";
}`

const jsHTML = `(sel) => {
	const el = document.querySelector(sel);
	return el ? el.outerHTML : "";
}`

const jsAttr = `(sel, name) => {
	const el = document.querySelector(sel);
	if (!el) return "";
	return el.getAttribute(name) || "";
}`

// Surface adapts a tab to the extraction selector queries. Failed
// evaluations read as absent elements so extraction gates apply.
func (t *Tab) Surface() extract.Surface {
	return &pageSurface{tab: t}
}

type pageSurface struct {
	tab *Tab
}

func (s *pageSurface) URL() string {
	info, err := s.tab.Page.Info()
	if err != nil {
		return s.tab.PageURL
	}
	return info.URL
}

func (s *pageSurface) Text(sel string) string {
	return s.eval(jsText, sel)
}

func (s *pageSurface) HTML(sel string) string {
	return s.eval(jsHTML, sel)
}

func (s *pageSurface) Attr(sel, name string) string {
	return s.eval(jsAttr, sel, name)
}

func (s *pageSurface) eval(js string, args ...interface{}) string {
	res, err := s.tab.Page.Eval(js, args...)
	if err != nil {
		s.tab.logger.Debug("browser: eval failed", "url", s.tab.PageURL, "error", err)
		return ""
	}
	return res.Value.Str()
}
