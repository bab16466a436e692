package sitehttp

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURL struct {
	Loc string `xml:"loc"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// buildSitemap lists every public page under base, which must carry no
// trailing slash.
func buildSitemap(base string) ([]byte, error) {
	set := urlSet{Xmlns: sitemapNS}
	for _, p := range sitePages {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + p.Path})
	}
	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

func (h *handlers) handleSitemap(c *gin.Context) {
	body, err := buildSitemap(h.cfg.Site.BaseURL())
	if err != nil {
		c.String(http.StatusInternalServerError, "sitemap unavailable")
		return
	}
	c.Data(http.StatusOK, "text/xml", body)
}

func (h *handlers) handleRobots(c *gin.Context) {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /api/\nDisallow: /admin/\n\nSitemap: %s/sitemap.xml\n", h.cfg.Site.BaseURL())
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(body))
}
