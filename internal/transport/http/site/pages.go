package sitehttp

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"time"

	"diagnoseme/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

type pageDef struct {
	Path        string
	Name        string
	Label       string
	Title       string
	Description string
}

// sitePages drives routing, navigation and the sitemap.
var sitePages = []pageDef{
	{Path: "/", Name: "home", Label: "Home"},
	{
		Path:        "/diagnose",
		Name:        "diagnose",
		Label:       "Diagnose",
		Title:       "Diagnose",
		Description: "Upload a photo of a skin condition or visible symptom and get an instant AI-assisted preliminary assessment.",
	},
	{
		Path:        "/about",
		Name:        "about",
		Label:       "About",
		Title:       "About",
		Description: "How Diagnose Me uses AI vision models to make preliminary health assessments accessible.",
	},
	{
		Path:        "/contact",
		Name:        "contact",
		Label:       "Contact",
		Title:       "Contact",
		Description: "Get in touch with the Diagnose Me team.",
	},
}

// SEO is the head metadata of one page.
type SEO struct {
	Title       string
	Description string
	URL         string
	SiteName    string
	TwitterSite string
	JSONLD      template.JS
}

type jsonLDOrganization struct {
	Type string `json:"@type"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type jsonLDPage struct {
	Context     string             `json:"@context"`
	Type        string             `json:"@type"`
	Name        string             `json:"name"`
	URL         string             `json:"url"`
	Description string             `json:"description"`
	Publisher   jsonLDOrganization `json:"publisher"`
}

// buildSEO titles pages "<Title> | <Site>"; untitled pages use the bare site
// name. The canonical URL is the trimmed site URL plus the page path.
func buildSEO(site config.SiteConfig, p pageDef) SEO {
	base := site.BaseURL()
	title := site.Name
	if p.Title != "" {
		title = p.Title + " | " + site.Name
	}
	desc := p.Description
	if desc == "" {
		desc = site.Description
	}
	url := base + p.Path
	ld, _ := json.Marshal(jsonLDPage{
		Context:     "https://schema.org",
		Type:        "MedicalWebPage",
		Name:        title,
		URL:         url,
		Description: desc,
		Publisher:   jsonLDOrganization{Type: "Organization", Name: site.Name, URL: base},
	})
	return SEO{
		Title:       title,
		Description: desc,
		URL:         url,
		SiteName:    site.Name,
		TwitterSite: site.TwitterSite,
		JSONLD:      template.JS(ld),
	}
}

type navLink struct {
	Path  string
	Label string
}

type pageView struct {
	SEO            SEO
	Path           string
	Nav            []navLink
	Year           int
	ModelName      string
	ContactEmail   string
	MaxUploadBytes int64
}

func (h *handlers) registerPages(router *gin.Engine) {
	nav := make([]navLink, 0, len(sitePages))
	for _, p := range sitePages {
		nav = append(nav, navLink{Path: p.Path, Label: p.Label})
	}
	for _, p := range sitePages {
		p := p
		tmpl := h.pages[p.Name]
		seo := buildSEO(h.cfg.Site, p)
		router.GET(p.Path, func(c *gin.Context) {
			c.Render(http.StatusOK, render.HTML{
				Template: tmpl,
				Name:     "layout",
				Data: pageView{
					SEO:            seo,
					Path:           p.Path,
					Nav:            nav,
					Year:           time.Now().Year(),
					ModelName:      h.modelName(),
					ContactEmail:   h.cfg.Site.ContactEmail,
					MaxUploadBytes: h.cfg.MaxBodyBytes,
				},
			})
		})
	}
}

func (h *handlers) modelName() string {
	if name := strings.TrimSpace(h.cfg.ModelName); name != "" {
		return name
	}
	return "a vision language model"
}
