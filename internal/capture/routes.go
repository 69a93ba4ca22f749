package capture

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/xaenox/knowledge-hub/internal/models"
)

const MaxPages = 20

var (
	hrefPattern  = regexp.MustCompile(`href=["']([^"']+)["']`)
	assetPattern = regexp.MustCompile(`(?i)\.(js|css|png|jpg|jpeg|gif|svg|ico|woff|woff2)$`)
)

// ExtractRoutes lists the home page followed by the same-host paths linked from html.
// Anchors, mail and phone links, static assets and relative paths are skipped.
// At most MaxPages pages are returned.
func ExtractRoutes(baseURL, html string) []models.WebPage {
	title := ExtractTitle(html)
	if title == "" {
		title = "Home"
	}
	pages := []models.WebPage{{URL: baseURL, Title: title, Path: "/"}}

	base, err := url.Parse(baseURL)
	if err != nil {
		return pages
	}

	seen := map[string]bool{"/": true}
	for _, match := range hrefPattern.FindAllStringSubmatch(html, -1) {
		if len(pages) == MaxPages {
			break
		}
		href := match[1]
		if skipHref(href) {
			continue
		}

		var full *url.URL
		switch {
		case strings.HasPrefix(href, "http"):
			full, err = url.Parse(href)
			if err != nil {
				continue
			}
		case strings.HasPrefix(href, "/"):
			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			full = base.ResolveReference(ref)
		default:
			continue
		}

		if full.Host != base.Host {
			continue
		}
		path := full.Path
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		pages = append(pages, models.WebPage{URL: full.String(), Title: pageTitle(path), Path: path})
	}
	return pages
}

func skipHref(href string) bool {
	if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
		return true
	}
	return assetPattern.MatchString(href)
}

// pageTitle turns the last path segment into words, e.g. /docs/getting-started -> "getting started".
func pageTitle(path string) string {
	segment := path[strings.LastIndex(path, "/")+1:]
	if segment == "" {
		return path
	}
	return strings.ReplaceAll(segment, "-", " ")
}
