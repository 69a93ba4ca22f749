package capture

import (
	"regexp"
	"strings"
)

type marker struct {
	name    string
	needles []string
}

// Checked against the lower-cased html.
var frameworkMarkers = []marker{
	{"Next.js", []string{"__next", "_next/static"}},
	{"Nuxt", []string{"__nuxt", "/_nuxt/"}},
	{"Angular", []string{"ng-version", "ng-app"}},
	{"React", []string{"data-reactroot", "__react"}},
	{"Vue", []string{"data-v-", "vue"}},
	{"Svelte", []string{"svelte"}},
	{"Astro", []string{"astro"}},
}

// Checked against the url.
var platformMarkers = []marker{
	{"Vercel", []string{"vercel.app"}},
	{"Netlify", []string{"netlify.app"}},
	{"GitHub Pages", []string{"github.io"}},
	{"Railway", []string{"railway.app"}},
	{"Render", []string{"render.com"}},
}

var cssMarkers = []marker{
	{"Tailwind", []string{"tailwind"}},
	{"Chakra UI", []string{"chakra"}},
	{"Material UI", []string{"mui", "material-ui"}},
}

var titlePattern = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)

// DetectTechStack lists frameworks, hosting platforms and CSS libraries in that order.
func DetectTechStack(html, url string) []string {
	lower := strings.ToLower(html)
	stack := []string{}
	stack = appendMatches(stack, frameworkMarkers, lower)
	stack = appendMatches(stack, platformMarkers, url)
	stack = appendMatches(stack, cssMarkers, lower)
	return stack
}

// Framework returns the first framework in stack, or "".
func Framework(stack []string) string {
	for _, tech := range stack {
		for _, m := range frameworkMarkers {
			if m.name == tech {
				return tech
			}
		}
	}
	return ""
}

// ExtractTitle returns the trimmed contents of the first <title> element.
func ExtractTitle(html string) string {
	m := titlePattern.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func appendMatches(stack []string, markers []marker, haystack string) []string {
	for _, m := range markers {
		for _, needle := range m.needles {
			if strings.Contains(haystack, needle) {
				stack = append(stack, m.name)
				break
			}
		}
	}
	return stack
}
