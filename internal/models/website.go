package models

import "time"

type WebPage struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

// WebsiteMetadata is attached to captured website and webapp items.
type WebsiteMetadata struct {
	BaseURL       string     `json:"baseUrl"`
	Pages         []WebPage  `json:"pages"`
	TechStack     []string   `json:"techStack,omitempty"`
	Framework     string     `json:"framework,omitempty"`
	IsDeployed    bool       `json:"isDeployed"`
	DeploymentURL string     `json:"deploymentUrl,omitempty"`
	Screenshot    string     `json:"screenshot,omitempty"`
	LastCrawled   *time.Time `json:"lastCrawled,omitempty"`
}

func (w WebsiteMetadata) Clone() WebsiteMetadata {
	out := w
	out.Pages = append([]WebPage(nil), w.Pages...)
	out.TechStack = append([]string(nil), w.TechStack...)
	if w.LastCrawled != nil {
		t := *w.LastCrawled
		out.LastCrawled = &t
	}
	return out
}
