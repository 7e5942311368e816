package model

type Page struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	ProjectKey string `json:"project_key"`
	Version    int    `json:"version"`
}

// PageFormats carries the same page rendered in each representation Confluence offers.
type PageFormats struct {
	Title   string `json:"title"`
	Storage string `json:"storage"`
	Editor  string `json:"editor"`
	View    string `json:"view"`
}
