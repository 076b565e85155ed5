package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/brojonat/solplay/service/solana"
	"github.com/brojonat/solplay/service/txcodec"
)

//go:embed templates/*.html
var templatesFS embed.FS

// TemplateRenderer holds parsed HTML templates.
type TemplateRenderer struct {
	templates *template.Template
	logger    *slog.Logger
}

// NewTemplateRenderer parses the embedded templates.
func NewTemplateRenderer(logger *slog.Logger) (*TemplateRenderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &TemplateRenderer{
		templates: tmpl,
		logger:    logger,
	}, nil
}

// Render executes the named template into a buffer first so a failing
// template never leaves a half-written page.
func (tr *TemplateRenderer) Render(w http.ResponseWriter, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := tr.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

// handlePlaygroundPage serves the decode form and live activity feed.
func handlePlaygroundPage(renderer *TemplateRenderer, network solana.Network) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sample, err := txcodec.Encode(txcodec.DefaultDraft())
		if err != nil {
			renderer.logger.Warn("failed to encode sample draft", "error", err)
		}
		data := map[string]interface{}{
			"Network":   string(network),
			"HasFaucet": network.HasFaucet(),
			"SampleTx":  sample,
			"Version":   Version,
		}
		if err := renderer.Render(w, "playground.html", data); err != nil {
			renderer.logger.Error("failed to render template", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}
}
