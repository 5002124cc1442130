/*
 *    Copyright 2025 sbistransin
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package view

import (
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// ResultPage is the data for the OAuth callback landing page.
type ResultPage struct {
	Emoji   string
	Heading string
	Lines   []string
}

// ConnectedPage is the landing page shown after a successful link.
func ConnectedPage() ResultPage {
	return ResultPage{
		Emoji:   "✅",
		Heading: "Connected!",
		Lines: []string{
			"Your Strava account has been linked.",
			"You can close this window and return to Discord.",
		},
	}
}

// FailedPage is the landing page shown when the link flow did not complete.
func FailedPage(reason string) ResultPage {
	return ResultPage{
		Emoji:   "❌",
		Heading: "Not connected",
		Lines:   []string{reason},
	}
}

// HTMLTemplateManager manages the embedded HTML templates.
type HTMLTemplateManager struct {
	logger    *zap.Logger
	templates *template.Template
}

// NewHTMLTemplateManager parses the embedded templates.
func NewHTMLTemplateManager(logger *zap.Logger) (*HTMLTemplateManager, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed to parse HTML templates", zap.Error(err))
		return nil, err
	}
	return &HTMLTemplateManager{
		logger:    logger.Named("html_template_manager"),
		templates: tmpl,
	}, nil
}

// RenderResult writes the result page to the ResponseWriter.
func (m *HTMLTemplateManager) RenderResult(w http.ResponseWriter, page ResultPage) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := m.templates.ExecuteTemplate(w, "result.html", page); err != nil {
		m.logger.Error("Failed to render template", zap.String("template_name", "result.html"), zap.Error(err))
		return err
	}
	return nil
}
