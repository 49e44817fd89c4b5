package ui

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"goannotate/domain/annotation"
	"goannotate/domain/core"
	"goannotate/domain/feedback"
)

// handleVisualize renders a test case as a human-readable HTML page. The
// page body is composed as markdown and converted with gomarkdown.
func (a *App) handleVisualize(w http.ResponseWriter, r *http.Request) {
	id := core.TestCaseID(chi.URLParam(r, "id"))
	tc, err := a.session.GetTestCase(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}

	md := renderTestCaseMarkdown(tc)

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	body := markdown.ToHTML([]byte(md), p, renderer)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Test Case %s</title>
<style>body{font-family:sans-serif;max-width:900px;margin:2em auto;padding:0 1em}code{background:#f4f4f4;padding:2px 4px}</style>
</head>
<body>%s</body>
</html>`, tc.ID, body)
}

func renderTestCaseMarkdown(tc *annotation.TestCase) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Test Case `%s`\n\n", tc.ID)
	fmt.Fprintf(&b, "- **Type:** %s\n", tc.Kind)
	fmt.Fprintf(&b, "- **Status:** %s\n", tc.Status)
	fmt.Fprintf(&b, "- **Granularity:** %s\n", tc.Granularity)
	fmt.Fprintf(&b, "- **Config:** `%s`\n\n", tc.Config.ID)

	if tc.InvalidReason != "" {
		fmt.Fprintf(&b, "## Invalid\n\n%s\n\n", tc.InvalidReason)
	}

	for i, input := range tc.Inputs() {
		if tc.Kind == annotation.CaseRanking {
			fmt.Fprintf(&b, "## Candidate %d\n\n", i)
		} else {
			b.WriteString("## Extracted Input\n\n")
		}
		for _, item := range input.Items {
			fmt.Fprintf(&b, "### %s\n\n%s\n\n", item.Name, item.Value)
			for _, ref := range item.References {
				if ref.Field != nil {
					fmt.Fprintf(&b, "- cited from %s `%s` (%s)\n", ref.Kind, ref.ID, *ref.Field)
				} else {
					fmt.Fprintf(&b, "- cited from %s `%s`\n", ref.Kind, ref.ID)
				}
			}
			b.WriteString("\n")
		}
	}

	writeAnnotation(&b, "AI Annotation", tc.AIAnnotation)
	writeAnnotation(&b, "Human Annotation", tc.HumanAnnotation)

	return b.String()
}

func writeAnnotation(b *strings.Builder, title string, ann *annotation.Annotation) {
	if ann == nil {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	fmt.Fprintf(b, "- **Annotator:** %s\n", ann.AnnotatorID)
	if ann.Skip {
		b.WriteString("- **Skipped**\n")
	}
	switch ann.Kind {
	case feedback.SpecCategorical:
		fmt.Fprintf(b, "- **Category:** %s\n", ann.Category)
	case feedback.SpecContinuous:
		if ann.Score != nil {
			fmt.Fprintf(b, "- **Score:** %v\n", *ann.Score)
		}
	case feedback.SpecRanking:
		fmt.Fprintf(b, "- **Rankings:** %v\n", ann.Rankings)
	}
	if ann.Comment != nil {
		fmt.Fprintf(b, "- **Comment:** %s\n", *ann.Comment)
	}
	b.WriteString("\n")
}
