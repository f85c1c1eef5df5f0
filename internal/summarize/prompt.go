// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/paper-picker/pkg/types"
)

const (
	maxPromptAuthors  = 3
	maxAbstractLength = 2000
)

// systemPromptTmpl frames the model as a domain reviewer writing for readers who
// are new to the field.
var systemPromptTmpl = template.Must(template.New("system").Parse(`You are a researcher specializing in power systems, energy forecasting and AI.
Summarize papers in {{.Language}} from the perspective of electricity demand forecasting, renewable generation forecasting, smart grids and AI/generative AI.
Keep the summary approachable for beginners: when a difficult term appears, add a short explanation.`))

var summaryPromptTmpl = template.Must(template.New("summary").Parse(`Write a detailed summary and commentary of the following paper in {{.Language}}, from the perspective of the power sector.

[Paper]
Title: {{.Title}}
Authors: {{.Authors}}
Submitted: {{.Published}}
Categories: {{.Categories}}
PDF: {{.PDFURL}}

[Abstract]
{{.Abstract}}

[Output format]
📄 {{.Title}}
📎 PDF: {{.PDFURL}}

Authors: {{.Authors}}
Submitted: {{.Published}}
Categories: {{.Categories}}

🎯 Background and goal
[The power or energy problem the work addresses]

🔬 Method
[The proposed approach and the AI techniques it uses]

📊 Results
[Main findings, forecast accuracy or performance gains]

💡 Applications in the power sector
[Concrete uses in demand forecasting, renewable forecasting or grid operation]

⭐ Importance for the power sector (1-5)
★★★☆☆ [Reasoning in terms of practicality and novelty]

🔍 Highlights
- Demand forecasting:
- Renewable generation forecasting:
- AI / generative AI:
- Distributed grid resources:
- Electricity price forecasting:
- Other:

---
`))

type promptData struct {
	Language   string
	Title      string
	Authors    string
	Published  string
	Categories string
	PDFURL     string
	Abstract   string
}

// BuildPrompt renders the system and user prompts for one paper. Only the
// first three authors are listed and the abstract is cut at 2000 characters.
func BuildPrompt(p types.PaperRecord, language string) (system, user string, err error) {
	data := promptData{
		Language:   language,
		Title:      orNA(p.Title),
		Authors:    formatAuthors(p.Authors),
		Published:  "N/A",
		Categories: strings.Join(p.Categories, ", "),
		PDFURL:     orNA(p.PDFURL),
		Abstract:   truncateRunes(p.Abstract, maxAbstractLength),
	}
	if !p.Published.IsZero() {
		data.Published = p.Published.Format("2006-01-02")
	}

	var sys, usr bytes.Buffer
	if err := systemPromptTmpl.Execute(&sys, data); err != nil {
		return "", "", err
	}
	if err := summaryPromptTmpl.Execute(&usr, data); err != nil {
		return "", "", err
	}
	return sys.String(), usr.String(), nil
}

func formatAuthors(authors []string) string {
	if len(authors) <= maxPromptAuthors {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:maxPromptAuthors], ", ") + " et al."
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
