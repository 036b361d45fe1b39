// Package prompt renders the templated system prompt for a turn.
// Rendering is pure; a failure aborts the turn before any network call.
package prompt

import (
	"strings"
	"text/template"
	"time"

	"github.com/blueberrycongee/memgate/pkg/errors"
	"github.com/blueberrycongee/memgate/pkg/types"
)

// DefaultUserName is substituted when the environment cannot resolve the
// user identifier to a display name.
const DefaultUserName = "Utilisateur"

// DefaultTemplate is the stock system prompt shipped with the engine.
const DefaultTemplate = `Tu es un assistant vocal nommé {{ .AssistantName }}.
Tu aides l'utilisateur avec sa maison connectée.
Réponds en français de manière concise et utile.
L'utilisateur actuel est : {{ .UserName }}.
{{- if not .Entities.Empty }}

État actuel de la maison ({{ .Entities.Total }} entités) :
{{- range .Entities.Groups }}
{{ .Domain }}:
{{- range .Entities }}
- {{ .Name }} ({{ .EntityID }}) : {{ .State }}{{ if .Unit }} {{ .Unit }}{{ end }}
{{- end }}
{{- end }}
{{- end }}`

// TimeLayout formats CurrentTime for templates, day first as the default
// French prompt expects.
const TimeLayout = "02/01/2006 15:04"

// Vars holds the contextual variables available to a prompt template.
type Vars struct {
	AssistantName string
	UserName      string
	CurrentTime   string
	Entities      types.FilteredEntities
}

// Render executes templateText against vars. Syntax errors and references to
// undefined constructs surface as a template error.
func Render(templateText string, vars Vars) (string, error) {
	if vars.UserName == "" {
		vars.UserName = DefaultUserName
	}
	if vars.CurrentTime == "" {
		vars.CurrentTime = time.Now().Format(TimeLayout)
	}

	tmpl, err := template.New("system_prompt").Option("missingkey=error").Parse(templateText)
	if err != nil {
		return "", errors.NewTemplateError(err.Error())
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, vars); err != nil {
		return "", errors.NewTemplateError(err.Error())
	}
	return sb.String(), nil
}
