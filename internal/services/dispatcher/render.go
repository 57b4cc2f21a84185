package dispatcher

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/magabrotheeeer/juridico/internal/models"
)

//go:embed templates
var templatesFS embed.FS

const dateLayout = "02/01/2006"

// Renderer собирает письмо напоминания по типу записи.
type Renderer struct {
	html        *htmltemplate.Template
	text        *texttemplate.Template
	brand       string
	frontendURL string
	loc         *time.Location
}

type templateData struct {
	Brand       string
	Name        string
	Title       string
	Description string
	Priority    string
	DueDate     string
	Link        string
	KindLabel   string
	Amount      string
	Category    string
	Income      bool
}

// NewRenderer разбирает встроенные шаблоны. Даты выводятся в часовом поясе loc.
func NewRenderer(brand, frontendURL string, loc *time.Location) (*Renderer, error) {
	const op = "dispatcher.NewRenderer"
	html, err := htmltemplate.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	text, err := texttemplate.ParseFS(templatesFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Renderer{
		html:        html,
		text:        text,
		brand:       brand,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		loc:         loc,
	}, nil
}

// Render возвращает письмо для напоминания.
func (r *Renderer) Render(rem models.Reminder) (models.Message, error) {
	const op = "dispatcher.Render"
	owner := rem.Recipient()
	data := templateData{
		Brand:   r.brand,
		Name:    owner.Name,
		DueDate: rem.DueDate().In(r.loc).Format(dateLayout),
	}

	var subject string
	switch v := rem.(type) {
	case *models.DueTask:
		data.Title = v.Title
		data.Description = v.Description
		data.Priority = strings.ToUpper(v.Priority)
		data.Link = r.frontendURL + "/tarefas"
		subject = fmt.Sprintf("Lembrete: %s - %s", v.Title, r.brand)
	case *models.OverdueEntry:
		data.Title = v.Description
		data.Amount = v.Amount
		data.Category = v.Category
		data.Income = v.Type == models.EntryIncome
		data.KindLabel = "Despesa"
		if data.Income {
			data.KindLabel = "Receita"
		}
		data.Link = r.frontendURL + "/financeiro"
		subject = fmt.Sprintf("%s Vencida: %s - %s", data.KindLabel, v.Description, r.brand)
	default:
		return models.Message{}, fmt.Errorf("%s: unsupported reminder kind %q", op, rem.Kind())
	}

	name := string(rem.Kind())
	var html, text bytes.Buffer
	if err := r.html.ExecuteTemplate(&html, name+".html", data); err != nil {
		return models.Message{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := r.text.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return models.Message{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.Message{
		To:      owner.Email,
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
