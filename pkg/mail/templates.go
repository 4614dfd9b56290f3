package mail

import (
	"bytes"
	_ "embed"
	"html/template"

	"github.com/Masterminds/sprig/v3"
)

// ReminderSubject is the subject line of every overdue reminder.
const ReminderSubject = "Urgent: Loan Payment Overdue"

// ReminderMailParams carries the account fields embedded in a reminder.
// All values are pre-formatted for display.
type ReminderMailParams struct {
	Name      string
	Amount    string
	LoanType  string
	DueDate   string
	AccountID string
	// BrandingName signs the message, e.g. "Mvlzerz App".
	BrandingName string
}

var (
	reminderTemplate = template.New("reminder").Funcs(sprig.HtmlFuncMap())

	//go:embed templates/reminder.html
	reminderTemplateRaw string
)

func init() {
	if _, err := reminderTemplate.Parse(reminderTemplateRaw); err != nil {
		panic(err)
	}
}

func render(t *template.Template, p any) (string, error) {
	b := bytes.Buffer{}
	err := t.Execute(&b, p)
	return b.String(), err
}

// RenderReminder returns the HTML body of the overdue reminder. Field values
// are HTML-escaped in the markup (O'Brien is written as O&#39;Brien), so the
// literal values appear in the text a mail client displays, not byte for byte
// in the raw HTML.
func RenderReminder(p ReminderMailParams) (string, error) {
	return render(reminderTemplate, p)
}
