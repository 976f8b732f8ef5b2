package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
)

var htmlBody = htmltemplate.Must(htmltemplate.New("invitation.html").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #eee; border-radius: 5px;">
  <h2 style="color: #333;">Project invitation</h2>
  <p>Hello,</p>
  <p>You have been invited to join <strong>{{.Project.Name}}</strong> as an editor.</p>
  <p>Project owner: {{.Project.Creator}}</p>
  <div style="margin: 30px 0;">
    <a href="{{.AcceptURL}}" style="display: inline-block; background-color: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 4px; margin-right: 10px;">Accept</a>
    <a href="{{.RejectURL}}" style="display: inline-block; background-color: #f44336; color: white; padding: 10px 20px; text-decoration: none; border-radius: 4px;">Decline</a>
  </div>
  <p style="color: #777; font-size: 12px;">This invitation expires on {{.Invitation.ExpiresAt.Format "2006-01-02 15:04 MST"}}. If the buttons do not work, copy these links into your browser:</p>
  <p style="color: #777; font-size: 12px;">Accept: {{.AcceptURL}}</p>
  <p style="color: #777; font-size: 12px;">Decline: {{.RejectURL}}</p>
</div>
`))

var textBody = template.Must(template.New("invitation.txt").Parse(`Hello,

You have been invited to join "{{.Project.Name}}" as an editor.
Project owner: {{.Project.Creator}}

Accept: {{.AcceptURL}}
Decline: {{.RejectURL}}

This invitation expires on {{.Invitation.ExpiresAt.Format "2006-01-02 15:04 MST"}}.
`))

// Subject returns the mail subject for a notice.
func Subject(notice InvitationNotice) string {
	return fmt.Sprintf("Invitation to join project: %s", notice.Project.Name)
}

// Render returns the HTML and plain-text bodies for a notice.
func Render(notice InvitationNotice) (html string, text string, err error) {
	var hb, tb bytes.Buffer
	if err := htmlBody.Execute(&hb, notice); err != nil {
		return "", "", fmt.Errorf("failed to render html body: %w", err)
	}
	if err := textBody.Execute(&tb, notice); err != nil {
		return "", "", fmt.Errorf("failed to render text body: %w", err)
	}
	return hb.String(), tb.String(), nil
}
