package email

import (
	"fmt"
	"html"
)

// WelcomeEmailData fills the welcome message sent when an account is
// provisioned. ResetURL is the Firebase password-reset link the user follows
// to set their first password.
type WelcomeEmailData struct {
	FirstName        string
	Email            string
	OrganisationName string
	Role             string
	ResetURL         string
	AppName          string
}

// NotificationEmailData mirrors an in-app notification.
type NotificationEmailData struct {
	FirstName string
	Email     string
	Title     string
	Body      string
	ActionURL string
	AppName   string
}

const htmlShell = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
%s
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">Thanks,<br>The %s Team</p>
</body>
</html>`

const buttonHTML = `    <p style="text-align: center; margin: 30px 0;">
        <a href="%s" style="background-color: #0f766e; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">%s</a>
    </p>`

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// BuildWelcomeEmail creates the message sent to a newly provisioned user.
func BuildWelcomeEmail(data WelcomeEmailData) Message {
	appName := orDefault(data.AppName, "Simward")
	firstName := orDefault(data.FirstName, "there")
	org := orDefault(data.OrganisationName, appName)

	subject := fmt.Sprintf("Welcome to %s", appName)

	textBody := fmt.Sprintf(`Hi %s,

An account has been created for you at %s on %s with the role %q.

Set your password using the link below:
%s

Thanks,
The %s Team`,
		firstName, org, appName, data.Role, data.ResetURL, appName)

	inner := fmt.Sprintf(`    <h2 style="color: #0f766e;">Hi %s,</h2>
    <p>An account has been created for you at <strong>%s</strong> on %s with the role <strong>%s</strong>.</p>
    <p>Set your password to sign in:</p>
`, html.EscapeString(firstName), html.EscapeString(org), html.EscapeString(appName), html.EscapeString(data.Role))
	if data.ResetURL != "" {
		inner += fmt.Sprintf(buttonHTML, html.EscapeString(data.ResetURL), "Set password")
	}

	return Message{
		To:       []string{data.Email},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: fmt.Sprintf(htmlShell, inner, html.EscapeString(appName)),
	}
}

// BuildNotificationEmail renders an in-app notification as an email.
func BuildNotificationEmail(data NotificationEmailData) Message {
	appName := orDefault(data.AppName, "Simward")
	firstName := orDefault(data.FirstName, "there")

	subject := fmt.Sprintf("[%s] %s", appName, data.Title)

	textBody := fmt.Sprintf("Hi %s,\n\n%s\n\n%s\n", firstName, data.Title, data.Body)
	if data.ActionURL != "" {
		textBody += "\nOpen: " + data.ActionURL + "\n"
	}
	textBody += fmt.Sprintf("\nThanks,\nThe %s Team", appName)

	inner := fmt.Sprintf(`    <h2 style="color: #0f766e;">Hi %s,</h2>
    <p><strong>%s</strong></p>
    <p>%s</p>
`, html.EscapeString(firstName), html.EscapeString(data.Title), html.EscapeString(data.Body))
	if data.ActionURL != "" {
		inner += fmt.Sprintf(buttonHTML, html.EscapeString(data.ActionURL), "Open")
	}

	return Message{
		To:       []string{data.Email},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: fmt.Sprintf(htmlShell, inner, html.EscapeString(appName)),
	}
}
