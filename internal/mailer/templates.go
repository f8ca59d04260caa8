package mailer

import (
	"fmt"
	"html"
	"time"
)

// Message is a rendered email ready for a Sender.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// LoginCode renders the mail carrying a one-time login code.
func LoginCode(code string, validFor time.Duration) Message {
	minutes := int(validFor.Minutes())
	return Message{
		Subject: "Your login code",
		Text:    fmt.Sprintf("Your code: %s\nValid for %d minutes.", code, minutes),
		HTML: fmt.Sprintf("<p>Your code: <b>%s</b></p><p>Valid for %d minutes.</p>",
			html.EscapeString(code), minutes),
	}
}

// LoginNotice renders the confirmation sent after a successful sign-in.
func LoginNotice(email string) Message {
	return Message{
		Subject: "Successful sign-in",
		Text:    fmt.Sprintf("You signed in as %s.", email),
		HTML:    "<p>You have signed in to the app.</p>",
	}
}
