package notify

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"strconv"
	texttemplate "text/template"
	"time"
)

const verificationSubject = "Confirm your email address"

//go:embed templates/*
var templateFS embed.FS

var (
	verificationHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/verification.html"))
	verificationText = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/verification.txt"))
)

type verificationData struct {
	FullName string
	Link     string
	Validity string
}

func renderVerification(msg Message) (Email, error) {
	data := verificationData{
		FullName: msg.FullName,
		Link:     msg.Link,
		Validity: humanizeDuration(msg.Validity),
	}

	var html, text bytes.Buffer
	if err := verificationHTML.Execute(&html, data); err != nil {
		return Email{}, err
	}
	if err := verificationText.Execute(&text, data); err != nil {
		return Email{}, err
	}

	return Email{Subject: verificationSubject, HTML: html.String(), Text: text.String()}, nil
}

// humanizeDuration renders whole units only: "5 minutes", "1 hour", "2 days".
func humanizeDuration(d time.Duration) string {
	unit := func(n time.Duration, name string) string {
		if n != 1 {
			name += "s"
		}
		return strconv.FormatInt(int64(n), 10) + " " + name
	}

	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return unit(d/(24*time.Hour), "day")
	case d >= time.Hour && d%time.Hour == 0:
		return unit(d/time.Hour, "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return unit(d/time.Minute, "minute")
	default:
		return d.String()
	}
}
