// Package mailertest provides a recording mailer.Sender for tests.
package mailertest

import (
	"context"
	"regexp"
	"sync"
)

// Sent is one captured message.
type Sent struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Recorder captures messages instead of delivering them. When Err is set,
// Send records nothing and returns it.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

func (r *Recorder) Send(_ context.Context, to, subject, text, html string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, Sent{To: to, Subject: subject, Text: text, HTML: html})
	return nil
}

// SetErr changes the failure returned by subsequent sends.
func (r *Recorder) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Err = err
}

// Messages returns a copy of everything sent so far.
func (r *Recorder) Messages() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// LastCode returns the six-digit code from the newest message to "to".
func (r *Recorder) LastCode(to string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].To != to {
			continue
		}
		if code := codePattern.FindString(r.sent[i].Text); code != "" {
			return code, true
		}
	}
	return "", false
}

// WithSubject returns the messages whose subject equals subject.
func (r *Recorder) WithSubject(subject string) []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sent
	for _, m := range r.sent {
		if m.Subject == subject {
			out = append(out, m)
		}
	}
	return out
}
