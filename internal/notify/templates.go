package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

type message struct {
	subject string
	body    *template.Template
}

// Templates renders notification emails. Values are HTML-escaped.
type Templates struct {
	messages map[Kind]message
}

var defaultBodies = map[Kind]struct{ subject, body string }{
	KindBookingConfirmed: {
		subject: "Appointment confirmation",
		body: `<h3>Hello {{.name}},</h3>
<p>You booked an appointment with <b>Dr. {{.doctor}}</b> ({{.specialty}}).</p>
<p>Time: <b>{{.time}}</b></p>
<p>Reason: <b>{{.reason}}</b></p>
<br/>
<p>Thank you for choosing our clinic.</p>
<p><i>(This is an automated email, please do not reply)</i></p>`,
	},
	KindBookingCanceled: {
		subject: "Appointment cancellation",
		body: `<h3>Hello {{.name}},</h3>
<p>You canceled your appointment with <b>Dr. {{.doctor}}</b> ({{.specialty}}).</p>
<p>Time: <b>{{.time}}</b></p>
<p><b>Reason:</b> {{.cancel_reason}}</p>
<br/>
<p>If you have any questions please contact us.</p>`,
	},
	KindDiagnosisReady: {
		subject: "Your examination results",
		body: `<h3>Hello {{.name}},</h3>
<p>Dr. <b>{{.doctor}}</b> has completed your examination results.</p>
<p><b>Diagnosis:</b> {{.diagnosis}}</p>
<p><b>Notes:</b> {{.notes}}</p>
<p>Examination time: {{.time}}</p>
<br/>
<p>Get well soon, and thank you for trusting our clinic.</p>`,
	},
	KindPasswordChanged: {
		subject: "Password changed",
		body: `<h3>Hello {{.name}},</h3>
<p>The password of your account was changed successfully.</p>
<p>If you did not do this, contact our support team immediately.</p>
<p><i>(This is an automated email, please do not reply)</i></p>`,
	},
}

// NewTemplates parses the built-in email templates.
func NewTemplates() (*Templates, error) {
	t := &Templates{messages: make(map[Kind]message, len(defaultBodies))}
	for kind, def := range defaultBodies {
		tmpl, err := template.New(string(kind)).Option("missingkey=zero").Parse(def.body)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", kind, err)
		}
		t.messages[kind] = message{subject: def.subject, body: tmpl}
	}
	return t, nil
}

// Render returns the subject and HTML body for event.
func (t *Templates) Render(event Event) (subject, body string, err error) {
	msg, ok := t.messages[event.Kind]
	if !ok {
		return "", "", fmt.Errorf("unknown notification kind %q", event.Kind)
	}
	data := event.Data
	if data == nil {
		data = map[string]string{}
	}
	var buf bytes.Buffer
	if err := msg.body.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", event.Kind, err)
	}
	return msg.subject, buf.String(), nil
}
