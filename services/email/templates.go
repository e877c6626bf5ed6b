package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// SalesLead is the contact-sales request forwarded to the sales inbox.
type SalesLead struct {
	ReferenceID     string
	Name            string
	Email           string
	Company         string
	Phone           string
	Country         string
	Message         string
	PlanName        string
	BillingCycle    string
	Currency        string
	AcceptMarketing bool
}

func (l SalesLead) displayCompany() string {
	if l.Company != "" {
		return l.Company
	}
	return l.Name
}

var salesLeadHTML = htmltemplate.Must(htmltemplate.New("lead").Parse(`
<html>
<body>
	<h2>New {{.PlanName}} enquiry</h2>
	<table>
		<tr><td>Reference</td><td>{{.ReferenceID}}</td></tr>
		<tr><td>Name</td><td>{{.Name}}</td></tr>
		<tr><td>Email</td><td><a href="mailto:{{.Email}}">{{.Email}}</a></td></tr>
		{{if .Company}}<tr><td>Company</td><td>{{.Company}}</td></tr>{{end}}
		{{if .Phone}}<tr><td>Phone</td><td>{{.Phone}}</td></tr>{{end}}
		{{if .Country}}<tr><td>Country</td><td>{{.Country}}</td></tr>{{end}}
		<tr><td>Billing</td><td>{{.BillingCycle}} / {{.Currency}}</td></tr>
		<tr><td>Marketing opt-in</td><td>{{if .AcceptMarketing}}yes{{else}}no{{end}}</td></tr>
	</table>
	{{if .Message}}<p>{{.Message}}</p>{{end}}
</body>
</html>
`))

var salesLeadText = texttemplate.Must(texttemplate.New("lead").Parse(`New {{.PlanName}} enquiry

Reference: {{.ReferenceID}}
Name: {{.Name}}
Email: {{.Email}}
{{if .Company}}Company: {{.Company}}
{{end}}{{if .Phone}}Phone: {{.Phone}}
{{end}}{{if .Country}}Country: {{.Country}}
{{end}}Billing: {{.BillingCycle}} / {{.Currency}}
Marketing opt-in: {{if .AcceptMarketing}}yes{{else}}no{{end}}
{{if .Message}}
{{.Message}}
{{end}}`))

var ackHTML = htmltemplate.Must(htmltemplate.New("ack").Parse(`
<html>
<body>
	<h2>Thanks, {{.Name}}!</h2>
	<p>Our sales team received your {{.PlanName}} request and will reach out within one business day.</p>
	<p>Your reference number is <strong>{{.ReferenceID}}</strong>.</p>
</body>
</html>
`))

var ackText = texttemplate.Must(texttemplate.New("ack").Parse(`Thanks, {{.Name}}!

Our sales team received your {{.PlanName}} request and will reach out within one business day.
Your reference number is {{.ReferenceID}}.
`))

func renderLead(html *htmltemplate.Template, text *texttemplate.Template, lead SalesLead) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := html.Execute(&hb, lead); err != nil {
		return "", "", fmt.Errorf("failed to render html template %s: %w", html.Name(), err)
	}
	if err := text.Execute(&tb, lead); err != nil {
		return "", "", fmt.Errorf("failed to render text template %s: %w", text.Name(), err)
	}
	return hb.String(), tb.String(), nil
}
