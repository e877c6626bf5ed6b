package email

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingDialer struct {
	messages []*gomail.Message
	err      error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	d.messages = append(d.messages, m...)
	return d.err
}

func render(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func testLead() SalesLead {
	return SalesLead{
		ReferenceID:  "ref-1",
		Name:         "Jane Doe",
		Email:        "jane@example.com",
		Company:      "Acme <Corp>",
		PlanName:     "Enterprise",
		BillingCycle: "annual",
		Currency:     "USD",
		Message:      "We need 40 seats",
	}
}

func TestSendSalesLead(t *testing.T) {
	d := &recordingDialer{}
	svc := NewSMTPServiceWithDialer(SMTPConfig{FromAddress: "no-reply@example.com", FromName: "Checkout"}, d)

	require.NoError(t, svc.SendSalesLead("sales@example.com", testLead()))
	require.Len(t, d.messages, 1)

	m := d.messages[0]
	assert.Equal(t, []string{"sales@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"New Enterprise enquiry from Acme <Corp>"}, m.GetHeader("Subject"))

	raw := render(t, m)
	assert.Contains(t, raw, "ref-1")
	assert.Contains(t, raw, "Acme &lt;Corp&gt;", "html part must be escaped")
	assert.True(t, strings.Contains(raw, "text/plain") && strings.Contains(raw, "text/html"))
}

func TestSendContactAcknowledgement(t *testing.T) {
	d := &recordingDialer{}
	svc := NewSMTPServiceWithDialer(SMTPConfig{FromAddress: "no-reply@example.com"}, d)

	require.NoError(t, svc.SendContactAcknowledgement("jane@example.com", testLead()))
	require.Len(t, d.messages, 1)
	assert.Equal(t, []string{"We received your request"}, d.messages[0].GetHeader("Subject"))
	assert.Contains(t, render(t, d.messages[0]), "Thanks, Jane Doe!")
}

func TestSendEmail_DialError(t *testing.T) {
	d := &recordingDialer{err: errors.New("connection refused")}
	svc := NewSMTPServiceWithDialer(SMTPConfig{FromAddress: "no-reply@example.com"}, d)

	err := svc.SendEmail("a@example.com", "s", "<p>h</p>", "h")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
