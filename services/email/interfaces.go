package email

type EmailSender interface {
	SendEmail(to, subject, htmlBody, plainBody string) error
	SendSalesLead(to string, lead SalesLead) error
	SendContactAcknowledgement(to string, lead SalesLead) error
}
