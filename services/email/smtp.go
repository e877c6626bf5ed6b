package email

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// Dialer is the part of *gomail.Dialer the service needs.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPService struct {
	config SMTPConfig
	dialer Dialer
}

func NewSMTPService(config SMTPConfig) *SMTPService {
	return NewSMTPServiceWithDialer(config, gomail.NewDialer(config.Host, config.Port, config.Username, config.Password))
}

func NewSMTPServiceWithDialer(config SMTPConfig, dialer Dialer) *SMTPService {
	return &SMTPService{
		config: config,
		dialer: dialer,
	}
}

func (s *SMTPService) SendEmail(to, subject, htmlBody, plainBody string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *SMTPService) SendSalesLead(to string, lead SalesLead) error {
	html, plain, err := renderLead(salesLeadHTML, salesLeadText, lead)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("New %s enquiry from %s", lead.PlanName, lead.displayCompany())
	return s.SendEmail(to, subject, html, plain)
}

func (s *SMTPService) SendContactAcknowledgement(to string, lead SalesLead) error {
	html, plain, err := renderLead(ackHTML, ackText, lead)
	if err != nil {
		return err
	}
	return s.SendEmail(to, "We received your request", html, plain)
}
