package mail

import (
	"bytes"
	"fmt"
	"text/template"

	"gopkg.in/gomail.v2"

	"github.com/eadhub/eadhub-payments/internal/usecase"
)

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	if from == "" {
		from = "nao-responda@eadhub.com.br"
	}
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
}

func (s *EmailSender) SendPixPaymentPendingEmail(data usecase.PixPendingEmail) error {
	body, err := render(pixPendingTemplate, data)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Seu PIX para o plano %s está aguardando pagamento", data.PlanName)
	return s.send(data.StudentEmail, subject, body)
}

func (s *EmailSender) SendPixPaymentExpiredEmail(data usecase.PixExpiredEmail) error {
	body, err := render(pixExpiredTemplate, data)
	if err != nil {
		return err
	}
	return s.send(data.StudentEmail, "Seu PIX expirou — gere um novo para continuar", body)
}

func (s *EmailSender) SendPixPaymentConfirmedEmail(data usecase.SubscriptionConfirmedEmail) error {
	body, err := render(confirmedTemplate, data)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Pagamento confirmado! Bem-vindo ao plano %s 🚀", data.PlanName)
	return s.send(data.StudentEmail, subject, body)
}

func (s *EmailSender) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func render(t *template.Template, data any) (string, error) {
	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", fmt.Errorf("render email template: %w", err)
	}
	return body.String(), nil
}
