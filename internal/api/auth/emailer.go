package auth

import (
	"fmt"
	"net/smtp"
	"os"

	"github.com/rs/zerolog/log"
)

func SendVerificationEmail(to string, token string) error {
	from := os.Getenv("SMTP_FROM")
	password := os.Getenv("SMTP_PASSWORD")
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")

	link := fmt.Sprintf("%s/verify?token=%s", os.Getenv("API_URL"), token)

	if host == "" {
		// Local development: no SMTP configured, just log the link.
		log.Info().Str("to", to).Str("link", link).Msg("verification email (not sent, SMTP unconfigured)")
		return nil
	}

	auth := smtp.PlainAuth("", from, password, host)

	subject := "Verify Your Account"
	body := fmt.Sprintf("Click the following link to verify your account:\n\n%s", link)

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		body + "\r\n")

	err := smtp.SendMail(host+":"+port, auth, from, []string{to}, message)
	if err != nil {
		log.Error().Err(err).Str("to", to).Msg("SMTP send failed")
	}
	return err
}
