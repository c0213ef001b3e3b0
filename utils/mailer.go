package utils

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jheiberg/17peppertree/logger"
	"github.com/jheiberg/17peppertree/models"
)

// Property details used in guest-facing mail.
const (
	PropertyName    = "17 @ Peppertree"
	PropertyAddress = "17 Peperboom Crescent, Vredekloof, Brackenfell, 7560"
	PropertyPhone   = "063 630 7345"
)

// Mailer sends booking notifications over SMTP. An unconfigured mailer
// (empty username) silently drops messages so that booking flows keep
// working in environments without mail credentials.
type Mailer struct {
	Host       string
	Port       string
	Username   string
	Password   string
	Sender     string
	OwnerEmail string
}

func NewMailerFromEnv() *Mailer {
	return &Mailer{
		Host:       EnvOrDefault("MAIL_SERVER", "smtp.gmail.com"),
		Port:       EnvOrDefault("MAIL_PORT", "587"),
		Username:   EnvOrDefault("MAIL_USERNAME", ""),
		Password:   EnvOrDefault("MAIL_PASSWORD", ""),
		Sender:     EnvOrDefault("MAIL_DEFAULT_SENDER", ""),
		OwnerEmail: EnvOrDefault("OWNER_EMAIL", ""),
	}
}

func (m *Mailer) send(to, subject, body string) error {
	if m.Username == "" || to == "" {
		logger.Log.Debug("mailer not configured, dropping message", "subject", subject)
		return nil
	}
	sender := m.Sender
	if sender == "" {
		sender = m.Username
	}
	msg := strings.Join([]string{
		"From: " + sender,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	addr := m.Host + ":" + m.Port
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	if err := smtp.SendMail(addr, auth, sender, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// SendBookingConfirmation mails the guest after a booking request is
// submitted.
func (m *Mailer) SendBookingConfirmation(b *models.BookingRequest) error {
	subject := fmt.Sprintf("Booking Request Confirmation - %s", PropertyName)
	special := b.SpecialRequests
	if special == "" {
		special = "None"
	}
	body := fmt.Sprintf(`Dear %s,

Thank you for your booking request at %s!

Booking Details:
- Check-in: %s
- Check-out: %s
- Guests: %d
- Special Requests: %s

Your booking request (ID: %d) has been received and is currently being reviewed.
We will contact you within 24 hours to confirm your reservation.

If you have any questions, please contact us at %s.

Best regards,
The Team at %s
%s
`,
		b.GuestName, PropertyName,
		b.CheckinDate.Format("January 02, 2006"),
		b.CheckoutDate.Format("January 02, 2006"),
		b.Guests, special, b.ID, PropertyPhone, PropertyName, PropertyAddress)

	return m.send(b.Email, subject, body)
}

// SendOwnerNotification mails the property owner about a new request.
func (m *Mailer) SendOwnerNotification(b *models.BookingRequest) error {
	if m.OwnerEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("New Booking Request - %s", PropertyName)
	body := fmt.Sprintf(`A new booking request has been submitted.

Guest: %s
Email: %s
Phone: %s
Check-in: %s
Check-out: %s
Guests: %d
Special Requests: %s

Booking ID: %d

Review it in the admin dashboard.
`,
		b.GuestName, b.Email, b.Phone,
		b.CheckinDate.Format("January 02, 2006"),
		b.CheckoutDate.Format("January 02, 2006"),
		b.Guests, b.SpecialRequests, b.ID)

	return m.send(m.OwnerEmail, subject, body)
}

// SendStatusUpdate mails the guest when the booking status changes.
func (m *Mailer) SendStatusUpdate(b *models.BookingRequest) error {
	subject := fmt.Sprintf("Booking Update - %s", PropertyName)
	body := fmt.Sprintf(`Dear %s,

The status of your booking request (ID: %d) has been updated.

New status: %s
Check-in: %s
Check-out: %s

If you have any questions, please contact us at %s.

Best regards,
The Team at %s
%s
`,
		b.GuestName, b.ID, b.Status,
		b.CheckinDate.Format("January 02, 2006"),
		b.CheckoutDate.Format("January 02, 2006"),
		PropertyPhone, PropertyName, PropertyAddress)

	return m.send(b.Email, subject, body)
}
