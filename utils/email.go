package utils

import (
	"encoding/base64"
	"fmt"
	"strings"

	"concert_manager/config"
	"concert_manager/model"

	log "github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// SendTicketConfirmationEmail mails the buyer their tickets with embedded
// QR images. Async so it never delays the verify response; failures are
// logged and dropped.
func SendTicketConfirmationEmail(cfg *config.Config, to string, order *model.Order, tickets []model.Ticket) {
	if cfg.SMTPHost == "" || to == "" {
		return
	}
	go func() {
		var body strings.Builder
		body.WriteString(fmt.Sprintf("<h2>Your tickets for order #%d</h2>", order.ID))
		body.WriteString(fmt.Sprintf("<p>%s × %d — total %d.%02d</p>",
			order.TierName, order.Quantity, order.TotalAmount/100, order.TotalAmount%100))

		for i, ticket := range tickets {
			qrBytes, err := GenerateQRCode(ticket.QRCode, 300)
			if err != nil {
				log.Warnf("qr render for ticket %d failed: %v", ticket.ID, err)
				continue
			}
			body.WriteString(fmt.Sprintf(
				`<p>Ticket %d</p><img src="data:image/png;base64,%s" alt="ticket qr"/>`,
				i+1, base64.StdEncoding.EncodeToString(qrBytes)))
		}

		m := gomail.NewMessage()
		m.SetHeader("From", cfg.SMTPFrom)
		m.SetHeader("To", to)
		m.SetHeader("Subject", fmt.Sprintf("Your tickets — order #%d", order.ID))
		m.SetBody("text/html", body.String())

		d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
		if err := d.DialAndSend(m); err != nil {
			log.Warnf("ticket confirmation email to %s failed: %v", to, err)
		}
	}()
}
