package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

// SendGridURL is a var so tests can point the client at a local server.
var SendGridURL = "https://api.sendgrid.com/v3/mail/send"

type sgEmail struct {
	Email string `json:"email"`
}

type sgPersonalization struct {
	To []sgEmail `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgPayload struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgEmail             `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

// SendMail delivers one message to the given recipients through the SendGrid
// v3 API. Each recipient gets its own personalization so addresses are not
// leaked between invitees. When SendGrid is disabled the message is logged
// and dropped.
func SendMail(to []string, subject, plainText, html string) error {
	if len(to) == 0 {
		return errors.New("no recipients")
	}
	if !Settings.UseSendGrid {
		log.Printf("mail disabled: would send %q to %d recipient(s)", subject, len(to))
		return nil
	}

	personalizations := make([]sgPersonalization, 0, len(to))
	for _, addr := range to {
		personalizations = append(personalizations, sgPersonalization{To: []sgEmail{{Email: addr}}})
	}
	content := []sgContent{{Type: "text/plain", Value: plainText}}
	if html != "" {
		content = append(content, sgContent{Type: "text/html", Value: html})
	}
	payload := sgPayload{
		Personalizations: personalizations,
		From:             sgEmail{Email: Settings.FromEmail},
		Subject:          subject,
		Content:          content,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, SendGridURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+MailAPIKey)
	req.Header.Set("Content-Type", "application/json")

	timeout := Settings.EmailTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

func renderBroadcastHTML(subject, content, buttonText, buttonLink string) string {
	linkHTML := ""
	if buttonText != "" && buttonLink != "" {
		linkHTML = fmt.Sprintf(`<a href="%s">%s</a>`, buttonLink, buttonText)
	}
	return fmt.Sprintf(
		"<html><body><h2>%s</h2><div>%s</div>%s<p>Sent by Petrox Assessment Platform</p></body></html>",
		subject, content, linkHTML)
}

func renderBroadcastText(subject, content, buttonText, buttonLink string) string {
	text := subject + "\n\n" + content + "\n\n"
	if buttonText != "" && buttonLink != "" {
		text += buttonText + ": " + buttonLink + "\n\n"
	}
	text += "Unsubscribe: " + Settings.FrontendDomain + "/unsubscribe"
	return text
}

// SendEmailMessageBatched sends a stored broadcast to every active user in
// batches, pausing between batches. Batch failures are logged and skipped;
// sent_at is stamped once at the end. Intended to run in a goroutine.
func SendEmailMessageBatched(emailID int, testTo string) {
	var subject, content, buttonText, buttonLink string
	var sentAt *time.Time
	err := DB.QueryRow(`SELECT subject, content, button_text, button_link, sent_at FROM email_messages WHERE id = $1`,
		emailID).Scan(&subject, &content, &buttonText, &buttonLink, &sentAt)
	if err != nil {
		log.Printf("broadcast %d: load failed: %v", emailID, err)
		return
	}
	if sentAt != nil {
		log.Printf("broadcast %d: already sent at %s", emailID, sentAt)
		return
	}

	var recipients []string
	if testTo != "" {
		recipients = []string{testTo}
	} else {
		rows, err := DB.Query(`SELECT email FROM users WHERE deleted = false AND email <> '' ORDER BY id`)
		if err != nil {
			log.Printf("broadcast %d: recipient query failed: %v", emailID, err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			var email string
			if err := rows.Scan(&email); err != nil {
				log.Printf("broadcast %d: recipient scan failed: %v", emailID, err)
				return
			}
			recipients = append(recipients, email)
		}
	}
	if len(recipients) == 0 {
		log.Printf("broadcast %d: no recipients", emailID)
		return
	}

	batchSize := Settings.EmailBatchSize
	if batchSize <= 0 {
		batchSize = 20
	}
	html := renderBroadcastHTML(subject, content, buttonText, buttonLink)
	text := renderBroadcastText(subject, content, buttonText, buttonLink)

	totalSent := 0
	for i := 0; i < len(recipients); i += batchSize {
		end := i + batchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		chunk := recipients[i:end]
		if err := SendMail(chunk, subject, text, html); err != nil {
			log.Printf("broadcast %d: batch starting at %d failed: %v", emailID, i, err)
		} else {
			totalSent += len(chunk)
		}
		if Settings.EmailBatchPause > 0 && end < len(recipients) {
			time.Sleep(Settings.EmailBatchPause)
		}
	}

	if _, err := DB.Exec(`UPDATE email_messages SET sent_at = $1 WHERE id = $2`, time.Now(), emailID); err != nil {
		log.Printf("broadcast %d: failed to stamp sent_at: %v", emailID, err)
	}
	log.Printf("broadcast %d: done, sent %d/%d", emailID, totalSent, len(recipients))
}
