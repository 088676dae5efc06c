package controllers

import (
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/petroxhq/petrox_backend/models"
	"github.com/petroxhq/petrox_backend/util"
)

// CreateEmailMessage drafts a broadcast. Admin only.
func CreateEmailMessage(c *fiber.Ctx) error {
	type emailInput struct {
		Subject    string `json:"subject" validate:"required,min=3,max=255"`
		Content    string `json:"content" validate:"required"`
		ButtonText string `json:"button_text"`
		ButtonLink string `json:"button_link" validate:"omitempty,url"`
	}

	var input emailInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "error",
			"error":  err.Error(),
		})
	}

	var msg models.EmailMessage
	err := util.DB.QueryRow(`
		INSERT INTO email_messages (subject, content, button_text, button_link)
		VALUES ($1, $2, $3, $4)
		RETURNING id, subject, content, button_text, button_link, created_at, sent_at
	`, input.Subject, input.Content, input.ButtonText, input.ButtonLink).Scan(
		&msg.ID, &msg.Subject, &msg.Content, &msg.ButtonText, &msg.ButtonLink,
		&msg.CreatedAt, &msg.SentAt,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create email"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "email": msg})
}

// ListEmailMessages shows drafts and sent broadcasts newest-first. Admin
// only.
func ListEmailMessages(c *fiber.Ctx) error {
	rows, err := util.DB.Query(`
		SELECT id, subject, content, button_text, button_link, created_at, sent_at
		FROM email_messages ORDER BY created_at DESC
	`)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch emails"})
	}
	defer rows.Close()

	emails := []models.EmailMessage{}
	for rows.Next() {
		var msg models.EmailMessage
		if err := rows.Scan(&msg.ID, &msg.Subject, &msg.Content, &msg.ButtonText,
			&msg.ButtonLink, &msg.CreatedAt, &msg.SentAt); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan emails"})
		}
		emails = append(emails, msg)
	}

	return c.JSON(fiber.Map{"status": "success", "emails": emails})
}

// SendEmailMessage launches the batched send in the background. A test
// address, when given, receives the message instead of the user base. Admin
// only.
func SendEmailMessage(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid email ID"})
	}

	type sendInput struct {
		TestTo string `json:"test_to"`
	}
	var input sendInput
	_ = c.BodyParser(&input)
	testTo := strings.TrimSpace(input.TestTo)

	var sentAt sql.NullTime
	err = util.DB.QueryRow(`SELECT sent_at FROM email_messages WHERE id = $1`, id).Scan(&sentAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Email not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch email"})
	}
	if sentAt.Valid && testTo == "" {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email was already sent"})
	}

	go util.SendEmailMessageBatched(id, testTo)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":  "success",
		"message": "Send started",
	})
}
