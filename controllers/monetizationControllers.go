package controllers

import (
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/petroxhq/petrox_backend/models"
	"github.com/petroxhq/petrox_backend/util"
)

// GetMonetizationSettings returns the single settings row, creating a
// disabled default if none exists yet.
func GetMonetizationSettings(c *fiber.Ctx) error {
	var s models.MonetizationSettings
	err := util.DB.QueryRow(`
		SELECT id, is_enabled, price, currency, payment_info, updated_at
		FROM monetization_settings ORDER BY id LIMIT 1
	`).Scan(&s.ID, &s.IsEnabled, &s.Price, &s.Currency, &s.PaymentInfo, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		err = util.DB.QueryRow(`
			INSERT INTO monetization_settings DEFAULT VALUES
			RETURNING id, is_enabled, price, currency, payment_info, updated_at
		`).Scan(&s.ID, &s.IsEnabled, &s.Price, &s.Currency, &s.PaymentInfo, &s.UpdatedAt)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch settings"})
	}

	return c.JSON(fiber.Map{"status": "success", "settings": s})
}

// UpdateMonetizationSettings changes the paywall configuration. Admin only.
func UpdateMonetizationSettings(c *fiber.Ctx) error {
	type settingsInput struct {
		IsEnabled   *bool    `json:"is_enabled"`
		Price       *float64 `json:"price" validate:"omitempty,gte=0"`
		Currency    *string  `json:"currency" validate:"omitempty,min=2,max=10"`
		PaymentInfo *string  `json:"payment_info"`
	}

	var input settingsInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var s models.MonetizationSettings
	err := util.DB.QueryRow(`
		SELECT id, is_enabled, price, currency, payment_info FROM monetization_settings ORDER BY id LIMIT 1
	`).Scan(&s.ID, &s.IsEnabled, &s.Price, &s.Currency, &s.PaymentInfo)
	if err == sql.ErrNoRows {
		err = util.DB.QueryRow(`
			INSERT INTO monetization_settings DEFAULT VALUES RETURNING id, is_enabled, price, currency, payment_info
		`).Scan(&s.ID, &s.IsEnabled, &s.Price, &s.Currency, &s.PaymentInfo)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load settings"})
	}

	if input.IsEnabled != nil {
		s.IsEnabled = *input.IsEnabled
	}
	if input.Price != nil {
		s.Price = *input.Price
	}
	if input.Currency != nil {
		s.Currency = *input.Currency
	}
	if input.PaymentInfo != nil {
		s.PaymentInfo = *input.PaymentInfo
	}

	err = util.DB.QueryRow(`
		UPDATE monetization_settings
		SET is_enabled = $1, price = $2, currency = $3, payment_info = $4, updated_at = $5
		WHERE id = $6
		RETURNING id, is_enabled, price, currency, payment_info, updated_at
	`, s.IsEnabled, s.Price, s.Currency, s.PaymentInfo, time.Now(), s.ID).Scan(
		&s.ID, &s.IsEnabled, &s.Price, &s.Currency, &s.PaymentInfo, &s.UpdatedAt,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update settings"})
	}

	return c.JSON(fiber.Map{"status": "success", "settings": s})
}

// GenerateActivationCodes mints new unused codes. Admin only.
func GenerateActivationCodes(c *fiber.Ctx) error {
	type generateInput struct {
		Count int `json:"count"`
	}
	var input generateInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	if input.Count <= 0 {
		input.Count = 1
	}
	if input.Count > 1000 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "At most 1000 codes per request"})
	}

	tx, err := util.DB.Begin()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to begin transaction"})
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO activation_codes (code) VALUES ($1) RETURNING id, code, is_used, created_at`)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to prepare insert"})
	}
	defer stmt.Close()

	codes := []models.ActivationCode{}
	for i := 0; i < input.Count; i++ {
		raw, err := util.GenerateActivationCode()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate code"})
		}
		var ac models.ActivationCode
		if err := stmt.QueryRow(raw).Scan(&ac.ID, &ac.Code, &ac.IsUsed, &ac.CreatedAt); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save code"})
		}
		codes = append(codes, ac)
	}

	if err := tx.Commit(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to commit transaction"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "codes": codes})
}

// GetActivationStats reports code inventory and redemption counts. Admin
// only.
func GetActivationStats(c *fiber.Ctx) error {
	var total, used, activatedUsers int
	err := util.DB.QueryRow(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_used) FROM activation_codes
	`).Scan(&total, &used)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to count codes"})
	}
	err = util.DB.QueryRow(`SELECT COUNT(*) FROM user_activations WHERE status = 'unlocked'`).Scan(&activatedUsers)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to count activations"})
	}

	return c.JSON(fiber.Map{
		"status":          "success",
		"total_codes":     total,
		"used_codes":      used,
		"unused_codes":    total - used,
		"activated_users": activatedUsers,
	})
}

// GetMyActivationStatus tells the caller whether their account is unlocked.
// When monetization is disabled everyone counts as unlocked.
func GetMyActivationStatus(c *fiber.Ctx) error {
	user := c.Locals("user").(models.User)

	var enabled bool
	err := util.DB.QueryRow(`SELECT is_enabled FROM monetization_settings ORDER BY id LIMIT 1`).Scan(&enabled)
	if err != nil && err != sql.ErrNoRows {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load settings"})
	}
	if !enabled {
		return c.JSON(fiber.Map{"status": "success", "activation_status": "unlocked", "monetization_enabled": false})
	}

	var status string
	var activatedAt *time.Time
	err = util.DB.QueryRow(`
		SELECT status, activated_at FROM user_activations WHERE user_id = $1
	`, user.ID).Scan(&status, &activatedAt)
	if err == sql.ErrNoRows {
		err = util.DB.QueryRow(`
			INSERT INTO user_activations (user_id) VALUES ($1)
			ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
			RETURNING status, activated_at
		`, user.ID).Scan(&status, &activatedAt)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load activation"})
	}

	return c.JSON(fiber.Map{
		"status":               "success",
		"activation_status":    status,
		"activated_at":         activatedAt,
		"monetization_enabled": true,
	})
}

// RedeemActivationCode consumes a code and unlocks the caller's account.
// The mark-used update is a compare-and-set so a code can only ever be
// redeemed once.
func RedeemActivationCode(c *fiber.Ctx) error {
	type redeemInput struct {
		Code string `json:"code" validate:"required"`
	}
	var input redeemInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Code is required"})
	}

	user := c.Locals("user").(models.User)

	var existing string
	err := util.DB.QueryRow(`SELECT status FROM user_activations WHERE user_id = $1`, user.ID).Scan(&existing)
	if err == nil && existing == "unlocked" {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Account is already activated"})
	}
	if err != nil && err != sql.ErrNoRows {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load activation"})
	}

	tx, err := util.DB.Begin()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to begin transaction"})
	}
	defer tx.Rollback()

	now := time.Now()
	var codeID int
	err = tx.QueryRow(`
		UPDATE activation_codes SET is_used = true, used_by_id = $1, used_at = $2
		WHERE code = $3 AND is_used = false
		RETURNING id
	`, user.ID, now, code).Scan(&codeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Invalid or already used code"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to redeem code"})
	}

	_, err = tx.Exec(`
		INSERT INTO user_activations (user_id, status, activation_code_id, activated_at)
		VALUES ($1, 'unlocked', $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET status = 'unlocked', activation_code_id = $2, activated_at = $3
	`, user.ID, codeID, now)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save activation"})
	}

	if err := tx.Commit(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to commit transaction"})
	}

	return c.JSON(fiber.Map{"status": "success", "activation_status": "unlocked", "activated_at": now})
}
