package middlewares

import (
	"database/sql"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/petroxhq/petrox_backend/models"
	"github.com/petroxhq/petrox_backend/util"
)

func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":  "error",
		"message": "Not Found",
	})
}

// Protected authenticates the request from the token cookie or Authorization
// header, loads the user row and stores it in c.Locals("user").
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies("token")
		if token == "" {
			token = c.Get("Authorization")
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "No token provided",
			})
		}
		claims, err := util.ParseJWT(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token " + err.Error()})
		}

		userID, err := strconv.Atoi(claims["id"].(string))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Invalid token payload",
			})
		}

		var user models.User
		query := `SELECT id, username, email, password, role, password_changed_at, deleted, created_at, updated_at
		          FROM users WHERE id = $1 AND deleted = false`
		row := util.DB.QueryRow(query, userID)
		err = row.Scan(
			&user.ID, &user.Username, &user.Email, &user.Password, &user.Role,
			&user.PasswordChangedAt, &user.Deleted, &user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			if err == sql.ErrNoRows {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"status":  "error",
					"message": "User not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "Database error",
				"error":   err.Error(),
			})
		}

		if err := util.IsTokenValid(claims, user); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": err.Error(),
			})
		}

		c.Locals("user", user)
		return c.Next()
	}
}

// StaffOnly must run after Protected.
func StaffOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals("user").(models.User)
		if !ok || user.Role != "admin" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status":  "error",
				"message": "Only admins can access this endpoint",
			})
		}
		return c.Next()
	}
}

// LecturerOnly must run after Protected; it requires a lecturer_accounts row.
func LecturerOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals("user").(models.User)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "User not found in context",
			})
		}
		var exists bool
		err := util.DB.QueryRow(`SELECT EXISTS(SELECT 1 FROM lecturer_accounts WHERE user_id = $1)`, user.ID).Scan(&exists)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "Database error",
				"error":   err.Error(),
			})
		}
		if !exists {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status":  "error",
				"message": "This user is not registered as a lecturer",
			})
		}
		return c.Next()
	}
}
