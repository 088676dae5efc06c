package controllers

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/petroxhq/petrox_backend/models"
	"github.com/petroxhq/petrox_backend/util"
	"golang.org/x/crypto/bcrypt"
)

// UserSignup registers a student account and returns a signed token.
func UserSignup(c *fiber.Ctx) error {
	type signupInput struct {
		Username string `json:"username" validate:"required,min=3,max=50"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}

	var input signupInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	var exists bool
	err := util.DB.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 OR email = $2)
	`, input.Username, input.Email).Scan(&exists)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check existing user"})
	}
	if exists {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "A user with this username or email already exists"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to hash password"})
	}

	var user models.User
	err = util.DB.QueryRow(`
		INSERT INTO users (username, email, password, role)
		VALUES ($1, $2, $3, 'student')
		RETURNING id, username, email, role, created_at
	`, input.Username, input.Email, string(hashed)).Scan(
		&user.ID, &user.Username, &user.Email, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create user"})
	}

	token, err := util.JwtGenerate(user, strconv.Itoa(user.ID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "success",
		"token":  token,
		"user":   user,
	})
}

// UserLogin authenticates by email and password.
func UserLogin(c *fiber.Ctx) error {
	type loginInput struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	var input loginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed"})
	}

	var user models.User
	err := util.DB.QueryRow(`
		SELECT id, username, email, password, role, created_at
		FROM users WHERE email = $1 AND deleted = false
	`, input.Email).Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.Role, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch user"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}

	token, err := util.JwtGenerate(user, strconv.Itoa(user.ID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  time.Now().Add(time.Hour * 72),
		HTTPOnly: true,
	})

	return c.JSON(fiber.Map{
		"status": "success",
		"token":  token,
		"user":   user,
	})
}

// CurrentUser returns the authenticated user's own record.
func CurrentUser(c *fiber.Ctx) error {
	user := c.Locals("user").(models.User)
	return c.JSON(fiber.Map{"status": "success", "user": user})
}

// GoogleLogin redirects the browser into Google's consent flow.
func GoogleLogin(c *fiber.Ctx) error {
	conf := util.GetGoogleConfig()
	url := conf.AuthCodeURL("petrox-oauth-state")
	return c.Redirect(url, fiber.StatusTemporaryRedirect)
}

// GoogleCallback exchanges the OAuth code, provisioning a student account on
// first login.
func GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing authorization code"})
	}

	conf := util.GetGoogleConfig()
	ctx, cancel := context.WithTimeout(c.Context(), 15*time.Second)
	defer cancel()

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Failed to exchange authorization code"})
	}

	client := conf.Client(ctx, tok)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch user info"})
	}
	defer resp.Body.Close()

	var info struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.Email == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to decode user info"})
	}

	var user models.User
	err = util.DB.QueryRow(`
		SELECT id, username, email, role, created_at
		FROM users WHERE email = $1 AND deleted = false
	`, info.Email).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.CreatedAt)
	if err == sql.ErrNoRows {
		// First Google login: provision a student account with an unusable
		// random password.
		random, rerr := util.GenerateActivationCode()
		if rerr != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to provision user"})
		}
		placeholder, herr := bcrypt.GenerateFromPassword([]byte(random), bcrypt.DefaultCost)
		if herr != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to provision user"})
		}
		err = util.DB.QueryRow(`
			INSERT INTO users (username, email, password, role)
			VALUES ($1, $2, $3, 'student')
			RETURNING id, username, email, role, created_at
		`, info.Name, info.Email, string(placeholder)).Scan(
			&user.ID, &user.Username, &user.Email, &user.Role, &user.CreatedAt,
		)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to provision user"})
		}
		log.Println("provisioned google account for", info.Email)
	} else if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch user"})
	}

	token, err := util.JwtGenerate(user, strconv.Itoa(user.ID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  time.Now().Add(time.Hour * 72),
		HTTPOnly: true,
	})

	if util.Settings.FrontendDomain != "" {
		return c.Redirect(util.Settings.FrontendDomain+"/oauth/done?token="+token, fiber.StatusTemporaryRedirect)
	}
	return c.JSON(fiber.Map{"status": "success", "token": token, "user": user})
}
