package controllers

import (
	"database/sql"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/petroxhq/petrox_backend/models"
	"github.com/petroxhq/petrox_backend/util"
)

// CreateGroupTest schedules a group test. Sessions are not created here;
// each invitee gets one lazily on first access after the start time.
func CreateGroupTest(c *fiber.Ctx) error {
	type groupTestInput struct {
		Name            string `json:"name" validate:"required,min=3,max=255"`
		CourseID        int    `json:"course_id" validate:"required,gt=0"`
		QuestionCount   int    `json:"question_count" validate:"required,gt=0"`
		DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0"`
		ScheduledStart  string `json:"scheduled_start" validate:"required"`
		Invitees        string `json:"invitees"`
	}

	var input groupTestInput
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

	scheduledStart, err := time.Parse(time.RFC3339, input.ScheduledStart)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "scheduled_start must be RFC3339"})
	}

	user := c.Locals("user").(models.User)

	var courseName string
	err = util.DB.QueryRow(`SELECT name FROM courses WHERE id = $1`, input.CourseID).Scan(&courseName)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch course"})
	}

	var available int
	err = util.DB.QueryRow(`
		SELECT COUNT(*) FROM questions WHERE course_id = $1 AND status = 'approved'
	`, input.CourseID).Scan(&available)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to count questions"})
	}
	if input.QuestionCount > available {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Not enough questions in this course."})
	}

	invitees := util.ParseInvitees(input.Invitees)

	var gt models.GroupTest
	err = util.DB.QueryRow(`
		INSERT INTO group_tests (name, course_id, question_count, duration_minutes, scheduled_start, invitees, created_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, name, course_id, question_count, duration_minutes, scheduled_start, invitees, created_by_id, created_at
	`, input.Name, input.CourseID, input.QuestionCount, input.DurationMinutes, scheduledStart,
		strings.Join(invitees, ","), user.ID).Scan(
		&gt.ID, &gt.Name, &gt.CourseID, &gt.QuestionCount, &gt.DurationMinutes,
		&gt.ScheduledStart, &gt.Invitees, &gt.CreatedByID, &gt.CreatedAt,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create group test"})
	}

	if len(invitees) > 0 {
		go notifyGroupTestInvitees(invitees, gt.Name, courseName, scheduledStart)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "group_test": gt})
}

func notifyGroupTestInvitees(emails []string, name, courseName string, scheduledStart time.Time) {
	subject := "You have been invited to a group test"
	body := "You are invited to \"" + name + "\" (" + courseName + ") scheduled for " +
		scheduledStart.Format(time.RFC1123) + ". Log in to take it once it opens."
	if err := util.SendMail(emails, subject, body, ""); err != nil {
		log.Println("group test invite mail failed:", err)
	}
}

// ListGroupTests returns group tests visible to the caller: ones they
// created plus ones they are invited to.
func ListGroupTests(c *fiber.Ctx) error {
	user := c.Locals("user").(models.User)

	rows, err := util.DB.Query(`
		SELECT gt.id, gt.name, gt.course_id, co.name, gt.question_count, gt.duration_minutes,
		       gt.scheduled_start, gt.invitees, gt.created_by_id, gt.created_at
		FROM group_tests gt
		JOIN courses co ON co.id = gt.course_id
		WHERE gt.created_by_id = $1 OR gt.invitees ILIKE '%' || $2 || '%'
		ORDER BY gt.scheduled_start DESC
	`, user.ID, user.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch group tests"})
	}
	defer rows.Close()

	type groupTestEntry struct {
		models.GroupTest
		CourseName string `json:"course_name"`
	}

	tests := []groupTestEntry{}
	for rows.Next() {
		var e groupTestEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.CourseID, &e.CourseName, &e.QuestionCount,
			&e.DurationMinutes, &e.ScheduledStart, &e.Invitees, &e.CreatedByID, &e.CreatedAt); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan group tests"})
		}
		tests = append(tests, e)
	}

	return c.JSON(fiber.Map{"status": "success", "group_tests": tests})
}

// GetGroupTest returns a group test. Before the scheduled start only the
// metadata is visible; from the start onward the caller's session is
// materialized on first access and returned unchanged afterwards. Each user
// gets exactly one session per group test.
func GetGroupTest(c *fiber.Ctx) error {
	groupTestID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid group test ID"})
	}

	user := c.Locals("user").(models.User)

	var gt models.GroupTest
	err = util.DB.QueryRow(`
		SELECT id, name, course_id, question_count, duration_minutes, scheduled_start, invitees, created_by_id, created_at
		FROM group_tests WHERE id = $1
	`, groupTestID).Scan(&gt.ID, &gt.Name, &gt.CourseID, &gt.QuestionCount,
		&gt.DurationMinutes, &gt.ScheduledStart, &gt.Invitees, &gt.CreatedByID, &gt.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Group test not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch group test"})
	}

	if gt.CreatedByID != user.ID && !inviteeListed(gt.Invitees, user.Email) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not invited to this group test"})
	}
	if time.Now().Before(gt.ScheduledStart) {
		return c.JSON(fiber.Map{
			"status":     "success",
			"group_test": gt,
			"session_id": nil,
			"questions":  []sessionQuestion{},
		})
	}

	// Re-access returns the existing session unchanged, with the same
	// frozen question payload the first access got.
	var existingID uuid.UUID
	err = util.DB.QueryRow(`
		SELECT test_session_id FROM group_test_sessions WHERE group_test_id = $1 AND user_id = $2
	`, groupTestID, user.ID).Scan(&existingID)
	if err == nil {
		existing, qerr := loadSessionQuestions(existingID)
		if qerr != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch session questions"})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":     "success",
			"session_id": existingID,
			"existing":   true,
			"questions":  existing,
		})
	}
	if err != sql.ErrNoRows {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check existing session"})
	}

	tx, err := util.DB.Begin()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to begin transaction"})
	}
	defer tx.Rollback()

	sessionID, startTime, questions, err := createSessionTx(tx, user.ID, gt.CourseID, gt.QuestionCount, gt.DurationMinutes*60)
	if err == errInsufficientQuestions {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Not enough questions in this course."})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create session"})
	}

	// The composite primary key makes the link insert fail for a concurrent
	// join; the loser rolls back and rereads the winner's session.
	_, err = tx.Exec(`
		INSERT INTO group_test_sessions (group_test_id, user_id, test_session_id) VALUES ($1, $2, $3)
	`, groupTestID, user.ID, sessionID)
	if err != nil {
		tx.Rollback()
		if rerr := util.DB.QueryRow(`
			SELECT test_session_id FROM group_test_sessions WHERE group_test_id = $1 AND user_id = $2
		`, groupTestID, user.ID).Scan(&existingID); rerr == nil {
			existing, qerr := loadSessionQuestions(existingID)
			if qerr != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch session questions"})
			}
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"status":     "success",
				"session_id": existingID,
				"existing":   true,
				"questions":  existing,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to link session"})
	}

	if err := tx.Commit(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to commit transaction"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":     "success",
		"session_id": sessionID,
		"name":       gt.Name,
		"duration":   gt.DurationMinutes * 60,
		"start_time": startTime,
		"questions":  questions,
	})
}

func inviteeListed(invitees, email string) bool {
	for _, e := range util.ParseInvitees(invitees) {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}
