package controllers

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/petroxhq/petrox_backend/models"
	"github.com/petroxhq/petrox_backend/util"
)

// AddQuestion inserts a single question. Admin submissions are approved
// immediately; everyone else's land in the moderation queue.
func AddQuestion(c *fiber.Ctx) error {
	type questionInput struct {
		CourseID      int    `json:"course_id" validate:"required,gt=0"`
		QuestionText  string `json:"question_text" validate:"required"`
		OptionA       string `json:"option_a" validate:"required"`
		OptionB       string `json:"option_b" validate:"required"`
		OptionC       string `json:"option_c" validate:"required"`
		OptionD       string `json:"option_d" validate:"required"`
		CorrectOption string `json:"correct_option" validate:"required,oneof=A B C D a b c d"`
		Year          string `json:"year"`
	}

	var input questionInput
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

	user := c.Locals("user").(models.User)
	status := "pending"
	if user.Role == "admin" {
		status = "approved"
	}

	var question models.Question
	err := util.DB.QueryRow(`
		INSERT INTO questions (course_id, question_text, option_a, option_b, option_c, option_d,
		                       correct_option, year, status, uploaded_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, course_id, question_text, option_a, option_b, option_c, option_d,
		          correct_option, year, status, created_at
	`, input.CourseID, input.QuestionText, input.OptionA, input.OptionB, input.OptionC, input.OptionD,
		normalizeOption(input.CorrectOption), input.Year, status, user.ID).Scan(
		&question.ID, &question.CourseID, &question.QuestionText, &question.OptionA,
		&question.OptionB, &question.OptionC, &question.OptionD, &question.CorrectOption,
		&question.Year, &question.Status, &question.CreatedAt,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create question"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "question": question})
}

// GetPendingQuestions lists questions awaiting moderation. Admin only.
func GetPendingQuestions(c *fiber.Ctx) error {
	courseID, _ := strconv.Atoi(c.Query("course_id", "0"))

	query := `
		SELECT q.id, q.course_id, co.name, q.question_text, q.option_a, q.option_b,
		       q.option_c, q.option_d, q.correct_option, q.year, q.source_file,
		       q.uploaded_by_id, q.created_at
		FROM questions q
		JOIN courses co ON co.id = q.course_id
		WHERE q.status = 'pending'`
	args := []interface{}{}
	argIdx := 1
	if courseID > 0 {
		query += fmt.Sprintf(" AND q.course_id = $%d", argIdx)
		args = append(args, courseID)
		argIdx++
	}
	query += " ORDER BY q.created_at"

	rows, err := util.DB.Query(query, args...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch pending questions"})
	}
	defer rows.Close()

	type pendingEntry struct {
		models.Question
		CourseName string `json:"course_name"`
	}

	questions := []pendingEntry{}
	for rows.Next() {
		var e pendingEntry
		if err := rows.Scan(&e.ID, &e.CourseID, &e.CourseName, &e.QuestionText, &e.OptionA,
			&e.OptionB, &e.OptionC, &e.OptionD, &e.CorrectOption, &e.Year, &e.SourceFile,
			&e.UploadedByID, &e.CreatedAt); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan questions"})
		}
		questions = append(questions, e)
	}

	return c.JSON(fiber.Map{"status": "success", "questions": questions})
}

// ModerateQuestion moves a pending question to approved or rejected. Admin
// only.
func ModerateQuestion(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid question ID"})
	}

	type moderateInput struct {
		Status string `json:"status" validate:"required,oneof=approved rejected"`
	}
	var input moderateInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Status must be approved or rejected"})
	}

	result, err := util.DB.Exec(`
		UPDATE questions SET status = $1 WHERE id = $2 AND status = 'pending'
	`, input.Status, id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update question"})
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Pending question not found"})
	}

	return c.JSON(fiber.Map{"status": "success", "message": "Question " + input.Status})
}

// PreviewPassQuestions parses pasted past-question text and returns the
// structured questions without saving anything.
func PreviewPassQuestions(c *fiber.Ctx) error {
	type previewInput struct {
		Text string `json:"text" validate:"required"`
	}
	var input previewInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	if input.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No text supplied"})
	}

	parsed := util.ParsePassQuestions(input.Text)
	objective := 0
	for _, p := range parsed {
		if p.HasOptions() {
			objective++
		}
	}

	return c.JSON(fiber.Map{
		"status":          "success",
		"total":           len(parsed),
		"objective_count": objective,
		"questions":       parsed,
	})
}

// UploadPassQuestions bulk-inserts parsed past questions for one course and
// year. A repeat upload for the same course, year and source file is
// rejected so the bank does not fill with duplicates.
func UploadPassQuestions(c *fiber.Ctx) error {
	type uploadInput struct {
		CourseID   int    `json:"course_id" validate:"required,gt=0"`
		Year       string `json:"year" validate:"required"`
		SourceFile string `json:"source_file" validate:"required"`
		Text       string `json:"text" validate:"required"`
	}

	var input uploadInput
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

	user := c.Locals("user").(models.User)

	var courseName string
	err := util.DB.QueryRow(`SELECT name FROM courses WHERE id = $1`, input.CourseID).Scan(&courseName)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch course"})
	}

	var exists bool
	err = util.DB.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM questions WHERE course_id = $1 AND year = $2)
	`, input.CourseID, input.Year).Scan(&exists)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check existing uploads"})
	}
	if exists {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Questions for this course and year were already uploaded",
		})
	}

	parsed := util.ParsePassQuestions(input.Text)
	if len(parsed) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No questions could be parsed from the text"})
	}

	status := "pending"
	if user.Role == "admin" {
		status = "approved"
	}

	tx, err := util.DB.Begin()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to begin transaction"})
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO questions (course_id, question_text, option_a, option_b, option_c, option_d,
		                       correct_option, year, source_file, status, uploaded_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to prepare insert"})
	}
	defer stmt.Close()

	inserted := 0
	skipped := 0
	for _, p := range parsed {
		if !p.HasOptions() || p.Answer == "" {
			skipped++
			continue
		}
		if _, err := stmt.Exec(input.CourseID, p.Text, p.A, p.B, p.C, p.D,
			normalizeOption(p.Answer), input.Year, input.SourceFile, status, user.ID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to insert questions"})
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to commit transaction"})
	}

	if status == "pending" {
		go notifyAdminsOfUpload(user.Username, courseName, inserted)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":   "success",
		"inserted": inserted,
		"skipped":  skipped,
	})
}

// notifyAdminsOfUpload mails every admin about a fresh moderation batch.
func notifyAdminsOfUpload(uploader, courseName string, count int) {
	rows, err := util.DB.Query(`SELECT email FROM users WHERE role = 'admin' AND deleted = false`)
	if err != nil {
		log.Println("admin notify query failed:", err)
		return
	}
	defer rows.Close()

	var admins []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err == nil {
			admins = append(admins, email)
		}
	}
	if len(admins) == 0 {
		return
	}

	subject := "New questions awaiting moderation"
	body := fmt.Sprintf("%s uploaded %d questions for %s. Visit the moderation queue to review them.",
		uploader, count, courseName)
	if err := util.SendMail(admins, subject, body, ""); err != nil {
		log.Println("admin notify mail failed:", err)
	}
}

// GetUploadStats reports per-status counts of the caller's uploaded
// questions.
func GetUploadStats(c *fiber.Ctx) error {
	user := c.Locals("user").(models.User)

	rows, err := util.DB.Query(`
		SELECT status, COUNT(*) FROM questions WHERE uploaded_by_id = $1 GROUP BY status
	`, user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch upload stats"})
	}
	defer rows.Close()

	stats := fiber.Map{"pending": 0, "approved": 0, "rejected": 0}
	total := 0
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan upload stats"})
		}
		stats[status] = count
		total += count
	}
	stats["total"] = total

	return c.JSON(fiber.Map{"status": "success", "uploads": stats})
}
