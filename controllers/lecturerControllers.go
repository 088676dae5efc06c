package controllers

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/petroxhq/petrox_backend/models"
	"github.com/petroxhq/petrox_backend/util"
	"golang.org/x/crypto/bcrypt"
)

// RegisterLecturer creates a user and its lecturer profile in one
// transaction.
func RegisterLecturer(c *fiber.Ctx) error {
	type lecturerInput struct {
		Username   string `json:"username" validate:"required,min=3,max=50"`
		Email      string `json:"email" validate:"required,email"`
		Password   string `json:"password" validate:"required,min=6"`
		Name       string `json:"name" validate:"required,min=2,max=255"`
		Department string `json:"department" validate:"required"`
		Faculty    string `json:"faculty" validate:"required"`
		Phone      string `json:"phone" validate:"required"`
	}

	var input lecturerInput
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

	tx, err := util.DB.Begin()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to begin transaction"})
	}
	defer tx.Rollback()

	var user models.User
	err = tx.QueryRow(`
		INSERT INTO users (username, email, password, role)
		VALUES ($1, $2, $3, 'lecturer')
		RETURNING id, username, email, role, created_at
	`, input.Username, input.Email, string(hashed)).Scan(
		&user.ID, &user.Username, &user.Email, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create user"})
	}

	var account models.LecturerAccount
	err = tx.QueryRow(`
		INSERT INTO lecturer_accounts (user_id, name, department, faculty, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, name, department, faculty, phone, bio, is_verified, created_at, updated_at
	`, user.ID, input.Name, input.Department, input.Faculty, input.Phone).Scan(
		&account.ID, &account.UserID, &account.Name, &account.Department,
		&account.Faculty, &account.Phone, &account.Bio, &account.IsVerified,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create lecturer profile"})
	}

	if err := tx.Commit(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to commit transaction"})
	}

	token, err := util.JwtGenerate(user, strconv.Itoa(user.ID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "success",
		"token":   token,
		"user":    user,
		"profile": account,
	})
}

// GetLecturerProfile returns the caller's lecturer profile.
func GetLecturerProfile(c *fiber.Ctx) error {
	user := c.Locals("user").(models.User)

	var account models.LecturerAccount
	err := util.DB.QueryRow(`
		SELECT id, user_id, name, department, faculty, phone, bio, is_verified, created_at, updated_at
		FROM lecturer_accounts WHERE user_id = $1
	`, user.ID).Scan(&account.ID, &account.UserID, &account.Name, &account.Department,
		&account.Faculty, &account.Phone, &account.Bio, &account.IsVerified,
		&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Lecturer profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}

	return c.JSON(fiber.Map{"status": "success", "profile": account})
}

// UpdateLecturerProfile edits the caller's lecturer profile fields.
func UpdateLecturerProfile(c *fiber.Ctx) error {
	type profileInput struct {
		Name       *string `json:"name" validate:"omitempty,min=2,max=255"`
		Department *string `json:"department"`
		Faculty    *string `json:"faculty"`
		Phone      *string `json:"phone"`
		Bio        *string `json:"bio"`
	}

	var input profileInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	user := c.Locals("user").(models.User)

	sets := []string{}
	args := []interface{}{}
	argIdx := 1
	appendSet := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}
	if input.Name != nil {
		appendSet("name", *input.Name)
	}
	if input.Department != nil {
		appendSet("department", *input.Department)
	}
	if input.Faculty != nil {
		appendSet("faculty", *input.Faculty)
	}
	if input.Phone != nil {
		appendSet("phone", *input.Phone)
	}
	if input.Bio != nil {
		appendSet("bio", *input.Bio)
	}
	if len(sets) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Nothing to update"})
	}
	appendSet("updated_at", time.Now())

	query := fmt.Sprintf(`
		UPDATE lecturer_accounts SET %s WHERE user_id = $%d
		RETURNING id, user_id, name, department, faculty, phone, bio, is_verified, created_at, updated_at
	`, strings.Join(sets, ", "), argIdx)
	args = append(args, user.ID)

	var account models.LecturerAccount
	err := util.DB.QueryRow(query, args...).Scan(
		&account.ID, &account.UserID, &account.Name, &account.Department,
		&account.Faculty, &account.Phone, &account.Bio, &account.IsVerified,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Lecturer profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	return c.JSON(fiber.Map{"status": "success", "profile": account})
}

// requireOwnedSpecialCourse loads a special course and checks the caller
// created it.
func requireOwnedSpecialCourse(courseID, userID int) (models.SpecialCourse, int, error) {
	var sc models.SpecialCourse
	err := util.DB.QueryRow(`
		SELECT id, title, description, created_by_id, start_time, end_time, created_at
		FROM special_courses WHERE id = $1
	`, courseID).Scan(&sc.ID, &sc.Title, &sc.Description, &sc.CreatedByID,
		&sc.StartTime, &sc.EndTime, &sc.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return sc, fiber.StatusNotFound, fmt.Errorf("special course not found")
		}
		return sc, fiber.StatusInternalServerError, fmt.Errorf("failed to fetch course")
	}
	if sc.CreatedByID != userID {
		return sc, fiber.StatusForbidden, fmt.Errorf("you do not own this course")
	}
	return sc, 0, nil
}

// CreateSpecialCourse opens a lecturer exam with a fixed time window.
func CreateSpecialCourse(c *fiber.Ctx) error {
	type courseInput struct {
		Title       string `json:"title" validate:"required,min=3,max=255"`
		Description string `json:"description"`
		StartTime   string `json:"start_time" validate:"required"`
		EndTime     string `json:"end_time" validate:"required"`
	}

	var input courseInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	startTime, err := time.Parse(time.RFC3339, input.StartTime)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_time must be RFC3339"})
	}
	endTime, err := time.Parse(time.RFC3339, input.EndTime)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_time must be RFC3339"})
	}
	if !endTime.After(startTime) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_time must be after start_time"})
	}

	user := c.Locals("user").(models.User)

	var sc models.SpecialCourse
	err = util.DB.QueryRow(`
		INSERT INTO special_courses (title, description, created_by_id, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, title, description, created_by_id, start_time, end_time, created_at
	`, input.Title, input.Description, user.ID, startTime, endTime).Scan(
		&sc.ID, &sc.Title, &sc.Description, &sc.CreatedByID,
		&sc.StartTime, &sc.EndTime, &sc.CreatedAt,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create course"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "course": sc})
}

// ListMySpecialCourses lists courses the lecturer created, with enrollment
// counts.
func ListMySpecialCourses(c *fiber.Ctx) error {
	user := c.Locals("user").(models.User)

	rows, err := util.DB.Query(`
		SELECT sc.id, sc.title, sc.description, sc.created_by_id, sc.start_time, sc.end_time, sc.created_at,
		       (SELECT COUNT(*) FROM special_enrollments e WHERE e.course_id = sc.id) AS enrolled,
		       (SELECT COUNT(*) FROM special_enrollments e WHERE e.course_id = sc.id AND e.submitted) AS submitted
		FROM special_courses sc
		WHERE sc.created_by_id = $1
		ORDER BY sc.created_at DESC
	`, user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch courses"})
	}
	defer rows.Close()

	type courseEntry struct {
		models.SpecialCourse
		EnrolledCount  int `json:"enrolled_count"`
		SubmittedCount int `json:"submitted_count"`
	}

	courses := []courseEntry{}
	for rows.Next() {
		var e courseEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.CreatedByID,
			&e.StartTime, &e.EndTime, &e.CreatedAt, &e.EnrolledCount, &e.SubmittedCount); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan courses"})
		}
		courses = append(courses, e)
	}

	return c.JSON(fiber.Map{"status": "success", "courses": courses})
}

// UpdateSpecialCourse edits the window or metadata of an owned course.
func UpdateSpecialCourse(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}
	user := c.Locals("user").(models.User)

	sc, code, ferr := requireOwnedSpecialCourse(courseID, user.ID)
	if ferr != nil {
		return c.Status(code).JSON(fiber.Map{"error": ferr.Error()})
	}

	type courseInput struct {
		Title       *string `json:"title" validate:"omitempty,min=3,max=255"`
		Description *string `json:"description"`
		StartTime   *string `json:"start_time"`
		EndTime     *string `json:"end_time"`
	}
	var input courseInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if input.Title != nil {
		sc.Title = *input.Title
	}
	if input.Description != nil {
		sc.Description = *input.Description
	}
	if input.StartTime != nil {
		t, perr := time.Parse(time.RFC3339, *input.StartTime)
		if perr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_time must be RFC3339"})
		}
		sc.StartTime = t
	}
	if input.EndTime != nil {
		t, perr := time.Parse(time.RFC3339, *input.EndTime)
		if perr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_time must be RFC3339"})
		}
		sc.EndTime = t
	}
	if !sc.EndTime.After(sc.StartTime) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end_time must be after start_time"})
	}

	err = util.DB.QueryRow(`
		UPDATE special_courses SET title = $1, description = $2, start_time = $3, end_time = $4
		WHERE id = $5
		RETURNING id, title, description, created_by_id, start_time, end_time, created_at
	`, sc.Title, sc.Description, sc.StartTime, sc.EndTime, sc.ID).Scan(
		&sc.ID, &sc.Title, &sc.Description, &sc.CreatedByID,
		&sc.StartTime, &sc.EndTime, &sc.CreatedAt,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update course"})
	}

	return c.JSON(fiber.Map{"status": "success", "course": sc})
}

// DeleteSpecialCourse removes an owned course; enrollments and questions
// cascade.
func DeleteSpecialCourse(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}
	user := c.Locals("user").(models.User)

	if _, code, ferr := requireOwnedSpecialCourse(courseID, user.ID); ferr != nil {
		return c.Status(code).JSON(fiber.Map{"error": ferr.Error()})
	}

	if _, err := util.DB.Exec(`DELETE FROM special_courses WHERE id = $1`, courseID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete course"})
	}

	return c.JSON(fiber.Map{"status": "success", "message": "Course deleted"})
}

type specialQuestionInput struct {
	Text    string  `json:"text" validate:"required"`
	Mark    float64 `json:"mark" validate:"omitempty,gt=0"`
	Choices []struct {
		Text      string `json:"text" validate:"required"`
		IsCorrect bool   `json:"is_correct"`
	} `json:"choices" validate:"required,min=2,dive"`
}

func insertSpecialQuestionTx(tx *sql.Tx, courseID int, in specialQuestionInput) (models.SpecialQuestion, error) {
	mark := in.Mark
	if mark <= 0 {
		mark = 1
	}

	var q models.SpecialQuestion
	err := tx.QueryRow(`
		INSERT INTO special_questions (course_id, text, mark)
		VALUES ($1, $2, $3)
		RETURNING id, course_id, text, mark
	`, courseID, in.Text, mark).Scan(&q.ID, &q.CourseID, &q.Text, &q.Mark)
	if err != nil {
		return q, err
	}

	for _, ch := range in.Choices {
		var choice models.SpecialChoice
		err = tx.QueryRow(`
			INSERT INTO special_choices (question_id, text, is_correct)
			VALUES ($1, $2, $3)
			RETURNING id, question_id, text, is_correct
		`, q.ID, ch.Text, ch.IsCorrect).Scan(&choice.ID, &choice.QuestionID, &choice.Text, &choice.IsCorrect)
		if err != nil {
			return q, err
		}
		q.Choices = append(q.Choices, choice)
	}
	return q, nil
}

func hasCorrectChoice(in specialQuestionInput) bool {
	for _, ch := range in.Choices {
		if ch.IsCorrect {
			return true
		}
	}
	return false
}

// AddSpecialQuestions appends one or more questions with choices to an
// owned course in a single transaction.
func AddSpecialQuestions(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}
	user := c.Locals("user").(models.User)

	if _, code, ferr := requireOwnedSpecialCourse(courseID, user.ID); ferr != nil {
		return c.Status(code).JSON(fiber.Map{"error": ferr.Error()})
	}

	type bulkInput struct {
		Questions []specialQuestionInput `json:"questions" validate:"required,min=1,dive"`
	}
	var input bulkInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	for i, q := range input.Questions {
		if !hasCorrectChoice(q) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("Question %d has no correct choice", i+1),
			})
		}
	}

	tx, err := util.DB.Begin()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to begin transaction"})
	}
	defer tx.Rollback()

	created := []models.SpecialQuestion{}
	for _, in := range input.Questions {
		q, err := insertSpecialQuestionTx(tx, courseID, in)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to insert questions"})
		}
		created = append(created, q)
	}

	if err := tx.Commit(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to commit transaction"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "questions": created})
}

// ListSpecialQuestions returns an owned course's questions with correct
// flags included, for the lecturer's editing view.
func ListSpecialQuestions(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}
	user := c.Locals("user").(models.User)

	if _, code, ferr := requireOwnedSpecialCourse(courseID, user.ID); ferr != nil {
		return c.Status(code).JSON(fiber.Map{"error": ferr.Error()})
	}

	questions, err := loadSpecialQuestions(courseID, true)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch questions"})
	}

	return c.JSON(fiber.Map{"status": "success", "questions": questions})
}

// DeleteSpecialQuestion removes one question from an owned course.
func DeleteSpecialQuestion(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}
	questionID, err := c.ParamsInt("question_id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid question ID"})
	}
	user := c.Locals("user").(models.User)

	if _, code, ferr := requireOwnedSpecialCourse(courseID, user.ID); ferr != nil {
		return c.Status(code).JSON(fiber.Map{"error": ferr.Error()})
	}

	result, err := util.DB.Exec(`
		DELETE FROM special_questions WHERE id = $1 AND course_id = $2
	`, questionID, courseID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete question"})
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Question not found"})
	}

	return c.JSON(fiber.Map{"status": "success", "message": "Question deleted"})
}

// loadSpecialQuestions fetches a course's questions and choices. Correct
// flags are stripped unless includeCorrect is set.
func loadSpecialQuestions(courseID int, includeCorrect bool) ([]models.SpecialQuestion, error) {
	rows, err := util.DB.Query(`
		SELECT id, course_id, text, mark FROM special_questions WHERE course_id = $1 ORDER BY id
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []models.SpecialQuestion{}
	idx := map[int]int{}
	for rows.Next() {
		var q models.SpecialQuestion
		if err := rows.Scan(&q.ID, &q.CourseID, &q.Text, &q.Mark); err != nil {
			return nil, err
		}
		idx[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return questions, nil
	}

	crows, err := util.DB.Query(`
		SELECT ch.id, ch.question_id, ch.text, ch.is_correct
		FROM special_choices ch
		JOIN special_questions q ON q.id = ch.question_id
		WHERE q.course_id = $1
		ORDER BY ch.id
	`, courseID)
	if err != nil {
		return nil, err
	}
	defer crows.Close()

	for crows.Next() {
		var ch models.SpecialChoice
		if err := crows.Scan(&ch.ID, &ch.QuestionID, &ch.Text, &ch.IsCorrect); err != nil {
			return nil, err
		}
		if !includeCorrect {
			ch.IsCorrect = false
		}
		if i, ok := idx[ch.QuestionID]; ok {
			questions[i].Choices = append(questions[i].Choices, ch)
		}
	}
	return questions, crows.Err()
}

// GetSpecialCourseStatistics reports score aggregates with a pass mark of
// fifty percent.
func GetSpecialCourseStatistics(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}
	user := c.Locals("user").(models.User)

	if _, code, ferr := requireOwnedSpecialCourse(courseID, user.ID); ferr != nil {
		return c.Status(code).JSON(fiber.Map{"error": ferr.Error()})
	}

	var enrolled, submitted, passed, failed int
	var avgScore sql.NullFloat64
	err = util.DB.QueryRow(`
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE submitted),
		       COUNT(*) FILTER (WHERE submitted AND score >= 50),
		       COUNT(*) FILTER (WHERE submitted AND score < 50),
		       AVG(score) FILTER (WHERE submitted)
		FROM special_enrollments WHERE course_id = $1
	`, courseID).Scan(&enrolled, &submitted, &passed, &failed, &avgScore)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute statistics"})
	}

	avg := 0.0
	if avgScore.Valid {
		avg = avgScore.Float64
	}

	return c.JSON(fiber.Map{
		"status":          "success",
		"enrolled_count":  enrolled,
		"submitted_count": submitted,
		"passed_count":    passed,
		"failed_count":    failed,
		"average_score":   avg,
	})
}

// ExportSpecialCourseResults streams the course results as CSV grouped by
// department.
func ExportSpecialCourseResults(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}
	user := c.Locals("user").(models.User)

	sc, code, ferr := requireOwnedSpecialCourse(courseID, user.ID)
	if ferr != nil {
		return c.Status(code).JSON(fiber.Map{"error": ferr.Error()})
	}

	rows, err := util.DB.Query(`
		SELECT u.username, u.email, COALESCE(la.department, ''), e.submitted, e.submitted_at, e.score
		FROM special_enrollments e
		JOIN users u ON u.id = e.user_id
		LEFT JOIN lecturer_accounts la ON la.user_id = u.id
		WHERE e.course_id = $1
		ORDER BY COALESCE(la.department, ''), u.username
	`, courseID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch results"})
	}
	defer rows.Close()

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write([]string{"department", "username", "email", "submitted", "submitted_at", "score"})

	for rows.Next() {
		var username, email, department string
		var submitted bool
		var submittedAt sql.NullTime
		var score sql.NullFloat64
		if err := rows.Scan(&username, &email, &department, &submitted, &submittedAt, &score); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan results"})
		}
		record := []string{department, username, email, strconv.FormatBool(submitted), "", ""}
		if submittedAt.Valid {
			record[4] = submittedAt.Time.Format(time.RFC3339)
		}
		if score.Valid {
			record[5] = strconv.FormatFloat(score.Float64, 'f', 2, 64)
		}
		_ = w.Write(record)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build CSV"})
	}

	filename := util.Slugify(sc.Title) + "-results.csv"
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.SendString(sb.String())
}
