package controllers

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/petroxhq/petrox_backend/models"
	"github.com/petroxhq/petrox_backend/util"
)

// ListOpenSpecialCourses shows exam courses whose window has not ended,
// with the caller's enrollment state.
func ListOpenSpecialCourses(c *fiber.Ctx) error {
	user := c.Locals("user").(models.User)

	rows, err := util.DB.Query(`
		SELECT sc.id, sc.title, sc.description, sc.created_by_id, sc.start_time, sc.end_time, sc.created_at,
		       e.id IS NOT NULL AS enrolled,
		       COALESCE(e.submitted, false) AS submitted
		FROM special_courses sc
		LEFT JOIN special_enrollments e ON e.course_id = sc.id AND e.user_id = $1
		WHERE sc.end_time > $2
		ORDER BY sc.start_time
	`, user.ID, time.Now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch courses"})
	}
	defer rows.Close()

	type courseEntry struct {
		models.SpecialCourse
		Enrolled  bool `json:"enrolled"`
		Submitted bool `json:"submitted"`
	}

	courses := []courseEntry{}
	for rows.Next() {
		var e courseEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.CreatedByID,
			&e.StartTime, &e.EndTime, &e.CreatedAt, &e.Enrolled, &e.Submitted); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan courses"})
		}
		courses = append(courses, e)
	}

	return c.JSON(fiber.Map{"status": "success", "courses": courses})
}

// EnrollSpecialCourse enrolls the caller, returning the existing enrollment
// when they already have one.
func EnrollSpecialCourse(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}
	user := c.Locals("user").(models.User)

	var endTime time.Time
	err = util.DB.QueryRow(`SELECT end_time FROM special_courses WHERE id = $1`, courseID).Scan(&endTime)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch course"})
	}
	if time.Now().After(endTime) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "This course has ended"})
	}

	var e models.SpecialEnrollment
	err = util.DB.QueryRow(`
		INSERT INTO special_enrollments (course_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (course_id, user_id) DO UPDATE SET course_id = EXCLUDED.course_id
		RETURNING id, course_id, user_id, enrolled_at, started, submitted, submitted_at, score
	`, courseID, user.ID).Scan(&e.ID, &e.CourseID, &e.UserID, &e.EnrolledAt,
		&e.Started, &e.Submitted, &e.SubmittedAt, &e.Score)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to enroll"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "enrollment": e})
}

// loadEnrollment fetches the caller's enrollment for a course.
func loadEnrollment(courseID, userID int) (models.SpecialEnrollment, error) {
	var e models.SpecialEnrollment
	err := util.DB.QueryRow(`
		SELECT id, course_id, user_id, enrolled_at, started, submitted, submitted_at, score
		FROM special_enrollments WHERE course_id = $1 AND user_id = $2
	`, courseID, userID).Scan(&e.ID, &e.CourseID, &e.UserID, &e.EnrolledAt,
		&e.Started, &e.Submitted, &e.SubmittedAt, &e.Score)
	return e, err
}

// GetSpecialEnrollment returns the caller's enrollment; question payload is
// included only while the course window is open and not yet submitted.
func GetSpecialEnrollment(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}
	user := c.Locals("user").(models.User)

	var sc models.SpecialCourse
	err = util.DB.QueryRow(`
		SELECT id, title, description, start_time, end_time FROM special_courses WHERE id = $1
	`, courseID).Scan(&sc.ID, &sc.Title, &sc.Description, &sc.StartTime, &sc.EndTime)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch course"})
	}

	enrollment, err := loadEnrollment(courseID, user.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "You are not enrolled in this course"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch enrollment"})
	}

	resp := fiber.Map{
		"status":     "success",
		"course":     sc,
		"enrollment": enrollment,
	}

	now := time.Now()
	windowOpen := now.After(sc.StartTime) && now.Before(sc.EndTime)
	if windowOpen && !enrollment.Submitted {
		questions, qerr := loadSpecialQuestions(courseID, false)
		if qerr != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch questions"})
		}
		resp["questions"] = questions
	}

	return c.JSON(resp)
}

// StartSpecialExam flags the enrollment started; the window must be open.
func StartSpecialExam(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}
	user := c.Locals("user").(models.User)

	var startTime, endTime time.Time
	err = util.DB.QueryRow(`
		SELECT start_time, end_time FROM special_courses WHERE id = $1
	`, courseID).Scan(&startTime, &endTime)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch course"})
	}

	now := time.Now()
	if now.Before(startTime) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "This exam has not started yet"})
	}
	if now.After(endTime) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "This exam has ended"})
	}

	enrollment, err := loadEnrollment(courseID, user.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "You are not enrolled in this course"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch enrollment"})
	}
	if enrollment.Submitted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You have already submitted this exam"})
	}

	if !enrollment.Started {
		if _, err := util.DB.Exec(`
			UPDATE special_enrollments SET started = true WHERE id = $1
		`, enrollment.ID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to start exam"})
		}
		enrollment.Started = true
	}

	questions, err := loadSpecialQuestions(courseID, false)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch questions"})
	}

	return c.JSON(fiber.Map{
		"status":     "success",
		"enrollment": enrollment,
		"questions":  questions,
	})
}

// scoreEnrollmentTx computes the mark-weighted percentage for an enrollment
// from its stored answers and stamps it submitted. Answers to questions
// outside the course are ignored.
func scoreEnrollmentTx(tx *sql.Tx, enrollmentID, courseID int, submittedAt time.Time) (float64, error) {
	var totalMarks sql.NullFloat64
	err := tx.QueryRow(`
		SELECT SUM(mark) FROM special_questions WHERE course_id = $1
	`, courseID).Scan(&totalMarks)
	if err != nil {
		return 0, err
	}

	var earned sql.NullFloat64
	err = tx.QueryRow(`
		SELECT SUM(q.mark)
		FROM special_answers a
		JOIN special_questions q ON q.id = a.question_id
		JOIN special_choices ch ON ch.id = a.choice_id
		WHERE a.enrollment_id = $1 AND q.course_id = $2 AND ch.is_correct
	`, enrollmentID, courseID).Scan(&earned)
	if err != nil {
		return 0, err
	}

	score := 0.0
	if totalMarks.Valid && totalMarks.Float64 > 0 && earned.Valid {
		score = 100 * earned.Float64 / totalMarks.Float64
	}

	_, err = tx.Exec(`
		UPDATE special_enrollments SET submitted = true, submitted_at = $1, score = $2 WHERE id = $3
	`, submittedAt, score, enrollmentID)
	return score, err
}

// SubmitSpecialExam saves the caller's choices and grades atomically. A
// second submission is rejected.
func SubmitSpecialExam(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}

	type submitInput struct {
		// question id -> chosen choice id
		Answers map[string]int `json:"answers"`
	}
	var input submitInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}

	user := c.Locals("user").(models.User)

	enrollment, err := loadEnrollment(courseID, user.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "You are not enrolled in this course"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch enrollment"})
	}
	if enrollment.Submitted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "You have already submitted this exam"})
	}

	tx, err := util.DB.Begin()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to begin transaction"})
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO special_answers (enrollment_id, question_id, choice_id)
		SELECT $1, q.id, ch.id
		FROM special_questions q
		JOIN special_choices ch ON ch.question_id = q.id
		WHERE q.id = $2 AND q.course_id = $3 AND ch.id = $4
		ON CONFLICT (enrollment_id, question_id) DO UPDATE SET choice_id = EXCLUDED.choice_id
	`)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to prepare answers"})
	}
	defer stmt.Close()

	for qidStr, choiceID := range input.Answers {
		qid, perr := strconv.Atoi(qidStr)
		if perr != nil {
			continue
		}
		if _, err := stmt.Exec(enrollment.ID, qid, courseID, choiceID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save answers"})
		}
	}

	now := time.Now()
	score, err := scoreEnrollmentTx(tx, enrollment.ID, courseID, now)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to grade exam"})
	}

	if err := tx.Commit(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to commit transaction"})
	}

	return c.JSON(fiber.Map{
		"status":       "success",
		"score":        score,
		"submitted_at": now,
	})
}

// FinalizeDueExams auto-submits unsubmitted enrollments of courses whose
// window has ended, grading whatever answers were stored. Staff only.
func FinalizeDueExams(c *fiber.Ctx) error {
	now := time.Now()

	rows, err := util.DB.Query(`
		SELECT e.id, e.course_id
		FROM special_enrollments e
		JOIN special_courses sc ON sc.id = e.course_id
		WHERE e.submitted = false AND sc.end_time < $1
	`, now)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch due enrollments"})
	}
	defer rows.Close()

	type due struct{ enrollmentID, courseID int }
	var dues []due
	for rows.Next() {
		var d due
		if err := rows.Scan(&d.enrollmentID, &d.courseID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan due enrollments"})
		}
		dues = append(dues, d)
	}
	if err := rows.Err(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read due enrollments"})
	}

	finalized := 0
	for _, d := range dues {
		tx, err := util.DB.Begin()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to begin transaction"})
		}
		if _, err := scoreEnrollmentTx(tx, d.enrollmentID, d.courseID, now); err != nil {
			tx.Rollback()
			continue
		}
		if err := tx.Commit(); err != nil {
			continue
		}
		finalized++
	}

	return c.JSON(fiber.Map{"status": "success", "finalized": finalized})
}
