package controllers

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/petroxhq/petrox_backend/models"
	"github.com/petroxhq/petrox_backend/util"
)

// sessionQuestion is the question payload delivered to a test taker. The
// correct option is deliberately absent.
type sessionQuestion struct {
	ID           int    `json:"id"`
	QuestionText string `json:"question_text"`
	OptionA      string `json:"option_a"`
	OptionB      string `json:"option_b"`
	OptionC      string `json:"option_c"`
	OptionD      string `json:"option_d"`
}

// loadSessionQuestions returns a session's frozen questions in snapshot
// order, without correct options.
func loadSessionQuestions(sessionID uuid.UUID) ([]sessionQuestion, error) {
	rows, err := util.DB.Query(`
		SELECT q.id, q.question_text, q.option_a, q.option_b, q.option_c, q.option_d
		FROM test_session_questions tsq
		JOIN questions q ON q.id = tsq.question_id
		WHERE tsq.test_session_id = $1
		ORDER BY tsq.position
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []sessionQuestion{}
	for rows.Next() {
		var q sessionQuestion
		if err := rows.Scan(&q.ID, &q.QuestionText, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// createSessionTx freezes a random sample of approved course questions into
// a new test session inside tx and returns the session with its question
// payload. Shared by StartTest and group-test materialization.
func createSessionTx(tx *sql.Tx, userID, courseID, questionCount, durationSeconds int) (uuid.UUID, time.Time, []sessionQuestion, error) {
	rows, err := tx.Query(`
		SELECT id, question_text, option_a, option_b, option_c, option_d, correct_option
		FROM questions
		WHERE course_id = $1 AND status = 'approved'
	`, courseID)
	if err != nil {
		return uuid.Nil, time.Time{}, nil, err
	}
	defer rows.Close()

	var approved []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.QuestionText, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectOption); err != nil {
			return uuid.Nil, time.Time{}, nil, err
		}
		approved = append(approved, q)
	}
	if err := rows.Err(); err != nil {
		return uuid.Nil, time.Time{}, nil, err
	}

	if questionCount > len(approved) {
		return uuid.Nil, time.Time{}, nil, errInsufficientQuestions
	}

	chosen := util.SampleQuestions(approved, questionCount)

	var sessionID uuid.UUID
	var startTime time.Time
	err = tx.QueryRow(`
		INSERT INTO test_sessions (user_id, course_id, question_count, duration)
		VALUES ($1, $2, $3, $4)
		RETURNING id, start_time
	`, userID, courseID, questionCount, durationSeconds).Scan(&sessionID, &startTime)
	if err != nil {
		return uuid.Nil, time.Time{}, nil, err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO test_session_questions (test_session_id, question_id, position)
		VALUES ($1, $2, $3)
	`)
	if err != nil {
		return uuid.Nil, time.Time{}, nil, err
	}
	defer stmt.Close()

	payload := make([]sessionQuestion, 0, len(chosen))
	for i, q := range chosen {
		if _, err := stmt.Exec(sessionID, q.ID, i); err != nil {
			return uuid.Nil, time.Time{}, nil, err
		}
		payload = append(payload, sessionQuestion{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			OptionA:      q.OptionA,
			OptionB:      q.OptionB,
			OptionC:      q.OptionC,
			OptionD:      q.OptionD,
		})
	}
	return sessionID, startTime, payload, nil
}

// StartTest creates a test session with a frozen random sample of approved
// questions for the requested course.
func StartTest(c *fiber.Ctx) error {
	type startTestInput struct {
		CourseID      int `json:"course_id" validate:"required,gt=0"`
		QuestionCount int `json:"question_count" validate:"required,gt=0"`
		Duration      int `json:"duration" validate:"required,gt=0"`
	}

	var input startTestInput
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

	user := c.Locals("user").(models.User)

	var courseName string
	err := util.DB.QueryRow(`SELECT name FROM courses WHERE id = $1`, input.CourseID).Scan(&courseName)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch course"})
	}

	tx, err := util.DB.Begin()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to begin transaction"})
	}
	defer tx.Rollback()

	sessionID, startTime, questions, err := createSessionTx(tx, user.ID, input.CourseID, input.QuestionCount, input.Duration)
	if err == errInsufficientQuestions {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Not enough questions in this course."})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create test session: " + err.Error()})
	}

	if err := tx.Commit(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to commit transaction"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":         "success",
		"session_id":     sessionID,
		"course":         courseName,
		"question_count": input.QuestionCount,
		"duration":       input.Duration,
		"start_time":     startTime,
		"questions":      questions,
	})
}

// SubmitTest grades the caller's answers against the session's frozen
// question set. The created->submitted transition is a one-way
// compare-and-set; repeated submissions get 409 unless resubmission is
// allowed by configuration.
func SubmitTest(c *fiber.Ctx) error {
	type submitTestInput struct {
		Answers map[string]string `json:"answers"`
	}

	sessionID, err := uuid.Parse(c.Params("session_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID"})
	}

	var input submitTestInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}

	user := c.Locals("user").(models.User)

	var session models.TestSession
	err = util.DB.QueryRow(`
		SELECT id, user_id, course_id, question_count, duration, start_time, end_time, score
		FROM test_sessions WHERE id = $1
	`, sessionID).Scan(
		&session.ID, &session.UserID, &session.CourseID, &session.QuestionCount,
		&session.Duration, &session.StartTime, &session.EndTime, &session.Score,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Test session not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch test session"})
	}
	if session.UserID != user.ID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not own this test session"})
	}
	if session.Score != nil && !util.Settings.AllowResubmit {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Test session already submitted"})
	}

	now := time.Now()
	if util.Settings.EnforceDeadline {
		deadline := session.StartTime.Add(time.Duration(session.Duration+util.Settings.DeadlineGraceSeconds) * time.Second)
		if now.After(deadline) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Submission deadline has passed"})
		}
	}

	// Grade against the frozen set only; caller-supplied extra keys are
	// ignored.
	rows, err := util.DB.Query(`
		SELECT tsq.question_id, q.correct_option
		FROM test_session_questions tsq
		JOIN questions q ON q.id = tsq.question_id
		WHERE tsq.test_session_id = $1
	`, sessionID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch session questions"})
	}
	defer rows.Close()

	correctByQuestion := map[int]string{}
	for rows.Next() {
		var qid int
		var correct string
		if err := rows.Scan(&qid, &correct); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read session questions"})
		}
		correctByQuestion[qid] = correct
	}
	if err := rows.Err(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read session questions"})
	}

	score := util.ScoreAnswers(correctByQuestion, input.Answers)

	tx, err := util.DB.Begin()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to begin transaction"})
	}
	defer tx.Rollback()

	query := `UPDATE test_sessions SET score = $1, end_time = $2 WHERE id = $3`
	if !util.Settings.AllowResubmit {
		query += ` AND score IS NULL`
	}
	result, err := tx.Exec(query, score, now, sessionID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update test session"})
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		// Lost the compare-and-set race to a concurrent submit.
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Test session already submitted"})
	}

	stmt, err := tx.Prepare(`
		UPDATE test_session_questions SET chosen_option = $1
		WHERE test_session_id = $2 AND question_id = $3
	`)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record answers"})
	}
	defer stmt.Close()
	for qid := range correctByQuestion {
		chosen, ok := input.Answers[strconv.Itoa(qid)]
		if !ok || chosen == "" {
			continue
		}
		if _, err := stmt.Exec(normalizeOption(chosen), sessionID, qid); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record answers"})
		}
	}

	if err := tx.Commit(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to commit transaction"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":         "success",
		"session_id":     sessionID,
		"score":          score,
		"question_count": session.QuestionCount,
		"end_time":       now,
	})
}

// GetTestHistory lists the caller's sessions newest-first.
func GetTestHistory(c *fiber.Ctx) error {
	user := c.Locals("user").(models.User)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	rows, err := util.DB.Query(`
		SELECT ts.id, ts.course_id, co.name, ts.question_count, ts.duration,
		       ts.start_time, ts.end_time, ts.score
		FROM test_sessions ts
		JOIN courses co ON co.id = ts.course_id
		WHERE ts.user_id = $1
		ORDER BY ts.start_time DESC
		LIMIT $2 OFFSET $3
	`, user.ID, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch test history"})
	}
	defer rows.Close()

	type historyEntry struct {
		ID            uuid.UUID  `json:"id"`
		CourseID      int        `json:"course_id"`
		CourseName    string     `json:"course_name"`
		QuestionCount int        `json:"question_count"`
		Duration      int        `json:"duration"`
		StartTime     time.Time  `json:"start_time"`
		EndTime       *time.Time `json:"end_time"`
		Score         *int       `json:"score"`
	}

	history := []historyEntry{}
	for rows.Next() {
		var h historyEntry
		if err := rows.Scan(&h.ID, &h.CourseID, &h.CourseName, &h.QuestionCount,
			&h.Duration, &h.StartTime, &h.EndTime, &h.Score); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan test history"})
		}
		history = append(history, h)
	}

	return c.JSON(fiber.Map{
		"page":    page,
		"limit":   limit,
		"history": history,
		"count":   len(history),
		"hasMore": len(history) == limit,
	})
}

// GetTestSession returns one session with its frozen questions in snapshot
// order. Correct and chosen options are revealed only after submission.
func GetTestSession(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(c.Params("session_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID"})
	}

	user := c.Locals("user").(models.User)

	var session models.TestSession
	err = util.DB.QueryRow(`
		SELECT id, user_id, course_id, question_count, duration, start_time, end_time, score
		FROM test_sessions WHERE id = $1
	`, sessionID).Scan(
		&session.ID, &session.UserID, &session.CourseID, &session.QuestionCount,
		&session.Duration, &session.StartTime, &session.EndTime, &session.Score,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Test session not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch test session"})
	}
	if session.UserID != user.ID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not own this test session"})
	}

	rows, err := util.DB.Query(`
		SELECT q.id, q.question_text, q.option_a, q.option_b, q.option_c, q.option_d,
		       q.correct_option, tsq.chosen_option
		FROM test_session_questions tsq
		JOIN questions q ON q.id = tsq.question_id
		WHERE tsq.test_session_id = $1
		ORDER BY tsq.position
	`, sessionID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch questions"})
	}
	defer rows.Close()

	submitted := session.Score != nil
	questions := []map[string]interface{}{}
	for rows.Next() {
		var q sessionQuestion
		var correct string
		var chosen *string
		if err := rows.Scan(&q.ID, &q.QuestionText, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&correct, &chosen); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan questions"})
		}
		entry := map[string]interface{}{
			"id":            q.ID,
			"question_text": q.QuestionText,
			"option_a":      q.OptionA,
			"option_b":      q.OptionB,
			"option_c":      q.OptionC,
			"option_d":      q.OptionD,
		}
		if submitted {
			entry["correct_option"] = correct
			entry["chosen_option"] = chosen
		}
		questions = append(questions, entry)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":       "success",
		"test_session": session,
		"questions":    questions,
	})
}
