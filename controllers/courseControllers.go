package controllers

import (
	"database/sql"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/petroxhq/petrox_backend/models"
	"github.com/petroxhq/petrox_backend/util"
)

// GetCourses lists all courses with their approved question counts.
func GetCourses(c *fiber.Ctx) error {
	rows, err := util.DB.Query(`
		SELECT co.id, co.name, co.description, co.status, co.created_at,
		       COUNT(q.id) FILTER (WHERE q.status = 'approved') AS question_count
		FROM courses co
		LEFT JOIN questions q ON q.course_id = co.id
		GROUP BY co.id
		ORDER BY co.name
	`)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch courses"})
	}
	defer rows.Close()

	type courseEntry struct {
		models.Course
		QuestionCount int `json:"question_count"`
	}

	courses := []courseEntry{}
	for rows.Next() {
		var e courseEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Status, &e.CreatedAt, &e.QuestionCount); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan courses"})
		}
		courses = append(courses, e)
	}

	return c.JSON(fiber.Map{"status": "success", "courses": courses})
}

// GetCourseByID returns a single course.
func GetCourseByID(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}

	var course models.Course
	err = util.DB.QueryRow(`
		SELECT id, name, description, status, created_at FROM courses WHERE id = $1
	`, id).Scan(&course.ID, &course.Name, &course.Description, &course.Status, &course.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch course"})
	}

	return c.JSON(fiber.Map{"status": "success", "course": course})
}

// CreateCourse adds a course. Admin only.
func CreateCourse(c *fiber.Ctx) error {
	type courseInput struct {
		Name        string `json:"name" validate:"required,min=2,max=255"`
		Description string `json:"description"`
	}

	var input courseInput
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
	err := util.DB.QueryRow(`SELECT EXISTS(SELECT 1 FROM courses WHERE lower(name) = lower($1))`, input.Name).Scan(&exists)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check course name"})
	}
	if exists {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "A course with this name already exists"})
	}

	var course models.Course
	err = util.DB.QueryRow(`
		INSERT INTO courses (name, description)
		VALUES ($1, $2)
		RETURNING id, name, description, status, created_at
	`, input.Name, input.Description).Scan(
		&course.ID, &course.Name, &course.Description, &course.Status, &course.CreatedAt,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create course"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "course": course})
}
