package controllers

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/petroxhq/petrox_backend/models"
	"github.com/petroxhq/petrox_backend/util"
)

// UploadMaterial stores a course document in the bucket and records it.
// Admin only.
func UploadMaterial(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.FormValue("course_id"))
	if err != nil || courseID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course_id"})
	}
	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}
	tags := strings.TrimSpace(c.FormValue("tags"))

	var exists bool
	err = util.DB.QueryRow(`SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1)`, courseID).Scan(&exists)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check course"})
	}
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "A file is required"})
	}
	if fileHeader.Size > util.Settings.MaxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "File too large"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open upload"})
	}
	defer file.Close()

	user := c.Locals("user").(models.User)

	ext := filepath.Ext(fileHeader.Filename)
	objectKey := fmt.Sprintf("materials/%d/%s%s", courseID, uuid.New().String(), ext)
	contentType := fileHeader.Header.Get("Content-Type")

	fileURL, err := util.UploadObject(c.Context(), objectKey, file, contentType)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store file: " + err.Error()})
	}

	var material models.Material
	err = util.DB.QueryRow(`
		INSERT INTO materials (course_id, name, tags, file_url, object_key, uploaded_by_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, course_id, name, tags, file_url, object_key, uploaded_by_id, uploaded_at
	`, courseID, name, tags, fileURL, objectKey, user.ID).Scan(
		&material.ID, &material.CourseID, &material.Name, &material.Tags,
		&material.FileURL, &material.ObjectKey, &material.UploadedByID, &material.UploadedAt,
	)
	if err != nil {
		// Best effort: the record is the source of truth, remove the orphan
		// object.
		_ = util.DeleteObject(c.Context(), objectKey)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save material"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "material": material})
}

// SearchMaterials filters by course and a name/tags substring.
func SearchMaterials(c *fiber.Ctx) error {
	query := `
		SELECT m.id, m.course_id, co.name, m.name, m.tags, m.file_url, m.uploaded_by_id, m.uploaded_at
		FROM materials m
		JOIN courses co ON co.id = m.course_id
		WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if courseID, err := strconv.Atoi(c.Query("course_id", "0")); err == nil && courseID > 0 {
		query += fmt.Sprintf(" AND m.course_id = $%d", argIdx)
		args = append(args, courseID)
		argIdx++
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		query += fmt.Sprintf(" AND (m.name ILIKE $%d OR m.tags ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+q+"%")
		argIdx++
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY m.uploaded_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := util.DB.Query(query, args...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to search materials"})
	}
	defer rows.Close()

	type materialEntry struct {
		models.Material
		CourseName string `json:"course_name"`
	}

	materials := []materialEntry{}
	for rows.Next() {
		var e materialEntry
		if err := rows.Scan(&e.ID, &e.CourseID, &e.CourseName, &e.Name, &e.Tags,
			&e.FileURL, &e.UploadedByID, &e.UploadedAt); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan materials"})
		}
		materials = append(materials, e)
	}

	return c.JSON(fiber.Map{
		"status":    "success",
		"page":      page,
		"limit":     limit,
		"materials": materials,
		"hasMore":   len(materials) == limit,
	})
}

// DownloadMaterial hands out a short-lived signed URL for one material.
func DownloadMaterial(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid material ID"})
	}

	var objectKey, name string
	err = util.DB.QueryRow(`SELECT object_key, name FROM materials WHERE id = $1`, id).Scan(&objectKey, &name)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Material not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch material"})
	}

	signed, err := util.SignedDownloadURL(objectKey, 15*time.Minute)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to sign download URL"})
	}

	return c.JSON(fiber.Map{"status": "success", "name": name, "url": signed})
}

// DeleteMaterial removes the record and its stored object. Admin only.
func DeleteMaterial(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid material ID"})
	}

	var objectKey string
	err = util.DB.QueryRow(`DELETE FROM materials WHERE id = $1 RETURNING object_key`, id).Scan(&objectKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Material not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete material"})
	}

	if err := util.DeleteObject(c.Context(), objectKey); err != nil {
		// The row is gone; log and move on rather than resurrecting it.
		return c.JSON(fiber.Map{"status": "success", "message": "Material deleted; object cleanup pending"})
	}

	return c.JSON(fiber.Map{"status": "success", "message": "Material deleted"})
}
