package controllers

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/petroxhq/petrox_backend/models"
	"github.com/petroxhq/petrox_backend/util"
)

// CreateUpdate publishes an announcement. Admin only.
func CreateUpdate(c *fiber.Ctx) error {
	type updateInput struct {
		Title     string `json:"title" validate:"required,min=3,max=255"`
		Body      string `json:"body" validate:"required"`
		Published *bool  `json:"published"`
	}

	var input updateInput
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

	published := true
	if input.Published != nil {
		published = *input.Published
	}

	user := c.Locals("user").(models.User)
	slug := util.Slugify(input.Title)

	// Suffix the slug until it is unique.
	base := slug
	for i := 2; ; i++ {
		var exists bool
		if err := util.DB.QueryRow(`SELECT EXISTS(SELECT 1 FROM updates WHERE slug = $1)`, slug).Scan(&exists); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check slug"})
		}
		if !exists {
			break
		}
		slug = base + "-" + strconv.Itoa(i)
	}

	var update models.Update
	err := util.DB.QueryRow(`
		INSERT INTO updates (title, slug, body, author_id, published)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, title, slug, body, author_id, published, created_at, updated_at
	`, input.Title, slug, input.Body, user.ID, published).Scan(
		&update.ID, &update.Title, &update.Slug, &update.Body,
		&update.AuthorID, &update.Published, &update.CreatedAt, &update.UpdatedAt,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create update"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "update": update})
}

// GetUpdates lists published updates newest-first with like and comment
// counts plus the caller's like/read flags.
func GetUpdates(c *fiber.Ctx) error {
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
		SELECT u.id, u.title, u.slug, u.body, u.author_id, u.published, u.created_at, u.updated_at,
		       (SELECT COUNT(*) FROM update_likes l WHERE l.update_id = u.id) AS like_count,
		       (SELECT COUNT(*) FROM update_comments cm WHERE cm.update_id = u.id) AS comment_count,
		       EXISTS(SELECT 1 FROM update_likes l WHERE l.update_id = u.id AND l.user_id = $1) AS liked,
		       EXISTS(SELECT 1 FROM update_read_states r WHERE r.update_id = u.id AND r.user_id = $1 AND r.viewed) AS viewed
		FROM updates u
		WHERE u.published = true
		ORDER BY u.created_at DESC
		LIMIT $2 OFFSET $3
	`, user.ID, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch updates"})
	}
	defer rows.Close()

	type updateEntry struct {
		models.Update
		LikeCount    int  `json:"like_count"`
		CommentCount int  `json:"comment_count"`
		Liked        bool `json:"liked"`
		Viewed       bool `json:"viewed"`
	}

	updates := []updateEntry{}
	for rows.Next() {
		var e updateEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.Slug, &e.Body, &e.AuthorID, &e.Published,
			&e.CreatedAt, &e.UpdatedAt, &e.LikeCount, &e.CommentCount, &e.Liked, &e.Viewed); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan updates"})
		}
		updates = append(updates, e)
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"page":    page,
		"limit":   limit,
		"updates": updates,
		"hasMore": len(updates) == limit,
	})
}

// GetUpdateBySlug returns one published update with its comment tree and
// marks it read for the caller.
func GetUpdateBySlug(c *fiber.Ctx) error {
	slug := c.Params("slug")
	user := c.Locals("user").(models.User)

	var update models.Update
	err := util.DB.QueryRow(`
		SELECT id, title, slug, body, author_id, published, created_at, updated_at
		FROM updates WHERE slug = $1 AND published = true
	`, slug).Scan(&update.ID, &update.Title, &update.Slug, &update.Body,
		&update.AuthorID, &update.Published, &update.CreatedAt, &update.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Update not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch update"})
	}

	_, err = util.DB.Exec(`
		INSERT INTO update_read_states (user_id, update_id, viewed, viewed_at)
		VALUES ($1, $2, true, $3)
		ON CONFLICT (user_id, update_id) DO UPDATE SET viewed = true, viewed_at = $3
	`, user.ID, update.ID, time.Now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark update read"})
	}

	comments, err := loadCommentTree(update.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch comments"})
	}

	return c.JSON(fiber.Map{"status": "success", "update": update, "comments": comments})
}

// loadCommentTree returns root comments with one level of replies, oldest
// first like the feed renders them.
func loadCommentTree(updateID int) ([]models.Comment, error) {
	rows, err := util.DB.Query(`
		SELECT cm.id, cm.update_id, cm.user_id, u.username, cm.parent_id, cm.body, cm.created_at
		FROM update_comments cm
		JOIN users u ON u.id = cm.user_id
		WHERE cm.update_id = $1
		ORDER BY cm.created_at
	`, updateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []models.Comment
	for rows.Next() {
		var cm models.Comment
		if err := rows.Scan(&cm.ID, &cm.UpdateID, &cm.UserID, &cm.Username,
			&cm.ParentID, &cm.Body, &cm.CreatedAt); err != nil {
			return nil, err
		}
		all = append(all, cm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	roots := []models.Comment{}
	rootIdx := map[int]int{}
	for _, cm := range all {
		if cm.ParentID == nil {
			rootIdx[cm.ID] = len(roots)
			roots = append(roots, cm)
		}
	}
	for _, cm := range all {
		if cm.ParentID != nil {
			if i, ok := rootIdx[*cm.ParentID]; ok {
				roots[i].Replies = append(roots[i].Replies, cm)
			}
		}
	}
	return roots, nil
}

// ToggleLike likes or unlikes an update and reports the new state.
func ToggleLike(c *fiber.Ctx) error {
	updateID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid update ID"})
	}
	user := c.Locals("user").(models.User)

	var exists bool
	err = util.DB.QueryRow(`SELECT EXISTS(SELECT 1 FROM updates WHERE id = $1 AND published = true)`, updateID).Scan(&exists)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check update"})
	}
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Update not found"})
	}

	result, err := util.DB.Exec(`DELETE FROM update_likes WHERE user_id = $1 AND update_id = $2`, user.ID, updateID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update like"})
	}
	deleted, _ := result.RowsAffected()

	liked := false
	if deleted == 0 {
		if _, err := util.DB.Exec(`
			INSERT INTO update_likes (user_id, update_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, user.ID, updateID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update like"})
		}
		liked = true
	}

	var likeCount int
	if err := util.DB.QueryRow(`SELECT COUNT(*) FROM update_likes WHERE update_id = $1`, updateID).Scan(&likeCount); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to count likes"})
	}

	return c.JSON(fiber.Map{"status": "success", "liked": liked, "like_count": likeCount})
}

// AddComment posts a comment or a reply on an update.
func AddComment(c *fiber.Ctx) error {
	updateID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid update ID"})
	}

	type commentInput struct {
		Body     string `json:"body" validate:"required,min=1"`
		ParentID *int   `json:"parent_id"`
	}
	var input commentInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Comment body is required"})
	}

	user := c.Locals("user").(models.User)

	var exists bool
	err = util.DB.QueryRow(`SELECT EXISTS(SELECT 1 FROM updates WHERE id = $1 AND published = true)`, updateID).Scan(&exists)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check update"})
	}
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Update not found"})
	}

	if input.ParentID != nil {
		var parentOK bool
		err = util.DB.QueryRow(`
			SELECT EXISTS(SELECT 1 FROM update_comments WHERE id = $1 AND update_id = $2 AND parent_id IS NULL)
		`, *input.ParentID, updateID).Scan(&parentOK)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check parent comment"})
		}
		if !parentOK {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Parent comment not found on this update"})
		}
	}

	var comment models.Comment
	err = util.DB.QueryRow(`
		INSERT INTO update_comments (update_id, user_id, parent_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, update_id, user_id, parent_id, body, created_at
	`, updateID, user.ID, input.ParentID, input.Body).Scan(
		&comment.ID, &comment.UpdateID, &comment.UserID, &comment.ParentID,
		&comment.Body, &comment.CreatedAt,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create comment"})
	}
	comment.Username = user.Username

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "comment": comment})
}

// GetUnreadCount tells the caller how many published updates they have not
// opened yet.
func GetUnreadCount(c *fiber.Ctx) error {
	user := c.Locals("user").(models.User)

	var count int
	err := util.DB.QueryRow(`
		SELECT COUNT(*) FROM updates u
		WHERE u.published = true AND NOT EXISTS (
			SELECT 1 FROM update_read_states r
			WHERE r.update_id = u.id AND r.user_id = $1 AND r.viewed
		)
	`, user.ID).Scan(&count)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to count unread updates"})
	}

	return c.JSON(fiber.Map{"status": "success", "unread_count": count})
}

// MarkAllRead marks every published update as read for the caller.
func MarkAllRead(c *fiber.Ctx) error {
	user := c.Locals("user").(models.User)

	_, err := util.DB.Exec(`
		INSERT INTO update_read_states (user_id, update_id, viewed, viewed_at)
		SELECT $1, u.id, true, $2 FROM updates u WHERE u.published = true
		ON CONFLICT (user_id, update_id) DO UPDATE SET viewed = true, viewed_at = $2
	`, user.ID, time.Now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark updates read"})
	}

	return c.JSON(fiber.Map{"status": "success", "message": "All updates marked read"})
}
