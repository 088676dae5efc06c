package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/petroxhq/petrox_backend/models"
	"github.com/petroxhq/petrox_backend/util"
)

// leaderboardQuery ranks users by average percentage score across all their
// sessions. Unsubmitted sessions contribute their question count to the
// denominator but nothing to the numerator, so abandoned tests dilute the
// average. Ties break by ascending user id so ranking is stable.
const leaderboardQuery = `
	SELECT u.id, u.username,
	       100.0 * COALESCE(SUM(ts.score), 0) / SUM(ts.question_count) AS avg_score,
	       COUNT(ts.id) AS tests_taken
	FROM users u
	JOIN test_sessions ts ON ts.user_id = u.id
	WHERE u.deleted = false
	GROUP BY u.id, u.username
	HAVING SUM(ts.question_count) > 0
	ORDER BY avg_score DESC, u.id ASC
`

type leaderboardEntry struct {
	UserID     int     `json:"user_id"`
	Username   string  `json:"username"`
	AvgScore   float64 `json:"avg_score"`
	TestsTaken int     `json:"tests_taken"`
	Rank       int     `json:"rank"`
}

// GetLeaderboard returns the top ten users plus the caller's own rank.
func GetLeaderboard(c *fiber.Ctx) error {
	user := c.Locals("user").(models.User)

	rows, err := util.DB.Query(leaderboardQuery)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch leaderboard"})
	}
	defer rows.Close()

	var all []leaderboardEntry
	for rows.Next() {
		var e leaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.AvgScore, &e.TestsTaken); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan leaderboard"})
		}
		e.Rank = len(all) + 1
		all = append(all, e)
	}
	if err := rows.Err(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read leaderboard"})
	}

	top := all
	if len(top) > 10 {
		top = top[:10]
	}

	var mine *leaderboardEntry
	for i := range all {
		if all[i].UserID == user.ID {
			mine = &all[i]
			break
		}
	}

	resp := fiber.Map{
		"status":      "success",
		"leaderboard": top,
	}
	if mine != nil {
		resp["my_rank"] = mine
	}
	return c.JSON(resp)
}

// GetUserRank returns the caller's 1-based leaderboard position, or null
// when they have no sessions.
func GetUserRank(c *fiber.Ctx) error {
	user := c.Locals("user").(models.User)

	rows, err := util.DB.Query(leaderboardQuery)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch rankings"})
	}
	defer rows.Close()

	var orderedIDs []int
	for rows.Next() {
		var e leaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.AvgScore, &e.TestsTaken); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan rankings"})
		}
		orderedIDs = append(orderedIDs, e.UserID)
	}
	if err := rows.Err(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read rankings"})
	}

	rank := util.RankOf(orderedIDs, user.ID)
	if rank == 0 {
		return c.JSON(fiber.Map{"status": "success", "rank": nil})
	}
	return c.JSON(fiber.Map{"status": "success", "rank": rank, "total_ranked": len(orderedIDs)})
}
