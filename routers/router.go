package routers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/petroxhq/petrox_backend/controllers"
	"github.com/petroxhq/petrox_backend/middlewares"
)

func SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/users", controllers.UserSignup)
	auth.Post("/login", controllers.UserLogin)
	auth.Get("/users", middlewares.Protected(), controllers.CurrentUser)
	auth.Get("/google-login", controllers.GoogleLogin)
	auth.Get("/google-callback", controllers.GoogleCallback)

	api.Get("/courses", middlewares.Protected(), controllers.GetCourses)
	api.Get("/courses/:id", middlewares.Protected(), controllers.GetCourseByID)
	api.Post("/admin/courses", middlewares.Protected(), middlewares.StaffOnly(), controllers.CreateCourse)

	api.Post("/start-test", middlewares.Protected(), controllers.StartTest)
	api.Post("/submit-test/:session_id", middlewares.Protected(), controllers.SubmitTest)
	api.Get("/history", middlewares.Protected(), controllers.GetTestHistory)
	api.Get("/test-session/:session_id", middlewares.Protected(), controllers.GetTestSession)

	api.Post("/create-group-test", middlewares.Protected(), controllers.CreateGroupTest)
	api.Get("/group-tests", middlewares.Protected(), controllers.ListGroupTests)
	api.Get("/group-test/:id", middlewares.Protected(), controllers.GetGroupTest)

	api.Get("/leaderboard", middlewares.Protected(), controllers.GetLeaderboard)
	api.Get("/user/rank", middlewares.Protected(), controllers.GetUserRank)
	api.Get("/user/upload-stats", middlewares.Protected(), controllers.GetUploadStats)

	api.Post("/admin/add-question", middlewares.Protected(), middlewares.StaffOnly(), controllers.AddQuestion)
	api.Get("/questions/pending", middlewares.Protected(), middlewares.StaffOnly(), controllers.GetPendingQuestions)
	api.Patch("/questions/:id/status", middlewares.Protected(), middlewares.StaffOnly(), controllers.ModerateQuestion)
	api.Post("/preview-pass-questions", middlewares.Protected(), controllers.PreviewPassQuestions)
	api.Post("/upload-pass-questions", middlewares.Protected(), controllers.UploadPassQuestions)

	api.Post("/materials/upload", middlewares.Protected(), middlewares.StaffOnly(), controllers.UploadMaterial)
	api.Get("/materials/download/:id", middlewares.Protected(), controllers.DownloadMaterial)
	api.Get("/materials/search", middlewares.Protected(), controllers.SearchMaterials)
	api.Delete("/materials/:id", middlewares.Protected(), middlewares.StaffOnly(), controllers.DeleteMaterial)

	updates := api.Group("/updates", middlewares.Protected())
	updates.Get("/", controllers.GetUpdates)
	updates.Get("/unread-count", controllers.GetUnreadCount)
	updates.Post("/mark-all-read", controllers.MarkAllRead)
	updates.Post("/", middlewares.StaffOnly(), controllers.CreateUpdate)
	updates.Post("/:id/like", controllers.ToggleLike)
	updates.Post("/:id/comments", controllers.AddComment)
	updates.Get("/:slug", controllers.GetUpdateBySlug)

	monetization := api.Group("/monetization", middlewares.Protected())
	monetization.Get("/settings", controllers.GetMonetizationSettings)
	monetization.Put("/settings", middlewares.StaffOnly(), controllers.UpdateMonetizationSettings)
	monetization.Post("/codes", middlewares.StaffOnly(), controllers.GenerateActivationCodes)
	monetization.Get("/stats", middlewares.StaffOnly(), controllers.GetActivationStats)
	monetization.Get("/my-status", controllers.GetMyActivationStatus)
	monetization.Post("/verify-code", controllers.RedeemActivationCode)

	lecturer := api.Group("/lecturer")
	lecturer.Post("/register", controllers.RegisterLecturer)
	lecturer.Get("/profile", middlewares.Protected(), middlewares.LecturerOnly(), controllers.GetLecturerProfile)
	lecturer.Put("/profile", middlewares.Protected(), middlewares.LecturerOnly(), controllers.UpdateLecturerProfile)

	special := lecturer.Group("/courses", middlewares.Protected(), middlewares.LecturerOnly())
	special.Post("/", controllers.CreateSpecialCourse)
	special.Get("/", controllers.ListMySpecialCourses)
	special.Put("/:id", controllers.UpdateSpecialCourse)
	special.Delete("/:id", controllers.DeleteSpecialCourse)
	special.Post("/:id/questions", controllers.AddSpecialQuestions)
	special.Get("/:id/questions", controllers.ListSpecialQuestions)
	special.Delete("/:id/questions/:question_id", controllers.DeleteSpecialQuestion)
	special.Get("/:id/statistics", controllers.GetSpecialCourseStatistics)
	special.Get("/:id/results.csv", controllers.ExportSpecialCourseResults)

	exams := api.Group("/exams", middlewares.Protected())
	exams.Get("/courses", controllers.ListOpenSpecialCourses)
	exams.Post("/courses/:id/enroll", controllers.EnrollSpecialCourse)
	exams.Get("/courses/:id/enrollment", controllers.GetSpecialEnrollment)
	exams.Post("/courses/:id/start", controllers.StartSpecialExam)
	exams.Post("/courses/:id/submit", controllers.SubmitSpecialExam)
	exams.Post("/finalize-due", middlewares.StaffOnly(), controllers.FinalizeDueExams)

	admin := api.Group("/admin", middlewares.Protected(), middlewares.StaffOnly())
	admin.Post("/emails", controllers.CreateEmailMessage)
	admin.Get("/emails", controllers.ListEmailMessages)
	admin.Post("/emails/:id/send", controllers.SendEmailMessage)

	app.Use(middlewares.NotFound)
}
