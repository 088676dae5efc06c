package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/petroxhq/petrox_backend/routers"
	"github.com/petroxhq/petrox_backend/util"
)

func main() {
	util.LoadSettings()

	if err := util.DBConnectAndPopulateDBVar(); err != nil {
		log.Fatal("database connection failed: ", err)
	}
	if err := util.CreateTableIfNotExists(); err != nil {
		log.Fatal("schema bootstrap failed: ", err)
	}
	if err := util.InitStorage(); err != nil {
		log.Fatal("storage init failed: ", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: int(util.Settings.MaxUploadBytes),
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     util.Settings.CORSAllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	routers.SetupRoutes(app)

	log.Fatal(app.Listen(":8080"))
}
