// Command main runs the database seeder for Rewire.
package main

import (
	"flag"
	"log"

	"rewire/internal/config"
	"rewire/internal/database"
	"rewire/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	tasksPerUser := flag.Int("tasks", 6, "Number of task assignments per user")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d tasks each, clean=%v\n", *numUsers, *tasksPerUser, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Run(db, seed.Options{
		NumUsers:     *numUsers,
		TasksPerUser: *tasksPerUser,
		ShouldClean:  *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
