// Package main seeds the database with demo categories, languages, users and
// stories. Development and testing only.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
)

var categories = []string{"Fantasy", "Romance", "Horror", "Science Fiction", "Adventure", "Drama"}
var languages = []string{"English", "Hungarian", "German", "Spanish", "French"}

func main() {
	userCount := flag.Int("users", 10, "Number of demo users")
	storyCount := flag.Int("stories", 25, "Number of demo stories")
	flag.Parse()

	gofakeit.Seed(time.Now().UnixNano())

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := repository.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("Ensure indexes failed: %v", err)
	}

	taxonomy := repository.NewTaxonomyRepository(db)
	users := repository.NewUserRepository(db)
	stories := repository.NewStoryRepository(db)

	for _, name := range categories {
		if _, err := taxonomy.CreateCategory(ctx, name); err != nil && !models.IsConflict(err) {
			log.Printf("seed category %q: %v", name, err)
		}
	}
	for _, name := range languages {
		if _, err := taxonomy.CreateLanguage(ctx, name); err != nil && !models.IsConflict(err) {
			log.Printf("seed language %q: %v", name, err)
		}
	}
	log.Printf("Seeded %d categories, %d languages", len(categories), len(languages))

	// Everyone gets the same password so the demo accounts stay usable.
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash demo password: %v", err)
	}

	usernames := make([]string, 0, *userCount)
	for i := 0; i < *userCount; i++ {
		user := &models.User{
			Username: gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
			Email:    gofakeit.Email(),
			Password: string(hashed),
			Bio:      gofakeit.Sentence(10),
			Avatar: models.Image{
				URL:      fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
				PublicID: cfg.DefaultAvatarID,
			},
		}
		if err := users.Create(ctx, user); err != nil {
			log.Printf("seed user %q: %v", user.Username, err)
			continue
		}
		usernames = append(usernames, user.Username)
	}
	log.Printf("Seeded %d users", len(usernames))

	if len(usernames) == 0 {
		log.Fatal("No users created, cannot seed stories")
	}

	created := 0
	for i := 0; i < *storyCount; i++ {
		author := usernames[rand.Intn(len(usernames))]
		story := &models.Story{
			Title:       gofakeit.Sentence(4) + fmt.Sprintf(" #%d", gofakeit.Number(100, 999)),
			Author:      author,
			Description: gofakeit.Sentence(15),
			Body:        gofakeit.Paragraph(4, 6, 12, "\n\n"),
			Characters:  gofakeit.Name() + ", " + gofakeit.Name(),
			Language:    languages[rand.Intn(len(languages))],
			Category:    categories[rand.Intn(len(categories))],
			Published:   gofakeit.Bool(),
			Cover: models.Image{
				URL: fmt.Sprintf("https://picsum.photos/seed/%s/300/400", gofakeit.UUID()),
			},
		}
		if err := stories.Create(ctx, story); err != nil {
			log.Printf("seed story %q: %v", story.Title, err)
			continue
		}
		created++
	}
	log.Printf("Seeded %d stories", created)
}
