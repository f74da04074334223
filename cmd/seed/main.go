package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"ceseminars/internal/config"
	"ceseminars/internal/database"
	apperrors "ceseminars/internal/errors"
	"ceseminars/internal/logger"
	"ceseminars/internal/middleware"
	"ceseminars/internal/models"
	"ceseminars/internal/repository"
	"ceseminars/internal/service"

	"github.com/shopspring/decimal"
)

var (
	title          = flag.String("title", "Clinical Practice Seminar", "Seminar title")
	year           = flag.Int("year", time.Now().Year(), "Seminar year")
	sessions       = flag.Int("sessions", 10, "Number of weekly sessions")
	credits        = flag.String("credits", "1.5", "CE credits per session")
	start          = flag.String("start", "", "First session date, YYYY-MM-DD (default: next Sunday)")
	activate       = flag.Bool("activate", true, "Make the seeded seminar the active one")
	adminEmail     = flag.String("admin-email", "admin@example.com", "Admin login")
	adminPassword  = flag.String("admin-password", "admin", "Admin password")
	memberEmail    = flag.String("member-email", "member@example.com", "Member login")
	memberPassword = flag.String("member-password", "member", "Member password")
)

func main() {
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	log.Info("Starting seed...")

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repos := repository.NewRepositories(db)
	if err := seedUsers(ctx, repos.Users); err != nil {
		logger.Fatal("Failed to seed users", "error", err)
	}

	catalog := service.NewCatalogService(repos.Seminars, repos.Sessions, nil, time.Now)
	seminar, err := seedSeminar(ctx, catalog)
	if err != nil {
		logger.Fatal("Failed to seed seminar", "error", err)
	}

	log.Info("Seed completed", "seminar_id", seminar.ID, "status", seminar.Status)
}

func seedUsers(ctx context.Context, users *repository.UserRepository) error {
	for _, u := range []struct {
		email, password, first, last string
		admin                        bool
	}{
		{*adminEmail, *adminPassword, "Seminar", "Admin", true},
		{*memberEmail, *memberPassword, "Demo", "Member", false},
	} {
		user := &models.User{
			Email:        u.email,
			FirstName:    u.first,
			Surname:      u.last,
			PasswordHash: middleware.HashPassword(u.password),
			IsAdmin:      u.admin,
			IsActive:     true,
		}
		err := users.Create(ctx, user)
		switch {
		case apperrors.IsDuplicate(err):
			logger.Get().Info("User already exists", "email", u.email)
		case err != nil:
			return fmt.Errorf("failed to create %s: %w", u.email, err)
		default:
			logger.Get().Info("Created user", "email", user.Email, "user_id", user.UserID, "is_admin", user.IsAdmin)
		}
	}
	return nil
}

func seedSeminar(ctx context.Context, catalog *service.CatalogService) (*models.Seminar, error) {
	perSession, err := decimal.NewFromString(*credits)
	if err != nil {
		return nil, fmt.Errorf("invalid -credits: %w", err)
	}

	first, err := firstSession(*start, time.Now())
	if err != nil {
		return nil, err
	}

	seminar, err := catalog.CreateSeminar(ctx, &models.CreateSeminarRequest{
		Title:             *title,
		Year:              *year,
		TotalSessions:     *sessions,
		CreditsPerSession: perSession,
	})
	if err != nil {
		return nil, err
	}
	logger.Get().Info("Created seminar", "seminar_id", seminar.ID, "total_credits", seminar.TotalCredits.String())

	for i := 0; i < *sessions; i++ {
		topic := fmt.Sprintf("Session %d", i+1)
		if _, err := catalog.CreateSession(ctx, seminar.ID, &models.SessionRequest{
			SessionNumber: i + 1,
			SessionDate:   models.Date{Time: first.AddDate(0, 0, 7*i)},
			Topic:         &topic,
		}); err != nil {
			return nil, fmt.Errorf("failed to create session %d: %w", i+1, err)
		}
	}

	if *activate {
		return catalog.ActivateSeminar(ctx, seminar.ID)
	}
	return seminar, nil
}

// firstSession parses the -start flag, defaulting to the next Sunday
func firstSession(value string, now time.Time) (time.Time, error) {
	if value != "" {
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid -start: %w", err)
		}
		return t, nil
	}
	day := models.DateOf(now)
	return day.AddDate(0, 0, (7-int(day.Weekday()))%7), nil
}
