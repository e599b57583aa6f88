package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tvcms/models"
	"tvcms/utils"
)

// Models lists every table managed by AutoMigrate, parents before children
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Program{},
		&models.Folder{},
		&models.Tag{},
		&models.File{},
		&models.Comment{},
		&models.Permission{},
		&models.Activity{},
	}
}

// AutoMigrate creates or updates the relational schema
func AutoMigrate(ctx context.Context, db *gorm.DB, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info("Database migrations completed successfully")
	return nil
}

// SeedOptions controls the initial data written by SeedDefaults
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
	Programs      bool
}

// SeedDefaults creates the default admin and the station programs. Each step
// runs only when its table is empty, so calling it repeatedly is safe.
func SeedDefaults(ctx context.Context, db *gorm.DB, opts SeedOptions, log *logrus.Logger) error {
	if err := createDefaultAdmin(ctx, db, opts, log); err != nil {
		return err
	}

	if opts.Programs {
		if err := createDefaultPrograms(ctx, db, log); err != nil {
			return err
		}
	}
	return nil
}

func createDefaultAdmin(ctx context.Context, db *gorm.DB, opts SeedOptions, log *logrus.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		log.WithField("users", count).Info("Users already exist, skipping default admin")
		return nil
	}

	hashed, err := utils.HashPassword(opts.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Email:    opts.AdminEmail,
		Password: hashed,
		Name:     opts.AdminName,
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := db.WithContext(ctx).Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create default admin: %w", err)
	}

	log.WithField("email", admin.Email).Warn("Default admin created, change the password after first login")
	return nil
}

// DefaultPrograms are the station's broadcast programs
func DefaultPrograms() []models.Program {
	return []models.Program{
		{Name: "Noticiero Central", Description: "Noticiero principal con las noticias más importantes del día", Color: "#EF4444", Icon: "newspaper", Schedule: "Lunes a Viernes 20:00", Order: 1},
		{Name: "Deportes UPEA", Description: "Resumen deportivo semanal", Color: "#10B981", Icon: "trophy", Schedule: "Sábados 18:00", Order: 2},
		{Name: "Cultura y Sociedad", Description: "Programa cultural con entrevistas y reportajes", Color: "#8B5CF6", Icon: "palette", Schedule: "Miércoles 19:00", Order: 3},
		{Name: "Educación Hoy", Description: "Temas educativos y académicos", Color: "#3B82F6", Icon: "book-open", Schedule: "Martes 16:00", Order: 4},
		{Name: "Salud y Bienestar", Description: "Consejos de salud y bienestar", Color: "#06B6D4", Icon: "heart-pulse", Schedule: "Jueves 17:00", Order: 5},
		{Name: "Tecnología Digital", Description: "Últimas tendencias en tecnología", Color: "#6366F1", Icon: "cpu", Schedule: "Viernes 18:00", Order: 6},
		{Name: "Medio Ambiente", Description: "Ecología y cuidado del medio ambiente", Color: "#22C55E", Icon: "leaf", Schedule: "Lunes 15:00", Order: 7},
		{Name: "Entrevistas Especiales", Description: "Conversaciones con personalidades destacadas", Color: "#F59E0B", Icon: "mic", Schedule: "Domingos 20:00", Order: 8},
		{Name: "Variedades UPEA", Description: "Programa de entretenimiento y variedades", Color: "#EC4899", Icon: "sparkles", Schedule: "Sábados 21:00", Order: 9},
	}
}

func createDefaultPrograms(ctx context.Context, db *gorm.DB, log *logrus.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Program{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count programs: %w", err)
	}
	if count > 0 {
		log.WithField("programs", count).Info("Programs already exist, skipping seed")
		return nil
	}

	programs := DefaultPrograms()
	for i := range programs {
		programs[i].Slug = utils.GenerateSlug(programs[i].Name)
		programs[i].IsActive = true
	}

	if err := db.WithContext(ctx).Create(&programs).Error; err != nil {
		return fmt.Errorf("failed to create default programs: %w", err)
	}

	log.WithField("programs", len(programs)).Info("Default programs created")
	return nil
}
