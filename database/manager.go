package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/gorm"

	"tvcms/config"
)

// Manager owns the relational connection and, when the audit trail lives in
// MongoDB, the Mongo client. It is created once at startup and closed on shutdown.
type Manager struct {
	config      *config.Config
	log         *logrus.Logger
	db          *gorm.DB
	mongoClient *mongo.Client
	mongoDB     *mongo.Database
}

// NewManager creates a new database manager
func NewManager(cfg *config.Config, log *logrus.Logger) *Manager {
	return &Manager{
		config: cfg,
		log:    log,
	}
}

// Initialize opens every configured connection
func (m *Manager) Initialize(ctx context.Context) error {
	if m.db != nil {
		return errors.New("database already initialized")
	}

	opts, err := SQLOptionsFromConfig(m.config)
	if err != nil {
		return err
	}

	db, err := OpenSQL(opts, m.log)
	if err != nil {
		return err
	}
	m.db = db
	m.log.WithField("target", m.config.DatabaseTarget()).Info("Connected to relational database")

	if m.config.UsesMongoActivityStore() {
		client, err := ConnectMongo(ctx, m.config.MongoURI)
		if err != nil {
			return err
		}
		m.mongoClient = client
		m.mongoDB = client.Database(m.config.MongoDBName)

		if err := EnsureActivityIndexes(ctx, m.mongoDB); err != nil {
			return fmt.Errorf("failed to create activity indexes: %w", err)
		}
		m.log.WithField("database", m.config.MongoDBName).Info("Connected to MongoDB activity store")
	}

	return nil
}

// DB returns the gorm handle
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// MongoDatabase returns the Mongo database, or nil when the SQL activity store is used
func (m *Manager) MongoDatabase() *mongo.Database {
	return m.mongoDB
}

// Migrate applies the relational schema
func (m *Manager) Migrate(ctx context.Context) error {
	if m.db == nil {
		return errors.New("database not initialized")
	}
	return AutoMigrate(ctx, m.db, m.log)
}

// Seed creates the default admin and station programs on an empty database
func (m *Manager) Seed(ctx context.Context) error {
	if m.db == nil {
		return errors.New("database not initialized")
	}
	return SeedDefaults(ctx, m.db, SeedOptions{
		AdminEmail:    m.config.AdminDefaultEmail,
		AdminPassword: m.config.AdminDefaultPass,
		AdminName:     m.config.AdminDefaultName,
		Programs:      m.config.SeedPrograms,
	}, m.log)
}

// HealthCheck pings every open connection and reports per-store results
func (m *Manager) HealthCheck(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	results := make(map[string]error)

	if m.db == nil {
		results["database"] = errors.New("database not initialized")
	} else if sqlDB, err := m.db.DB(); err != nil {
		results["database"] = err
	} else {
		results["database"] = sqlDB.PingContext(ctx)
	}

	if m.mongoClient != nil {
		results["activity_store"] = m.mongoClient.Ping(ctx, readpref.Primary())
	}

	return results
}

// Close gracefully closes the database connections
func (m *Manager) Close(ctx context.Context) error {
	var errs []error

	if m.mongoClient != nil {
		if err := m.mongoClient.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to disconnect from MongoDB: %w", err))
		}
		m.mongoClient = nil
		m.mongoDB = nil
	}

	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close database: %w", err))
			}
		}
		m.db = nil
	}

	if len(errs) == 0 {
		m.log.Info("Database connections closed successfully")
	}
	return errors.Join(errs...)
}
