package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"

	"tvcms/models"
	"tvcms/utils"
)

// ActivityStore persists the append-only audit trail
type ActivityStore interface {
	Record(ctx context.Context, activity *models.Activity) error
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int64, error)
}

// SQLActivityStore keeps activities in the relational database
type SQLActivityStore struct {
	db *gorm.DB
}

func NewSQLActivityStore(db *gorm.DB) *SQLActivityStore {
	return &SQLActivityStore{db: db}
}

func (s *SQLActivityStore) Record(ctx context.Context, activity *models.Activity) error {
	return s.db.WithContext(ctx).Create(activity).Error
}

func (s *SQLActivityStore) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Activity{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		query = query.Where("resource_id = ?", filter.ResourceID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count activities: %w", err)
	}

	var activities []models.Activity
	err := query.Order("created_at DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&activities).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, total, nil
}

// MongoActivityStore keeps activities in a MongoDB collection
type MongoActivityStore struct {
	collection *mongo.Collection
}

func NewMongoActivityStore(collection *mongo.Collection) *MongoActivityStore {
	return &MongoActivityStore{collection: collection}
}

func (s *MongoActivityStore) Record(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	_, err := s.collection.InsertOne(ctx, activity)
	return err
}

func (s *MongoActivityStore) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int64, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.Action != "" {
		query["action"] = filter.Action
	}
	if filter.ResourceType != "" {
		query["resource_type"] = filter.ResourceType
	}
	if filter.ResourceID != "" {
		query["resource_id"] = filter.ResourceID
	}

	total, err := s.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count activities: %w", err)
	}

	cursor, err := s.collection.Find(ctx, query,
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetSkip(int64((filter.Page-1)*filter.Limit)).
			SetLimit(int64(filter.Limit)),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activities: %w", err)
	}
	defer cursor.Close(ctx)

	activities := []models.Activity{}
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, 0, fmt.Errorf("failed to decode activities: %w", err)
	}
	return activities, total, nil
}

// ActivityService records audit entries on a best-effort basis
type ActivityService struct {
	store ActivityStore
	log   *logrus.Logger
	now   func() time.Time
}

func NewActivityService(store ActivityStore, log *logrus.Logger) *ActivityService {
	return &ActivityService{store: store, log: log, now: time.Now}
}

// Record appends an activity. Failures are logged and never returned.
func (as *ActivityService) Record(ctx context.Context, actor Actor, action models.ActivityAction, resourceType models.ResourceType, resourceID string, details map[string]interface{}) {
	activity := &models.Activity{
		Action:       action,
		ResourceType: resourceType,
		Details:      details,
		IPAddress:    actor.IP,
		UserAgent:    actor.UserAgent,
		CreatedAt:    as.now().UTC(),
	}
	if id := actor.UserID(); id != "" {
		activity.UserID = &id
	}
	if resourceID != "" {
		activity.ResourceID = &resourceID
	}

	if err := as.store.Record(ctx, activity); err != nil {
		as.log.WithError(err).WithFields(logrus.Fields{
			"action":      action,
			"resource_id": resourceID,
			"user_id":     actor.UserID(),
		}).Warn("Failed to record activity")
	}
}

// List returns activities newest first
func (as *ActivityService) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int64, error) {
	filter.Page, filter.Limit = utils.NormalizePagination(filter.Page, filter.Limit)
	return as.store.List(ctx, filter)
}
