// Package mongo provides a MongoDB-backed document store.
//
// Every single-document mutation is one server-side atomic update
// ($set, $push, $addToSet, $pull with a guard in the filter). Multi-document
// transactions are only used when enabled, since they need a replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pwcal/internal/models"
	"pwcal/internal/store"
)

const (
	projectsCollection    = "projects"
	eventsCollection      = "events"
	invitationsCollection = "project_invitations"
)

// Store persists documents in three MongoDB collections.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
	inTx         bool
}

// Open connects to uri, selects dbName and ensures indexes exist.
// transactions enables multi-document transactions for Atomically.
func Open(ctx context.Context, uri, dbName string, transactions bool) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb uri is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	s := &Store{client: client, db: client.Database(dbName), transactions: transactions}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		projectsCollection: {
			{Keys: bson.D{{Key: "creator", Value: 1}}},
			{Keys: bson.D{{Key: "editors", Value: 1}}},
		},
		eventsCollection: {
			{Keys: bson.D{{Key: "projectId", Value: 1}, {Key: "deleted", Value: 1}, {Key: "startTime", Value: 1}}},
		},
		invitationsCollection: {
			{Keys: bson.D{{Key: "inviteeEmail", Value: 1}, {Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}}},
			{Keys: bson.D{{Key: "projectId", Value: 1}, {Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// Close disconnects the client. Transaction-scoped stores do not own it.
func (s *Store) Close() error {
	if s.inTx {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// Atomically runs fn in a session transaction when transactions are enabled,
// and directly otherwise.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, s store.Store) error) error {
	if !s.transactions || s.inTx {
		return fn(ctx, s)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	txStore := &Store{client: s.client, db: s.db, transactions: true, inTx: true}
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc, txStore)
	})
	return err
}

func (s *Store) projects() *mongo.Collection    { return s.db.Collection(projectsCollection) }
func (s *Store) events() *mongo.Collection      { return s.db.Collection(eventsCollection) }
func (s *Store) invitations() *mongo.Collection { return s.db.Collection(invitationsCollection) }

// --- Projects ---

func (s *Store) CreateProject(ctx context.Context, p models.Project) error {
	if p.Editors == nil {
		p.Editors = []string{}
	}
	if _, err := s.projects().InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	var p models.Project
	if err := s.projects().FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Project{}, store.ErrNotFound
		}
		return models.Project{}, fmt.Errorf("failed to find project: %w", err)
	}
	return normalizeProject(p), nil
}

func (s *Store) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch, now time.Time) error {
	set := bson.M{"updatedAt": now.UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Location != nil {
		set["location"] = *patch.Location
	}
	if patch.LaunchDate != nil {
		set["launchDate"] = patch.LaunchDate.UTC()
	}
	res, err := s.projects().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.projects().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	if _, err := s.invitations().DeleteMany(ctx, bson.M{"projectId": id}); err != nil {
		return fmt.Errorf("failed to delete project invitations: %w", err)
	}
	return nil
}

func (s *Store) ListProjectsByMember(ctx context.Context, email string) ([]models.Project, error) {
	filter := bson.M{"$or": bson.A{bson.M{"creator": email}, bson.M{"editors": email}}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.projects().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	var list []models.Project
	if err := cur.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}
	for i := range list {
		list[i] = normalizeProject(list[i])
	}
	return list, nil
}

func (s *Store) AddProjectEditor(ctx context.Context, projectID, email string, now time.Time) error {
	res, err := s.projects().UpdateOne(ctx,
		bson.M{"_id": projectID},
		bson.M{"$addToSet": bson.M{"editors": email}, "$set": bson.M{"updatedAt": now.UTC()}})
	if err != nil {
		return fmt.Errorf("failed to add project editor: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) RemoveProjectEditor(ctx context.Context, projectID, email string, now time.Time) error {
	res, err := s.projects().UpdateOne(ctx,
		bson.M{"_id": projectID},
		bson.M{"$pull": bson.M{"editors": email}, "$set": bson.M{"updatedAt": now.UTC()}})
	if err != nil {
		return fmt.Errorf("failed to remove project editor: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func normalizeProject(p models.Project) models.Project {
	if p.Editors == nil {
		p.Editors = []string{}
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p
}

// --- Events ---

func (s *Store) CreateEvent(ctx context.Context, ev models.Event) error {
	if ev.Participants == nil {
		ev.Participants = []string{}
	}
	if _, err := s.events().InsertOne(ctx, ev); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (models.Event, error) {
	var ev models.Event
	if err := s.events().FindOne(ctx, bson.M{"_id": id}).Decode(&ev); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Event{}, store.ErrNotFound
		}
		return models.Event{}, fmt.Errorf("failed to find event: %w", err)
	}
	return normalizeEvent(ev), nil
}

// liveEvent matches a non-deleted event by ID.
func liveEvent(id string) bson.M {
	return bson.M{"_id": id, "deleted": bson.M{"$ne": true}}
}

func (s *Store) UpdateEvent(ctx context.Context, id string, patch models.EventPatch, entry models.EventLog) error {
	set := bson.M{"updatedAt": entry.Timestamp.UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Participants != nil {
		participants := *patch.Participants
		if participants == nil {
			participants = []string{}
		}
		set["participants"] = participants
	}
	if patch.Start != nil {
		set["startTime"] = patch.Start.UTC()
	}
	if patch.End != nil {
		set["endTime"] = patch.End.UTC()
	}
	if patch.AllDay != nil {
		set["isAllDay"] = *patch.AllDay
	}
	res, err := s.events().UpdateOne(ctx, liveEvent(id), bson.M{"$set": set, "$push": bson.M{"logs": entry}})
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SoftDeleteEvent(ctx context.Context, id string, entry models.EventLog) error {
	res, err := s.events().UpdateOne(ctx, liveEvent(id), bson.M{
		"$set":  bson.M{"deleted": true, "updatedAt": entry.Timestamp.UTC()},
		"$push": bson.M{"logs": entry},
	})
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListProjectEvents(ctx context.Context, projectID string) ([]models.Event, error) {
	filter := bson.M{"projectId": projectID, "deleted": bson.M{"$ne": true}}
	opts := options.Find().SetSort(bson.D{
		{Key: "startTime", Value: 1},
		{Key: "createdAt", Value: 1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.events().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	list := make([]models.Event, 0)
	if err := cur.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	for i := range list {
		list[i] = normalizeEvent(list[i])
	}
	return list, nil
}

func normalizeEvent(ev models.Event) models.Event {
	if ev.Participants == nil {
		ev.Participants = []string{}
	}
	ev.Start = ev.Start.UTC()
	ev.End = ev.End.UTC()
	ev.CreatedAt = ev.CreatedAt.UTC()
	ev.UpdatedAt = ev.UpdatedAt.UTC()
	for i := range ev.Logs {
		ev.Logs[i].Timestamp = ev.Logs[i].Timestamp.UTC()
	}
	return ev
}

// --- Invitations ---

func (s *Store) CreateInvitation(ctx context.Context, inv models.Invitation) error {
	if _, err := s.invitations().InsertOne(ctx, inv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("failed to insert invitation: %w", err)
	}
	return nil
}

func (s *Store) GetInvitation(ctx context.Context, id string) (models.Invitation, error) {
	var inv models.Invitation
	if err := s.invitations().FindOne(ctx, bson.M{"_id": id}).Decode(&inv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Invitation{}, store.ErrNotFound
		}
		return models.Invitation{}, fmt.Errorf("failed to find invitation: %w", err)
	}
	return normalizeInvitation(inv), nil
}

func (s *Store) ListInvitations(ctx context.Context, filter store.InvitationFilter) ([]models.Invitation, error) {
	q := bson.M{}
	if filter.ProjectID != "" {
		q["projectId"] = filter.ProjectID
	}
	if filter.InviteeEmail != "" {
		q["inviteeEmail"] = filter.InviteeEmail
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if !filter.ExpiresAfter.IsZero() {
		q["expiresAt"] = bson.M{"$gt": filter.ExpiresAfter.UTC()}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.invitations().Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	list := make([]models.Invitation, 0)
	if err := cur.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("failed to decode invitations: %w", err)
	}
	for i := range list {
		list[i] = normalizeInvitation(list[i])
	}
	return list, nil
}

func (s *Store) UpdateInvitationStatus(ctx context.Context, id string, from, to models.InvitationStatus, liveAt time.Time) error {
	filter := bson.M{"_id": id, "status": from}
	if !liveAt.IsZero() {
		filter["expiresAt"] = bson.M{"$gt": liveAt.UTC()}
	}
	res, err := s.invitations().UpdateOne(ctx, filter, bson.M{"$set": bson.M{"status": to}})
	if err != nil {
		return fmt.Errorf("failed to update invitation status: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := s.invitations().CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to check invitation: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func normalizeInvitation(inv models.Invitation) models.Invitation {
	inv.CreatedAt = inv.CreatedAt.UTC()
	inv.ExpiresAt = inv.ExpiresAt.UTC()
	return inv
}

var _ store.Store = (*Store)(nil)
