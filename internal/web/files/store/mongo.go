package store

import (
	"context"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Laisky/files-manager/internal/web/files/model"
	"github.com/Laisky/files-manager/library/db/mongo"
	"github.com/Laisky/files-manager/library/log"
)

// Mongo is the DocumentStore backed by mongodb.
type Mongo struct {
	db mongo.DB
}

// NewMongo create new mongo backed store
func NewMongo(db mongo.DB) *Mongo {
	return &Mongo{db: db}
}

// UsersCol get users collection
func (s *Mongo) UsersCol() *mongoLib.Collection {
	return s.db.GetCol(model.UsersCollection)
}

// FilesCol get files collection
func (s *Mongo) FilesCol() *mongoLib.Collection {
	return s.db.GetCol(model.FilesCollection)
}

// IsAlive reports whether the underlying connection is ready.
func (s *Mongo) IsAlive() bool {
	return s.db != nil && s.db.IsAlive()
}

func (s *Mongo) ready() error {
	if !s.IsAlive() {
		return errors.WithStack(model.ErrStoreUnavailable())
	}

	return nil
}

// translate maps driver errors onto the error taxonomy.
func translate(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case mongo.NotFound(err):
		return errors.WithStack(model.ErrNotFound())
	case mongo.Unreachable(err):
		log.Logger.Warn("mongodb unreachable", zap.String("op", msg), zap.Error(err))
		return errors.WithStack(model.ErrStoreUnavailable())
	default:
		return errors.Wrap(err, msg)
	}
}

// EnsureIndexes creates the unique email index and the listing indexes.
func (s *Mongo) EnsureIndexes(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}

	if _, err := s.UsersCol().Indexes().CreateOne(ctx, mongoLib.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return errors.Wrap(err, "create index for email")
	}

	if _, err := s.FilesCol().Indexes().CreateMany(ctx, []mongoLib.IndexModel{
		{Keys: bson.D{{Key: "parent_id", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "parent_id", Value: 1}, {Key: "_id", Value: 1}}},
	}); err != nil {
		return errors.Wrap(err, "create indexes for files")
	}

	return nil
}

// InsertUser inserts a new user, the unique index turns races into CONFLICT.
func (s *Mongo) InsertUser(ctx context.Context, email, passwordHash string) (*model.User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	u := model.NewUser(email, passwordHash)
	if _, err := s.UsersCol().InsertOne(ctx, u); err != nil {
		if mongo.DuplicateKey(err) {
			return nil, errors.WithStack(model.NewError(model.ErrCodeConflict, model.MsgAlreadyExist))
		}
		return nil, translate(err, "insert user")
	}

	return u, nil
}

// FindUserByEmail load user by normalized email
func (s *Mongo) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"email": model.NormalizeEmail(email)})
}

// FindUserByID load user by id
func (s *Mongo) FindUserByID(ctx context.Context, id model.ID) (*model.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Mongo) findUser(ctx context.Context, query bson.M) (*model.User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	u := new(model.User)
	if err := s.UsersCol().FindOne(ctx, query).Decode(u); err != nil {
		return nil, translate(err, "find user")
	}

	return u, nil
}

// InsertFile persists rec with a new id
func (s *Mongo) InsertFile(ctx context.Context, rec *model.FileRecord) (*model.FileRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	doc := *rec
	doc.ID = model.NewID()
	if _, err := s.FilesCol().InsertOne(ctx, &doc); err != nil {
		return nil, translate(err, "insert file")
	}

	return &doc, nil
}

// FindFile load one file record
func (s *Mongo) FindFile(ctx context.Context, filter FileFilter) (*model.FileRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := bson.M{"_id": filter.ID}
	if !filter.OwnerID.IsZero() {
		query["owner_id"] = filter.OwnerID
	}

	rec := new(model.FileRecord)
	if err := s.FilesCol().FindOne(ctx, query).Decode(rec); err != nil {
		return nil, translate(err, "find file")
	}

	return rec, nil
}

func childrenQuery(filter ChildrenFilter) bson.M {
	query := bson.M{"parent_id": filter.ParentID}
	if !filter.OwnerID.IsZero() {
		query["owner_id"] = filter.OwnerID
	}

	return query
}

// CountChildren count direct children of a parent
func (s *Mongo) CountChildren(ctx context.Context, filter ChildrenFilter) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	n, err := s.FilesCol().CountDocuments(ctx, childrenQuery(filter))
	if err != nil {
		return 0, translate(err, "count children")
	}

	return n, nil
}

// ListChildren count then fetch one page sorted by _id.
//
// The count and the fetch are two reads, a child inserted in between may
// shift later pages by one item. The fetch is bounded by the computed limit
// so a page never exceeds its size.
func (s *Mongo) ListChildren(ctx context.Context, filter ChildrenFilter, pageIndex, pageSize int) ([]*model.FileRecord, error) {
	total, err := s.CountChildren(ctx, filter)
	if err != nil {
		return nil, err
	}

	offset, limit, ok := pageWindow(total, pageIndex, pageSize)
	if !ok {
		return []*model.FileRecord{}, nil
	}

	cur, err := s.FilesCol().Find(ctx, childrenQuery(filter),
		options.Find().
			SetSort(bson.D{{Key: "_id", Value: 1}}).
			SetSkip(offset).
			SetLimit(limit),
	)
	if err != nil {
		return nil, translate(err, "find children")
	}
	defer cur.Close(ctx)

	records := make([]*model.FileRecord, 0, limit)
	if err = cur.All(ctx, &records); err != nil {
		return nil, translate(err, "load children")
	}

	return records, nil
}

// SetPublic update is_public in place
func (s *Mongo) SetPublic(ctx context.Context, id model.ID, value bool) error {
	if err := s.ready(); err != nil {
		return err
	}

	result, err := s.FilesCol().UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"is_public": value},
	})
	if err != nil {
		return translate(err, "update file visibility")
	}
	if result.MatchedCount == 0 {
		return errors.WithStack(model.ErrNotFound())
	}

	return nil
}

// Stats count users and files
func (s *Mongo) Stats(ctx context.Context) (stats model.Stats, err error) {
	if err = s.ready(); err != nil {
		return stats, err
	}

	if stats.Users, err = s.UsersCol().EstimatedDocumentCount(ctx); err != nil {
		return stats, translate(err, "count users")
	}
	if stats.Files, err = s.FilesCol().EstimatedDocumentCount(ctx); err != nil {
		return stats, translate(err, "count files")
	}

	return stats, nil
}
