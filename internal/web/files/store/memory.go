package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Laisky/errors/v2"

	"github.com/Laisky/files-manager/internal/web/files/model"
)

// Memory is an in-process DocumentStore, used for local runs and tests.
// Records are kept in insertion order so listing is deterministic.
type Memory struct {
	mu     sync.RWMutex
	alive  atomic.Bool
	users  map[model.ID]*model.User
	emails map[string]model.ID
	files  []*model.FileRecord
	byID   map[model.ID]*model.FileRecord
}

// NewMemory create an empty, connected memory store
func NewMemory() *Memory {
	s := &Memory{
		users:  map[model.ID]*model.User{},
		emails: map[string]model.ID{},
		byID:   map[model.ID]*model.FileRecord{},
	}
	s.alive.Store(true)
	return s
}

// SetAlive simulates a connection loss or recovery.
func (s *Memory) SetAlive(alive bool) {
	s.alive.Store(alive)
}

// IsAlive reports whether the store accepts operations.
func (s *Memory) IsAlive() bool {
	return s.alive.Load()
}

func (s *Memory) ready() error {
	if !s.IsAlive() {
		return errors.WithStack(model.ErrStoreUnavailable())
	}

	return nil
}

// InsertUser inserts a user, the email map acts as the unique index.
func (s *Memory) InsertUser(_ context.Context, email, passwordHash string) (*model.User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	u := model.NewUser(email, passwordHash)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[u.Email]; ok {
		return nil, errors.WithStack(model.NewError(model.ErrCodeConflict, model.MsgAlreadyExist))
	}
	s.emails[u.Email] = u.ID
	s.users[u.ID] = u

	cp := *u
	return &cp, nil
}

// FindUserByEmail load user by normalized email
func (s *Memory) FindUserByEmail(_ context.Context, email string) (*model.User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[model.NormalizeEmail(email)]
	if !ok {
		return nil, errors.WithStack(model.ErrNotFound())
	}

	cp := *s.users[id]
	return &cp, nil
}

// FindUserByID load user by id
func (s *Memory) FindUserByID(_ context.Context, id model.ID) (*model.User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errors.WithStack(model.ErrNotFound())
	}

	cp := *u
	return &cp, nil
}

// InsertFile persists a copy of rec with a new id
func (s *Memory) InsertFile(_ context.Context, rec *model.FileRecord) (*model.FileRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	doc := *rec
	doc.ID = model.NewID()

	s.mu.Lock()
	s.files = append(s.files, &doc)
	s.byID[doc.ID] = &doc
	s.mu.Unlock()

	cp := doc
	return &cp, nil
}

// FindFile load one file record
func (s *Memory) FindFile(_ context.Context, filter FileFilter) (*model.FileRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[filter.ID]
	if !ok || (!filter.OwnerID.IsZero() && rec.OwnerID != filter.OwnerID) {
		return nil, errors.WithStack(model.ErrNotFound())
	}

	cp := *rec
	return &cp, nil
}

func (filter ChildrenFilter) match(rec *model.FileRecord) bool {
	if rec.ParentID != filter.ParentID {
		return false
	}

	return filter.OwnerID.IsZero() || rec.OwnerID == filter.OwnerID
}

// CountChildren count direct children of a parent
func (s *Memory) CountChildren(_ context.Context, filter ChildrenFilter) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(filter), nil
}

func (s *Memory) countLocked(filter ChildrenFilter) (n int64) {
	for _, rec := range s.files {
		if filter.match(rec) {
			n++
		}
	}

	return n
}

// ListChildren counts and slices under one read lock, so the page always
// agrees with the total it was computed from.
func (s *Memory) ListChildren(_ context.Context, filter ChildrenFilter, pageIndex, pageSize int) ([]*model.FileRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	offset, limit, ok := pageWindow(s.countLocked(filter), pageIndex, pageSize)
	if !ok {
		return []*model.FileRecord{}, nil
	}

	records := make([]*model.FileRecord, 0, limit)
	var seen int64
	for _, rec := range s.files {
		if !filter.match(rec) {
			continue
		}
		if seen >= offset {
			cp := *rec
			records = append(records, &cp)
			if int64(len(records)) == limit {
				break
			}
		}
		seen++
	}

	return records, nil
}

// SetPublic update is_public in place
func (s *Memory) SetPublic(_ context.Context, id model.ID, value bool) error {
	if err := s.ready(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return errors.WithStack(model.ErrNotFound())
	}
	rec.IsPublic = value

	return nil
}

// Stats count users and files
func (s *Memory) Stats(_ context.Context) (model.Stats, error) {
	if err := s.ready(); err != nil {
		return model.Stats{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Stats{
		Users: int64(len(s.users)),
		Files: int64(len(s.files)),
	}, nil
}
