package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/files-manager/internal/web/files/model"
	"github.com/Laisky/files-manager/internal/web/files/store"
)

// memoryStorage keeps written contents in a map.
type memoryStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	writeErr error
	seq      int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (m *memoryStorage) Write(_ context.Context, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return "", m.writeErr
	}
	m.seq++
	loc := fmt.Sprintf("mem://%d", m.seq)
	m.objects[loc] = append([]byte(nil), data...)
	return loc, nil
}

func (m *memoryStorage) Remove(_ context.Context, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, location)
	return nil
}

func (m *memoryStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// failingInsertStore rejects every InsertFile.
type failingInsertStore struct {
	*store.Memory
}

func (failingInsertStore) InsertFile(context.Context, *model.FileRecord) (*model.FileRecord, error) {
	return nil, errors.New("write concern error")
}

type fixture struct {
	svc   *Service
	docs  *store.Memory
	bytes *memoryStorage
	alice model.ID
	bob   model.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	docs := store.NewMemory()
	bytes := newMemoryStorage()
	svc, err := NewService(docs, bytes, logSDK.Shared.Named("test_files_service"), func() time.Time {
		return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	})
	require.NoError(t, err)

	return &fixture{
		svc:   svc,
		docs:  docs,
		bytes: bytes,
		alice: model.NewID(),
		bob:   model.NewID(),
	}
}

func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func requireCode(t *testing.T, err error, code model.ErrorCode, msg string) {
	t.Helper()
	typed, ok := model.AsError(err)
	require.True(t, ok, "%+v", err)
	require.Equal(t, code, typed.Code)
	if msg != "" {
		require.Equal(t, msg, typed.Message)
	}
}

// TestCreateFolderAndFile verifies folders carry no content and files always do.
func TestCreateFolderAndFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder, err := f.svc.Create(ctx, f.alice, CreateInput{Name: "docs", Kind: "folder"})
	require.NoError(t, err)
	require.False(t, folder.ID.IsZero())
	require.Empty(t, folder.StoragePath)
	require.True(t, folder.IsRoot())
	require.Equal(t, f.alice, folder.OwnerID)
	require.Equal(t, 2024, folder.CreatedAt.Year())

	for _, kind := range []string{"file", "image"} {
		rec, err := f.svc.Create(ctx, f.alice, CreateInput{
			Name:     "a." + kind,
			Kind:     kind,
			ParentID: folder.ID.Hex(),
			IsPublic: true,
			Data:     encode("hello"),
		})
		require.NoError(t, err)
		require.NotEmpty(t, rec.StoragePath)
		require.Equal(t, folder.ID, rec.ParentID)
		require.True(t, rec.IsPublic)
		require.Equal(t, "hello", string(f.bytes.objects[rec.StoragePath]))
	}
}

// TestCreateValidationOrder verifies the first failing check is the one reported.
func TestCreateValidationOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	file, err := f.svc.Create(ctx, f.alice, CreateInput{Name: "a.txt", Kind: "file", Data: encode("x")})
	require.NoError(t, err)

	cases := []struct {
		name string
		in   CreateInput
		code model.ErrorCode
		msg  string
	}{
		{"missing name", CreateInput{Kind: "bogus", ParentID: "garbage"}, model.ErrCodeValidation, model.MsgMissingName},
		{"blank name", CreateInput{Name: "  ", Kind: "folder"}, model.ErrCodeValidation, model.MsgMissingName},
		{"bad kind", CreateInput{Name: "n", Kind: "bogus"}, model.ErrCodeValidation, model.MsgMissingType},
		{"missing data", CreateInput{Name: "n", Kind: "image", ParentID: "garbage"}, model.ErrCodeValidation, model.MsgMissingData},
		{"malformed parent", CreateInput{Name: "n", Kind: "folder", ParentID: "garbage"}, model.ErrCodeInvalidParent, model.MsgParentNotFound},
		{"missing parent", CreateInput{Name: "n", Kind: "folder", ParentID: model.NewID().Hex()}, model.ErrCodeInvalidParent, model.MsgParentNotFound},
		{"file parent", CreateInput{Name: "n", Kind: "folder", ParentID: file.ID.Hex()}, model.ErrCodeInvalidParent, model.MsgParentNotFolder},
		{"bad base64", CreateInput{Name: "n", Kind: "file", Data: "@@@"}, model.ErrCodeValidation, model.MsgInvalidData},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.alice, tc.in)
			requireCode(t, err, tc.code, tc.msg)
		})
	}

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Files)
}

// TestCreateRootSentinel verifies "" and "0" both mean the top level.
func TestCreateRootSentinel(t *testing.T) {
	f := newFixture(t)
	for _, parent := range []string{"", "0"} {
		rec, err := f.svc.Create(context.Background(), f.alice, CreateInput{Name: "n", Kind: "folder", ParentID: parent})
		require.NoError(t, err)
		require.True(t, rec.IsRoot())
	}
}

// TestCreateForeignParent verifies another user's folder cannot be used as parent.
func TestCreateForeignParent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder, err := f.svc.Create(ctx, f.bob, CreateInput{Name: "bobs", Kind: "folder"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.alice, CreateInput{Name: "n", Kind: "folder", ParentID: folder.ID.Hex()})
	requireCode(t, err, model.ErrCodeInvalidParent, model.MsgParentNotFound)
}

// TestCreateStorageFailure verifies no metadata is committed when the write fails.
func TestCreateStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.bytes.writeErr = errors.New("disk full")

	_, err := f.svc.Create(context.Background(), f.alice, CreateInput{Name: "a", Kind: "file", Data: encode("x")})
	requireCode(t, err, model.ErrCodeStorageWriteFailed, model.MsgStorageWriteFailed)
	require.NotContains(t, err.Error(), "disk full")

	total, err := f.docs.CountChildren(context.Background(), store.ChildrenFilter{ParentID: model.RootID})
	require.NoError(t, err)
	require.Zero(t, total)
}

// TestCreateInsertFailureRemovesContent verifies written bytes are removed when the insert fails.
func TestCreateInsertFailureRemovesContent(t *testing.T) {
	docs := failingInsertStore{Memory: store.NewMemory()}
	bytes := newMemoryStorage()
	svc, err := NewService(docs, bytes, nil, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), model.NewID(), CreateInput{Name: "a", Kind: "file", Data: encode("x")})
	require.Error(t, err)
	require.Equal(t, 1, bytes.seq)
	require.Zero(t, bytes.count())
}

// TestStoreUnavailableShortCircuits verifies a disconnected store wins over every other error.
func TestStoreUnavailableShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.docs.SetAlive(false)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.alice, CreateInput{})
	requireCode(t, err, model.ErrCodeStoreUnavailable, "")
	_, err = f.svc.Get(ctx, f.alice, "garbage")
	requireCode(t, err, model.ErrCodeStoreUnavailable, "")
	_, err = f.svc.ListChildren(ctx, f.alice, "garbage", 0)
	requireCode(t, err, model.ErrCodeStoreUnavailable, "")
	_, err = f.svc.SetVisibility(ctx, f.alice, "garbage", true)
	requireCode(t, err, model.ErrCodeStoreUnavailable, "")
	_, err = f.svc.Stats(ctx)
	requireCode(t, err, model.ErrCodeStoreUnavailable, "")
	require.Zero(t, f.bytes.count())
}

// TestGetOwnership verifies a foreign record is indistinguishable from a missing one.
func TestGetOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.Create(ctx, f.bob, CreateInput{Name: "b", Kind: "folder", IsPublic: true})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.bob, rec.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)

	_, err = f.svc.Get(ctx, f.alice, rec.ID.Hex())
	requireCode(t, err, model.ErrCodeNotFound, model.MsgNotFound)
	_, err = f.svc.Get(ctx, f.alice, model.NewID().Hex())
	requireCode(t, err, model.ErrCodeNotFound, model.MsgNotFound)
	_, err = f.svc.Get(ctx, f.alice, "0")
	requireCode(t, err, model.ErrCodeNotFound, model.MsgNotFound)
}

// TestListChildrenPagination verifies pages of 20 scoped to the requester.
func TestListChildrenPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent, err := f.svc.Create(ctx, f.alice, CreateInput{Name: "p", Kind: "folder"})
	require.NoError(t, err)
	for i := 0; i < 45; i++ {
		_, err = f.svc.Create(ctx, f.alice, CreateInput{
			Name:     fmt.Sprintf("f%d", i),
			Kind:     "file",
			ParentID: parent.ID.Hex(),
			Data:     encode("x"),
		})
		require.NoError(t, err)
	}

	seen := map[model.ID]bool{}
	for page, want := range []int{20, 20, 5, 0} {
		records, err := f.svc.ListChildren(ctx, f.alice, parent.ID.Hex(), page)
		require.NoError(t, err)
		require.Len(t, records, want)
		for _, rec := range records {
			require.False(t, seen[rec.ID])
			seen[rec.ID] = true
		}
	}
	require.Len(t, seen, 45)

	root, err := f.svc.ListChildren(ctx, f.alice, "0", 0)
	require.NoError(t, err)
	require.Len(t, root, 1)

	foreign, err := f.svc.ListChildren(ctx, f.bob, parent.ID.Hex(), 0)
	require.NoError(t, err)
	require.Empty(t, foreign)

	garbage, err := f.svc.ListChildren(ctx, f.alice, "garbage", 0)
	require.NoError(t, err)
	require.NotNil(t, garbage)
	require.Empty(t, garbage)
}

// TestSetVisibility verifies toggling is owner scoped and idempotent.
func TestSetVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.Create(ctx, f.alice, CreateInput{Name: "a", Kind: "file", Data: encode("x")})
	require.NoError(t, err)
	require.False(t, rec.IsPublic)

	once, err := f.svc.SetVisibility(ctx, f.alice, rec.ID.Hex(), true)
	require.NoError(t, err)
	require.True(t, once.IsPublic)

	twice, err := f.svc.SetVisibility(ctx, f.alice, rec.ID.Hex(), true)
	require.NoError(t, err)
	require.Equal(t, once, twice)

	_, err = f.svc.SetVisibility(ctx, f.bob, rec.ID.Hex(), false)
	requireCode(t, err, model.ErrCodeNotFound, model.MsgNotFound)

	got, err := f.svc.Get(ctx, f.alice, rec.ID.Hex())
	require.NoError(t, err)
	require.True(t, got.IsPublic)
	require.Equal(t, rec.StoragePath, got.StoragePath)

	off, err := f.svc.SetVisibility(ctx, f.alice, rec.ID.Hex(), false)
	require.NoError(t, err)
	require.False(t, off.IsPublic)
}

// TestNewServiceRequiresDependencies verifies missing collaborators are rejected.
func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, newMemoryStorage(), nil, nil)
	require.Error(t, err)
	_, err = NewService(store.NewMemory(), nil, nil, nil)
	require.Error(t, err)
}
