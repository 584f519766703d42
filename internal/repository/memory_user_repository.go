package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/hashicorp/go-memdb"

	"github.com/spec-kit/user-service/internal/domain"
)

const (
	memUsersTable       = "users"
	memAuthoritiesTable = "authorities"
	memIndexID          = "id"
)

type memoryUserRecord struct {
	ID            string
	Username      string
	Email         string
	ActivationKey *string
	User          domain.User
	Authorities   []string
}

type memoryAuthorityRecord struct {
	Name string
}

func memorySchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			memUsersTable: {
				Name: memUsersTable,
				Indexes: map[string]*memdb.IndexSchema{
					memIndexID: {
						Name:    memIndexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					FieldUsername: {
						Name:    FieldUsername,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Username"},
					},
					FieldEmail: {
						Name:    FieldEmail,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Email"},
					},
					FieldActivationKey: {
						Name:         FieldActivationKey,
						Unique:       true,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "ActivationKey"},
					},
				},
			},
			memAuthoritiesTable: {
				Name: memAuthoritiesTable,
				Indexes: map[string]*memdb.IndexSchema{
					memIndexID: {
						Name:    memIndexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
				},
			},
		},
	}
}

// MemoryStore is an in-process user and authority store.
//
// memdb serializes write transactions, so the uniqueness checks done inside a
// write transaction hold until commit.
type MemoryStore struct {
	db *memdb.MemDB
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() (*MemoryStore, error) {
	db, err := memdb.NewMemDB(memorySchema())
	if err != nil {
		return nil, err
	}
	return &MemoryStore{db: db}, nil
}

// Users returns the user repository view of the store.
func (s *MemoryStore) Users() UserRepository {
	return &memoryUserRepository{db: s.db}
}

// Authorities returns the authority repository view of the store.
func (s *MemoryStore) Authorities() AuthorityRepository {
	return &memoryAuthorityRepository{db: s.db}
}

type memoryUserRepository struct {
	db *memdb.MemDB
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User, authorities []string) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	if existing, err := txn.First(memUsersTable, memIndexID, user.ID); err != nil {
		return err
	} else if existing != nil {
		return &DuplicateError{Field: FieldID}
	}
	if err := checkUnique(txn, user); err != nil {
		return err
	}
	if err := txn.Insert(memUsersTable, newMemoryUserRecord(user, authorities)); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *domain.User, authorities []string) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(memUsersTable, memIndexID, user.ID)
	if err != nil {
		return err
	}
	if raw == nil {
		return ErrNotFound
	}
	if err := checkUnique(txn, user); err != nil {
		return err
	}
	if authorities == nil {
		authorities = raw.(*memoryUserRecord).Authorities
	}
	// Delete first so stale username/email index entries do not linger.
	if err := txn.Delete(memUsersTable, raw); err != nil {
		return err
	}
	if err := txn.Insert(memUsersTable, newMemoryUserRecord(user, authorities)); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *memoryUserRepository) DeleteByUsername(_ context.Context, username string) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(memUsersTable, FieldUsername, username)
	if err != nil {
		return err
	}
	if raw == nil {
		return ErrNotFound
	}
	if err := txn.Delete(memUsersTable, raw); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	return r.getOne(memIndexID, id)
}

func (r *memoryUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.getOne(FieldUsername, username)
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.getOne(FieldEmail, email)
}

func (r *memoryUserRepository) GetByActivationKey(_ context.Context, key string) (*domain.User, error) {
	return r.getOne(FieldActivationKey, key)
}

func (r *memoryUserRepository) getOne(index, value string) (*domain.User, error) {
	rec, err := r.lookup(index, value)
	if err != nil {
		return nil, err
	}
	user := rec.User
	return &user, nil
}

func (r *memoryUserRepository) lookup(index, value string) (*memoryUserRecord, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(memUsersTable, index, value)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	return raw.(*memoryUserRecord), nil
}

func (r *memoryUserRepository) List(_ context.Context, page PageRequest) ([]domain.User, int64, error) {
	page = page.Normalize()

	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(memUsersTable, memIndexID)
	if err != nil {
		return nil, 0, err
	}
	var all []domain.User
	for obj := it.Next(); obj != nil; obj = it.Next() {
		rec := obj.(*memoryUserRecord)
		if rec.Username == domain.AnonymousUsername {
			continue
		}
		all = append(all, rec.User)
	}

	sortUsers(all, page.Sort, page.Desc)

	total := int64(len(all))
	start := page.Offset()
	if start < 0 || start >= len(all) {
		return []domain.User{}, total, nil
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *memoryUserRepository) GetAuthorities(_ context.Context, userID string) ([]string, error) {
	rec, err := r.lookup(memIndexID, userID)
	if err != nil {
		return nil, err
	}
	names := append([]string{}, rec.Authorities...)
	sort.Strings(names)
	return names, nil
}

// checkUnique rejects a write whose username or email belongs to another record.
func checkUnique(txn *memdb.Txn, user *domain.User) error {
	checks := []struct {
		field string
		value *string
	}{
		{FieldUsername, &user.Username},
		{FieldEmail, &user.Email},
		{FieldActivationKey, user.ActivationKey},
	}
	for _, check := range checks {
		if check.value == nil {
			continue
		}
		raw, err := txn.First(memUsersTable, check.field, *check.value)
		if err != nil {
			return err
		}
		if raw != nil && raw.(*memoryUserRecord).ID != user.ID {
			return &DuplicateError{Field: check.field}
		}
	}
	return nil
}

func newMemoryUserRecord(user *domain.User, authorities []string) *memoryUserRecord {
	u := *user
	if user.ActivationKey != nil {
		key := *user.ActivationKey
		u.ActivationKey = &key
	}
	return &memoryUserRecord{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		ActivationKey: u.ActivationKey,
		User:          u,
		Authorities:   append([]string{}, authorities...),
	}
}

func sortUsers(users []domain.User, field SortField, desc bool) {
	less := func(a, b domain.User) int {
		switch field {
		case SortByUsername:
			return strings.Compare(a.Username, b.Username)
		case SortByEmail:
			return strings.Compare(a.Email, b.Email)
		case SortByCreatedAt:
			return a.CreatedAt.Compare(b.CreatedAt)
		default:
			return strings.Compare(a.ID, b.ID)
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		c := less(users[i], users[j])
		if c == 0 {
			return users[i].ID < users[j].ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

type memoryAuthorityRepository struct {
	db *memdb.MemDB
}

func (r *memoryAuthorityRepository) List(_ context.Context) ([]string, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(memAuthoritiesTable, memIndexID)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		names = append(names, obj.(*memoryAuthorityRecord).Name)
	}
	return names, nil
}

func (r *memoryAuthorityRepository) Ensure(_ context.Context, name string) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(memAuthoritiesTable, &memoryAuthorityRecord{Name: name}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}
