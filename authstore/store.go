// Package authstore persists credential records and user profiles in
// an embedded bbolt database. It stands in for the production
// wide-column store behind the same lookup shapes: primary access by
// user id plus secondary lookups by auth token, password hash, and
// email.
//
// Credential record values are sealed at rest (DPAPI on Windows,
// nacl/secretbox with an embedded key elsewhere). That keeps tokens
// and password hashes out of plain text on disk; it is obfuscation,
// not strong security, since the key ships in the binary.
package authstore

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"

	"github.com/indiepub/indieback/authdef"
)

var (
	bucketCredentials = []byte("credentials")
	bucketTokenIndex  = []byte("idx_auth_token")
	bucketHashIndex   = []byte("idx_pw_hash")
	bucketUsers       = []byte("users")
	bucketEmailIndex  = []byte("idx_email")
)

// DB wraps one bbolt database holding both the credential records and
// the user directory.
type DB struct {
	db  *bbolt.DB
	log *slog.Logger
}

// Open opens (creating if needed) the database at path and ensures all
// buckets exist.
func Open(path string, log *slog.Logger) (*DB, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketCredentials, bucketTokenIndex, bucketHashIndex, bucketUsers, bucketEmailIndex} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &DB{db: db, log: log}, nil
}

// Close releases the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Credentials returns the credential-record store view of the database.
func (d *DB) Credentials() *CredentialStore {
	return &CredentialStore{db: d.db, log: d.log}
}

// Users returns the user-directory view of the database.
func (d *DB) Users() *UserDirectory {
	return &UserDirectory{db: d.db, log: d.log}
}

// CredentialStore implements authdef.CredentialStore on bbolt.
type CredentialStore struct {
	db  *bbolt.DB
	log *slog.Logger
}

var _ authdef.CredentialStore = (*CredentialStore)(nil)

// Insert writes a record keyed by user id and maintains the token and
// password-hash index buckets. Index values are last-write-wins, the
// same behavior as the original store's secondary indexes: nothing
// guarantees two accounts cannot share a token or hash.
func (s *CredentialStore) Insert(rec authdef.CredentialRecord) bool {
	if rec.UserID == "" {
		s.log.Error("credential insert rejected: empty user id")
		return false
	}

	data, err := cbor.Marshal(rec)
	if err != nil {
		s.log.Error("credential record encode failed", "err", err)
		return false
	}
	sealed, err := sealValue(data)
	if err != nil {
		s.log.Error("credential record seal failed", "err", err)
		return false
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		creds := tx.Bucket(bucketCredentials)
		tokens := tx.Bucket(bucketTokenIndex)
		hashes := tx.Bucket(bucketHashIndex)

		// Drop stale index entries from any prior record.
		if old := creds.Get([]byte(rec.UserID)); old != nil {
			var prev authdef.CredentialRecord
			if data, err := openValue(old); err == nil && cbor.Unmarshal(data, &prev) == nil {
				if prev.AuthToken != "" && prev.AuthToken != rec.AuthToken {
					if err := tokens.Delete([]byte(prev.AuthToken)); err != nil {
						return err
					}
				}
				if prev.PasswordHash != "" && prev.PasswordHash != rec.PasswordHash {
					if err := hashes.Delete([]byte(prev.PasswordHash)); err != nil {
						return err
					}
				}
			}
		}

		if err := creds.Put([]byte(rec.UserID), sealed); err != nil {
			return err
		}
		if rec.AuthToken != "" {
			if err := tokens.Put([]byte(rec.AuthToken), []byte(rec.UserID)); err != nil {
				return err
			}
		}
		if rec.PasswordHash != "" {
			if err := hashes.Put([]byte(rec.PasswordHash), []byte(rec.UserID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("credential insert failed", "user_id", rec.UserID, "err", err)
		return false
	}
	return true
}

// FindByUserID returns the record for id, or nil when absent.
func (s *CredentialStore) FindByUserID(id string) (*authdef.CredentialRecord, error) {
	var rec *authdef.CredentialRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketCredentials).Get([]byte(id))
		if raw == nil {
			return nil
		}
		r, err := decodeRecord(raw)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find credentials by user id: %w", err)
	}
	return rec, nil
}

// FindByAuthToken resolves the token index, then the record.
func (s *CredentialStore) FindByAuthToken(token string) (*authdef.CredentialRecord, error) {
	return s.findIndexed(bucketTokenIndex, token)
}

// FindByPasswordHash resolves the password-hash index, then the record.
func (s *CredentialStore) FindByPasswordHash(hash string) (*authdef.CredentialRecord, error) {
	return s.findIndexed(bucketHashIndex, hash)
}

func (s *CredentialStore) findIndexed(index []byte, key string) (*authdef.CredentialRecord, error) {
	if key == "" {
		return nil, nil
	}
	var rec *authdef.CredentialRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(index).Get([]byte(key))
		if id == nil {
			return nil
		}
		raw := tx.Bucket(bucketCredentials).Get(id)
		if raw == nil {
			// Index points at a deleted record; treat as absent.
			return nil
		}
		r, err := decodeRecord(raw)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find credentials by %s: %w", string(index), err)
	}
	return rec, nil
}

func decodeRecord(raw []byte) (*authdef.CredentialRecord, error) {
	data, err := openValue(raw)
	if err != nil {
		return nil, fmt.Errorf("unseal credential record: %w", err)
	}
	var rec authdef.CredentialRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode credential record: %w", err)
	}
	return &rec, nil
}

// UserDirectory implements authdef.UserDirectory on bbolt.
type UserDirectory struct {
	db  *bbolt.DB
	log *slog.Logger
}

var _ authdef.UserDirectory = (*UserDirectory)(nil)

// Insert stores a new user profile and its email index entry.
func (u *UserDirectory) Insert(user authdef.User) error {
	if user.ID == "" {
		return fmt.Errorf("user id is required")
	}
	if user.Email == "" {
		return fmt.Errorf("user email is required")
	}
	data, err := cbor.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return u.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketUsers).Put([]byte(user.ID), data); err != nil {
			return err
		}
		return tx.Bucket(bucketEmailIndex).Put([]byte(user.Email), []byte(user.ID))
	})
}

// Update overwrites an existing user profile, reindexing the email if
// it changed.
func (u *UserDirectory) Update(user authdef.User) error {
	if user.ID == "" {
		return fmt.Errorf("user id is required")
	}
	data, err := cbor.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return u.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket(bucketUsers)
		emails := tx.Bucket(bucketEmailIndex)

		if old := users.Get([]byte(user.ID)); old != nil {
			var prev authdef.User
			if cbor.Unmarshal(old, &prev) == nil && prev.Email != "" && prev.Email != user.Email {
				if err := emails.Delete([]byte(prev.Email)); err != nil {
					return err
				}
			}
		}

		if err := users.Put([]byte(user.ID), data); err != nil {
			return err
		}
		if user.Email != "" {
			return emails.Put([]byte(user.Email), []byte(user.ID))
		}
		return nil
	})
}

// FindByID returns the user with the given id, or nil when absent.
func (u *UserDirectory) FindByID(id string) (*authdef.User, error) {
	var user *authdef.User
	err := u.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketUsers).Get([]byte(id))
		if raw == nil {
			return nil
		}
		var us authdef.User
		if err := cbor.Unmarshal(raw, &us); err != nil {
			return fmt.Errorf("decode user: %w", err)
		}
		user = &us
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

// FindByEmail resolves the email index, then the user, or nil when
// absent.
func (u *UserDirectory) FindByEmail(email string) (*authdef.User, error) {
	if email == "" {
		return nil, nil
	}
	var user *authdef.User
	err := u.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketEmailIndex).Get([]byte(email))
		if id == nil {
			return nil
		}
		raw := tx.Bucket(bucketUsers).Get(id)
		if raw == nil {
			return nil
		}
		var us authdef.User
		if err := cbor.Unmarshal(raw, &us); err != nil {
			return fmt.Errorf("decode user: %w", err)
		}
		user = &us
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}
