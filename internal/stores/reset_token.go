package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	resetTokenRecordVersionV1 = 1
)

var (
	ErrTokenNotFound         = errors.New("reset token not found")
	ErrTokenMismatch         = errors.New("reset token mismatch")
	ErrTokenRedisUnavailable = errors.New("reset token redis unavailable")
)

// ResetTokenRecord is what is kept about an issued reset link. The token
// itself is never stored, only its hash.
type ResetTokenRecord struct {
	UserID    string
	TokenHash [32]byte
	ExpiresAt int64
}

// ResetTokenStore keeps at most one live reset token per user. Saving a new
// token for a user invalidates the previous one.
type ResetTokenStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewResetTokenStore(redisClient redis.UniversalClient, prefix string) *ResetTokenStore {
	if prefix == "" {
		prefix = "grt"
	}
	return &ResetTokenStore{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *ResetTokenStore) tokenKey(tokenID string) string {
	return s.prefix + ":t:" + tokenID
}

func (s *ResetTokenStore) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

// Save records tokenID for record.UserID and drops the user's previous token.
func (s *ResetTokenStore) Save(ctx context.Context, tokenID string, record *ResetTokenRecord, ttl time.Duration) error {
	encoded, err := encodeResetTokenRecord(record)
	if err != nil {
		return err
	}

	userKey := s.userKey(record.UserID)
	previous, err := s.redis.Get(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrTokenRedisUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != "" && previous != tokenID {
			pipe.Del(ctx, s.tokenKey(previous))
		}
		pipe.Set(ctx, s.tokenKey(tokenID), encoded, ttl)
		pipe.Set(ctx, userKey, tokenID, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenRedisUnavailable, err)
	}

	return nil
}

// Get returns the live record for tokenID.
func (s *ResetTokenStore) Get(ctx context.Context, tokenID string) (*ResetTokenRecord, error) {
	data, err := s.redis.Get(ctx, s.tokenKey(tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenRedisUnavailable, err)
	}

	record, err := decodeResetTokenRecord(data)
	if err != nil {
		return nil, err
	}
	if s.now().Unix() > record.ExpiresAt {
		return nil, ErrTokenNotFound
	}

	return record, nil
}

// Consume deletes tokenID when providedHash matches, making the token single
// use. A mismatch leaves the record in place.
func (s *ResetTokenStore) Consume(ctx context.Context, tokenID string, providedHash [32]byte) (*ResetTokenRecord, error) {
	const maxRetries = 4
	key := s.tokenKey(tokenID)

	for i := 0; i < maxRetries; i++ {
		var matched *ResetTokenRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeResetTokenRecord(data)
			if err != nil {
				return err
			}

			if s.now().Unix() > record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrTokenNotFound
			}

			if subtle.ConstantTimeCompare(record.TokenHash[:], providedHash[:]) != 1 {
				return ErrTokenMismatch
			}

			userKey := s.userKey(record.UserID)
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.Del(ctx, userKey)
				return nil
			})
			if err != nil {
				return err
			}

			matched = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, ErrTokenNotFound
			case errors.Is(err, ErrTokenNotFound), errors.Is(err, ErrTokenMismatch):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", ErrTokenRedisUnavailable, err)
			}
		}

		return matched, nil
	}

	return nil, ErrTokenNotFound
}

func encodeResetTokenRecord(record *ResetTokenRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(resetTokenRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.UserID) > 65535 {
		return nil, errors.New("reset token user id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.UserID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.UserID)
	buf.Write(record.TokenHash[:])

	return buf.Bytes(), nil
}

func decodeResetTokenRecord(data []byte) (*ResetTokenRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != resetTokenRecordVersionV1 {
		return nil, errors.New("invalid reset token record version")
	}

	record := &ResetTokenRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var userIDLen uint16
	if err := binary.Read(reader, binary.BigEndian, &userIDLen); err != nil {
		return nil, err
	}

	userID := make([]byte, userIDLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	record.UserID = string(userID)

	if _, err := io.ReadFull(reader, record.TokenHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
