package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/puzzlesync/internal/client/storage"
	"github.com/iudanet/puzzlesync/internal/models"
)

// lastVersionKey ключ последней подтвержденной версии в meta bucket
var lastVersionKey = []byte("last_version")

// SavePending добавляет операцию в конец очереди ожидающих.
// Порядок добавления сохраняется через монотонный sequence-ключ.
func (s *Storage) SavePending(ctx context.Context, op models.Operation) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal operation: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPending)

		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get sequence: %w", err)
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)

		if err := bucket.Put(key, data); err != nil {
			return fmt.Errorf("failed to save operation: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// ListPending возвращает очередь ожидающих операций в порядке добавления
func (s *Storage) ListPending(ctx context.Context) ([]models.Operation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	ops := make([]models.Operation, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPending)

		return bucket.ForEach(func(k, v []byte) error {
			var op models.Operation
			if err := json.Unmarshal(v, &op); err != nil {
				return fmt.Errorf("failed to unmarshal operation: %w", err)
			}
			ops = append(ops, op)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending operations: %w", err)
	}

	return ops, nil
}

// ClearPending очищает очередь ожидающих операций
func (s *Storage) ClearPending(ctx context.Context) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketPending); err != nil {
			return fmt.Errorf("failed to delete pending bucket: %w", err)
		}
		if _, err := tx.CreateBucket(bucketPending); err != nil {
			return fmt.Errorf("failed to recreate pending bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// SaveLastVersion сохраняет последнюю подтвержденную сервером версию
func (s *Storage) SaveLastVersion(ctx context.Context, version int64) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, uint64(version))

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(lastVersionKey, value)
	})
	if err != nil {
		return fmt.Errorf("failed to save last version: %w", err)
	}

	return nil
}

// LastVersion возвращает последнюю подтвержденную версию.
// Если версия еще не сохранялась, возвращает 0 без ошибки.
func (s *Storage) LastVersion(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	var version int64

	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketMeta).Get(lastVersionKey)
		if value == nil {
			return nil
		}
		version = int64(binary.BigEndian.Uint64(value))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read last version: %w", err)
	}

	return version, nil
}
