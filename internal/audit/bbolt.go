package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var auditBucket = []byte("audit_events")

// BoltSink is a durable local audit sink for the CLI/daily-sweep entrypoint
// run standalone, without a Postgres instance available.
type BoltSink struct {
	db *bolt.DB
}

// OpenBoltSink opens (creating if necessary) a bbolt database at path and
// ensures the audit bucket exists.
func OpenBoltSink(path string) (*BoltSink, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, domain.DependencyUnavailable("open bbolt audit store", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(auditBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, domain.Internal("create audit bucket", err)
	}
	return &BoltSink{db: db}, nil
}

func (s *BoltSink) Close() error { return s.db.Close() }

func (s *BoltSink) SaveAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return domain.Internal("marshal audit event", err)
	}
	key := []byte(fmt.Sprintf("%020d-%s", event.Timestamp.UnixNano(), event.ID))
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(auditBucket).Put(key, payload)
	})
}
