package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"gatherhub/collab-portal/collab-portal-backend/pkg/storage"
)

// ObjectArchiver writes each purge batch as one JSON-lines object.
type ObjectArchiver struct {
	store  storage.S3Client
	bucket string
	prefix string
	now    func() time.Time
}

// NewObjectArchiver creates an archiver writing to bucket under prefix.
func NewObjectArchiver(store storage.S3Client, bucket, prefix string) *ObjectArchiver {
	return &ObjectArchiver{store: store, bucket: bucket, prefix: prefix, now: time.Now}
}

func (a *ObjectArchiver) Archive(ctx context.Context, batch []*Notification) error {
	if len(batch) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, n := range batch {
		if err := enc.Encode(n); err != nil {
			return fmt.Errorf("failed to encode notification %s: %w", n.ID, err)
		}
	}

	now := a.now().UTC()
	key := path.Join(a.prefix, now.Format("2006/01/02"), fmt.Sprintf("purge-%d.jsonl", now.UnixNano()))
	return a.store.Upload(ctx, a.bucket, key, &buf, "application/x-ndjson")
}
