package channeldb

import (
	"bytes"
	"encoding/binary"

	"go.etcd.io/bbolt"
)

var (
	metaBucket    = []byte("metadata")
	dbVersionKey  = []byte("dbp")
)

// Meta holds database-wide metadata that isn't scoped to any one graph
// entity.
type Meta struct {
	DbVersionNumber uint32
}

// FetchMeta loads the database's metadata record. If tx is nil a read-only
// transaction is opened for the duration of the call.
func (d *DB) FetchMeta(tx *bbolt.Tx) (*Meta, error) {
	meta := &Meta{}

	fetch := func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(metaBucket)
		if bucket == nil {
			return ErrMetaNotFound
		}

		data := bucket.Get(dbVersionKey)
		if data == nil {
			return ErrMetaNotFound
		}

		meta.DbVersionNumber = binary.BigEndian.Uint32(data)
		return nil
	}

	if tx != nil {
		if err := fetch(tx); err != nil {
			return nil, err
		}
		return meta, nil
	}

	if err := d.View(fetch); err != nil {
		return nil, err
	}
	return meta, nil
}

// putMeta writes meta within the given read-write transaction.
func putMeta(meta *Meta, tx *bbolt.Tx) error {
	bucket, err := tx.CreateBucketIfNotExists(metaBucket)
	if err != nil {
		return err
	}

	var b bytes.Buffer
	if err := binary.Write(&b, binary.BigEndian, meta.DbVersionNumber); err != nil {
		return err
	}

	return bucket.Put(dbVersionKey, b.Bytes())
}
