package channeldb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lightningnetwork/lnd/clock"
	"go.etcd.io/bbolt"
)

const (
	dbName           = "channel_db.bolt"
	dbFilePermission = 0600
)

// migration mutates the bucket structure of a prior database version to
// arrive at the next one.
type migration func(tx *bbolt.Tx) error

type version struct {
	number    uint32
	migration migration
}

// dbVersions lists every schema version this package knows how to open. A
// freshly created database starts at the latest version; an older one is
// walked forward through every migration in between.
var dbVersions = []version{
	{
		// The base version requires no migration.
		number:    0,
		migration: nil,
	},
}

// DB is the persisted datastore backing a ChannelGraph: one embedded bbolt
// file under the caller's application data directory, surviving process
// restart. Private-channel policies are deliberately never written here;
// they live only in the in-memory cache the ChannelGraph keeps alongside
// it.
type DB struct {
	*bbolt.DB
	dbPath string
	clock  clock.Clock
}

// Open opens (creating if necessary) the channel database rooted at
// dbPath, applying any pending schema migrations.
func Open(dbPath string) (*DB, error) {
	path := filepath.Join(dbPath, dbName)

	if !fileExists(path) {
		if err := createChannelDB(dbPath); err != nil {
			return nil, err
		}
	}

	bdb, err := bbolt.Open(path, dbFilePermission, nil)
	if err != nil {
		return nil, err
	}

	chanDB := &DB{
		DB:     bdb,
		dbPath: dbPath,
		clock:  clock.NewDefaultClock(),
	}

	if err := chanDB.syncVersions(dbVersions); err != nil {
		bdb.Close()
		return nil, err
	}

	return chanDB, nil
}

// Wipe deletes all graph state within a single atomic transaction.
func (d *DB) Wipe() error {
	return d.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{
			nodeBucket,
			edgeBucket,
			edgeIndexBucket,
			channelPointBucket,
			graphMetaBucket,
			aliasIndexBucket,
			addressBucket,
		}
		for _, bucket := range buckets {
			err := tx.DeleteBucket(bucket)
			if err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
		}
		return nil
	})
}

// createChannelDB creates and initializes a fresh database at dbPath,
// creating the directory if it doesn't already exist.
func createChannelDB(dbPath string) error {
	if !fileExists(dbPath) {
		if err := os.MkdirAll(dbPath, 0700); err != nil {
			return err
		}
	}

	path := filepath.Join(dbPath, dbName)
	bdb, err := bbolt.Open(path, dbFilePermission, nil)
	if err != nil {
		return err
	}

	err = bdb.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{
			nodeBucket,
			edgeBucket,
			edgeIndexBucket,
			channelPointBucket,
			graphMetaBucket,
			aliasIndexBucket,
			addressBucket,
			metaBucket,
		}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}

		meta := &Meta{DbVersionNumber: getLatestDBVersion(dbVersions)}
		return putMeta(meta, tx)
	})
	if err != nil {
		bdb.Close()
		return fmt.Errorf("unable to create new channeldb: %w", err)
	}

	return bdb.Close()
}

func fileExists(path string) bool {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// syncVersions applies any migrations needed to bring the database from
// its stored version up to the latest known one, recording the new
// version atomically alongside the migration itself.
func (d *DB) syncVersions(versions []version) error {
	meta, err := d.FetchMeta(nil)
	if err != nil {
		if err == ErrMetaNotFound {
			meta = &Meta{}
		} else {
			return err
		}
	}

	latestVersion := getLatestDBVersion(versions)
	log.Infof("Checking for schema update: latest_version=%v, "+
		"db_version=%v", latestVersion, meta.DbVersionNumber)
	if meta.DbVersionNumber == latestVersion {
		return nil
	}

	log.Infof("Performing database schema migration")

	migrations, migrationVersions := getMigrationsToApply(
		versions, meta.DbVersionNumber,
	)
	return d.Update(func(tx *bbolt.Tx) error {
		for i, m := range migrations {
			if m == nil {
				continue
			}

			log.Infof("Applying migration #%v", migrationVersions[i])

			if err := m(tx); err != nil {
				log.Infof("Unable to apply migration #%v",
					migrationVersions[i])
				return err
			}
		}

		meta.DbVersionNumber = latestVersion
		return putMeta(meta, tx)
	})
}

// ChannelGraph returns the single ChannelGraph backed by this database.
func (d *DB) ChannelGraph() *ChannelGraph {
	return newChannelGraph(d, d.clock)
}

func getLatestDBVersion(versions []version) uint32 {
	return versions[len(versions)-1].number
}

func getMigrationsToApply(versions []version, version uint32) ([]migration, []uint32) {
	migrations := make([]migration, 0, len(versions))
	migrationVersions := make([]uint32, 0, len(versions))

	for _, v := range versions {
		if v.number > version {
			migrations = append(migrations, v.migration)
			migrationVersions = append(migrationVersions, v.number)
		}
	}

	return migrations, migrationVersions
}
