// Package store persists scraped tables to a single bolt database file and
// exports them to SQLite.
package store

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/zeebo/blake3"

	"github.com/mrsinham/dicomtable/internal/table"
)

// Format identifies the layout written by Save.
const Format = "dicomtable/1"

var (
	// ErrFormat is returned when a file is not a database written by Save.
	ErrFormat = errors.New("not a dicomtable database")
	// ErrChecksum is returned when stored content does not match its checksum.
	ErrChecksum = errors.New("database checksum mismatch")
)

// trailerMagic ends every file written by Save. It follows the BLAKE3
// digest of the bolt database that precedes it.
var trailerMagic = []byte("DCMTBL01")

const (
	digestSize  = 32
	trailerSize = digestSize + 8
)

var (
	bucketMeta    = []byte("meta")
	bucketTags    = []byte("tags")
	bucketRecords = []byte("records")
)

var (
	keyFormat    = []byte("format")
	keyRunID     = []byte("run_id")
	keyCreatedAt = []byte("created_at")
	keyColumns   = []byte("columns")
	keyChecksum  = []byte("checksum")
)

// Meta describes a saved database.
type Meta struct {
	Format    string
	RunID     string
	CreatedAt time.Time
	Columns   []string
	Checksum  string // hex BLAKE3 digest, set by Save and Load
}

// Database is a tag table and a record table with their metadata.
type Database struct {
	Meta    Meta
	Tags    table.TagTable
	Records *table.RecordTable
}

// Save writes db to path. The database is built in a temporary file next
// to path, sealed with a digest trailer and renamed over it once complete.
// Save sets db.Meta's Format, Columns and Checksum.
func Save(path string, db *Database) (err error) {
	if db == nil || db.Records == nil {
		return errors.New("nothing to save")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dicomtable-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	bdb, err := bolt.Open(tmpPath, 0644, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("open bolt: %w", err)
	}

	db.Meta.Format = Format
	db.Meta.Columns = db.Records.Columns()
	err = bdb.Update(func(tx *bolt.Tx) error {
		if err := writeTags(tx, db.Tags); err != nil {
			return err
		}
		if err := writeRecords(tx, db.Records); err != nil {
			return err
		}
		if err := writeMeta(tx, db.Meta); err != nil {
			return err
		}
		sum, err := checksum(tx)
		if err != nil {
			return err
		}
		db.Meta.Checksum = sum
		return tx.Bucket(bucketMeta).Put(keyChecksum, []byte(sum))
	})
	if closeErr := bdb.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close bolt: %w", closeErr)
	}
	if err != nil {
		return err
	}
	if err := seal(tmpPath); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename database: %w", err)
	}
	return nil
}

func writeMeta(tx *bolt.Tx, m Meta) error {
	b, err := tx.CreateBucketIfNotExists(bucketMeta)
	if err != nil {
		return err
	}
	columns, err := json.Marshal(m.Columns)
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	for k, v := range map[string][]byte{
		string(keyFormat):    []byte(m.Format),
		string(keyRunID):     []byte(m.RunID),
		string(keyCreatedAt): []byte(created.Format(time.RFC3339Nano)),
		string(keyColumns):   columns,
	} {
		if err := b.Put([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

func writeTags(tx *bolt.Tx, tags table.TagTable) error {
	b, err := tx.CreateBucketIfNotExists(bucketTags)
	if err != nil {
		return err
	}
	for _, key := range tags.Keys() {
		d, _ := tags.Get(key)
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode tag %s: %w", key, err)
		}
		if err := b.Put([]byte(key), data); err != nil {
			return err
		}
	}
	return nil
}

func writeRecords(tx *bolt.Tx, records *table.RecordTable) error {
	b, err := tx.CreateBucketIfNotExists(bucketRecords)
	if err != nil {
		return err
	}
	for i := 0; i < records.Len(); i++ {
		data, err := json.Marshal(records.Record(i))
		if err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
		if err := b.Put(rowKey(uint64(i)), data); err != nil {
			return err
		}
	}
	return nil
}

func rowKey(i uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, i)
	return k
}

// checksum hashes every bucket except the checksum itself, in key order.
// Keys and values are length-prefixed.
func checksum(tx *bolt.Tx) (string, error) {
	h := blake3.New()
	var n [8]byte
	put := func(b []byte) {
		binary.BigEndian.PutUint64(n[:], uint64(len(b)))
		_, _ = h.Write(n[:])
		_, _ = h.Write(b)
	}
	for _, name := range [][]byte{bucketMeta, bucketTags, bucketRecords} {
		b := tx.Bucket(name)
		if b == nil {
			return "", fmt.Errorf("%w: missing bucket %s", ErrFormat, name)
		}
		put(name)
		err := b.ForEach(func(k, v []byte) error {
			if string(name) == string(bucketMeta) && string(k) == string(keyChecksum) {
				return nil
			}
			put(k)
			put(v)
			return nil
		})
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// seal appends the trailer to the closed bolt file at path.
func seal(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read database: %w", err)
	}
	sum := blake3.Sum256(data)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if _, err := f.Write(append(sum[:], trailerMagic...)); err != nil {
		_ = f.Close()
		return fmt.Errorf("write trailer: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// unseal checks the trailer of a file written by Save and returns the bolt
// database it covers.
func unseal(data []byte) ([]byte, error) {
	if len(data) < trailerSize || !bytes.Equal(data[len(data)-len(trailerMagic):], trailerMagic) {
		return nil, ErrFormat
	}
	body := data[:len(data)-trailerSize]
	want := data[len(body) : len(body)+digestSize]
	if sum := blake3.Sum256(body); !bytes.Equal(sum[:], want) {
		return nil, fmt.Errorf("%w: file digest %x, computed %x", ErrChecksum, want, sum)
	}
	return body, nil
}

// Load reads the database at path and verifies its checksums. The whole
// file is checked against its trailer digest before bolt maps any page of
// it, so a damaged file fails with ErrChecksum instead of crashing.
func Load(path string) (*Database, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open database: %s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	body, err := unseal(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	// bolt only opens files, so the verified bytes go through a private copy.
	tmp, err := os.CreateTemp("", "dicomtable-load-*.db")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	bdb, err := bolt.Open(tmp.Name(), 0600, &bolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}
	defer func() { _ = bdb.Close() }()

	db := &Database{Tags: table.NewTagTable()}
	var records []table.Record
	err = bdb.View(func(tx *bolt.Tx) error {
		meta, err := readMeta(tx)
		if err != nil {
			return err
		}
		sum, err := checksum(tx)
		if err != nil {
			return err
		}
		if sum != meta.Checksum {
			return fmt.Errorf("%w: stored %s, computed %s", ErrChecksum, meta.Checksum, sum)
		}
		db.Meta = meta

		err = tx.Bucket(bucketTags).ForEach(func(k, v []byte) error {
			var d table.TagDescriptor
			if err := json.Unmarshal(v, &d); err != nil {
				return fmt.Errorf("decode tag %s: %w", k, err)
			}
			db.Tags.Set(string(k), d)
			return nil
		})
		if err != nil {
			return err
		}

		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			var r table.Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode record %x: %w", k, err)
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	db.Records = table.NewRecordTableWithColumns(db.Meta.Columns, records)
	return db, nil
}

func readMeta(tx *bolt.Tx) (Meta, error) {
	b := tx.Bucket(bucketMeta)
	if b == nil {
		return Meta{}, fmt.Errorf("%w: missing bucket %s", ErrFormat, bucketMeta)
	}
	m := Meta{
		Format:   string(b.Get(keyFormat)),
		RunID:    string(b.Get(keyRunID)),
		Checksum: string(b.Get(keyChecksum)),
	}
	if m.Format != Format {
		return Meta{}, fmt.Errorf("%w: format %q", ErrFormat, m.Format)
	}
	if raw := b.Get(keyCreatedAt); raw != nil {
		t, err := time.Parse(time.RFC3339Nano, string(raw))
		if err != nil {
			return Meta{}, fmt.Errorf("%w: created_at: %v", ErrFormat, err)
		}
		m.CreatedAt = t
	}
	if err := json.Unmarshal(b.Get(keyColumns), &m.Columns); err != nil {
		return Meta{}, fmt.Errorf("%w: columns: %v", ErrFormat, err)
	}
	return m, nil
}
