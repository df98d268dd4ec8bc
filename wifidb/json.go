package wifidb

import (
	"bytes"
	"encoding/json"

	"github.com/go-errors/errors"
	"go.etcd.io/bbolt"
)

// mustMarshalJSON is only called with strings and booleans, which never fail
// to marshal.
func mustMarshalJSON(v interface{}) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return payload
}

// getJSON unmarshals the stored value into v. A missing bucket, missing key
// or stored null leaves v untouched.
func (db *DB) getJSON(bucket []byte, key []byte, v interface{}) error {
	return db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucket)
		if bucket == nil {
			return nil
		}

		payload := bucket.Get(key)
		if payload == nil || bytes.Equal(payload, []byte("null")) {
			return nil
		}

		if err := json.Unmarshal(payload, v); err != nil {
			return errors.Errorf("could not unmarshal data: %v", err)
		}

		return nil
	})
}
