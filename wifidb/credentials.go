package wifidb

import (
	"github.com/go-errors/errors"
	"go.etcd.io/bbolt"
)

// Bucket and key names match the preferences namespace of the original
// firmware, so a dump of either store reads the same.
var (
	credentialsBucket = []byte("WiFiCred")
	ssidPrimKey       = []byte("ssidPrim")
	ssidSecKey        = []byte("ssidSec")
	pwPrimKey         = []byte("pwPrim")
	pwSecKey          = []byte("pwSec")
	validKey          = []byte("valid")
)

// Credentials holds the two candidate access points. Valid is only true when
// a complete set was stored; partially populated credentials never occur.
type Credentials struct {
	SsidPrim string
	PwPrim   string
	SsidSec  string
	PwSec    string
	Valid    bool
}

// GetCredentials loads the stored credential set. Absence of a stored
// valid=true flag yields an empty, invalid set rather than an error.
func (db *DB) GetCredentials() (*Credentials, error) {
	creds := &Credentials{}

	if err := db.getJSON(credentialsBucket, validKey, &creds.Valid); err != nil {
		return nil, errors.Errorf("could not read valid flag: %v", err)
	}

	if !creds.Valid {
		return creds, nil
	}

	fields := []struct {
		key   []byte
		value *string
	}{
		{ssidPrimKey, &creds.SsidPrim},
		{ssidSecKey, &creds.SsidSec},
		{pwPrimKey, &creds.PwPrim},
		{pwSecKey, &creds.PwSec},
	}

	for _, field := range fields {
		if err := db.getJSON(credentialsBucket, field.key, field.value); err != nil {
			return nil, errors.Errorf("could not read %s: %v", field.key, err)
		}
	}

	return creds, nil
}

// SetCredentials overwrites the stored credential set wholesale and marks it
// valid. All fields are written in one transaction so readers never observe a
// partially updated set.
func (db *DB) SetCredentials(creds *Credentials) error {
	return db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(credentialsBucket)
		if err != nil {
			return err
		}

		fields := []struct {
			key   []byte
			value string
		}{
			{ssidPrimKey, creds.SsidPrim},
			{ssidSecKey, creds.SsidSec},
			{pwPrimKey, creds.PwPrim},
			{pwSecKey, creds.PwSec},
		}

		for _, field := range fields {
			if err := bucket.Put(field.key, mustMarshalJSON(field.value)); err != nil {
				return err
			}
		}

		return bucket.Put(validKey, mustMarshalJSON(true))
	})
}

// Wipe deletes the whole credential namespace. Used by the erase directive,
// which maps to a full flash erase on the original hardware.
func (db *DB) Wipe() error {
	return db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(credentialsBucket) == nil {
			return nil
		}

		return tx.DeleteBucket(credentialsBucket)
	})
}
