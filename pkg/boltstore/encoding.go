package boltstore

import (
	"bytes"
	"encoding/gob"

	"github.com/crystal-mush/objsearch/pkg/objdb"
)

// encodeObject serializes an Object to bytes using gob.
func encodeObject(obj *objdb.Object) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeObject deserializes bytes back into an Object.
func decodeObject(data []byte) (*objdb.Object, error) {
	var obj objdb.Object
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&obj); err != nil {
		return nil, err
	}
	return &obj, nil
}
