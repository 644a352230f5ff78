package blobstore

import (
	"errors"
	"fmt"
)

var errClosed = errors.New("blob store is closed")

func errNotFound(path string) error {
	return fmt.Errorf("blob not found: %s", path)
}
