package filestore

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type LocalImageStore struct {
	dir string
}

// NewLocalImageStore stores images on the local disk, for single-node
// deployments and development.
func NewLocalImageStore(dir string) (*LocalImageStore, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalImageStore{dir: dir}, nil
}

func (s *LocalImageStore) Save(fileName string, r io.Reader) (string, error) {
	key := uuid.New().String() + filepath.Ext(fileName)

	dst, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", err
	}
	return key, nil
}

func (s *LocalImageStore) GetUrlFromKey(key string) string {
	return "/uploads/" + key
}

func (s *LocalImageStore) CleanUp() {
	os.RemoveAll(s.dir)
}
