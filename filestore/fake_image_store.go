package filestore

import "io"

type FakeImageStore struct{}

func (*FakeImageStore) Save(fileName string, r io.Reader) (key string, err error) {
	return fileName, nil
}

func (*FakeImageStore) GetUrlFromKey(key string) string {
	return key
}

func (*FakeImageStore) CleanUp() {}
