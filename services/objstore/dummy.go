package objstoresvc

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

const dummyURLPrefix = "https://files.invalid/"

// DummyStore keeps uploads in memory; used in DEV|TEST.
type DummyStore struct {
	mu      sync.Mutex
	objects map[string][]byte // url -> data

	Puts    []string // urls returned by Put, in order
	Deletes []string // urls passed to Delete, in order

	FailPut    bool
	FailDelete bool
}

var _ core.ObjectStore = (*DummyStore)(nil)

func NewDummyStore() *DummyStore {
	return &DummyStore{objects: make(map[string][]byte)}
}

func (s *DummyStore) Put(_ context.Context, data []byte, filename, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailPut {
		return "", errors.New("object storage unavailable")
	}
	url := dummyURLPrefix + uuid.New().String() + "-" + sanitizeFilename(filename)
	s.objects[url] = data
	s.Puts = append(s.Puts, url)
	return url, nil
}

func (s *DummyStore) Owns(url string) bool {
	return strings.HasPrefix(url, dummyURLPrefix)
}

func (s *DummyStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailDelete {
		return errors.New("object storage unavailable")
	}
	if _, ok := s.objects[url]; !ok {
		return core.ErrInvalidFileRef
	}
	delete(s.objects, url)
	s.Deletes = append(s.Deletes, url)
	return nil
}

// Has reports whether a previously Put url is still stored.
func (s *DummyStore) Has(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[url]
	return ok
}
