package intake

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/glbkit/pkg/glb"
	"github.com/samcharles93/glbkit/pkg/scene"
)

// Asset is a decoded container held by the store. Container keeps the
// uploaded chunks, unknown ones included, so content is served with the
// layout that Layout reports. Payload keeps the chunk padding.
type Asset struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Container *glb.Container
	Document  *scene.Document
	Payload   []byte
	Issues    []scene.Issue
	Layout    glb.Info
}

// AssetStore is an in-memory, concurrency-safe asset table.
type AssetStore struct {
	mu     sync.RWMutex
	assets map[string]*Asset
}

func NewAssetStore() *AssetStore {
	return &AssetStore{assets: make(map[string]*Asset)}
}

// Put stores a and assigns it a fresh ID, which is returned.
func (s *AssetStore) Put(a *Asset) string {
	a.ID = newAssetID()
	s.mu.Lock()
	s.assets[a.ID] = a
	s.mu.Unlock()
	return a.ID
}

func (s *AssetStore) Get(id string) (*Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[id]
	return a, ok
}

func (s *AssetStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[id]; !ok {
		return false
	}
	delete(s.assets, id)
	return true
}

// List returns the stored assets, oldest first.
func (s *AssetStore) List() []*Asset {
	s.mu.RLock()
	out := make([]*Asset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, a)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Asset) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (s *AssetStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assets)
}

func newAssetID() string {
	return "asset_" + uuid.NewString()
}
