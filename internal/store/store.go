// Package store owns the authoritative item collection and the projections the views read.
package store

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/models"
)

// Filter is the ambient filter state. Zero values mean "not applied".
type Filter struct {
	Type   models.ContentType `json:"type,omitempty"`
	Tags   []string           `json:"tags,omitempty"`
	Folder string             `json:"folder,omitempty"`
}

// FilterPatch shallowly updates Filter; nil fields are left alone.
type FilterPatch struct {
	Type   *models.ContentType `json:"type,omitempty"`
	Tags   *[]string           `json:"tags,omitempty"`
	Folder *string             `json:"folder,omitempty"`
}

// ChangeFunc receives the persisted state after every mutation.
// It runs while the store is locked and must not call back into the store.
type ChangeFunc func(models.Snapshot)

type Store struct {
	mu             sync.RWMutex
	items          []models.ContentItem
	folders        []models.SmartFolder
	tags           []models.Tag
	searchQuery    string
	filter         Filter
	githubUsername string

	now      func() time.Time
	onChange ChangeFunc
	logger   *zap.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithOnChange(fn ChangeFunc) Option {
	return func(s *Store) { s.onChange = fn }
}

func WithFolders(folders []models.SmartFolder) Option {
	return func(s *Store) { s.folders = folders }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func New(opts ...Option) *Store {
	s := &Store{
		items:   []models.ContentItem{},
		folders: models.DefaultFolders(),
		tags:    []models.Tag{},
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads a persisted snapshot without notifying the change callback.
func (s *Store) Restore(snap models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = s.normalizeAll(snap.Items)
	s.githubUsername = snap.GitHubUsername
	s.logger.Info("Restored snapshot", zap.Int("items", len(s.items)))
}

// SetAll replaces the whole collection. Later duplicates of an id are dropped.
func (s *Store) SetAll(items []models.ContentItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = s.normalizeAll(items)
	s.changed()
}

// Add prepends item and merges its tags into the tag pool.
// An existing item with the same id is replaced.
func (s *Store) Add(item models.ContentItem) models.ContentItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	item = s.normalize(item.Clone())
	if i := s.indexOf(item.ID); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	s.items = append([]models.ContentItem{item}, s.items...)
	s.tags = models.MergeTags(s.tags, item.Tags)
	s.changed()
	return item.Clone()
}

// Update applies patch to the item with id and refreshes UpdatedAt.
// Unknown ids are ignored.
func (s *Store) Update(id string, patch ItemPatch) (models.ContentItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.logger.Debug("Ignoring update of missing item", zap.String("item_id", id))
		return models.ContentItem{}, false
	}

	item := &s.items[i]
	patch.apply(item)
	s.touch(item)
	s.changed()
	return item.Clone(), true
}

// UpdatePosition moves an item on the canvas.
func (s *Store) UpdatePosition(id string, pos models.Position) bool {
	_, ok := s.Update(id, ItemPatch{Position: &pos})
	return ok
}

// Remove deletes the item with id if present.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.changed()
	return true
}

func (s *Store) SetSearchQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchQuery = query
}

func (s *Store) SearchQuery() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchQuery
}

func (s *Store) SetActiveFilter(patch FilterPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.Type != nil {
		s.filter.Type = *patch.Type
	}
	if patch.Tags != nil {
		s.filter.Tags = append([]string(nil), (*patch.Tags)...)
	}
	if patch.Folder != nil {
		s.filter.Folder = *patch.Folder
	}
}

func (s *Store) ActiveFilter() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f := s.filter
	f.Tags = append([]string(nil), s.filter.Tags...)
	return f
}

func (s *Store) SetGitHubUsername(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.githubUsername = username
	s.changed()
}

func (s *Store) GitHubUsername() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.githubUsername
}

// Items returns the whole collection, most recent first.
func (s *Store) Items() []models.ContentItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.items)
}

func (s *Store) Get(id string) (models.ContentItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.items[i].Clone(), true
	}
	return models.ContentItem{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Tags returns the pool accumulated by Add.
func (s *Store) Tags() []models.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Tag(nil), s.tags...)
}

func (s *Store) Folders() []models.SmartFolder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.SmartFolder(nil), s.folders...)
}

// Snapshot returns the persisted part of the state.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Store) snapshot() models.Snapshot {
	return models.Snapshot{
		Items:          cloneAll(s.items),
		GitHubUsername: s.githubUsername,
		SavedAt:        s.now(),
	}
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange(s.snapshot())
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// touch sets UpdatedAt to now, never moving it before CreatedAt or backwards.
func (s *Store) touch(item *models.ContentItem) {
	now := s.now()
	if now.Before(item.CreatedAt) {
		now = item.CreatedAt
	}
	if now.Before(item.UpdatedAt) {
		now = item.UpdatedAt
	}
	item.UpdatedAt = now
}

func (s *Store) normalize(item models.ContentItem) models.ContentItem {
	if item.ID == "" {
		item.ID = models.NewItemID("item")
	}
	if item.Tags == nil {
		item.Tags = []models.Tag{}
	}
	if item.Metadata == nil {
		item.Metadata = map[string]any{}
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	if item.UpdatedAt.Before(item.CreatedAt) {
		item.UpdatedAt = item.CreatedAt
	}
	if v, ok := models.Progress(item.Checklists); ok {
		item.Progress = &v
	}
	return item
}

func (s *Store) normalizeAll(items []models.ContentItem) []models.ContentItem {
	out := make([]models.ContentItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = s.normalize(item.Clone())
		if seen[item.ID] {
			s.logger.Warn("Dropping duplicate item id", zap.String("item_id", item.ID))
			continue
		}
		seen[item.ID] = true
		out = append(out, item)
	}
	return out
}

func cloneAll(items []models.ContentItem) []models.ContentItem {
	out := make([]models.ContentItem, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}
