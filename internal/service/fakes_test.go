package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================
//
// fakeStore is a hand-written in-memory implementation of every repository
// interface. Method names do not collide across interfaces, so one value can
// stand in for the whole database. Set err to make every call fail.

type fakeStore struct {
	mu  sync.Mutex
	seq int
	err error

	profiles    map[string]*model.Profile
	snippets    map[string]*model.Snippet
	categories  map[string]*model.Category
	collections map[string]*model.Collection
	favorites   map[string]*model.Favorite
	links       map[string]*model.ShareLink
	sessions    map[string]*model.CollaborationSession
}

var (
	_ repository.ProfileRepository       = (*fakeStore)(nil)
	_ repository.SnippetRepository       = (*fakeStore)(nil)
	_ repository.CategoryRepository      = (*fakeStore)(nil)
	_ repository.CollectionRepository    = (*fakeStore)(nil)
	_ repository.FavoriteRepository      = (*fakeStore)(nil)
	_ repository.ShareLinkRepository     = (*fakeStore)(nil)
	_ repository.CollaborationRepository = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles:    make(map[string]*model.Profile),
		snippets:    make(map[string]*model.Snippet),
		categories:  make(map[string]*model.Category),
		collections: make(map[string]*model.Collection),
		favorites:   make(map[string]*model.Favorite),
		links:       make(map[string]*model.ShareLink),
		sessions:    make(map[string]*model.CollaborationSession),
	}
}

// nextID yields ids that sort in creation order.
func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%04d", prefix, f.seq)
}

func pairKey(a, b string) string { return a + "|" + b }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedClock returns a settable clock for services with a now field.
type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }
func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
func newClock() *fixedClock { return &fixedClock{t: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)} }

// ---- seeding helpers -----------------------------------------------------

func (f *fakeStore) addProfile(username string) *model.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &model.Profile{ID: f.nextID("user"), Email: username + "@example.com", Username: username}
	f.profiles[p.ID] = p
	return p
}

func (f *fakeStore) addSnippet(owner *model.Profile, title string, public bool) *model.Snippet {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &model.Snippet{ID: f.nextID("snip"), Title: title, Language: "go", UserID: owner.ID, IsPublic: public, Tags: []string{}}
	stored := *s
	f.snippets[s.ID] = &stored
	return s
}

func (f *fakeStore) addCollection(owner *model.Profile, name string, public bool) *model.Collection {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &model.Collection{ID: f.nextID("coll"), Name: name, UserID: owner.ID, IsPublic: public}
	stored := *c
	f.collections[c.ID] = &stored
	return c
}

// ---- profiles -------------------------------------------------------------

func (f *fakeStore) CreateProfile(_ context.Context, p *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.profiles {
		if existing.Email == p.Email {
			return apperror.Conflict("email already registered")
		}
	}
	p.ID = f.nextID("user")
	stored := *p
	f.profiles[p.ID] = &stored
	return nil
}

func (f *fakeStore) GetProfileByID(_ context.Context, id string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, apperror.NotFound("profile", id)
	}
	out := *p
	return &out, nil
}

func (f *fakeStore) GetProfileByEmail(_ context.Context, email string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.profiles {
		if p.Email == email {
			out := *p
			return &out, nil
		}
	}
	return nil, apperror.NotFound("profile", email)
}

func (f *fakeStore) UpsertGitHubProfile(_ context.Context, p *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.profiles {
		if existing.GitHubID != nil && *existing.GitHubID == *p.GitHubID || existing.Email == p.Email {
			existing.GitHubID = p.GitHubID
			if p.AvatarURL != "" {
				existing.AvatarURL = p.AvatarURL
			}
			*p = *existing
			return nil
		}
	}
	p.ID = f.nextID("user")
	stored := *p
	f.profiles[p.ID] = &stored
	return nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, p *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.profiles[p.ID]; !ok {
		return apperror.NotFound("profile", p.ID)
	}
	stored := *p
	f.profiles[p.ID] = &stored
	return nil
}

// ---- snippets -------------------------------------------------------------

func (f *fakeStore) Create(_ context.Context, s *model.Snippet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	s.ID = f.nextID("snip")
	stored := *s
	f.snippets[s.ID] = &stored
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id, viewerID string) (*model.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet", id)
	}
	out := *s
	_, out.IsFavorite = f.favorites[pairKey(viewerID, id)]
	return &out, nil
}

func (f *fakeStore) List(_ context.Context, filter repository.SnippetFilter) ([]model.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Snippet{}
	for _, s := range f.snippets {
		if !filter.Unrestricted && !s.IsPublic && s.UserID != filter.ViewerID {
			continue
		}
		if filter.OwnerID != "" && s.UserID != filter.OwnerID {
			continue
		}
		if filter.CollectionID != "" && (s.CollectionID == nil || *s.CollectionID != filter.CollectionID) {
			continue
		}
		if filter.Language != "" && s.Language != filter.Language {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Offset >= len(out) {
		return []model.Snippet{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, s *model.Snippet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.snippets[s.ID]; !ok {
		return apperror.NotFound("snippet", s.ID)
	}
	stored := *s
	f.snippets[s.ID] = &stored
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.snippets[id]; !ok {
		return apperror.NotFound("snippet", id)
	}
	delete(f.snippets, id)
	return nil
}

func (f *fakeStore) IncrementViews(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if s, ok := f.snippets[id]; ok {
		s.ViewsCount++
	}
	return nil
}

// ---- categories -----------------------------------------------------------

func (f *fakeStore) CreateCategory(_ context.Context, c *model.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.categories {
		if existing.UserID == c.UserID && existing.Name == c.Name {
			return apperror.Conflict(fmt.Sprintf("category %q already exists", c.Name))
		}
	}
	c.ID = f.nextID("cat")
	stored := *c
	f.categories[c.ID] = &stored
	return nil
}

func (f *fakeStore) GetCategoryByID(_ context.Context, id string) (*model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.categories[id]
	if !ok {
		return nil, apperror.NotFound("category", id)
	}
	out := *c
	return &out, nil
}

func (f *fakeStore) ListCategories(_ context.Context, ownerID string) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Category{}
	for _, c := range f.categories {
		if c.UserID == ownerID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) UpdateCategory(_ context.Context, c *model.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.categories[c.ID]; !ok {
		return apperror.NotFound("category", c.ID)
	}
	stored := *c
	f.categories[c.ID] = &stored
	return nil
}

func (f *fakeStore) DeleteCategory(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.categories[id]; !ok {
		return apperror.NotFound("category", id)
	}
	delete(f.categories, id)
	for _, s := range f.snippets {
		if s.CategoryID != nil && *s.CategoryID == id {
			s.CategoryID = nil
		}
	}
	return nil
}

// ---- collections ----------------------------------------------------------

func (f *fakeStore) CreateCollection(_ context.Context, c *model.Collection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	c.ID = f.nextID("coll")
	stored := *c
	f.collections[c.ID] = &stored
	return nil
}

func (f *fakeStore) GetCollectionByID(_ context.Context, id string) (*model.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.collections[id]
	if !ok {
		return nil, apperror.NotFound("collection", id)
	}
	out := *c
	return &out, nil
}

func (f *fakeStore) ListCollections(_ context.Context, ownerID string) ([]model.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Collection{}
	for _, c := range f.collections {
		if c.UserID == ownerID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateCollection(_ context.Context, c *model.Collection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.collections[c.ID]; !ok {
		return apperror.NotFound("collection", c.ID)
	}
	stored := *c
	stored.Snippets = nil
	f.collections[c.ID] = &stored
	return nil
}

func (f *fakeStore) DeleteCollection(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.collections[id]; !ok {
		return apperror.NotFound("collection", id)
	}
	delete(f.collections, id)
	for _, s := range f.snippets {
		if s.CollectionID != nil && *s.CollectionID == id {
			s.CollectionID = nil
		}
	}
	return nil
}

// ---- favorites ------------------------------------------------------------

func (f *fakeStore) AddFavorite(_ context.Context, userID, snippetID string) (*model.Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	key := pairKey(userID, snippetID)
	if existing, ok := f.favorites[key]; ok {
		out := *existing
		return &out, nil
	}
	fav := &model.Favorite{ID: f.nextID("fav"), UserID: userID, SnippetID: snippetID}
	f.favorites[key] = fav
	out := *fav
	return &out, nil
}

func (f *fakeStore) RemoveFavorite(_ context.Context, userID, snippetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.favorites, pairKey(userID, snippetID))
	return nil
}

func (f *fakeStore) ListFavorites(_ context.Context, userID string) ([]model.Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Favorite{}
	for _, fav := range f.favorites {
		if fav.UserID == userID {
			out = append(out, *fav)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ---- share links ----------------------------------------------------------

func (f *fakeStore) CreateShareLink(_ context.Context, link *model.ShareLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.links {
		if existing.Token == link.Token {
			return apperror.Conflict("share token already in use")
		}
	}
	link.ID = f.nextID("link")
	link.CurrentViews = 0
	stored := *link
	f.links[link.ID] = &stored
	return nil
}

func (f *fakeStore) GetShareLinkByToken(_ context.Context, token string) (*model.ShareLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, l := range f.links {
		if l.Token == token {
			out := *l
			return &out, nil
		}
	}
	return nil, apperror.NotFound("share link", token)
}

func (f *fakeStore) ListShareLinks(_ context.Context, ownerID string) ([]model.ShareLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.ShareLink{}
	for _, l := range f.links {
		if l.UserID == ownerID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) DeleteShareLink(_ context.Context, id, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if l, ok := f.links[id]; ok && l.UserID == ownerID {
		delete(f.links, id)
	}
	return nil
}

// ConsumeView applies the same guard as the SQL store's conditional UPDATE.
func (f *fakeStore) ConsumeView(_ context.Context, id string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	l, ok := f.links[id]
	if !ok {
		return false, nil
	}
	if l.MaxViews != nil && l.CurrentViews >= *l.MaxViews {
		return false, nil
	}
	if l.ExpiresAt != nil && !now.Before(*l.ExpiresAt) {
		return false, nil
	}
	l.CurrentViews++
	return true, nil
}

// ---- collaboration --------------------------------------------------------

func (f *fakeStore) sessionWithUser(s *model.CollaborationSession) model.CollaborationSession {
	out := *s
	if p, ok := f.profiles[s.UserID]; ok {
		out.User = &model.ProfileSummary{ID: p.ID, Username: p.Username, AvatarURL: p.AvatarURL}
	}
	return out
}

func (f *fakeStore) TouchSession(_ context.Context, snippetID, userID string, now time.Time) (*model.CollaborationSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	key := pairKey(snippetID, userID)
	s, ok := f.sessions[key]
	if !ok {
		s = &model.CollaborationSession{ID: f.nextID("sess"), SnippetID: snippetID, UserID: userID}
		f.sessions[key] = s
	}
	s.LastActive = now
	out := f.sessionWithUser(s)
	return &out, nil
}

func (f *fakeStore) UpdateCursor(_ context.Context, snippetID, userID string, cursor int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	s, ok := f.sessions[pairKey(snippetID, userID)]
	if !ok {
		return apperror.NotFound("collaboration session", snippetID)
	}
	s.CursorPosition = cursor
	s.LastActive = now
	return nil
}

func (f *fakeStore) DeleteSession(_ context.Context, snippetID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.sessions, pairKey(snippetID, userID))
	return nil
}

func (f *fakeStore) ListActiveSessions(_ context.Context, snippetID string, since time.Time) ([]model.CollaborationSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.CollaborationSession{}
	for _, s := range f.sessions {
		if s.SnippetID == snippetID && !s.LastActive.Before(since) {
			out = append(out, f.sessionWithUser(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActive.After(out[j].LastActive) })
	return out, nil
}

func (f *fakeStore) DeleteIdleSessions(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for key, s := range f.sessions {
		if s.LastActive.Before(before) {
			delete(f.sessions, key)
			n++
		}
	}
	return n, nil
}

// sessionRow reads a raw row, stale or not.
func (f *fakeStore) sessionRow(snippetID, userID string) (*model.CollaborationSession, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[pairKey(snippetID, userID)]
	if !ok {
		return nil, false
	}
	out := *s
	return &out, true
}
