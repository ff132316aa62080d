package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/victorcreed/student-power-frontend/internal/cache"
)

// Cached view names. List views are suffixed with the dashboard they belong to.
const (
	viewApplied = "applied"
	viewFlash   = "flash"
	viewUsers   = "users"
	viewMyApps  = "applications:mine"
	applyGuard  = "apply:"
	jobAppsView = "applications:job:"
)

// viewStore keeps per-session view state in redis. Every list fetch takes a
// sequence number first; only the response holding the latest number may be
// stored, so an older response finishing late never overwrites a newer one.
type viewStore struct {
	cache  *cache.CacheManager
	logger *slog.Logger
}

func newViewStore(cm *cache.CacheManager, logger *slog.Logger) *viewStore {
	return &viewStore{cache: cm, logger: logger}
}

// begin dispatches a new request for view and returns its sequence number.
func (v *viewStore) begin(ctx context.Context, sid, view string) (int64, error) {
	return v.cache.Sequence.NextSequence(ctx, cache.ViewKey(sid, view), cache.SequenceCacheConfig.TTL)
}

// commit stores value when seq is still the latest request for view. It
// reports false when the value lost the race and was discarded.
func (v *viewStore) commit(ctx context.Context, sid, view string, seq int64, value interface{}) (bool, error) {
	key := cache.ViewKey(sid, view)
	err := v.cache.View.SetIfLatest(ctx, v.cache.Sequence, key, seq, key, value, cache.ViewCacheConfig.TTL)
	if errors.Is(err, cache.ErrStale) {
		v.logger.Debug("Discarding stale view response", "session_id", sid, "view", view, "seq", seq)
		return false, nil
	}
	return err == nil, err
}

// load reads the cached state of view into dest. It reports false on a miss.
func (v *viewStore) load(ctx context.Context, sid, view string, dest interface{}) (bool, error) {
	err := v.cache.View.Get(ctx, cache.ViewKey(sid, view), dest)
	if errors.Is(err, cache.ErrCacheNotFound) {
		return false, nil
	}
	return err == nil, err
}

// save stores value for view without sequence checks. Used for views that are
// only written by mutations of the session itself.
func (v *viewStore) save(ctx context.Context, sid, view string, value interface{}) error {
	return v.cache.View.Set(ctx, cache.ViewKey(sid, view), value, cache.ViewCacheConfig.TTL)
}

// mutate applies fn to the cached state of view. A view that is not cached
// is left alone.
func (v *viewStore) mutate(ctx context.Context, sid, view string, dest interface{}, fn func() (bool, error)) error {
	err := v.cache.View.Mutate(ctx, cache.ViewKey(sid, view), cache.ViewCacheConfig.TTL, dest, fn)
	if errors.Is(err, cache.ErrCacheNotFound) {
		return nil
	}
	return err
}

// markApplied records that the session applied to jobID.
func (v *viewStore) markApplied(ctx context.Context, sid, jobID string) error {
	return v.cache.View.AddMember(ctx, cache.ViewKey(sid, viewApplied), jobID, cache.ViewCacheConfig.TTL)
}

func (v *viewStore) applied(ctx context.Context, sid string) map[string]bool {
	m, err := v.cache.View.Members(ctx, cache.ViewKey(sid, viewApplied))
	if err != nil {
		v.logger.Warn("Failed to read applied jobs", "session_id", sid, "error", err)
		return nil
	}
	return m
}

// acquire sets the in-flight marker name for the session. It reports false
// when the marker is already held.
func (v *viewStore) acquire(ctx context.Context, sid, name string) (bool, error) {
	return v.cache.Guard.SetNX(ctx, cache.ViewKey(sid, name), "1", cache.GuardCacheConfig.TTL)
}

func (v *viewStore) release(ctx context.Context, sid, name string) {
	cache.SafeDelete(ctx, v.cache.Guard, cache.ViewKey(sid, name))
}

// held reports which of the named markers are currently set.
func (v *viewStore) held(ctx context.Context, sid string, names ...string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = cache.ViewKey(sid, n)
	}
	found, err := v.cache.Guard.ExistsEach(ctx, keys...)
	if err != nil {
		v.logger.Warn("Failed to read in-flight markers", "session_id", sid, "error", err)
		return nil
	}
	out := make(map[string]bool, len(names))
	for i, n := range names {
		out[n] = found[keys[i]]
	}
	return out
}

// ===== FLASH =====

type flashService struct {
	views *viewStore
}

func NewFlashService(cm *cache.CacheManager, logger *slog.Logger) FlashService {
	return &flashService{views: newViewStore(cm, logger)}
}

func (f *flashService) Push(ctx context.Context, sid string, fl Flash) {
	if sid == "" {
		return
	}
	if err := f.views.save(ctx, sid, viewFlash, fl); err != nil {
		f.views.logger.Warn("Failed to store flash message", "session_id", sid, "error", err)
	}
}

func (f *flashService) Pop(ctx context.Context, sid string) *Flash {
	if sid == "" {
		return nil
	}
	var fl Flash
	if err := f.views.cache.View.Pop(ctx, cache.ViewKey(sid, viewFlash), &fl); err != nil {
		return nil
	}
	return &fl
}

func SuccessFlash(msg string) Flash { return Flash{Kind: "success", Message: msg} }
func ErrorFlash(msg string) Flash   { return Flash{Kind: "error", Message: msg} }
