// Package bot turns chat updates into film lookups and replies.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MikePodsytnik/cinemabot/internal/cache"
	"github.com/MikePodsytnik/cinemabot/internal/database"
	"github.com/MikePodsytnik/cinemabot/internal/metrics"
	"github.com/MikePodsytnik/cinemabot/internal/ratelimit"
	"github.com/MikePodsytnik/cinemabot/internal/tmdb"
	"github.com/MikePodsytnik/cinemabot/internal/watchlinks"
)

// MovieLookup resolves a free-text query to film metadata
type MovieLookup interface {
	Lookup(ctx context.Context, query string) (*tmdb.Movie, error)
}

// LinkFinder finds a working watch page for a title
type LinkFinder interface {
	FindFirst(ctx context.Context, title string) (*watchlinks.Link, error)
}

// Store keeps per-user history and statistics
type Store interface {
	AddHistory(ctx context.Context, userID int64, query, title, url string) error
	IncStat(ctx context.Context, userID int64, title string) error
	History(ctx context.Context, userID int64, limit int) ([]database.HistoryRow, error)
	Stats(ctx context.Context, userID int64, limit int) ([]database.StatRow, error)
}

// Sender delivers replies to the chat
type Sender interface {
	Send(ctx context.Context, r Reply) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

// Update is a transport-neutral incoming event
type Update struct {
	UserID int64
	ChatID int64

	// Text of a message; Command is set (without slash) for bot commands
	Text    string
	Command string

	CallbackID   string
	CallbackData string
}

// IsCallback reports whether the update is an inline button press
func (u Update) IsCallback() bool {
	return u.CallbackID != ""
}

// Reply is an outgoing message. When PhotoURL is set Text becomes the caption.
type Reply struct {
	ChatID   int64
	Text     string
	HTML     bool
	PhotoURL string
	Keyboard *Keyboard
}

// Deps are the collaborators of a Handler
type Deps struct {
	Movies  MovieLookup
	Links   LinkFinder
	Store   Store
	Sender  Sender
	Limiter *ratelimit.UserLimiter
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// CacheConfig sizes the lookup caches
type CacheConfig struct {
	TTL       time.Duration
	MetaSize  int
	WatchSize int
}

// DefaultCacheConfig keeps lookups for half an hour
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 30 * time.Minute, MetaSize: 512, WatchSize: 1024}
}

// Handler routes updates
type Handler struct {
	deps       Deps
	logger     *zap.Logger
	metaCache  *cache.TTL[*tmdb.Movie]
	watchCache *cache.TTL[string]
}

// NewHandler builds a Handler. Limiter may be nil; Metrics and Logger default to no-ops.
func NewHandler(deps Deps, cacheCfg CacheConfig) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if cacheCfg.TTL <= 0 {
		cacheCfg.TTL = DefaultCacheConfig().TTL
	}
	return &Handler{
		deps:       deps,
		logger:     deps.Logger.Named("bot"),
		metaCache:  cache.NewTTL[*tmdb.Movie](cacheCfg.TTL, cacheCfg.MetaSize),
		watchCache: cache.NewTTL[string](cacheCfg.TTL, cacheCfg.WatchSize),
	}
}

// Handle processes one update. Errors are returned only when the reply
// itself could not be delivered.
func (h *Handler) Handle(ctx context.Context, u Update) error {
	switch {
	case u.IsCallback():
		h.deps.Metrics.IncUpdate(metrics.KindCallback)
		return h.handleCallback(ctx, u)
	case u.Command != "":
		h.deps.Metrics.IncUpdate(metrics.KindCommand)
		return h.handleCommand(ctx, u)
	default:
		query := strings.TrimSpace(u.Text)
		if query == "" {
			h.deps.Metrics.IncUpdate(metrics.KindIgnored)
			return nil
		}
		h.deps.Metrics.IncUpdate(metrics.KindQuery)
		return h.handleQuery(ctx, u, query)
	}
}

func (h *Handler) handleCommand(ctx context.Context, u Update) error {
	switch strings.ToLower(u.Command) {
	case "start":
		return h.reply(ctx, Reply{ChatID: u.ChatID, Text: startText, HTML: true})
	case "history":
		return h.sendHistory(ctx, u.ChatID, u.UserID)
	case "stats":
		return h.sendStats(ctx, u.ChatID, u.UserID)
	default:
		return h.reply(ctx, Reply{ChatID: u.ChatID, Text: helpText, HTML: true})
	}
}

func (h *Handler) handleCallback(ctx context.Context, u Update) error {
	if err := h.deps.Sender.AnswerCallback(ctx, u.CallbackID); err != nil {
		h.logger.Warn("answer callback failed", zap.String("data", u.CallbackData), zap.Error(err))
	}
	// buttons on inline messages carry no chat to answer into
	if u.ChatID == 0 {
		return nil
	}

	switch u.CallbackData {
	case CallbackHistory:
		return h.sendHistory(ctx, u.ChatID, u.UserID)
	case CallbackStats:
		return h.sendStats(ctx, u.ChatID, u.UserID)
	default:
		h.logger.Debug("unknown callback", zap.String("data", u.CallbackData))
		return nil
	}
}

func (h *Handler) sendHistory(ctx context.Context, chatID, userID int64) error {
	rows, err := h.deps.Store.History(ctx, userID, database.DefaultLimit)
	if err != nil {
		h.logger.Error("load history failed", zap.Int64("user_id", userID), zap.Error(err))
		rows = nil
	}
	return h.reply(ctx, Reply{ChatID: chatID, Text: FormatHistory(rows)})
}

func (h *Handler) sendStats(ctx context.Context, chatID, userID int64) error {
	rows, err := h.deps.Store.Stats(ctx, userID, database.DefaultLimit)
	if err != nil {
		h.logger.Error("load stats failed", zap.Int64("user_id", userID), zap.Error(err))
		rows = nil
	}
	return h.reply(ctx, Reply{ChatID: chatID, Text: FormatStats(rows)})
}

func (h *Handler) handleQuery(ctx context.Context, u Update, query string) error {
	log := h.logger.With(
		zap.String("lookup_id", uuid.NewString()),
		zap.Int64("user_id", u.UserID),
		zap.String("query", query),
	)

	if h.deps.Limiter != nil && !h.deps.Limiter.Allow(u.UserID) {
		h.deps.Metrics.IncRateLimited()
		log.Info("rate limited")
		return h.reply(ctx, Reply{ChatID: u.ChatID, Text: rateLimitedText})
	}

	movie := h.lookupMovie(ctx, log, query)
	if movie == nil {
		return h.reply(ctx, Reply{ChatID: u.ChatID, Text: fmt.Sprintf(notFoundFormat, query)})
	}

	watchURL := h.lookupWatchURL(ctx, log, movie)

	if err := h.deps.Store.AddHistory(ctx, u.UserID, query, movie.Title, watchURL); err != nil {
		log.Error("save history failed", zap.Error(err))
	}
	if err := h.deps.Store.IncStat(ctx, u.UserID, movie.Title); err != nil {
		log.Error("save stat failed", zap.Error(err))
	}

	card := FormatCard(movie, watchURL)
	kb := BuildKeyboard(watchURL)

	if movie.PosterURL != "" {
		err := h.deps.Sender.Send(ctx, Reply{ChatID: u.ChatID, Text: card, HTML: true, PhotoURL: movie.PosterURL, Keyboard: kb})
		if err == nil {
			return nil
		}
		log.Warn("send photo failed, falling back to text", zap.Error(err))
	}
	return h.reply(ctx, Reply{ChatID: u.ChatID, Text: card, HTML: true, Keyboard: kb})
}

// lookupMovie consults the cache first. Only hits are cached so a
// transient API failure is retried on the next query.
func (h *Handler) lookupMovie(ctx context.Context, log *zap.Logger, query string) *tmdb.Movie {
	key := cache.NormQuery(query)
	if m, ok := h.metaCache.Get(key); ok {
		h.deps.Metrics.IncCache("meta", true)
		h.deps.Metrics.IncLookup(metrics.LookupCached)
		return m
	}
	h.deps.Metrics.IncCache("meta", false)

	m, err := h.deps.Movies.Lookup(ctx, query)
	switch {
	case err != nil:
		h.deps.Metrics.IncLookup(metrics.LookupError)
		log.Warn("metadata lookup failed", zap.Error(err))
		return nil
	case m == nil:
		h.deps.Metrics.IncLookup(metrics.LookupNotFound)
		return nil
	}

	h.deps.Metrics.IncLookup(metrics.LookupFound)
	h.metaCache.Set(key, m)
	h.metaCache.Set(cache.NormQuery(m.Title), m)
	log.Info("metadata found", zap.String("title", m.Title), zap.Int64("tmdb_id", m.ID))
	return m
}

func (h *Handler) lookupWatchURL(ctx context.Context, log *zap.Logger, m *tmdb.Movie) string {
	key := fmt.Sprintf("tmdb:%s:%d", m.MediaType, m.ID)
	if u, ok := h.watchCache.Get(key); ok {
		h.deps.Metrics.IncCache("watch", true)
		return u
	}
	h.deps.Metrics.IncCache("watch", false)

	title := m.Title
	if m.Year != "" {
		title = m.Title + " " + m.Year
	}

	link, err := h.deps.Links.FindFirst(ctx, title)
	if err != nil {
		log.Warn("watch link search failed", zap.Error(err))
		return ""
	}
	if link == nil {
		log.Info("no working watch link", zap.String("title", title))
		return ""
	}

	h.watchCache.Set(key, link.URL)
	log.Info("watch link found", zap.String("url", link.URL), zap.String("domain", link.Domain))
	return link.URL
}

func (h *Handler) reply(ctx context.Context, r Reply) error {
	if err := h.deps.Sender.Send(ctx, r); err != nil {
		return fmt.Errorf("send reply to chat %d: %w", r.ChatID, err)
	}
	return nil
}
