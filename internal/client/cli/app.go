// Package cli wires the client together: local store, durable queue,
// encryption key manager, sync loops and a small interactive command loop.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/showmeapp/showme/internal/client/config"
	"github.com/showmeapp/showme/internal/client/keymanager"
	"github.com/showmeapp/showme/internal/client/kvstore"
	"github.com/showmeapp/showme/internal/client/notify"
	"github.com/showmeapp/showme/internal/client/queue"
	"github.com/showmeapp/showme/internal/client/remote"
	"github.com/showmeapp/showme/internal/client/services"
	"github.com/showmeapp/showme/internal/client/session"
	"github.com/showmeapp/showme/internal/client/sync"
	"github.com/showmeapp/showme/internal/logging"
)

type App struct {
	config *config.Config
	log    logging.Logger

	db *sql.DB
	kv kvstore.Store

	sess        *session.Session
	keys        *keymanager.Manager
	queue       *queue.Queue
	broadcaster *notify.Broadcaster

	mapService  services.MapService
	pinService  services.PinService
	wipeService services.WipeService

	replicator *sync.PullReplicator
	poller     *sync.Poller
	watcher    *sync.Watcher

	reader *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	db, repos, err := InitDatabase(ctx, filepath.Join(c.DataDir, "showme.db"))
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	kv, err := kvstore.Open(filepath.Join(c.DataDir, "kv"))
	if err != nil {
		db.Close()
		return nil, err
	}

	sess := session.New(kv)
	keys := keymanager.NewManager(kv, logger)
	if _, err := keys.Initialize(ctx, ""); err != nil {
		logger.Warn(ctx, "encryption disabled", "error", err)
	}

	rc := remote.NewHTTPClient(c.RemoteBaseURL)
	q := queue.New(kv, rc, sess, logger)
	broadcaster := notify.NewBroadcaster(kv, logger)

	replicator := sync.NewPullReplicator(rc, repos.Maps, repos.Pins, sess, logger, c.PollInterval)

	app := &App{
		config:      c,
		log:         logger,
		db:          db,
		kv:          kv,
		sess:        sess,
		keys:        keys,
		queue:       q,
		broadcaster: broadcaster,
		mapService:  services.NewMapService(repos.Maps, rc, q, keys, sess, logger),
		pinService:  services.NewPinService(repos.Pins, repos.Maps, rc, q, keys, sess, logger),
		wipeService: services.NewWipeService(db, rc, q, kv, sess, broadcaster, replicator, logger),
		replicator:  replicator,
		poller:      sync.NewPoller(repos.Maps, repos.Pins, sess, broadcaster, logger, c.PollInterval),
		watcher:     sync.NewWatcher(rc, sess, q, logger, c.OnlineCheckInterval),
		reader:      bufio.NewReader(os.Stdin),
	}
	return app, nil
}

// Run starts the background loops, hands control to the REPL and tears
// everything down when the user leaves.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.broadcaster.Subscribe(func(ev notify.ChangeEvent) {
		printlnFn(fmt.Sprintf("· %s changed", ev.Table))
	})

	a.watcher.Start(ctx)
	a.replicator.Start(ctx)
	a.poller.Start(ctx)
	stopCleanup := a.pinService.StartExpiredCleanup(ctx, a.config.CleanupInterval)

	if a.sess.WipeActive() {
		printlnFn("Panic wipe flag is set; publishing stays paused.")
	}
	printlnFn("Welcome to showme CLI (type 'help' for commands)")

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))

	stopCleanup()
	a.poller.Stop()
	a.replicator.Stop()
	a.watcher.Stop()
	a.Close(ctx)
}

func (a *App) getStatus() string {
	s := "offline"
	if a.sess.Online() {
		s = "online"
	}
	if n := a.queue.Len(); n > 0 {
		s = fmt.Sprintf("%s q:%d", s, n)
	}
	if a.sess.WipeActive() {
		s += " wiped"
	}
	return fmt.Sprintf("(%s)", s)
}

func (a *App) Close(ctx context.Context) {
	if err := a.db.Close(); err != nil {
		a.log.Warn(ctx, "failed to close database", "error", err)
	}
	if err := a.kv.Close(); err != nil {
		a.log.Warn(ctx, "failed to close kvstore", "error", err)
	}
}
