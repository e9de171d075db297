package cli

import (
	"database/sql"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chrisskurda/csv-to-dg/internal/config"
	"github.com/chrisskurda/csv-to-dg/internal/db"
	"github.com/chrisskurda/csv-to-dg/internal/db/repository"
	"github.com/chrisskurda/csv-to-dg/internal/directory"
	"github.com/chrisskurda/csv-to-dg/internal/domain"
	"github.com/chrisskurda/csv-to-dg/internal/notify"
	"github.com/chrisskurda/csv-to-dg/internal/roster"
	"github.com/chrisskurda/csv-to-dg/internal/sync"
)

// app bundles the wired collaborators for one invocation. historyDB and
// history are nil when history persistence is disabled; dirClient and
// service are nil for history-only commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	logPath string

	historyDB *sql.DB
	history   domain.HistoryStore
	dirClient *directory.Client
	service   *sync.Service
}

func (a *app) close() {
	if a.dirClient != nil {
		a.dirClient.Close()
	}
	if a.historyDB != nil {
		_ = a.historyDB.Close()
	}
}

// openHistory opens and migrates the history database when enabled.
func openHistory(cfg *config.Config) (*sql.DB, domain.HistoryStore, error) {
	if !cfg.History.Enabled {
		return nil, nil, nil
	}
	database, err := db.Open(cfg.History.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.RunMigrations(database); err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	return database, repository.NewHistoryRepo(database), nil
}

// newHistoryApp wires config, logging, and the history store only —
// enough for the query commands.
func newHistoryApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, logPath, err := newLogger(cfg, time.Now())
	if err != nil {
		return nil, err
	}
	historyDB, history, err := openHistory(cfg)
	if err != nil {
		return nil, err
	}
	if history == nil {
		return nil, domain.ErrValidation("history persistence is disabled (history.enabled)")
	}
	return &app{cfg: cfg, logger: logger, logPath: logPath, historyDB: historyDB, history: history}, nil
}

// newSyncApp wires the full pipeline: directory client, notifier,
// reducer, history store, and the sync service.
func newSyncApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	logger, logPath, err := newLogger(cfg, now)
	if err != nil {
		return nil, err
	}

	historyDB, history, err := openHistory(cfg)
	if err != nil {
		return nil, err
	}

	dirClient, err := directory.Dial(directory.Options{
		Server:       cfg.Directory.Server,
		Port:         cfg.Directory.Port,
		UseTLS:       cfg.Directory.UseTLS,
		BindDN:       cfg.Directory.BindDN,
		BindPassword: cfg.Directory.BindPassword,
		UserBaseDN:   cfg.Directory.UserBaseDN,
		GroupBaseDN:  cfg.Group.OUPath,
		Timeout:      cfg.Directory.Timeout,
	}, logger)
	if err != nil {
		if historyDB != nil {
			_ = historyDB.Close()
		}
		return nil, err
	}

	var notifier domain.Notifier
	if cfg.Notify.Enabled {
		notifier = notify.NewMailer(notify.Options{
			Host:     cfg.Notify.Host,
			Port:     cfg.Notify.Port,
			Username: cfg.Notify.Username,
			Password: cfg.Notify.Password,
			From:     cfg.Notify.From,
			To:       cfg.Notify.To,
		}, logger)
	}

	reducer, err := roster.NewReducer(cfg.Roster.Columns, cfg.Roster.OutputDir, logger)
	if err != nil {
		dirClient.Close()
		if historyDB != nil {
			_ = historyDB.Close()
		}
		return nil, err
	}

	svc := sync.New(cfg, dirClient, notifier, history, reducer, logger, logPath)
	return &app{
		cfg:       cfg,
		logger:    logger,
		logPath:   logPath,
		historyDB: historyDB,
		history:   history,
		dirClient: dirClient,
		service:   svc,
	}, nil
}
