package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/illarion/filevault/internal/config"
	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/engine"
	"github.com/illarion/filevault/internal/index"
	"github.com/illarion/filevault/internal/keys"
	"github.com/illarion/filevault/internal/logging"
	"github.com/illarion/filevault/internal/shred"
	"github.com/illarion/filevault/internal/storage"
	"github.com/illarion/filevault/internal/versionstore"
)

// Globals are the flags accepted before the command name
type Globals struct {
	Store    string
	Config   string
	LogLevel string
}

// app is an opened store with the engine wired to it
type app struct {
	cfg      config.Config
	log      *slog.Logger
	db       *storage.DB
	keys     *keys.Manager
	store    *versionstore.Store
	index    *index.Index
	shredder *shred.Shredder
	engine   *engine.Engine
	storeID  string
}

// loadConfig resolves the configuration and builds the logger
func loadConfig(g Globals) (config.Config, *slog.Logger) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if g.Store != "" {
		cfg.Store = g.Store
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return cfg, logging.New(os.Stderr, level)
}

// openApp opens an initialized store or exits
func openApp(g Globals) *app {
	cfg, log := loadConfig(g)

	db, err := storage.Open(cfg.Store)
	if err != nil {
		HandleError(err)
	}
	initialized, err := db.IsInitialized()
	if err != nil {
		db.Close()
		HandleError(err)
	}
	if !initialized {
		db.Close()
		HandleError(storage.ErrNotInitialized)
	}

	a, err := wire(cfg, log, db)
	if err != nil {
		db.Close()
		HandleError(err)
	}
	return a
}

func wire(cfg config.Config, log *slog.Logger, db *storage.DB) (*app, error) {
	suite, err := crypto.ParseCipherSuite(cfg.Cipher)
	if err != nil {
		return nil, err
	}
	compression, err := versionstore.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	passes, err := shred.ParsePasses(cfg.Shred.Passes)
	if err != nil {
		return nil, err
	}
	storeID, err := db.StoreID()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		keys:     keys.NewManager(cfg.KDFParams(), log),
		store:    versionstore.New(db, log),
		index:    index.New(db, log),
		shredder: shred.New(passes, log),
		storeID:  storeID,
	}

	exclude := []string{db.Path()}
	if cfg.Keyring {
		exclude = append(exclude, config.DefaultPath())
	}
	a.engine = engine.New(a.keys, a.store, a.index, a.shredder, engine.Options{
		Cipher:      suite,
		Compression: compression,
		IORetries:   cfg.IORetries,
		Exclude:     exclude,
	}, log)
	return a, nil
}

// Close locks the key manager and closes the database
func (a *app) Close() {
	a.keys.Lock()
	a.db.Close()
}

// credential loads the stored master credential
func (a *app) credential() (*keys.Credential, error) {
	data, err := a.db.Credential()
	if err != nil {
		return nil, err
	}
	return keys.ParseCredential(data)
}

// unlock obtains the password and unlocks the key manager or exits. A
// password typed at the prompt may be offered for the keyring.
func (a *app) unlock() {
	cred, err := a.credential()
	if err != nil {
		HandleError(err)
	}

	password, source, err := GetPasswordWithRetry("Enter password: ", a.storeID, a.cfg.Keyring, func(p []byte) error {
		_, err := a.keys.Unlock(p, cred)
		return err
	})
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(password)

	if a.keys.NeedsUpgrade(cred) {
		fmt.Fprintf(os.Stderr, "warning: password hashing uses %s; run 'filevault passwd --upgrade'\n", cred.KDF)
	}
	if source == SourcePrompt && a.cfg.Keyring {
		OfferToSavePassword(a.storeID, password)
	}
}
