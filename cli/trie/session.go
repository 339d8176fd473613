package trie

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/ethtrie/cli/options"
	"github.com/nspcc-dev/ethtrie/pkg/config"
	"github.com/nspcc-dev/ethtrie/pkg/core/mpt"
	"github.com/nspcc-dev/ethtrie/pkg/core/storage"
	"github.com/nspcc-dev/ethtrie/pkg/util"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// dbVersion is the version of the storage layout written by this tool.
const dbVersion = "0.1.0"

// keyedTrie is implemented by both plain and secure tries.
type keyedTrie interface {
	Insert(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Remove(key []byte) (bool, error)
	Root() (util.Uint256, error)
	GetProof(key []byte) ([][]byte, error)
}

// session is a trie opened over the configured storage.
type session struct {
	log    *zap.Logger
	store  storage.Store
	trie   *mpt.Trie
	keyed  keyedTrie
	logEnd func() error
}

// openSession reads configuration, sets up logging and storage and opens the
// trie at the root given by --root flag or the last saved one.
func openSession(ctx *cli.Context) (*session, error) {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return nil, err
	}
	log, _, logCloser, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.Logger)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		closeLogger(log, logCloser)
		return nil, fmt.Errorf("could not initialize storage: %w", err)
	}
	s := &session{
		log:    log,
		store:  store,
		logEnd: logCloser,
	}
	if err := checkVersion(store); err != nil {
		s.Close()
		return nil, err
	}
	root, err := s.getRoot(ctx.String("root"))
	if err != nil {
		s.Close()
		return nil, err
	}
	mptCfg, err := newTrieConfig(store, cfg.Trie, log)
	if err != nil {
		s.Close()
		return nil, err
	}
	if cfg.Trie.SecureKeys {
		st, err := mpt.OpenSecureTrie(root, mptCfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.trie, s.keyed = st.Trie(), st
	} else {
		t, err := mpt.OpenTrie(root, mptCfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.trie, s.keyed = t, t
	}
	log.Debug("trie opened",
		zap.String("storage", cfg.Storage.Type),
		zap.Stringer("root", root),
		zap.Bool("secure", cfg.Trie.SecureKeys))
	return s, nil
}

func closeLogger(log *zap.Logger, closer func() error) {
	_ = log.Sync()
	if closer != nil {
		_ = closer()
	}
}

// newTrieConfig builds node store stack according to cfg.
func newTrieConfig(store storage.Store, cfg config.TrieConfiguration, log *zap.Logger) (mpt.Config, error) {
	var nodes mpt.Store = mpt.NewStorageAdapter(store)
	if cfg.CleanCacheMB > 0 {
		nodes = mpt.NewCleanCache(nodes, cfg.CleanCacheMB)
	}
	if cfg.CacheSize > 0 {
		cached, err := mpt.NewCachedStore(nodes, cfg.CacheSize)
		if err != nil {
			return mpt.Config{}, err
		}
		nodes = cached
	}
	return mpt.Config{
		Store:       nodes,
		Log:         log,
		VerifyNodes: cfg.VerifyNodes,
	}, nil
}

// checkVersion ensures storage layout is compatible, the version is written
// into an empty storage.
func checkVersion(store storage.Store) error {
	version, err := store.Get(storage.SYSVersion.Bytes())
	if errors.Is(err, storage.ErrKeyNotFound) {
		return store.Put(storage.SYSVersion.Bytes(), []byte(dbVersion))
	}
	if err != nil {
		return fmt.Errorf("failed to get storage version: %w", err)
	}
	if string(version) != dbVersion {
		return fmt.Errorf("storage version mismatch: %s, expected %s", version, dbVersion)
	}
	return nil
}

// getRoot returns root from the hex string or the last saved one if it's
// empty. EmptyRoot is returned for a fresh storage.
func (s *session) getRoot(hexRoot string) (util.Uint256, error) {
	if hexRoot != "" {
		root, err := util.Uint256DecodeStringBE(hexRoot)
		if err != nil {
			return util.Uint256{}, fmt.Errorf("invalid root: %w", err)
		}
		return root, nil
	}
	data, err := s.store.Get(storage.SYSCurrentRoot.Bytes())
	if errors.Is(err, storage.ErrKeyNotFound) {
		return mpt.EmptyRoot, nil
	}
	if err != nil {
		return util.Uint256{}, fmt.Errorf("failed to get current root: %w", err)
	}
	return util.Uint256DecodeBytesBE(data)
}

// commit calculates the new root and saves it as the current one.
func (s *session) commit() (util.Uint256, error) {
	root, err := s.keyed.Root()
	if err != nil {
		return root, err
	}
	if err := s.store.Put(storage.SYSCurrentRoot.Bytes(), root.BytesBE()); err != nil {
		return root, fmt.Errorf("failed to save current root: %w", err)
	}
	s.log.Info("trie committed", zap.Stringer("root", root))
	return root, nil
}

// Close releases storage and logger.
func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.log.Warn("failed to close storage", zap.Error(err))
	}
	closeLogger(s.log, s.logEnd)
}
