package main

import (
	"context"
	"os"
	"time"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leadgrid/prospect-cli/internal/job"
	"github.com/leadgrid/prospect-cli/internal/prospect"
	"github.com/leadgrid/prospect-cli/internal/store"
	"github.com/leadgrid/prospect-cli/pkg/contacts"
	"github.com/leadgrid/prospect-cli/pkg/directory"
	"github.com/leadgrid/prospect-cli/pkg/emailfinder"
	"github.com/leadgrid/prospect-cli/pkg/registry"
	sfpkg "github.com/leadgrid/prospect-cli/pkg/salesforce"
	"github.com/leadgrid/prospect-cli/pkg/websearch"
)

// appEnv bundles the wired application: store, discovery pipeline and
// job runner. Close releases the store.
type appEnv struct {
	Store    store.Store
	Pipeline *prospect.Pipeline
	Runner   *job.Runner
	Vocab    *prospect.Vocab
}

func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	vocab := loadVocab()

	dir := directory.NewClient(cfg.Directory.Key, directory.WithBaseURL(cfg.Directory.BaseURL))
	web := websearch.NewClient(cfg.WebSearch.Key, websearch.WithBaseURL(cfg.WebSearch.BaseURL))
	reg := registry.NewClient(cfg.Registry.Key, registry.WithBaseURL(cfg.Registry.BaseURL))
	con := contacts.NewClient(cfg.Contacts.Key, contacts.WithBaseURL(cfg.Contacts.BaseURL))
	em := emailfinder.NewClient(cfg.EmailFinder.Key, emailfinder.WithBaseURL(cfg.EmailFinder.BaseURL))

	collector := prospect.NewCollector(dir, web, vocab, cfg.Directory.RateLimit)
	enricher := prospect.NewEnricher(reg, con, em,
		cfg.Pipeline.Concurrency,
		time.Duration(cfg.Pipeline.EnrichTimeoutSecs)*time.Second)
	scorer := prospect.NewScorer(vocab)
	pipeline := prospect.NewPipeline(collector, enricher, scorer, st, vocab, cfg.Pipeline)

	return &appEnv{
		Store:    st,
		Pipeline: pipeline,
		Runner:   job.NewRunner(st, pipeline),
		Vocab:    vocab,
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "prospect.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// loadVocab reads the sector vocabulary file when configured, falling
// back to the built-in table.
func loadVocab() *prospect.Vocab {
	if cfg.Sectors.Path == "" {
		return prospect.DefaultVocab()
	}
	vocab, err := prospect.LoadVocab(cfg.Sectors.Path)
	if err != nil {
		zap.L().Warn("sector vocabulary load failed, using built-in table",
			zap.String("path", cfg.Sectors.Path), zap.Error(err))
		return prospect.DefaultVocab()
	}
	return vocab
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (PROSPECT_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf), nil
}
