package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/rs/zerolog/log"

	"musicfree/internal/app/playlists"
	"musicfree/internal/assets"
	"musicfree/internal/auth"
	"musicfree/internal/config"
	"musicfree/internal/github"
	"musicfree/internal/gitrepo"
	"musicfree/internal/httpapi"
	"musicfree/internal/store"
	"musicfree/internal/syncer"
)

type app struct {
	runner  *syncer.Runner
	handler http.Handler
	db      *sql.DB
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	defaults := syncer.Params{
		RepoURL:   cfg.Sync.RepoURL,
		Token:     cfg.Sync.Token,
		Transport: syncer.Transport(cfg.Sync.Transport),
		Interval:  cfg.Sync.Interval,
	}

	var stateStore syncer.Store
	if cfg.Database.URL != "" {
		db, err := store.Connect(ctx, cfg.Database.URL, store.ConnectOptions{})
		if err != nil {
			return nil, err
		}
		a.db = db
		if cfg.Database.AutoMigrate {
			if err := store.Migrate(db, store.Up); err != nil {
				a.Close()
				return nil, err
			}
		}
		stateStore = store.NewPG(db, defaults)
		log.Info().Msg("using postgres state store")
	} else {
		stateStore = store.NewFile(osfs.New(cfg.Storage.DataDir), defaults)
		log.Info().Str("data_dir", cfg.Storage.DataDir).Msg("using file state store")
	}

	assetStore := assets.New(osfs.New(cfg.Storage.DataDir), nil)

	githubClient := github.NewClient(
		github.WithBaseURL(cfg.Sync.GitHubAPIURL),
		github.WithBranch(cfg.Sync.GitBranch),
	)
	gitClient := gitrepo.NewClient(
		gitrepo.WithHost(cfg.Sync.GitHost),
		gitrepo.WithBranch(cfg.Sync.GitBranch),
	)

	s := syncer.New(githubClient, assetStore, syncer.WithTransport(syncer.TransportGit, gitClient))
	a.runner = syncer.NewRunner(s, stateStore)

	if err := a.checkState(ctx); err != nil {
		a.Close()
		return nil, err
	}

	tokens := auth.NewManager(cfg.Security.JWTSecret, cfg.Security.AdminPasswordHash, cfg.Security.TokenTTL)
	librarySvc := playlists.New(a.runner, assetStore)
	a.handler = httpapi.New(tokens, librarySvc, a.runner, cfg.CORS.AllowedOrigins).Routes()

	return a, nil
}

// checkState fails fast when the stored library cannot be read.
func (a *app) checkState(ctx context.Context) error {
	if _, err := a.runner.Library(ctx); err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	params, err := a.runner.Params(ctx)
	if err != nil {
		return fmt.Errorf("load sync params: %w", err)
	}
	if !params.Configured() {
		log.Warn().Msg("no sync repository configured, set one through the API")
	}
	return nil
}
