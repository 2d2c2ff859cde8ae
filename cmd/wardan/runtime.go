package main

import (
	"context"
	"net/http"

	"wardan/internal/agent"
	"wardan/internal/auth"
	"wardan/internal/client"
	"wardan/internal/config"
	"wardan/internal/logging"
	"wardan/internal/session"
	"wardan/internal/store"
)

// clientRuntime is the per-invocation wiring shared by every command: one
// store backing both the session token and the credential.
type clientRuntime struct {
	cfg      config.Config
	store    store.Store
	sessions *session.Provider
	auth     *auth.Manager
	client   *client.Client
	logger   logging.Logger
}

func (w commandWiring) openRuntime(logger logging.Logger) (*clientRuntime, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	cfg, err := w.loadConfig()
	if err != nil {
		return nil, err
	}
	var st store.Store
	if w.ephemeral != nil && *w.ephemeral {
		st = store.NewMemoryStore()
	} else if st, err = w.openStore(cfg); err != nil {
		return nil, err
	}
	manager := auth.NewManager(st, logger)
	return &clientRuntime{
		cfg:      cfg,
		store:    st,
		sessions: session.NewProvider(st, logger),
		auth:     manager,
		client: client.New(client.Options{
			BaseURL:   cfg.BaseURL(),
			QueryPath: cfg.QueryPath(),
			LoginPath: cfg.LoginPath(),
			MePath:    cfg.MePath(),
			Timeout:   cfg.RequestTimeout(),
			Tokens:    manager,
			Logger:    logger,
		}),
		logger: logger,
	}, nil
}

func (rt *clientRuntime) Close() error {
	return rt.store.Close()
}

func (rt *clientRuntime) newPanel(recorder agent.Recorder) *agent.Panel {
	return agent.NewPanel(agent.Options{
		Session:       rt.sessions,
		OneShot:       rt.client,
		Dial:          rt.dial,
		Auth:          rt.auth,
		DefaultEntity: rt.cfg.DefaultEntity(),
		Timeout:       rt.cfg.RequestTimeout(),
		DialTimeout:   rt.cfg.DialTimeout(),
		Recorder:      recorder,
		Logger:        rt.logger,
	})
}

func (rt *clientRuntime) dial(ctx context.Context) (agent.Channel, error) {
	url, err := rt.cfg.ChannelURL()
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if value := rt.auth.AuthHeader(); value != "" {
		header.Set("Authorization", value)
	}
	ch, err := client.Dial(ctx, url, client.DialOptions{
		Header:  header,
		Timeout: rt.cfg.DialTimeout(),
		Logger:  rt.logger,
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}
