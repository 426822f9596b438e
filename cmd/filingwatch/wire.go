package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/seenimoa/filingwatch/internal/config"
	"github.com/seenimoa/filingwatch/internal/edgar"
	"github.com/seenimoa/filingwatch/internal/fetch"
	"github.com/seenimoa/filingwatch/internal/infra"
	"github.com/seenimoa/filingwatch/internal/stream"
)

// buildClient assembles the fetcher, EDGAR client and poller from config.
// A missing or too-short User-Agent fails here rather than on first use.
func buildClient(cfg *config.Config, logger *slog.Logger) (*edgar.Client, *stream.Poller, error) {
	if err := fetch.ValidateUserAgent(cfg.Edgar.UserAgent); err != nil {
		return nil, nil, fmt.Errorf("%w (set FILINGWATCH_EDGAR_USER_AGENT or edgar.user_agent)", err)
	}

	fetcher := fetch.New(cfg.Edgar.UserAgent,
		fetch.WithHTTPClient(&http.Client{Timeout: cfg.Edgar.HTTPTimeout()}),
		fetch.WithMaxRetries(cfg.Edgar.MaxRetries),
		fetch.WithBackoff(cfg.Edgar.BaseDelay(), cfg.Edgar.Jitter()),
		fetch.WithRateLimiter(infra.NewRateLimiter(cfg.Edgar.RateLimit, time.Second)),
		fetch.WithLogger(logger),
	)

	endpoints := edgar.DefaultEndpoints()
	if cfg.Edgar.TickersURL != "" {
		endpoints.TickersURL = cfg.Edgar.TickersURL
	}
	if cfg.Edgar.SubmissionsURL != "" {
		endpoints.SubmissionsURL = cfg.Edgar.SubmissionsURL
	}
	if cfg.Edgar.ArchivesURL != "" {
		endpoints.ArchivesURL = cfg.Edgar.ArchivesURL
	}
	if cfg.Edgar.FeedURL != "" {
		endpoints.FeedURL = cfg.Edgar.FeedURL
	}

	client := edgar.NewClient(fetcher, edgar.ClientConfig{
		Endpoints:   endpoints,
		Logger:      logger,
		DocumentTTL: cfg.Cache.DocumentTTL(),
	})
	poller := stream.NewPoller(client,
		stream.WithSnapshotTTL(cfg.Cache.StreamTTL()),
		stream.WithIntervalBounds(cfg.Stream.MinInterval(), cfg.Stream.MaxInterval()),
		stream.WithLogger(logger),
	)
	return client, poller, nil
}
