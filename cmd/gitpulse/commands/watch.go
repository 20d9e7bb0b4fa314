package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitpulse/pkg/asyncgit"
	"github.com/Sumatoshi-tech/gitpulse/pkg/asyncjob"
	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitpulse/pkg/observability"
)

const (
	defaultWatchLogLimit = 10
	metricsPath          = "/metrics"
	serverTimeout        = 5 * time.Second
)

type watchOptions struct {
	scope      string
	untracked  string
	limit      int
	maxUpdates int
}

// watchUpdate is one rendered job completion.
type watchUpdate struct {
	Kind  string `json:"kind" yaml:"kind"`
	Tick  uint64 `json:"tick" yaml:"tick"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
	Data  any    `json:"data,omitempty" yaml:"data,omitempty"`
}

func (a *app) newWatchCommand() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   watchCmdName,
		Short: "Poll the repository and print status, history, stashes and worktrees as they change",
		Long: `watch rescans the working tree, the recent history, the stash list and the
linked worktrees every jobs.tick. Queries run on a bounded worker pool and each completed query is
printed as it arrives. The files of the newest commit follow every history
refresh.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runWatch(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.scope, "scope", "both", "Which changes to list: workdir, stage, both")
	cmd.Flags().StringVar(&opts.untracked, "untracked", "", "Untracked files: no, normal, all (default: from config)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", defaultWatchLogLimit, "Commits to show in the history panel")
	cmd.Flags().IntVar(&opts.maxUpdates, "max-updates", 0, "Exit after this many job completions (0 = run until interrupted)")
	cmd.Flags().StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides telemetry.metrics_addr)")

	return cmd
}

type watcher struct {
	render   *renderer
	logger   *slog.Logger
	jobs     *asyncgit.Jobs
	notifier *asyncjob.Notifier

	status asyncgit.StatusParams
	log    asyncgit.LogParams
	tick   uint64

	updates    int
	maxUpdates int
}

func (a *app) runWatch(ctx context.Context, opts watchOptions) error {
	scope, err := gitlib.ParseStatusScope(opts.scope)
	if err != nil {
		return fmt.Errorf("--scope: %w", err)
	}

	policy, err := a.policy(opts.untracked)
	if err != nil {
		return err
	}

	repo, err := gitlib.OpenRepository(a.repo())
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	repo.Free()

	logger := a.logger()

	metrics, err := observability.NewJobMetrics(a.providers.Meter)
	if err != nil {
		return fmt.Errorf("create job metrics: %w", err)
	}

	stopServer, err := a.serveMetrics(ctx, logger)
	if err != nil {
		return err
	}
	defer stopServer()

	pool := asyncjob.NewPool(a.cfg.Jobs.Workers)
	notifier := asyncjob.NewNotifier(a.cfg.Jobs.NotifyBuffer)

	defer func() {
		pool.Stop()
		notifier.Close()

		logger.DebugContext(ctx, "watch stopped", slog.Int64("dropped_notifications", notifier.Dropped()))
	}()

	w := &watcher{
		render: a.render,
		logger: logger,
		jobs: asyncgit.NewJobs(a.repo(), asyncjob.Deps{
			Executor: pool,
			Notifier: notifier,
			Logger:   logger,
			Metrics:  metrics,
			Tracer:   a.providers.Tracer,
		}),
		notifier:   notifier,
		status:     asyncgit.StatusParams{Scope: scope, Untracked: policy},
		log:        asyncgit.LogParams{Limit: opts.limit},
		maxUpdates: opts.maxUpdates,
	}

	logger.InfoContext(ctx, "watching repository",
		slog.Int("workers", pool.Size()),
		slog.Duration("tick", a.cfg.Jobs.Tick),
	)

	return w.loop(ctx, a.cfg.Jobs.Tick)
}

func (w *watcher) loop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	err := w.refresh(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.tick++

			err = w.refresh(ctx)
			if err != nil {
				return err
			}
		case note, ok := <-w.notifier.C():
			if !ok {
				return nil
			}

			err = w.handle(ctx, note)
			if err != nil {
				return err
			}

			w.updates++
			if w.maxUpdates > 0 && w.updates >= w.maxUpdates {
				return nil
			}
		}
	}
}

// refresh requests a rescan of every polled panel. Slots that are still busy
// skip the request.
func (w *watcher) refresh(ctx context.Context) error {
	w.status.Tick = w.tick
	w.log.Tick = w.tick

	return errors.Join(
		w.jobs.Status.Fetch(ctx, w.status),
		w.jobs.Log.Fetch(ctx, w.log),
		w.jobs.StashList.Fetch(ctx, asyncgit.StashListParams{Tick: w.tick}),
		w.jobs.Worktrees.Fetch(ctx, asyncgit.WorktreesParams{Tick: w.tick}),
	)
}

func (w *watcher) handle(ctx context.Context, note asyncjob.Notification) error {
	update := watchUpdate{Kind: note.Kind.String(), Tick: w.tick}

	if note.Failed() {
		update.Error = note.Err.Error()

		return w.emit(update, nil)
	}

	switch note.Kind {
	case asyncjob.KindStatus:
		_, items, _ := w.jobs.Status.Current()
		update.Data = items

		return w.emit(update, func(out io.Writer) error {
			return writeStatusItems(out, items, "working tree clean")
		})
	case asyncjob.KindLog:
		_, commits, _ := w.jobs.Log.Current()
		update.Data = commits

		if len(commits) > 0 {
			err := w.jobs.CommitFiles.Fetch(ctx, asyncgit.CommitFilesParams{ID: commits[0].ID})
			if err != nil {
				return err
			}
		}

		return w.emit(update, func(out io.Writer) error {
			return writeCommits(out, commits)
		})
	case asyncjob.KindCommitFiles:
		params, items, _ := w.jobs.CommitFiles.Current()
		update.Data = items

		return w.emit(update, func(out io.Writer) error {
			headingColor.Fprintf(out, "files of %s\n", params.ID.Short())

			return writeStatusItems(out, items, "no changes")
		})
	case asyncjob.KindStashList:
		_, entries, _ := w.jobs.StashList.Current()
		update.Data = entries

		return w.emit(update, func(out io.Writer) error {
			return writeStashes(out, entries)
		})
	case asyncjob.KindWorktrees:
		_, worktrees, _ := w.jobs.Worktrees.Current()
		update.Data = worktrees

		return w.emit(update, func(out io.Writer) error {
			return writeWorktrees(out, worktrees)
		})
	default:
		w.logger.DebugContext(ctx, "ignoring notification", slog.String("kind", update.Kind))

		return nil
	}
}

func (w *watcher) emit(update watchUpdate, body func(io.Writer) error) error {
	return w.render.emit(update, func(out io.Writer) error {
		headingColor.Fprintf(out, "== %s (tick %d) ==\n", update.Kind, update.Tick)

		if update.Error != "" {
			failureColor.Fprintln(out, update.Error)

			return nil
		}

		return body(out)
	})
}

// serveMetrics exposes the Prometheus handler when a metrics address is
// configured. The returned func stops the server.
func (a *app) serveMetrics(ctx context.Context, logger *slog.Logger) (func(), error) {
	addr := a.cfg.Telemetry.MetricsAddr
	if addr == "" || a.providers.MetricsHandler == nil {
		return func() {}, nil
	}

	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, observability.HTTPMiddleware(a.providers.Tracer, logger, a.providers.MetricsHandler))

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: serverTimeout}

	go func() {
		serveErr := srv.Serve(ln)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", slog.String("error", serveErr.Error()))
		}
	}()

	logger.InfoContext(ctx, "serving metrics", slog.String("addr", ln.Addr().String()+metricsPath))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			logger.Warn("metrics server shutdown", slog.String("error", err.Error()))
		}
	}, nil
}
