package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"blindseeker/internal/config"
	"blindseeker/internal/extractor"
	"blindseeker/internal/logging"
	"blindseeker/internal/oracle"
	"blindseeker/internal/payload"
	"blindseeker/internal/report"
	"blindseeker/internal/store"
	"blindseeker/internal/transport"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runExtract performs a full extraction against the configured target.
func runExtract(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()
	boot := logging.For(logger, logging.CategoryBoot)

	builder, err := buildBuilder(cfg)
	if err != nil {
		return err
	}
	o, closeSession, err := buildOracle(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSession()

	boot.Info("Target", zap.String("url", cfg.Target.URL))
	boot.Info("Success indicator", zap.String("success", cfg.Oracle.Success))
	boot.Info("Threads", zap.Int("concurrency", cfg.Extraction.Concurrency))

	return execute(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Target.URL, o, builder)
}

// execute runs the engine over base, prints the report and records the run.
func execute(ctx context.Context, out, progressOut io.Writer, target string, base oracle.Oracle, b payload.Builder) error {
	engineLog := logging.For(logger, logging.CategoryEngine)
	printer := &progressPrinter{w: progressOut}
	runID := uuid.NewString()

	audit, err := openAudit()
	if err != nil {
		return err
	}
	defer audit.Close()
	audit.RunStart(runID, b.Expression())

	e := extractor.New(decorate(base, audit), b,
		extractor.WithRunID(runID),
		extractor.WithConcurrency(cfg.Extraction.Concurrency),
		extractor.WithMaxLength(cfg.Extraction.MaxLength),
		extractor.WithLogger(engineLog),
		extractor.WithLengthFound(printer.start),
		extractor.WithProgress(printer.found),
	)

	started := time.Now()
	rep, err := e.Extract(ctx)
	if err != nil {
		audit.RunEnd("", time.Since(started), err)
		if errors.Is(err, extractor.ErrLengthNotFound) {
			engineLog.Error("Could not determine length", zap.Int("max_length", cfg.Extraction.MaxLength))
		}
		recordRun(ctx, store.RunRecord{
			RunID:      runID,
			Target:     target,
			Oracle:     base.Name(),
			Expression: b.Expression(),
			Error:      err.Error(),
			CreatedAt:  started,
		})
		return err
	}

	audit.RunEnd(rep.Value, rep.Elapsed, nil)
	recordRun(ctx, store.RecordFromReport(target, rep))
	return report.Write(out, cfg.Output.Format, rep)
}

// decorate applies the configured audit trail and majority voting. The
// audit sees every raw ask, below voting.
func decorate(o oracle.Oracle, audit *logging.AuditLog) oracle.Oracle {
	return oracle.NewVoting(oracle.NewAudited(o, audit), cfg.Oracle.Votes)
}

// openAudit opens the configured audit file. No file configured yields a
// nil log, which discards events.
func openAudit() (*logging.AuditLog, error) {
	if cfg.Logging.AuditFile == "" {
		return nil, nil
	}
	return logging.OpenAudit(cfg.Logging.AuditFile)
}

// recordRun appends rec to the history database when one is configured.
// History failures are logged, never fatal.
func recordRun(ctx context.Context, rec store.RunRecord) {
	if cfg.Store.Path == "" {
		return
	}
	log := logging.For(logger, logging.CategoryStore)

	s, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		log.Warn("History unavailable", zap.Error(err))
		return
	}
	defer s.Close()

	if _, err := s.SaveRun(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn("Failed to record run", zap.Error(err))
	}
}

// buildBuilder renders payload templates for the configured dialect.
func buildBuilder(c *config.Config) (payload.Builder, error) {
	return payload.NewBuilder(payload.Options{
		Dialect:    c.Extraction.Dialect,
		Expression: c.Extraction.Expression,
		Prefix:     c.Extraction.Prefix,
		Suffix:     c.Extraction.Suffix,
	})
}

// buildOracle wires the HTTP session into the configured oracle kind.
// The returned func releases the session's idle connections. Voting and
// auditing are applied by decorate.
func buildOracle(c *config.Config, base *zap.Logger) (oracle.Oracle, func(), error) {
	match, err := oracle.ParseMatchMode(c.Oracle.Match)
	if err != nil {
		return nil, nil, err
	}

	sess, err := transport.NewSession(transport.Options{
		BaseURL:       c.Target.URL,
		Cookies:       transport.ParseCookies(c.Target.Cookie),
		Timeout:       c.GetRequestTimeout(),
		UserAgent:     c.Transport.UserAgent,
		RatePerSecond: c.Transport.RatePerSecond,
		MaxBodyBytes:  c.Transport.MaxBodyBytes,
		MaxConns:      c.Extraction.Concurrency,
		Logger:        logging.For(base, logging.CategoryTransport),
	})
	if err != nil {
		return nil, nil, err
	}

	policy := oracle.PolicyCoerceFalse
	if c.Oracle.Strict {
		policy = oracle.PolicyPropagate
	}
	o, err := oracle.New(c.Oracle.Kind, oracle.Params{
		Requester: sess,
		Param:     c.Target.Param,
		Fixed:     c.Target.FixedParams,
		Success:   c.Oracle.Success,
		Match:     match,
		Policy:    policy,
		Logger:    logging.For(base, logging.CategoryOracle),
	})
	if err != nil {
		sess.Close()
		return nil, nil, err
	}
	return o, sess.Close, nil
}

// progressPrinter writes one line per resolved position.
type progressPrinter struct {
	w   io.Writer
	mu  sync.Mutex
	bar *report.Progress
}

func (p *progressPrinter) start(length int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar = report.NewProgress(length)
}

func (p *progressPrinter) found(pos int, ch byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		fmt.Fprintln(p.w, report.ProgressLine(pos, ch))
		return
	}
	fmt.Fprintln(p.w, p.bar.Line(pos, ch))
}
