package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shuttle/internal/assets"
	"shuttle/internal/bridge"
	"shuttle/internal/catalog"
	"shuttle/internal/config"
	"shuttle/internal/extract"
	"shuttle/internal/history"
	"shuttle/internal/logging"
	"shuttle/internal/notifications"
	"shuttle/internal/session"
)

// Result is the terminal outcome of one acquisition, delivered to the
// collaborator callback when the handshake resolves or fails.
type Result struct {
	AcquisitionID   int64
	AssetID         string
	Request         bridge.Request
	Completion      *bridge.Completion
	InlineThumbnail string
	HistoryEntry    *history.Entry
	AlreadyExisted  bool
	Err             error
}

// Collaborator receives pipeline outcomes for UI-facing layers.
type Collaborator interface {
	ImportFinished(Result)
}

// CollaboratorFunc adapts a plain function to the Collaborator interface.
type CollaboratorFunc func(Result)

// ImportFinished calls the wrapped function.
func (f CollaboratorFunc) ImportFinished(res Result) { f(res) }

// Pipeline drives artifacts through validation, extraction, and the
// request/completion handshake with the peer process.
type Pipeline struct {
	channel       *bridge.Channel
	catalog       *catalog.Store
	history       *history.Store
	identity      session.Identity
	notifier      notifications.Service
	collab        Collaborator
	logger        *slog.Logger
	thumbCacheDir string

	wg sync.WaitGroup
}

// New constructs a pipeline using the notifier derived from cfg and no
// collaborator callback.
func New(cfg *config.Config, channel *bridge.Channel, store *catalog.Store, hist *history.Store, identity session.Identity, logger *slog.Logger) *Pipeline {
	return NewWithCollaborators(cfg, channel, store, hist, identity, notifications.NewService(cfg), nil, logger)
}

// NewWithCollaborators constructs a pipeline with an explicit notifier and
// completion collaborator. The daemon uses this to fan completions out to
// connected status clients; tests use it to observe outcomes.
func NewWithCollaborators(cfg *config.Config, channel *bridge.Channel, store *catalog.Store, hist *history.Store, identity session.Identity, notifier notifications.Service, collab Collaborator, logger *slog.Logger) *Pipeline {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Pipeline{
		channel:       channel,
		catalog:       store,
		history:       hist,
		identity:      identity,
		notifier:      notifier,
		collab:        collab,
		logger:        logging.NewComponentLogger(logger, "importer"),
		thumbCacheDir: cfg.ThumbnailCacheDir(),
	}
}

// Acquire runs one artifact through the pipeline. All steps through the
// request write execute synchronously on the calling goroutine; the
// completion wait is armed in the background and its outcome reaches the
// collaborator callback, not the caller. The returned acquisition reflects
// the catalog row at the moment Acquire returns.
//
// The supplied context must outlive the completion wait; cancelling it
// abandons any in-flight waiter without touching the pending request file.
func (p *Pipeline) Acquire(ctx context.Context, artifactPath string) (*catalog.Acquisition, error) {
	artifactPath = strings.TrimSpace(artifactPath)
	if artifactPath == "" {
		return nil, errors.New("artifact path is empty")
	}

	bundlePath := ""
	target := artifactPath
	if extract.IsBundle(artifactPath) {
		bundlePath = artifactPath
		target = extract.DestinationFor(artifactPath)
	}

	logger := p.logger.With(logging.String(logging.FieldAssetPath, target))

	if existing, err := p.catalog.FindByAssetPath(ctx, target); err != nil {
		return nil, fmt.Errorf("look up acquisition: %w", err)
	} else if existing != nil && !existing.Status.Terminal() {
		logger.Debug("acquisition already in flight, skipping",
			logging.String("status", string(existing.Status)))
		return existing, nil
	}

	acq, err := p.catalog.NewAcquisition(ctx, target, bundlePath)
	if err != nil {
		return nil, fmt.Errorf("record acquisition: %w", err)
	}

	verdict := assets.Validate(target)
	alreadyExisted := verdict.Valid
	if !verdict.Valid {
		// Self-heal: a prior partial acquisition must never block this one.
		if _, statErr := os.Stat(target); statErr == nil {
			logger.Info("removing unusable prior asset folder",
				logging.String("reason", verdict.Reason))
			if rmErr := os.RemoveAll(target); rmErr != nil {
				p.markFailed(ctx, acq.ID, logger, fmt.Sprintf("remove prior folder: %v", rmErr))
				return p.catalog.GetByID(ctx, acq.ID)
			}
		}
		if bundlePath == "" {
			logger.Warn("asset folder failed validation", logging.String("reason", verdict.Reason))
			p.markFailed(ctx, acq.ID, logger, verdict.Reason)
			return p.catalog.GetByID(ctx, acq.ID)
		}

		dest, exErr := extract.Extract(ctx, bundlePath)
		if exErr != nil {
			p.reportExtractionFailure(ctx, logger, acq, bundlePath, exErr)
			return p.catalog.GetByID(ctx, acq.ID)
		}
		target = dest
		if rmErr := os.Remove(bundlePath); rmErr != nil {
			logger.Warn("extracted bundle not removed", logging.Error(rmErr))
		}

		verdict = assets.Validate(target)
		if !verdict.Valid {
			logger.Warn("extracted asset failed validation", logging.String("reason", verdict.Reason))
			if rmErr := os.RemoveAll(target); rmErr != nil {
				logger.Warn("invalid extracted folder not removed", logging.Error(rmErr))
			}
			p.markFailed(ctx, acq.ID, logger, verdict.Reason)
			return p.catalog.GetByID(ctx, acq.ID)
		}
	}

	meta := assets.ResolveMetadata(target)
	if err := p.catalog.MarkValidated(ctx, acq.ID, meta.Name, meta.Type, alreadyExisted); err != nil {
		logger.Warn("validated state not recorded", logging.Error(err))
	}

	req := bridge.Request{
		AssetPath:        target,
		ThumbnailPath:    assets.LocateThumbnail(target),
		AssetName:        meta.Name,
		AssetType:        meta.Type,
		SessionID:        p.identity.ID,
		RequestID:        uuid.NewString(),
		TimestampEpochMs: time.Now().UnixMilli(),
	}
	ctx = logging.WithAsset(ctx, meta.Name)
	ctx = logging.WithRequestID(ctx, req.RequestID)
	logger = logging.WithContext(ctx, logger)
	if p.identity.Degraded() {
		logger.Warn("publishing import request without a session id, any peer may consume it")
	}

	if err := p.channel.Publish(req); err != nil {
		p.markFailed(ctx, acq.ID, logger, fmt.Sprintf("request write failed: %v", err))
		return nil, fmt.Errorf("publish import request: %w", err)
	}
	if err := p.catalog.MarkRequested(ctx, acq.ID, p.identity.ID, req.RequestID); err != nil {
		logger.Warn("requested state not recorded", logging.Error(err))
	}
	logger.Info("import request published", logging.Bool("already_existed", alreadyExisted))

	p.wg.Add(1)
	go p.awaitCompletion(ctx, logger, acq.ID, acq.AssetID, req, alreadyExisted)

	return p.catalog.GetByID(ctx, acq.ID)
}

// Wait blocks until every armed completion waiter has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) awaitCompletion(ctx context.Context, logger *slog.Logger, id int64, assetID string, req bridge.Request, alreadyExisted bool) {
	defer p.wg.Done()

	comp, err := p.channel.Await(ctx, req.AssetPath)
	if err != nil {
		if errors.Is(err, bridge.ErrNoResponse) {
			reason := bridge.ErrNoResponse.Error()
			logger.Error("import request expired without a completion")
			p.markFailed(ctx, id, logger, reason)
			if nerr := p.notifier.NotifyImportFailed(ctx, req.AssetName, reason); nerr != nil {
				logger.Warn("import failure notification not sent", logging.Error(nerr))
			}
			p.finish(Result{
				AcquisitionID:  id,
				AssetID:        assetID,
				Request:        req,
				AlreadyExisted: alreadyExisted,
				Err:            err,
			})
			return
		}
		// Shutdown abandons the wait; the pending request file stays put.
		logger.Debug("completion wait abandoned", logging.Error(err))
		return
	}

	name := comp.AssetName
	if name == "" {
		name = req.AssetName
	}
	thumbSource := comp.ThumbnailPath
	if thumbSource == "" {
		thumbSource = req.ThumbnailPath
	}

	inline := ""
	cached := ""
	if thumbSource != "" {
		if encoded, encErr := assets.InlineThumbnail(thumbSource); encErr != nil {
			logger.Warn("thumbnail not inlined", logging.Error(encErr))
		} else {
			inline = encoded
		}
		if copied, copyErr := assets.CacheThumbnail(thumbSource, p.thumbCacheDir, assetID); copyErr != nil {
			logger.Warn("thumbnail not cached", logging.Error(copyErr))
		} else {
			cached = copied
		}
	}

	entry, histErr := p.history.Add(history.Entry{
		AssetID:                assetID,
		AssetName:              name,
		AssetType:              req.AssetType,
		AssetPath:              req.AssetPath,
		Thumbnail:              thumbSource,
		CachedThumbnail:        cached,
		ImportTimestampEpochMs: time.Now().UnixMilli(),
	})
	if histErr != nil {
		logger.Warn("import history not updated", logging.Error(histErr))
	}

	if err := p.catalog.MarkImported(ctx, id); err != nil {
		logger.Warn("imported state not recorded", logging.Error(err))
	}
	if nerr := p.notifier.NotifyImportCompleted(ctx, name, req.AssetType); nerr != nil {
		logger.Warn("import notification not sent", logging.Error(nerr))
	}
	logger.Info("import completed")

	p.finish(Result{
		AcquisitionID:   id,
		AssetID:         assetID,
		Request:         req,
		Completion:      comp,
		InlineThumbnail: inline,
		HistoryEntry:    &entry,
		AlreadyExisted:  alreadyExisted,
	})
}

// reportExtractionFailure records and surfaces a failed extraction. The
// collaborator still receives an outcome so the UI is not left hanging; it
// carries the un-extracted bundle path and the error flag.
func (p *Pipeline) reportExtractionFailure(ctx context.Context, logger *slog.Logger, acq *catalog.Acquisition, bundlePath string, exErr error) {
	logger.Error("bundle extraction failed", logging.Error(exErr))
	p.markFailed(ctx, acq.ID, logger, fmt.Sprintf("extraction failed: %v", exErr))
	if nerr := p.notifier.NotifyImportFailed(ctx, filepath.Base(bundlePath), exErr.Error()); nerr != nil {
		logger.Warn("import failure notification not sent", logging.Error(nerr))
	}
	p.finish(Result{
		AcquisitionID: acq.ID,
		AssetID:       acq.AssetID,
		Request:       bridge.Request{AssetPath: bundlePath, AssetName: filepath.Base(bundlePath)},
		Err:           exErr,
	})
}

func (p *Pipeline) markFailed(ctx context.Context, id int64, logger *slog.Logger, reason string) {
	if err := p.catalog.MarkFailed(ctx, id, reason); err != nil {
		logger.Warn("failed state not recorded", logging.Error(err))
	}
}

func (p *Pipeline) finish(res Result) {
	if p.collab == nil {
		return
	}
	p.collab.ImportFinished(res)
}
