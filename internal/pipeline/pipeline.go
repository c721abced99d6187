// Package pipeline runs one extraction: resolve the contact's handles in
// chat.db, merge their messages and replace the output conversation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/imsgx/internal/archive"
	"github.com/matheus3301/imsgx/internal/bus"
	"github.com/matheus3301/imsgx/internal/chatdb"
	"github.com/matheus3301/imsgx/internal/config"
	"github.com/matheus3301/imsgx/internal/merge"
	"github.com/matheus3301/imsgx/internal/resolve"
	"github.com/matheus3301/imsgx/internal/status"
	"github.com/matheus3301/imsgx/internal/store"
	"go.uber.org/zap"
)

// ErrNoHandleMatch is returned when no handle matches the search term.
// Nothing is written in that case.
var ErrNoHandleMatch = errors.New("no handle matches search term")

// recentCount is how many of the newest records a Result carries.
const recentCount = 5

// Result describes a finished extraction.
type Result struct {
	Run     store.Run                  `json:"run"`
	Handles []chatdb.Handle            `json:"handles"`
	Primary chatdb.Handle              `json:"primary"`
	Stats   merge.Stats                `json:"stats"`
	Summary []store.ServiceCount       `json:"summary"`
	Recent  []store.ConversationRecord `json:"recent"`
}

// Progress is the payload of run.progress events.
type Progress struct {
	Stage status.Stage
	Count int
}

// Pipeline wires the decoder, resolver, merger and output store together.
type Pipeline struct {
	sourcePath string
	out        *store.DB
	decoder    *archive.Decoder
	resolver   *resolve.Resolver
	merger     *merge.Merger
	machine    *status.Machine
	bus        *bus.Bus
	logger     *zap.Logger
}

// New builds a Pipeline from cfg writing to out. b and machine may be nil.
func New(cfg *config.Config, out *store.DB, b *bus.Bus, machine *status.Machine, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if machine == nil {
		machine = status.NewMachine(b)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	decoder := NewDecoder(cfg)
	return &Pipeline{
		sourcePath: cfg.SourcePath,
		out:        out,
		decoder:    decoder,
		resolver:   resolve.New(resolve.WithMinSuffixDigits(cfg.MinSuffixDigits)),
		merger: merge.New(decoder,
			merge.WithLocation(loc),
			merge.WithWorkers(cfg.DecodeWorkers),
			merge.WithLogger(logger.Named("merge")),
		),
		machine: machine,
		bus:     b,
		logger:  logger,
	}, nil
}

// NewDecoder returns the attributedBody decoder configured by cfg.
func NewDecoder(cfg *config.Config) *archive.Decoder {
	return archive.New(
		archive.WithPlaceholder(cfg.AttachmentPlaceholder),
		archive.WithMinLength(cfg.MinTextLength),
	)
}

// Run extracts the conversation with the contact matching term and replaces
// the output with it.
func (p *Pipeline) Run(ctx context.Context, term string) (_ *Result, err error) {
	started := time.Now()
	if err := p.machine.Transition(status.Opening); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			p.machine.Fail()
			p.logger.Error("extraction failed", zap.String("term", term), zap.Error(err))
		}
	}()

	src, err := chatdb.Open(p.sourcePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()
	p.logger.Info("source opened", zap.String("path", p.sourcePath))

	if err := p.machine.Transition(status.Resolving); err != nil {
		return nil, err
	}
	handles, err := p.resolveHandles(ctx, src, term)
	if err != nil {
		return nil, err
	}
	p.progress(status.Resolving, len(handles))

	if err := p.machine.Transition(status.Reading); err != nil {
		return nil, err
	}
	msgs, err := src.MessagesForHandles(ctx, resolve.IDs(handles))
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	p.progress(status.Reading, len(msgs))

	if err := p.machine.Transition(status.Merging); err != nil {
		return nil, err
	}
	records, stats, err := p.merger.Merge(ctx, msgs, handles)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	p.progress(status.Merging, len(records))
	p.logger.Info("messages merged",
		zap.Int("total", stats.Total),
		zap.Int("included", stats.Included),
		zap.Int("dropped", stats.Dropped()),
		zap.Int("out_of_scope", stats.OutOfScope),
		zap.Int("duplicates", stats.Duplicates),
		zap.Any("decode_failures", stats.DecodeFailures))

	if err := p.machine.Transition(status.Writing); err != nil {
		return nil, err
	}
	run := store.Run{
		Term:       term,
		SourcePath: p.sourcePath,
		HandleIDs:  resolve.IDs(handles),
		Skipped:    stats.Dropped(),
		StartedAt:  started,
	}
	if err := p.out.ReplaceConversation(&run, records); err != nil {
		return nil, err
	}
	p.progress(status.Writing, run.Inserted)

	summary, err := p.out.Summary()
	if err != nil {
		return nil, fmt.Errorf("summarize output: %w", err)
	}
	recent, err := p.out.Recent(recentCount)
	if err != nil {
		return nil, fmt.Errorf("read recent output: %w", err)
	}

	if err := p.machine.Transition(status.Done); err != nil {
		return nil, err
	}
	primary, _ := resolve.Primary(handles)
	p.logger.Info("extraction finished",
		zap.String("run_id", run.ID),
		zap.Int("inserted", run.Inserted),
		zap.Int("skipped", run.Skipped),
		zap.Duration("elapsed", time.Since(started)))

	return &Result{
		Run:     run,
		Handles: handles,
		Primary: primary,
		Stats:   stats,
		Summary: summary,
		Recent:  recent,
	}, nil
}

// Handles lists the handles matching term without extracting anything.
func (p *Pipeline) Handles(ctx context.Context, term string) ([]chatdb.Handle, error) {
	src, err := chatdb.Open(p.sourcePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()
	return p.resolveHandles(ctx, src, term)
}

// Decoder returns the attributedBody decoder the pipeline uses.
func (p *Pipeline) Decoder() *archive.Decoder {
	return p.decoder
}

// Events subscribes to the run events of this pipeline: stage changes and
// progress counts. Without a bus the channel never delivers.
func (p *Pipeline) Events(bufSize int) (<-chan bus.Event, func()) {
	if p.bus == nil {
		return make(chan bus.Event), func() {}
	}
	return p.bus.Subscribe("run.", bufSize)
}

// Store returns the output database.
func (p *Pipeline) Store() *store.DB {
	return p.out
}

func (p *Pipeline) resolveHandles(ctx context.Context, src *chatdb.DB, term string) ([]chatdb.Handle, error) {
	all, err := src.Handles(ctx)
	if err != nil {
		return nil, fmt.Errorf("read handles: %w", err)
	}
	handles := p.resolver.Resolve(all, term)
	if len(handles) == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoHandleMatch, term)
	}
	for _, h := range handles {
		p.logger.Debug("handle matched",
			zap.Int64("rowid", h.RowID),
			zap.String("address", h.Address),
			zap.Stringer("service", h.Service),
			zap.Int64("messages", h.MessageCount))
	}
	return handles, nil
}

func (p *Pipeline) progress(stage status.Stage, count int) {
	p.bus.Emit(bus.KindRunProgress, Progress{Stage: stage, Count: count})
}
