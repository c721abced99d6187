// Package merge turns raw chat.db messages into the ordered conversation
// written to the output store.
package merge

import (
	"cmp"
	"context"
	"errors"
	"runtime"
	"slices"
	"time"

	"github.com/matheus3301/imsgx/internal/archive"
	"github.com/matheus3301/imsgx/internal/chatdb"
	"github.com/matheus3301/imsgx/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TextDecoder recovers plain text from an attributedBody blob.
type TextDecoder interface {
	Decode(blob []byte) (string, error)
}

// Stats counts what happened to each input message.
type Stats struct {
	Total      int `json:"total"`
	Included   int `json:"included"`
	OutOfScope int `json:"out_of_scope"`
	Duplicates int `json:"duplicates"`
	// Empty counts in-scope messages with neither text nor attributedBody.
	Empty int `json:"empty"`
	// DecodeFailures counts attributedBody decode errors by kind.
	DecodeFailures map[string]int `json:"decode_failures,omitempty"`
}

// Dropped is the number of in-scope messages that produced no record.
func (s Stats) Dropped() int {
	n := s.Empty
	for _, c := range s.DecodeFailures {
		n += c
	}
	return n
}

// Merger builds conversation records from messages.
type Merger struct {
	decoder TextDecoder
	loc     *time.Location
	workers int
	logger  *zap.Logger
}

// Option configures a Merger.
type Option func(*Merger)

// WithLocation sets the zone formatted_date is rendered in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(m *Merger) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithWorkers bounds how many attributedBody blobs are decoded at once.
func WithWorkers(n int) Option {
	return func(m *Merger) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithLogger sets the logger used for per-message decode failures.
func WithLogger(l *zap.Logger) Option {
	return func(m *Merger) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Merger that decodes attributedBody with decoder.
func New(decoder TextDecoder, opts ...Option) *Merger {
	m := &Merger{
		decoder: decoder,
		loc:     time.Local,
		workers: runtime.GOMAXPROCS(0),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type resolved struct {
	text string
	err  error
}

// Merge keeps the messages sent by one of handles or by the local user,
// resolves their text and returns them ordered by date then row id.
// Messages without text are dropped and counted. Only ctx cancellation
// returns an error.
func (m *Merger) Merge(ctx context.Context, msgs []chatdb.Message, handles []chatdb.Handle) ([]store.ConversationRecord, Stats, error) {
	stats := Stats{Total: len(msgs), DecodeFailures: map[string]int{}}

	inSet := make(map[int64]bool, len(handles))
	for _, h := range handles {
		inSet[h.RowID] = true
	}

	var scoped []chatdb.Message
	seen := make(map[int64]int, len(msgs))
	for _, msg := range msgs {
		if !msg.IsFromMe && !(msg.HandleID.Valid && inSet[msg.HandleID.Int64]) {
			stats.OutOfScope++
			continue
		}
		if i, ok := seen[msg.RowID]; ok {
			stats.Duplicates++
			if msg.Service.Rank() < scoped[i].Service.Rank() {
				scoped[i].Service = msg.Service
			}
			continue
		}
		seen[msg.RowID] = len(scoped)
		scoped = append(scoped, msg)
	}

	texts := make([]resolved, len(scoped))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, msg := range scoped {
		if msg.Text.Valid && msg.Text.String != "" {
			texts[i] = resolved{text: msg.Text.String}
			continue
		}
		if len(msg.AttributedBody) == 0 {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := m.decoder.Decode(msg.AttributedBody)
			texts[i] = resolved{text: text, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	records := make([]store.ConversationRecord, 0, len(scoped))
	for i, msg := range scoped {
		r := texts[i]
		switch {
		case r.err != nil:
			kind := FailureKind(r.err)
			stats.DecodeFailures[kind]++
			m.logger.Debug("attributedBody not decoded",
				zap.Int64("rowid", msg.RowID), zap.String("kind", kind), zap.Error(r.err))
			continue
		case r.text == "":
			stats.Empty++
			continue
		}
		records = append(records, store.ConversationRecord{
			IsSent:        msg.IsFromMe,
			Text:          r.text,
			Timestamp:     msg.Date,
			FormattedDate: FormatLocal(msg.Date, m.loc),
			Service:       msg.Service.String(),
			SourceRowID:   msg.RowID,
		})
	}

	slices.SortStableFunc(records, func(a, b store.ConversationRecord) int {
		if c := cmp.Compare(a.Timestamp, b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.SourceRowID, b.SourceRowID)
	})
	stats.Included = len(records)
	return records, stats, nil
}

// FailureKind names the decode error class used in Stats.DecodeFailures.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, archive.ErrUnrecognizedFormat):
		return "unrecognized_format"
	case errors.Is(err, archive.ErrTruncatedArchive):
		return "truncated_archive"
	case errors.Is(err, archive.ErrNoTextFound):
		return "no_text_found"
	default:
		return "other"
	}
}
