// Package pipeline wires inbound messages through intent routing into the
// extractor, deletion resolver, query responder, and thought segmenter,
// mediating the per-user pending state in between.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"voxnote/internal/deletion"
	"voxnote/internal/extract"
	"voxnote/internal/intent"
	"voxnote/internal/llm"
	"voxnote/internal/model"
	"voxnote/internal/query"
	"voxnote/internal/registry"
	"voxnote/internal/session"
	"voxnote/internal/store"
	"voxnote/internal/thinking"
)

// Message is one inbound user utterance. DurationSeconds is the source
// audio length when the text came from voice, 0 otherwise.
type Message struct {
	UserID          int64
	ChatID          int64
	Username        string
	Text            string
	DurationSeconds int
}

// Sender delivers responses back to the user's chat.
type Sender interface {
	Send(chatID int64, text string) error
}

// Deps bundles the pipeline's collaborators.
type Deps struct {
	Gateway   store.Gateway
	Registry  *registry.Registry
	Router    *intent.Router
	Extractor *extract.Extractor
	Deleter   *deletion.Resolver
	Responder *query.Responder
	Segmenter *thinking.Segmenter
	Sessions  *session.Manager
	Sender    Sender
	Log       *zap.Logger

	// AllowedUserIDs and AllowedUsernames form the access allow-list.
	// Both empty means everyone is allowed.
	AllowedUserIDs   []int64
	AllowedUsernames []string
}

// Pipeline processes messages. Per-user processing is serialized through a
// Locker; different users proceed concurrently.
type Pipeline struct {
	gw        store.Gateway
	reg       *registry.Registry
	router    *intent.Router
	extractor *extract.Extractor
	deleter   *deletion.Resolver
	responder *query.Responder
	segmenter *thinking.Segmenter
	sessions  *session.Manager
	locker    *session.Locker
	sender    Sender
	log       *zap.Logger
	now       func() time.Time

	allowedIDs   map[int64]bool
	allowedNames map[string]bool
}

func New(d Deps) *Pipeline {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	p := &Pipeline{
		gw:           d.Gateway,
		reg:          d.Registry,
		router:       d.Router,
		extractor:    d.Extractor,
		deleter:      d.Deleter,
		responder:    d.Responder,
		segmenter:    d.Segmenter,
		sessions:     d.Sessions,
		locker:       session.NewLocker(),
		sender:       d.Sender,
		log:          d.Log,
		now:          time.Now,
		allowedIDs:   make(map[int64]bool),
		allowedNames: make(map[string]bool),
	}
	for _, id := range d.AllowedUserIDs {
		p.allowedIDs[id] = true
	}
	for _, name := range d.AllowedUsernames {
		p.allowedNames[strings.ToLower(name)] = true
	}
	return p
}

// Handle processes one message end to end and sends the response. The
// returned error reports transport failures only; processing problems are
// answered to the user and logged.
func (p *Pipeline) Handle(ctx context.Context, msg Message) error {
	if !p.allowed(msg) {
		p.log.Warn("access denied", zap.Int64("user_id", msg.UserID))
		return p.sender.Send(msg.ChatID, msgAccessDenied)
	}

	unlock := p.locker.Lock(msg.UserID)
	defer unlock()

	if pending, ok := p.sessions.Take(msg.UserID); ok {
		handled, err := p.resumePending(ctx, msg, pending)
		if handled || err != nil {
			return err
		}
		// The reply did not match the awaited shape; the stale pending
		// interaction is dropped and the message starts fresh.
		p.log.Debug("pending interaction discarded",
			zap.Int64("user_id", msg.UserID),
			zap.String("kind", pending.Kind.String()))
	}

	return p.dispatch(ctx, msg)
}

func (p *Pipeline) allowed(msg Message) bool {
	if len(p.allowedIDs) == 0 && len(p.allowedNames) == 0 {
		return true
	}
	if len(p.allowedIDs) > 0 && !p.allowedIDs[msg.UserID] {
		return false
	}
	if len(p.allowedNames) > 0 && !p.allowedNames[strings.ToLower(msg.Username)] {
		return false
	}
	return true
}

func (p *Pipeline) resumePending(ctx context.Context, msg Message, pending session.Pending) (bool, error) {
	switch pending.Kind {
	case session.KindClarification:
		c := pending.Payload.(*extract.Clarification)
		res, cancelled, err := p.extractor.Resolve(ctx, c, msg.Text)
		if cancelled {
			return true, p.sender.Send(msg.ChatID, msgCancelled)
		}
		if err != nil {
			return true, p.reportFailure(ctx, msg, c.Category, err)
		}
		return true, p.deliver(ctx, msg, res)

	case session.KindDeleteConfirm:
		candidates := pending.Payload.([]deletion.Candidate)
		idx, ok := deletion.ParseSelection(msg.Text, len(candidates))
		if !ok {
			return true, p.sender.Send(msg.ChatID, msgDeleteCancelled)
		}
		mirrorDeleted, err := p.deleter.Delete(ctx, candidates[idx])
		if err != nil {
			p.log.Error("deletion failed", zap.Error(err))
			return true, p.sender.Send(msg.ChatID, msgDeleteFailed)
		}
		if mirrorDeleted {
			return true, p.sender.Send(msg.ChatID, msgDeletedBoth)
		}
		return true, p.sender.Send(msg.ChatID, msgDeletedNoMirror)

	case session.KindThinkingConfirm:
		proposal := pending.Payload.(*thinking.Proposal)
		switch {
		case isYes(msg.Text):
			saved, err := p.segmenter.Commit(ctx, proposal)
			if err != nil {
				return true, p.reportFailure(ctx, msg, "Thinking", err)
			}
			if saved {
				return true, p.sender.Send(msg.ChatID, msgThinkingKept)
			}
			return true, p.sender.Send(msg.ChatID, msgThinkingLogOnly)
		case isNo(msg.Text):
			return true, p.sender.Send(msg.ChatID, msgThinkingDropped)
		}
		return false, nil

	case session.KindDuplicateConfirm:
		d := pending.Payload.(*extract.Duplicate)
		switch {
		case isYes(msg.Text):
			res, err := p.extractor.ConfirmDuplicate(ctx, d)
			if err != nil {
				return true, p.reportFailure(ctx, msg, d.Category, err)
			}
			return true, p.deliver(ctx, msg, res)
		case isNo(msg.Text):
			return true, p.sender.Send(msg.ChatID, msgDuplicateKept)
		}
		return false, nil
	}
	return false, nil
}

func (p *Pipeline) dispatch(ctx context.Context, msg Message) error {
	in, err := p.router.Route(ctx, msg.Text, msg.DurationSeconds)
	if err != nil {
		// No intent to act on; ask the user to retry instead of guessing.
		p.log.Warn("routing failed", zap.Error(err))
		return p.sender.Send(msg.ChatID, msgRetryRouting)
	}

	switch in.Kind {
	case model.IntentThink:
		proposal := p.segmenter.Restructure(ctx, msg.Text)
		p.sessions.Set(msg.UserID, session.KindThinkingConfirm, proposal)
		return p.sender.Send(msg.ChatID, thinkingPrompt(proposal.Blocks))

	case model.IntentAdd:
		res, err := p.extractor.Extract(ctx, msg.Text, in.Category)
		if err != nil {
			return p.reportFailure(ctx, msg, in.Category, err)
		}
		return p.deliver(ctx, msg, res)

	case model.IntentAsk:
		answer, err := p.responder.Answer(ctx, in.Query)
		if errors.Is(err, query.ErrNoData) {
			return p.sender.Send(msg.ChatID, msgNoData)
		}
		if err != nil {
			p.log.Error("answering failed", zap.Error(err))
			return p.sender.Send(msg.ChatID, msgAnswerFailed)
		}
		return p.sender.Send(msg.ChatID, answer)

	case model.IntentDelete:
		candidates, err := p.deleter.FindCandidates(ctx, in.Query, in.Category)
		if err != nil {
			p.log.Error("candidate search failed", zap.Error(err))
			return p.sender.Send(msg.ChatID, msgDeleteFailed)
		}
		if len(candidates) == 0 {
			return p.sender.Send(msg.ChatID, msgDeleteNotFound)
		}
		p.sessions.Set(msg.UserID, session.KindDeleteConfirm, candidates)
		return p.sender.Send(msg.ChatID, deletion.FormatList(candidates))
	}

	return p.reportFailure(ctx, msg, "", errors.New("unrecognized intent"))
}

// deliver answers an extraction result: a saved confirmation, a
// clarification prompt, or a duplicate hold.
func (p *Pipeline) deliver(ctx context.Context, msg Message, res *extract.Result) error {
	switch {
	case res.Committed != nil:
		c := res.Committed
		return p.sender.Send(msg.ChatID, savedMessage(c.Record.Category, c.Summary))
	case res.Clarify != nil:
		p.sessions.Set(msg.UserID, session.KindClarification, res.Clarify)
		return p.sender.Send(msg.ChatID, clarifyPrompt(res.Clarify.Missing))
	case res.Duplicate != nil:
		p.sessions.Set(msg.UserID, session.KindDuplicateConfirm, res.Duplicate)
		return p.sender.Send(msg.ChatID, duplicatePrompt(res.Duplicate.Preview))
	}
	return nil
}

// reportFailure tells the user processing failed and parks the raw text in
// the log table so nothing is lost. A broken log mirror is not a failure:
// the category row is authoritative and already saved.
func (p *Pipeline) reportFailure(ctx context.Context, msg Message, category string, err error) error {
	var partial *extract.PartialWriteError
	if errors.As(err, &partial) {
		// The note is saved. Writing to the log here would add a second
		// entry under a fresh record id next to the existing category row.
		p.log.Warn("mirror invariant broken",
			zap.String("table", partial.Table),
			zap.String("record_id", partial.RecordID),
			zap.Error(partial.Err))
		return p.sender.Send(msg.ChatID, savedNoMirrorMessage(partial.Table))
	}

	p.log.Error("message processing failed",
		zap.Int64("user_id", msg.UserID),
		zap.String("category", category),
		zap.Error(err))
	p.safeInbox(ctx, category, msg.Text)

	if errors.Is(err, registry.ErrSchemaMissing) {
		return p.sender.Send(msg.ChatID, missingCategoryMessage(category))
	}
	if errors.Is(err, llm.ErrAdapterUnavailable) {
		return p.sender.Send(msg.ChatID, msgRetryRouting)
	}
	return p.sender.Send(msg.ChatID, msgProcessFailed)
}

// safeInbox appends the raw transcript to the log table, best effort.
func (p *Pipeline) safeInbox(ctx context.Context, category, text string) {
	if category == "" {
		category = "Unknown"
	}
	if err := p.reg.EnsureLogTable(ctx); err != nil {
		p.log.Error("safe inbox write failed", zap.Error(err))
		return
	}
	date := p.now().Format(model.DateLayout)
	if err := p.gw.AppendRow(ctx, registry.LogTable, model.NewRecordID(), []string{date, category, text}); err != nil {
		p.log.Error("safe inbox write failed", zap.Error(err))
	}
}
