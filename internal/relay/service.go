// Package relay routes messages between users and the administrator: inbound forwarding,
// reply activation from the reply button and outbound delivery of the administrator's answer.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Abdurakhi/tg-feedback-bot/internal/correlation"
	"github.com/Abdurakhi/tg-feedback-bot/internal/metrics"
	"github.com/Abdurakhi/tg-feedback-bot/internal/telegramapi"
)

type Options struct {
	AdminChatID int64
	Transport   Transport
	Store       correlation.Store
	// Session defaults to an in-memory session.
	Session *ReplySession
	Limiter *UserLimiter
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

// Service handles one update at a time. Every fault ends as a log line and a notice.
type Service struct {
	adminChatID int64
	transport   Transport
	store       correlation.Store
	session     *ReplySession
	metrics     *metrics.Metrics
	logger      *slog.Logger

	inbound    *Inbound
	activation *Activation
	outbound   *Outbound
}

func NewService(opts Options) (*Service, error) {
	if opts.AdminChatID == 0 {
		return nil, fmt.Errorf("missing admin chat id")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("missing transport")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("missing correlation store")
	}
	if opts.Session == nil {
		opts.Session = NewReplySession()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Service{
		adminChatID: opts.AdminChatID,
		transport:   opts.Transport,
		store:       opts.Store,
		session:     opts.Session,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
	}
	s.inbound = &Inbound{
		transport:   opts.Transport,
		store:       opts.Store,
		adminChatID: opts.AdminChatID,
		limiter:     opts.Limiter,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		now:         opts.Now,
	}
	s.activation = &Activation{
		transport:   opts.Transport,
		session:     opts.Session,
		adminChatID: opts.AdminChatID,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		now:         opts.Now,
	}
	s.outbound = &Outbound{
		transport:   opts.Transport,
		store:       opts.Store,
		session:     opts.Session,
		adminChatID: opts.AdminChatID,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
	}
	return s, nil
}

func (s *Service) Session() *ReplySession {
	return s.session
}

// HandleUpdate dispatches one update. It never returns an error; faults are logged and
// turned into notices for whoever triggered them.
func (s *Service) HandleUpdate(ctx context.Context, upd telegramapi.Update) {
	logger := s.logger.With("update_id", upd.UpdateID, "trace_id", uuid.NewString())
	switch {
	case upd.CallbackQuery != nil:
		s.handleCallback(ctx, logger, upd.CallbackQuery)
	case upd.Message != nil:
		s.handleMessage(ctx, logger, upd.Message)
	default:
		logger.Debug("relay_update_ignored", "reason", "unsupported_update")
	}
}

func (s *Service) handleCallback(ctx context.Context, logger *slog.Logger, q *telegramapi.CallbackQuery) {
	if !s.fromAdmin(q.From, q.Message) {
		if err := s.transport.AnswerCallbackQuery(ctx, q.ID, ""); err != nil {
			logger.Warn("relay_callback_answer_error", "callback_id", q.ID, "error", err.Error())
		}
		logger.Warn("relay_callback_ignored", "reason", "not_admin", "from_id", userID(q.From))
		return
	}
	target, err := s.activation.Activate(ctx, q)
	if err != nil {
		logger.Warn("relay_callback_ignored", "reason", "bad_token", "data", q.Data, "error", err.Error())
		return
	}
	logger.Info("relay_target_armed", "user_id", target.Ref.UserID, "message_id", target.Ref.MessageID, "admin_message_id", target.AdminMessageID)
}

func (s *Service) handleMessage(ctx context.Context, logger *slog.Logger, msg *telegramapi.Message) {
	if msg.Chat == nil || (msg.From != nil && msg.From.IsBot) {
		logger.Debug("relay_update_ignored", "reason", "no_chat_or_bot")
		return
	}
	if msg.Chat.ID == s.adminChatID {
		s.handleAdminMessage(ctx, logger, msg)
		return
	}
	if msg.Chat.Type != "" && msg.Chat.Type != "private" {
		logger.Debug("relay_update_ignored", "reason", "non_private_chat", "chat_id", msg.Chat.ID, "chat_type", msg.Chat.Type)
		return
	}
	switch msg.Command() {
	case "start", "help":
		var first string
		if msg.From != nil {
			first = msg.From.FirstName
		}
		s.notify(ctx, logger, msg.Chat.ID, WelcomeText(first))
		return
	}
	s.handleUserMessage(ctx, logger, msg)
}

func (s *Service) handleUserMessage(ctx context.Context, logger *slog.Logger, msg *telegramapi.Message) {
	ref := messageRef(msg)
	link, err := s.inbound.Relay(ctx, msg)
	if err == nil {
		s.metrics.ObserveRelay(metrics.DirectionInbound, link.ContentKind, metrics.ResultOK)
		logger.Info("relay_inbound_ok", "user_id", ref.UserID, "message_id", ref.MessageID, "kind", link.ContentKind, "admin_message_id", link.AdminMessageID)
		return
	}

	kind := kindOf(msg)
	result, notice := inboundFailure(err)
	s.metrics.ObserveRelay(metrics.DirectionInbound, kind, result)
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnrecognizedContent) {
		logger.Info("relay_inbound_rejected", "user_id", ref.UserID, "message_id", ref.MessageID, "kind", kind, "reason", result)
	} else {
		logger.Error("relay_inbound_error", "user_id", ref.UserID, "message_id", ref.MessageID, "kind", kind, "error", err.Error())
	}
	s.notify(ctx, logger, msg.Chat.ID, notice)
}

func (s *Service) handleAdminMessage(ctx context.Context, logger *slog.Logger, msg *telegramapi.Message) {
	switch msg.Command() {
	case "":
	case "cancel":
		s.handleCancel(ctx, logger)
		return
	case "pending":
		s.handlePending(ctx, logger)
		return
	default:
		s.notify(ctx, logger, s.adminChatID, AdminHelp)
		return
	}

	target, ok := s.session.Target()
	if !ok {
		s.metrics.ObserveRelay(metrics.DirectionOutbound, kindOf(msg), metrics.ResultNoTarget)
		logger.Info("relay_outbound_rejected", "reason", metrics.ResultNoTarget, "message_id", msg.MessageID)
		s.notify(ctx, logger, s.adminChatID, NoticeNoTarget)
		return
	}
	link, err := s.outbound.Reply(ctx, target, msg)
	kind := kindOf(msg)
	if err == nil {
		s.metrics.ObserveRelay(metrics.DirectionOutbound, kind, metrics.ResultOK)
		logger.Info("relay_outbound_ok", "user_id", link.Ref.UserID, "message_id", target.Ref.MessageID, "kind", kind)
		return
	}
	result, notice := outboundFailure(err)
	s.metrics.ObserveRelay(metrics.DirectionOutbound, kind, result)
	logger.Warn("relay_outbound_error",
		"user_id", target.Ref.UserID,
		"message_id", target.Ref.MessageID,
		"kind", kind,
		"reason", result,
		"error", err.Error(),
	)
	s.notify(ctx, logger, s.adminChatID, notice)
}

// handleCancel disarms the target, clears its pending row and puts the reply button back.
func (s *Service) handleCancel(ctx context.Context, logger *slog.Logger) {
	target, err := s.session.Disarm()
	if err != nil {
		logger.Warn("relay_session_persist_error", "error", err.Error())
	}
	if target == nil {
		s.notify(ctx, logger, s.adminChatID, NoticeNothingArmed)
		return
	}
	if err := s.store.ClearPending(ctx, target.Ref.UserID); err != nil {
		logger.Warn("relay_clear_pending_error", "user_id", target.Ref.UserID, "error", err.Error())
	}
	if err := s.activation.restore(ctx, *target); err != nil {
		logger.Warn("relay_restore_button_error", "admin_message_id", target.AdminMessageID, "error", err.Error())
	}
	logger.Info("relay_target_cancelled", "user_id", target.Ref.UserID, "message_id", target.Ref.MessageID)
	s.notify(ctx, logger, s.adminChatID, NoticeCancelled)
}

func (s *Service) handlePending(ctx context.Context, logger *slog.Logger) {
	rows, err := s.store.ListPending(ctx)
	if err != nil {
		logger.Error("relay_list_pending_error", "error", err.Error())
		s.notify(ctx, logger, s.adminChatID, ErrorNotice(err))
		return
	}
	s.notify(ctx, logger, s.adminChatID, PendingSummary(rows))
}

func (s *Service) notify(ctx context.Context, logger *slog.Logger, chatID int64, text string) {
	if _, err := sendTextChunks(ctx, s.transport, chatID, text, nil); err != nil {
		logger.Warn("relay_notice_error", "chat_id", chatID, "error", err.Error())
	}
}

func (s *Service) fromAdmin(from *telegramapi.User, msg *telegramapi.Message) bool {
	if msg != nil && msg.Chat != nil {
		return msg.Chat.ID == s.adminChatID
	}
	return from != nil && from.ID == s.adminChatID
}

// PendingSummary lists users still waiting for an answer.
func PendingSummary(rows []correlation.PendingReply) string {
	if len(rows) == 0 {
		return NoticeNoPending
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⏳ Ожидают ответа: %d", len(rows))
	for _, row := range rows {
		fmt.Fprintf(&b, "\n• ID %d, с %s UTC", row.UserID, row.UpdatedAt.UTC().Format("2006-01-02 15:04"))
	}
	return b.String()
}

func inboundFailure(err error) (result, notice string) {
	switch {
	case errors.Is(err, ErrRateLimited):
		return metrics.ResultRateLimited, NoticeRateLimited
	case errors.Is(err, ErrUnrecognizedContent):
		return metrics.ResultUnsupported, NoticeUnsupported
	case errors.Is(err, ErrStorage):
		return metrics.ResultStorage, NoticeDeliveryError
	default:
		return metrics.ResultTransport, NoticeDeliveryError
	}
}

func outboundFailure(err error) (result, notice string) {
	switch {
	case errors.Is(err, ErrNoActiveTarget):
		return metrics.ResultNoTarget, NoticeNoTarget
	case errors.Is(err, ErrCorrelationNotFound):
		return metrics.ResultNotFound, NoticeUserNotFound
	case errors.Is(err, ErrUnrecognizedContent):
		return metrics.ResultUnsupported, NoticeUnsupported
	case errors.Is(err, ErrStorage):
		return metrics.ResultStorage, ErrorNotice(err)
	default:
		return metrics.ResultTransport, ErrorNotice(err)
	}
}

func kindOf(msg *telegramapi.Message) string {
	c, err := Classify(msg)
	if err != nil {
		return KindUnknown.String()
	}
	return c.Kind.String()
}

func userID(u *telegramapi.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
