package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"gorm.io/datatypes"

	"smokestore-backend/mailbox"
	"smokestore-backend/metrics"
	"smokestore-backend/models"
	"smokestore-backend/orders"
	"smokestore-backend/parser"
	"smokestore-backend/utils"
)

// A body shorter than this after trimming is treated as extraction failure.
const minBodyLength = 10

// Mailbox is the slice of the mail provider the orchestrator needs.
type Mailbox interface {
	SearchSince(ctx context.Context, since time.Time, maxResults int) ([]mailbox.Summary, error)
	FetchFull(ctx context.Context, id string) (*mailbox.Message, error)
}

// OrderService confirms a reconciled payment against the order system.
type OrderService interface {
	VerifyOrderPayment(ctx context.Context, req orders.VerifyPaymentRequest) (orders.VerifyPaymentResponse, error)
}

// AuditStore records verification runs. Updates are best-effort; a failed
// write must not abort the run.
type AuditStore interface {
	Create(ctx context.Context, lg *models.VerificationLog) error
	Update(ctx context.Context, id string, fields map[string]any) error
}

// Config tunes the poll loop.
type Config struct {
	Deadline     time.Duration // total budget for one run
	PollInterval time.Duration
	MaxResults   int
}

// Request describes one verification run.
type Request struct {
	OrderID        string
	TransactionID  string
	Amount         float64
	OrderCreatedAt time.Time // zero => now
}

// Result is the caller-facing outcome. Business failures (no email, parse
// failure, mismatch, order-update failure) come back as Verified=false, not
// as errors.
type Result struct {
	Verified bool
	Message  string
	Payment  *parser.ParsedPayment
	LogID    string
}

// Service runs the verification state machine: pending -> verified|failed.
type Service struct {
	Mail   Mailbox
	Orders OrderService
	Logs   AuditStore
	Cfg    Config

	Now func() time.Time // test hook
}

// New builds a Service, filling in the defaults of the original deployment
// (300s deadline, 5s interval, 20 results per search).
func New(mail Mailbox, orderSvc OrderService, logs AuditStore, cfg Config) *Service {
	if cfg.Deadline <= 0 {
		cfg.Deadline = 300 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	return &Service{Mail: mail, Orders: orderSvc, Logs: logs, Cfg: cfg}
}

// Verify executes one run. It returns an error only for infrastructure
// faults (credential refresh failure, caller cancellation); every reachable
// business outcome is a plain Result.
func (s *Service) Verify(ctx context.Context, req Request) (Result, error) {
	if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return Result{}, fmt.Errorf("verifier: claimed amount must be a finite positive number")
	}

	since := req.OrderCreatedAt
	if since.IsZero() {
		since = s.clock()
	}

	lg := &models.VerificationLog{
		OrderID:       req.OrderID,
		TransactionID: req.TransactionID,
		Amount:        utils.Round2(req.Amount),
		Status:        models.StatusPending,
		Issuer:        "Unknown",
		Reference:     "N/A",
		SenderHandle:  "N/A",
	}
	if err := s.Logs.Create(ctx, lg); err != nil {
		// Best-effort: the run proceeds unaudited rather than failing the caller.
		log.Printf("verifier: could not create verification log for %s: %v", req.TransactionID, err)
		lg.ID = ""
	}

	msg, body, err := s.pollForMatch(ctx, since, req.Amount)
	if err != nil {
		s.update(ctx, lg.ID, map[string]any{
			"status":        models.StatusFailed,
			"error_message": "verification aborted: " + err.Error(),
		})
		metrics.VerificationRuns.WithLabelValues("aborted").Inc()
		return Result{LogID: lg.ID}, err
	}
	if msg == nil {
		s.update(ctx, lg.ID, map[string]any{
			"status":        models.StatusFailed,
			"error_message": models.FailEmailNotFound + ": no matching payment email within deadline",
		})
		metrics.VerificationRuns.WithLabelValues(models.FailEmailNotFound).Inc()
		return Result{
			Verified: false,
			Message:  "no matching payment confirmation email found yet",
			LogID:    lg.ID,
		}, nil
	}

	s.update(ctx, lg.ID, map[string]any{
		"email_found":   true,
		"matched_email": matchedEmailSnapshot(msg),
	})

	payment, err := parser.Parse(body, msg.Header("From"))
	if err != nil {
		s.update(ctx, lg.ID, map[string]any{
			"status":        models.StatusFailed,
			"error_message": models.FailParseFailed + ": " + err.Error(),
		})
		metrics.VerificationRuns.WithLabelValues(models.FailParseFailed).Inc()
		return Result{
			Verified: false,
			Message:  "a candidate email was found but no payment details could be extracted",
			LogID:    lg.ID,
		}, nil
	}

	s.update(ctx, lg.ID, map[string]any{
		"email_parsed":  true,
		"issuer":        payment.Issuer,
		"reference":     payment.Reference,
		"sender_handle": payment.SenderHandle,
	})

	if !utils.AmountsMatch(payment.Amount, req.Amount) {
		s.update(ctx, lg.ID, map[string]any{
			"status": models.StatusFailed,
			"error_message": fmt.Sprintf("%s: claimed %.2f but email shows %.2f",
				models.FailAmountMismatch, req.Amount, payment.Amount),
		})
		metrics.VerificationRuns.WithLabelValues(models.FailAmountMismatch).Inc()
		return Result{
			Verified: false,
			Message:  fmt.Sprintf("payment amount does not match: claimed %.2f, found %.2f", req.Amount, payment.Amount),
			Payment:  payment,
			LogID:    lg.ID,
		}, nil
	}

	s.update(ctx, lg.ID, map[string]any{"amount_matched": true})

	orderResp, orderErr := s.Orders.VerifyOrderPayment(ctx, orders.VerifyPaymentRequest{
		TransactionID: req.TransactionID,
		Amount:        payment.Amount,
		Issuer:        payment.Issuer,
		Reference:     payment.Reference,
		Method:        orders.MethodUPIEmail,
	})
	if orderErr != nil || !orderResp.Success {
		detail := orderResp.Message
		if orderErr != nil {
			detail = orderErr.Error()
		}
		s.update(ctx, lg.ID, map[string]any{
			"status":        models.StatusFailed,
			"error_message": models.FailOrderUpdateFailed + ": " + detail,
		})
		metrics.VerificationRuns.WithLabelValues(models.FailOrderUpdateFailed).Inc()
		return Result{
			Verified: false,
			Message:  "payment matched but the order could not be updated",
			Payment:  payment,
			LogID:    lg.ID,
		}, nil
	}

	now := s.clock()
	s.update(ctx, lg.ID, map[string]any{
		"status":      models.StatusVerified,
		"verified_at": &now,
	})
	metrics.VerificationRuns.WithLabelValues(models.StatusVerified).Inc()
	return Result{
		Verified: true,
		Message:  "payment verified",
		Payment:  payment,
		LogID:    lg.ID,
	}, nil
}

// pollForMatch runs the bounded poll loop. It returns (nil, "", nil) when
// the deadline elapses without a match, and a non-nil error only for fatal
// conditions (auth failure, cancellation). Transient mailbox errors are
// logged and swallowed; the loop continues until the deadline.
func (s *Service) pollForMatch(ctx context.Context, since time.Time, amount float64) (*mailbox.Message, string, error) {
	deadline := s.clock().Add(s.Cfg.Deadline)

	for {
		msg, body, err := s.scanOnce(ctx, since, amount)
		if err != nil {
			var authErr *mailbox.AuthError
			if errors.As(err, &authErr) {
				return nil, "", err
			}
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			log.Printf("verifier: mailbox poll failed, retrying: %v", err)
			metrics.MailboxErrors.Inc()
		}
		if msg != nil {
			return msg, body, nil
		}

		if !s.clock().Before(deadline) {
			return nil, "", nil
		}

		timer := time.NewTimer(s.Cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, "", ctx.Err()
		case <-timer.C:
		}
	}
}

// scanOnce searches once and pre-screens each candidate's body with the
// amount patterns. This is a cheap pre-filter; the matched message still
// goes through the full parser afterwards.
func (s *Service) scanOnce(ctx context.Context, since time.Time, amount float64) (*mailbox.Message, string, error) {
	summaries, err := s.Mail.SearchSince(ctx, since, s.Cfg.MaxResults)
	if err != nil {
		return nil, "", err
	}

	for _, sum := range summaries {
		msg, err := s.Mail.FetchFull(ctx, sum.ID)
		if err != nil {
			// A single bad fetch is skipped, not retried and not fatal to the batch.
			log.Printf("verifier: fetch of message %s failed, skipping: %v", sum.ID, err)
			continue
		}
		body := mailbox.ExtractBody(msg)
		if len(strings.TrimSpace(body)) < minBodyLength {
			continue
		}
		if parser.ScanForAmount(body, amount) {
			return msg, body, nil
		}
	}
	return nil, "", nil
}

// update writes a partial log update. Failures go to the process log only;
// auditing is best-effort, never transactional with the decision.
func (s *Service) update(ctx context.Context, id string, fields map[string]any) {
	if id == "" || s.Logs == nil {
		return
	}
	// Terminal writes must land even after caller cancellation.
	if err := s.Logs.Update(context.WithoutCancel(ctx), id, fields); err != nil {
		log.Printf("verifier: audit update for log %s failed: %v", id, err)
	}
}

func matchedEmailSnapshot(msg *mailbox.Message) datatypes.JSON {
	snapshot, err := json.Marshal(map[string]string{
		"id":      msg.ID,
		"from":    msg.Header("From"),
		"subject": msg.Header("Subject"),
		"date":    msg.Header("Date"),
	})
	if err != nil {
		return nil
	}
	return datatypes.JSON(snapshot)
}

func (s *Service) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
