package agent

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/huythanhnguyen/ai-agent/internal/commerce"
	"github.com/huythanhnguyen/ai-agent/internal/intent"
	"github.com/huythanhnguyen/ai-agent/internal/knowledge"
	"github.com/huythanhnguyen/ai-agent/internal/llm"
	"github.com/huythanhnguyen/ai-agent/internal/response"
	"github.com/huythanhnguyen/ai-agent/pkg/models"
	"github.com/rs/zerolog"
)

type Classifier interface {
	Classify(ctx context.Context, message string, history []models.Turn, opts ...llm.CallOption) intent.Intent
}

type Generator interface {
	GenerateResponse(ctx context.Context, query string, history []models.Turn, opts ...llm.CallOption) (string, error)
	GenerateSupportResponse(ctx context.Context, query string, supportInfo any, opts ...llm.CallOption) (string, error)
}

type Tools interface {
	SearchProducts(ctx context.Context, keywords []string) map[string]commerce.ProductResult
	GetOrder(ctx context.Context, orderID, userID string) (*commerce.Order, error)
	GetCustomer(ctx context.Context, userID string) (*commerce.Customer, error)
	GetCDPProfile(ctx context.Context, userID string) (*commerce.CDPProfile, error)
	GetCategory(ctx context.Context, categoryID string) (*commerce.Category, error)
}

type SupportLookup interface {
	Lookup(ctx context.Context, issue string) *knowledge.SupportInfo
}

type InteractionRecorder interface {
	Record(ctx context.Context, in knowledge.Interaction) error
}

type Deps struct {
	Classifier   Classifier
	Generator    Generator
	Tools        Tools
	Support      SupportLookup
	History      knowledge.HistoryStore
	Interactions InteractionRecorder
}

// Coordinator runs one chat request: history, intent, tool, reply, and
// finally the new turn is saved.
type Coordinator struct {
	Deps
	logger zerolog.Logger
}

func NewCoordinator(deps Deps, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		Deps:   deps,
		logger: logger.With().Str("component", "coordinator").Logger(),
	}
}

var _ ChatAgent = (*Coordinator)(nil)

func (c *Coordinator) Process(ctx context.Context, req Request) (resp models.AgentResponse) {
	start := time.Now()
	log := c.logger.With().
		Str("request_id", req.RequestID).
		Str("session_id", req.SessionID).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("panic while processing query")
			resp = response.Apology()
		}
	}()

	log.Info().Str("user_id", req.UserID).Msg("processing query")

	history, err := c.History.Get(ctx, req.SessionID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load history, continuing without it")
		history = nil
	}

	var opts []llm.CallOption
	if req.Provider != "" {
		opts = append(opts, llm.WithProvider(req.Provider))
	}

	in := c.Classifier.Classify(ctx, req.Message, history, opts...)
	log.Info().Str("intent", string(in.Kind())).Msg("intent detected")

	resp, err = c.respond(ctx, req, in, history, opts)
	if err != nil {
		log.Error().Err(err).Msg("failed to process query")
		return response.Apology()
	}

	c.save(ctx, log, req, in, resp)

	log.Info().
		Str("intent", string(in.Kind())).
		Str("type", string(resp.Type)).
		Dur("duration", time.Since(start)).
		Msg("query processed")
	return resp
}

func (c *Coordinator) respond(ctx context.Context, req Request, in intent.Intent, history []models.Turn, opts []llm.CallOption) (models.AgentResponse, error) {
	switch v := in.(type) {
	case intent.ProductSearch:
		keywords := v.Keywords
		if len(keywords) == 0 {
			keywords = []string{req.Message}
		}
		return response.Products(c.Tools.SearchProducts(ctx, keywords), keywords), nil

	case intent.OrderStatus:
		if v.OrderID == "" {
			return response.MissingOrderID(), nil
		}
		order, err := c.Tools.GetOrder(ctx, v.OrderID, req.UserID)
		return response.Order(order, err), nil

	case intent.CustomerSupport:
		issue := v.Issue
		if issue == "" {
			issue = req.Message
		}
		var supportInfo any
		if info := c.Support.Lookup(ctx, issue); info != nil {
			supportInfo = info
		}
		text, err := c.Generator.GenerateSupportResponse(ctx, req.Message, supportInfo, opts...)
		if err != nil {
			return models.AgentResponse{}, err
		}
		return response.Text(text), nil

	case intent.General:
		text, err := c.Generator.GenerateResponse(ctx, req.Message, history, opts...)
		if err != nil {
			return models.AgentResponse{}, err
		}
		return response.Text(text), nil

	default:
		return response.Fallback(), nil
	}
}

func (c *Coordinator) save(ctx context.Context, log zerolog.Logger, req Request, in intent.Intent, resp models.AgentResponse) {
	turn := models.Turn{
		UserMessage:  req.Message,
		AgentMessage: resp.Message,
		Type:         resp.Type,
		Timestamp:    time.Now(),
	}
	if err := c.History.Append(ctx, req.SessionID, turn); err != nil {
		log.Warn().Err(err).Msg("failed to save conversation turn")
	}

	if c.Interactions == nil {
		return
	}
	err := c.Interactions.Record(ctx, knowledge.Interaction{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Type:      knowledge.InteractionChat,
		Data: map[string]any{
			"intent":        string(in.Kind()),
			"response_type": string(resp.Type),
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to record interaction")
	}
}

// CustomerProfile combines the Magento customer record with the CDP profile.
// A CDP failure only drops the loyalty details.
func (c *Coordinator) CustomerProfile(ctx context.Context, userID string) models.AgentResponse {
	customer, err := c.Tools.GetCustomer(ctx, userID)
	if err != nil {
		return response.CustomerProfile(nil, err, nil)
	}
	cdp, err := c.Tools.GetCDPProfile(ctx, userID)
	if err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("CDP profile unavailable")
		cdp = nil
	}
	return response.CustomerProfile(customer, nil, cdp)
}

func (c *Coordinator) Suggestions(ctx context.Context, userID string) models.AgentResponse {
	cdp, err := c.Tools.GetCDPProfile(ctx, userID)
	if err != nil {
		return response.Error(commerce.ErrorText(err))
	}
	return response.Suggestions(cdp.Recommendations)
}

func (c *Coordinator) Category(ctx context.Context, categoryID string) models.AgentResponse {
	category, err := c.Tools.GetCategory(ctx, categoryID)
	return response.Category(category, err)
}

// Feedback records a user's rating of an answer.
func (c *Coordinator) Feedback(ctx context.Context, sessionID, userID string, data map[string]any) error {
	if c.Interactions == nil {
		return nil
	}
	return c.Interactions.Record(ctx, knowledge.Interaction{
		SessionID: sessionID,
		UserID:    userID,
		Type:      knowledge.InteractionFeedback,
		Data:      data,
	})
}

// ClearSession forgets the conversation of sessionID.
func (c *Coordinator) ClearSession(ctx context.Context, sessionID string) error {
	return c.History.Clear(ctx, sessionID)
}
