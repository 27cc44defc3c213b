package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"

	"feedswitch/pkg/bus"
)

// Dispatcher routes extension messages to the token manager and the switch
// controller. Handle is pure request/response; Bind attaches it to the bus.
type Dispatcher struct {
	manager  *TokenManager
	switcher *Switcher
	logger   *log.Logger
}

// NewDispatcher wires a dispatcher from its collaborators.
func NewDispatcher(manager *TokenManager, switcher *Switcher, logger *log.Logger) (*Dispatcher, error) {
	if manager == nil {
		return nil, errors.New("manager is required")
	}
	if switcher == nil {
		return nil, errors.New("switcher is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{manager: manager, switcher: switcher, logger: logger}, nil
}

// Handle executes one protocol action and returns its response. Failures
// carry the raw error text; the popup surfaces it directly.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Response {
	switch req.Action {
	case ActionAddToken:
		if req.Token == nil {
			return errorResponse(errors.New("token is required"))
		}
		saved, err := d.manager.AddToken(ctx, req.Token.Name, req.Token.Data)
		if err != nil {
			return errorResponse(err)
		}
		return Response{Success: true, Token: &saved}

	case ActionDeleteToken:
		if req.TokenID == "" {
			return errorResponse(errors.New("tokenId is required"))
		}
		if err := d.manager.DeleteToken(ctx, req.TokenID); err != nil {
			return errorResponse(err)
		}
		return Response{Success: true}

	case ActionSetActiveToken:
		if req.TokenID == "" {
			return errorResponse(errors.New("tokenId is required"))
		}
		token, err := d.manager.GetToken(ctx, req.TokenID)
		if err != nil {
			return errorResponse(err)
		}
		if err := d.switcher.Activate(ctx, token); err != nil {
			return errorResponse(err)
		}
		if err := d.manager.SetActiveToken(ctx, token.ID); err != nil {
			return errorResponse(err)
		}
		return Response{Success: true}

	case ActionSetActiveFeed:
		if req.Feed == nil {
			return errorResponse(errors.New("feed is required"))
		}
		if req.Feed.My {
			if err := d.switcher.Clear(ctx); err != nil {
				return errorResponse(err)
			}
			if err := d.manager.ClearActiveToken(ctx); err != nil {
				return errorResponse(err)
			}
			return Response{Success: true}
		}
		if req.Feed.Data == nil {
			return errorResponse(errors.New("feed token data is required"))
		}
		if err := d.switcher.ActivateSession(ctx, *req.Feed.Data); err != nil {
			return errorResponse(err)
		}
		if err := d.manager.SetActiveSnapshot(ctx, Token{Data: *req.Feed.Data}); err != nil {
			return errorResponse(err)
		}
		return Response{Success: true}

	case ActionGetActiveToken:
		token, err := d.manager.ActiveToken(ctx)
		if err != nil {
			return errorResponse(err)
		}
		return Response{Success: true, Token: token}

	case ActionGetAllTokens:
		result, err := d.manager.ListTokens(ctx)
		if err != nil {
			return errorResponse(err)
		}
		if result.Source == SourceLocalFallback {
			d.logger.Printf("INFO serving cached tokens: %s", result.Reason)
		}
		return Response{Success: true, Tokens: result.Tokens}

	case ActionFetchSessionToken:
		data, err := d.switcher.CaptureSession(ctx)
		if err != nil {
			return errorResponse(err)
		}
		return Response{Success: true, Token: &Token{Data: data}}

	default:
		return errorResponse(errors.New("Unknown action"))
	}
}

// Bind subscribes the dispatcher to the extension message subject until ctx
// is cancelled.
func (d *Dispatcher) Bind(ctx context.Context, b *bus.Bus) (io.Closer, error) {
	return b.Respond(ctx, ActionsSubject, func(ctx context.Context, data []byte) []byte {
		var req Request
		var resp Response
		if err := json.Unmarshal(data, &req); err != nil {
			resp = errorResponse(err)
		} else {
			resp = d.Handle(ctx, req)
		}

		out, err := json.Marshal(resp)
		if err != nil {
			d.logger.Printf("ERROR encoding response: %v", err)
			out = []byte(`{"success":false,"error":"internal error"}`)
		}
		return out
	})
}
