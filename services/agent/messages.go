package agent

// Actions understood by the dispatcher. Names are part of the message
// protocol shared with the browser-side shim.
const (
	ActionAddToken          = "ADD_TOKEN"
	ActionDeleteToken       = "DELETE_TOKEN"
	ActionSetActiveToken    = "SET_ACTIVE_TOKEN"
	ActionSetActiveFeed     = "SET_ACTIVE_FEED"
	ActionGetActiveToken    = "GET_ACTIVE_TOKEN"
	ActionGetAllTokens      = "GET_ALL_TOKENS"
	ActionFetchSessionToken = "FETCH_TWIKIT_TOKEN"
	ActionSetReadOnlyMode   = "SET_READONLY_MODE"
)

// ActionsSubject is the request/reply subject the dispatcher answers on.
const ActionsSubject = "feedswitch.agent.v1.actions"

// Request is the envelope for every message on the extension channel.
// Which payload fields are set depends on the action.
type Request struct {
	Action  string         `json:"action"`
	Token   *Token         `json:"token,omitempty"`
	TokenID string         `json:"tokenId,omitempty"`
	Feed    *FeedSelection `json:"feed,omitempty"`
	Enabled *bool          `json:"enabled,omitempty"`
}

// Response is the uniform reply shape: success plus payload, or an error
// string surfaced raw to the UI.
type Response struct {
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
	Token   *Token  `json:"token,omitempty"`
	Tokens  []Token `json:"tokens,omitempty"`
}

func errorResponse(err error) Response {
	return Response{Success: false, Error: err.Error()}
}
