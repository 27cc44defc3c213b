package agent

import (
	"context"
	"log"
	"sync"
)

// Document abstracts the DOM operations the read-only presenter needs.
// Injecting a stylesheet or badge with an id that is already present
// replaces it, so redundant enables cannot stack elements.
type Document interface {
	InjectStylesheet(id, css string) error
	RemoveStylesheet(id string) error
	ShowBadge(id, text, title string) error
	RemoveBadge(id string) error
}

// ActiveTokenFunc asks the switch controller whether a token is currently
// active, to decide the initial presentation mode at page load.
type ActiveTokenFunc func(ctx context.Context) (*Token, error)

const (
	stylesheetID = "feedswitch-readonly-style"
	badgeID      = "feedswitch-readonly-indicator"

	badgeText  = "READ-ONLY MODE"
	badgeTitle = "You are viewing someone else's feed. Interactive features are disabled."
)

// readOnlyCSS disables the site's interactive controls and dims them.
const readOnlyCSS = `
[data-testid="like"],
[data-testid="unlike"],
[data-testid="reply"],
[data-testid="retweet"],
[data-testid="unretweet"],
[data-testid="bookmark"],
[data-testid="unbookmark"],
[data-testid="share"],
[data-testid="follow"],
[data-testid="unfollow"],
[data-testid="tweetTextarea_0"],
[data-testid="tweetButton"],
[data-testid="tweetButtonInline"],
[data-testid="postButton"],
[data-testid="postButtonInline"] {
  pointer-events: none !important;
  opacity: 0.5 !important;
  cursor: not-allowed !important;
}

[data-testid="tweetTextarea_0"] {
  pointer-events: none !important;
  background-color: #f7f9fa !important;
  color: #657786 !important;
}

.feedswitch-readonly-indicator {
  position: fixed;
  top: 10px;
  right: 10px;
  background: #ff6b6b;
  color: white;
  padding: 8px 12px;
  border-radius: 20px;
  font-size: 12px;
  font-weight: bold;
  z-index: 9999;
  box-shadow: 0 2px 10px rgba(0,0,0,0.2);
}
`

// Presenter toggles the read-only overlay in response to explicit messages.
// It holds no network behaviour; the overlay is presentation only.
type Presenter struct {
	doc    Document
	active ActiveTokenFunc
	logger *log.Logger

	mu       sync.Mutex
	readOnly bool
}

// NewPresenter wires a presenter to its document and the controller query.
func NewPresenter(doc Document, active ActiveTokenFunc, logger *log.Logger) *Presenter {
	if logger == nil {
		logger = log.Default()
	}
	return &Presenter{doc: doc, active: active, logger: logger}
}

// Init decides the initial mode by asking whether a token is active. A
// failed query leaves the page in normal mode.
func (p *Presenter) Init(ctx context.Context) {
	if p.active == nil {
		return
	}
	token, err := p.active(ctx)
	if err != nil {
		p.logger.Printf("WARN active token query failed: %v", err)
		return
	}
	if token != nil {
		if err := p.SetReadOnly(ctx, true); err != nil {
			p.logger.Printf("WARN enabling read-only mode failed: %v", err)
		}
	}
}

// SetReadOnly toggles the overlay. Enabling twice or disabling twice is a
// no-op beyond redundant DOM churn.
func (p *Presenter) SetReadOnly(_ context.Context, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if enabled {
		if err := p.doc.InjectStylesheet(stylesheetID, readOnlyCSS); err != nil {
			return err
		}
		if err := p.doc.ShowBadge(badgeID, badgeText, badgeTitle); err != nil {
			return err
		}
	} else {
		if err := p.doc.RemoveStylesheet(stylesheetID); err != nil {
			return err
		}
		if err := p.doc.RemoveBadge(badgeID); err != nil {
			return err
		}
	}

	p.readOnly = enabled
	return nil
}

// ReadOnly reports the current presentation mode.
func (p *Presenter) ReadOnly() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readOnly
}
