package resource

import (
	"context"

	"github.com/guseggert/terminalwire/entitlement"
	"github.com/guseggert/terminalwire/protocol"
	"github.com/pkg/browser"
	"go.uber.org/zap"
)

// OpenURLFunc opens a URL for the user.
type OpenURLFunc func(url string) error

type Browser struct {
	*Base
	policy *entitlement.Policy
	open   OpenURLFunc
}

// NewBrowser opens URLs with open, or the system browser when open is nil.
func NewBrowser(responder Responder, policy *entitlement.Policy, open OpenURLFunc, log *zap.SugaredLogger) *Browser {
	if open == nil {
		open = browser.OpenURL
	}
	b := &Browser{policy: policy, open: open}
	b.Base = NewBase("browser", responder, log, b.permit, map[string]Handler{
		"launch": b.launch,
	})
	return b
}

func (b *Browser) permit(_ string, params protocol.Parameters) (bool, error) {
	url, err := params.String("url")
	if err != nil {
		return false, err
	}
	return b.policy.IsSchemePermitted(url), nil
}

func (b *Browser) launch(_ context.Context, params protocol.Parameters) (any, error) {
	return nil, b.open(params["url"].(string))
}
