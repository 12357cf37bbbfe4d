package ports

import "context"

// Duct is the duplex-channel transport both remote sides speak. Call issues a
// request and waits for its reply; Send is fire-and-forget; Subscribe installs
// the handler invoked for server pushes of the named event, replacing any
// previous handler for that event.
//
// A Duct carries exactly one connection and one logical session; it is not
// safe to share between sessions.
type Duct interface {
	Open(ctx context.Context, wsdURL string) error
	Call(ctx context.Context, event string, payload map[string]any) (map[string]any, error)
	Send(ctx context.Context, event string, payload map[string]any) error
	Subscribe(event string, fn func(payload map[string]any))
	SetErrorListener(fn func(err error))
	Close() error
}
