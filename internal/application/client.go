// Package application exposes the facade over the two remote sides: connect,
// sign in, publish tasks to the marketplace and watch their responses.
package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/iflb/neji-tutti-client/internal/domain"
	"github.com/iflb/neji-tutti-client/internal/ducts"
	"github.com/iflb/neji-tutti-client/internal/market"
	"github.com/iflb/neji-tutti-client/internal/ports"
	"github.com/iflb/neji-tutti-client/internal/works"
)

// The duct endpoint suffix appended to normalized host strings.
const wsdPath = "/ducts/wsd"

// defaultGraceWindow bounds how long Open waits for asynchronous connection
// errors the transport reports out-of-band from the open call itself. Errors
// arriving later are not converted into an Open failure.
const defaultGraceWindow = 100 * time.Millisecond

// Client sequences the task-management client and the marketplace controller
// behind one object. One instance carries one logical session per side;
// concurrent publishes against the same instance are not supported.
type Client struct {
	// GraceWindow overrides the async connection-error window used by Open.
	// Zero means the default.
	GraceWindow time.Duration

	works  *works.Client
	market *market.Controller
	clock  ports.Clock
}

// NewClient wires a facade over real duct transports.
func NewClient(logger *slog.Logger) *Client {
	return NewClientWith(
		works.NewClient(ducts.NewClient(), logger),
		market.NewController(ducts.NewClient(), logger),
		ports.SystemClock{},
	)
}

// NewClientWith injects the two side clients and the clock.
func NewClientWith(w *works.Client, m *market.Controller, clock ports.Clock) *Client {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Client{works: w, market: m, clock: clock}
}

// Works exposes the task-management client for operations the facade does not
// cover.
func (c *Client) Works() *works.Client { return c.works }

// Market exposes the marketplace controller for operations the facade does
// not cover.
func (c *Client) Market() *market.Controller { return c.market }

// Open connects to both sides. Empty hosts are skipped. Both opens run
// concurrently and Open returns once both finished; the first failure
// surfaces as a ConnectionError naming the side that failed.
func (c *Client) Open(ctx context.Context, worksHost, marketHost string) error {
	p := pool.New().WithErrors().WithContext(ctx)
	if worksHost != "" {
		p.Go(func(ctx context.Context) error { return c.OpenWorks(ctx, worksHost) })
	}
	if marketHost != "" {
		p.Go(func(ctx context.Context) error { return c.OpenMarket(ctx, marketHost) })
	}
	return p.Wait()
}

func (c *Client) OpenWorks(ctx context.Context, host string) error {
	return c.openSide(ctx, domain.ResourceWorks, host, c.works.SetConnectionErrorListener, c.works.Open)
}

func (c *Client) OpenMarket(ctx context.Context, host string) error {
	return c.openSide(ctx, domain.ResourceMarket, host, c.market.SetConnectionErrorListener, c.market.Open)
}

func (c *Client) openSide(
	ctx context.Context,
	resource string,
	host string,
	setListener func(fn func(err error)),
	open func(ctx context.Context, wsdURL string) error,
) error {
	async := make(chan error, 1)
	setListener(func(err error) {
		select {
		case async <- err:
		default:
		}
	})

	if err := open(ctx, WsdEndpoint(host)); err != nil {
		return &domain.ConnectionError{Resource: resource, Err: err}
	}

	// Some transports only report a failed connection asynchronously, after
	// the open call already returned. Wait out the grace window so such
	// failures still surface from Open.
	window := c.GraceWindow
	if window <= 0 {
		window = defaultGraceWindow
	}
	timer := time.NewTimer(window)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-async:
		return &domain.ConnectionError{Resource: resource, Err: err}
	case <-timer.C:
	}
	return nil
}

// WsdEndpoint normalizes a caller-supplied host (one trailing slash stripped)
// and appends the duct endpoint path.
func WsdEndpoint(host string) string {
	return strings.TrimSuffix(host, "/") + wsdPath
}

func (c *Client) Close() error {
	worksErr := c.CloseWorks()
	marketErr := c.CloseMarket()
	if worksErr != nil {
		return worksErr
	}
	return marketErr
}

func (c *Client) CloseWorks() error  { return c.works.Close() }
func (c *Client) CloseMarket() error { return c.market.Close() }

// MarketSignInParams names the marketplace credentials for the combined
// SignIn. A zero AccessTokenLifetime requests the default lifetime.
type MarketSignInParams struct {
	UserID              string
	Password            string
	AccessTokenLifetime time.Duration
}

// SignIn signs in to the task-management side first and to the marketplace
// second, strictly in that order. The marketplace sign-in never starts when
// the first one fails.
func (c *Client) SignIn(ctx context.Context, worksCreds domain.WorksCredentials, marketParams MarketSignInParams) error {
	if err := c.SignInWorks(ctx, worksCreds); err != nil {
		return err
	}
	_, err := c.SignInMarket(ctx, marketParams.UserID, marketParams.Password, marketParams.AccessTokenLifetime)
	return err
}

func (c *Client) SignInWorks(ctx context.Context, creds domain.WorksCredentials) error {
	return c.works.SignIn(ctx, creds)
}

func (c *Client) SignInMarket(ctx context.Context, userID, password string, accessTokenLifetime time.Duration) (domain.MarketSession, error) {
	return c.market.SignIn(ctx, userID, password, accessTokenLifetime)
}

// SignOut signs out of the marketplace first, then the task-management side.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.SignOutMarket(ctx); err != nil {
		return err
	}
	return c.SignOutWorks(ctx)
}

func (c *Client) SignOutWorks(ctx context.Context) error  { return c.works.SignOut(ctx) }
func (c *Client) SignOutMarket(ctx context.Context) error { return c.market.SignOut(ctx) }
