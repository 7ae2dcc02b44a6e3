package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cbir/internal/gateway"
	"cbir/internal/logging"
	"cbir/internal/notifications"
	"cbir/internal/services"
	"cbir/internal/session"
)

const (
	titleLogin  = "Login"
	titleSignup = "Sign up"

	msgMissingCredentials = "Username and password are required."
	msgLoginFailed        = "Login failed. Please try again."
	msgNoToken            = "Login did not return a session token."
	msgSignupFailed       = "An unexpected error occurred. Please try again."
	msgSignupOK           = "Account created; log in to continue"
)

// Backend is the subset of the gateway the controller needs.
type Backend interface {
	Login(ctx context.Context, username, password string) (string, error)
	Signup(ctx context.Context, username, password string) (string, error)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logging.NewComponentLogger(logger, "account")
	}
}

// WithSink routes outcomes to sink.
func WithSink(sink notifications.Sink) Option {
	return func(c *Controller) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// Controller implements the account flows.
type Controller struct {
	backend Backend
	store   session.Store
	sink    notifications.Sink
	logger  *slog.Logger
}

// New constructs a Controller.
func New(backend Backend, store session.Store, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		store:   store,
		sink:    notifications.Noop{},
		logger:  logging.NewComponentLogger(nil, "account"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the stored session.
func (c *Controller) Current(ctx context.Context) (session.Session, error) {
	sess, err := c.store.Get(ctx)
	if err != nil {
		return session.Session{}, fmt.Errorf("account: read session: %w", err)
	}
	return sess, nil
}

// Login clears the session, exchanges credentials for a token, and stores a
// non-empty token. It returns the resulting session.
func (c *Controller) Login(ctx context.Context, username, password string) (session.Session, error) {
	if err := c.enterFlow(ctx); err != nil {
		return session.Session{}, err
	}
	if err := c.validate(ctx, gateway.OpLogin, titleLogin, username, password); err != nil {
		return session.Session{}, err
	}

	token, err := c.backend.Login(ctx, strings.TrimSpace(username), password)
	if err != nil {
		c.logger.Warn("login failed", "kind", services.Kind(err), logging.Error(err))
		c.notify(ctx, notifications.Failure(titleLogin, services.UserMessage(err, msgLoginFailed)))
		return session.Session{}, err
	}
	if token == "" {
		c.logger.Warn("login returned no token")
		c.notify(ctx, notifications.Warning(titleLogin, msgNoToken))
		return session.Session{}, nil
	}

	if err := c.store.Set(ctx, token); err != nil {
		return session.Session{}, fmt.Errorf("account: store session: %w", err)
	}
	c.logger.Info("logged in", "user", strings.TrimSpace(username))
	c.notify(ctx, notifications.Success(titleLogin, "Logged in as "+strings.TrimSpace(username)))
	return session.Session{Token: token}, nil
}

// Signup clears the session and registers a new account. The user still has
// to log in afterwards.
func (c *Controller) Signup(ctx context.Context, username, password string) (string, error) {
	if err := c.enterFlow(ctx); err != nil {
		return "", err
	}
	if err := c.validate(ctx, gateway.OpSignup, titleSignup, username, password); err != nil {
		return "", err
	}

	if _, err := c.backend.Signup(ctx, strings.TrimSpace(username), password); err != nil {
		c.logger.Warn("signup failed", "kind", services.Kind(err), logging.Error(err))
		c.notify(ctx, notifications.Failure(titleSignup, services.UserMessage(err, msgSignupFailed)))
		return "", err
	}
	c.logger.Info("account created", "user", strings.TrimSpace(username))
	c.notify(ctx, notifications.Success(titleSignup, msgSignupOK))
	return msgSignupOK, nil
}

// Logout clears the session.
func (c *Controller) Logout(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("account: clear session: %w", err)
	}
	c.logger.Info("logged out")
	return nil
}

func (c *Controller) enterFlow(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("account: clear session: %w", err)
	}
	return nil
}

func (c *Controller) validate(ctx context.Context, operation, title, username, password string) error {
	if strings.TrimSpace(username) != "" && password != "" {
		return nil
	}
	c.notify(ctx, notifications.Warning(title, msgMissingCredentials))
	return services.Validation(operation, msgMissingCredentials)
}

func (c *Controller) notify(ctx context.Context, event notifications.Event) {
	if err := c.sink.Notify(ctx, event); err != nil {
		c.logger.Warn("notification failed", logging.Error(err))
	}
}
