package adminkit

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// ContextKeySession is the fiber locals key holding the authenticated Session.
const ContextKeySession = "adminkit_session"

// AuthGuard wraps protected routes: it rejects unauthenticated requests and
// enforces per-route role requirements. Browser requests get a redirect to
// the login route with the rejected path stashed in a cookie; API requests
// get a JSON classification.
type AuthGuard struct {
	session *AuthSession
	cfg     Config
	logger  Logger

	rules []guardRule

	AuthErrorHandler func(c *fiber.Ctx, err error) error
	ErrorHandler     func(c *fiber.Ctx, err error) error
}

type guardRule struct {
	prefix string
	roles  []UserRole
}

func NewAuthGuard(session *AuthSession, cfg Config) *AuthGuard {
	if cfg == nil {
		cfg = SessionConfig{}
	}

	g := &AuthGuard{
		session: session,
		cfg:     cfg,
		logger:  defLogger{},
	}

	g.AuthErrorHandler = g.defaultAuthErrHandler
	g.ErrorHandler = g.defaultErrHandler

	return g
}

func (g *AuthGuard) WithLogger(logger Logger) *AuthGuard {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// RequireRoles registers a role requirement for every path under prefix.
// The longest matching prefix wins. Paths with no matching rule only require
// authentication.
func (g *AuthGuard) RequireRoles(prefix string, roles ...UserRole) *AuthGuard {
	g.rules = append(g.rules, guardRule{prefix: prefix, roles: roles})
	sort.SliceStable(g.rules, func(i, j int) bool {
		return len(g.rules[i].prefix) > len(g.rules[j].prefix)
	})
	return g
}

// Protect is the route middleware. On success the Session is stored in the
// request locals under ContextKeySession.
func (g *AuthGuard) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !g.session.Authenticated() {
			return g.AuthErrorHandler(c, ErrUnableToFindSession)
		}

		sess := g.session.Current()

		if roles := g.rolesFor(c.Path()); len(roles) > 0 {
			if !RoleAllowed(sess.Role, roles) {
				g.logger.Info("access denied for role %q on %s", sess.Role, c.Path())
				return g.ErrorHandler(c, ErrAccessDenied)
			}
		}

		g.session.RecordActivity(c.UserContext())
		c.Locals(ContextKeySession, sess)

		return c.Next()
	}
}

// SessionFromCtx retrieves the Session stored by Protect, nil when absent.
func SessionFromCtx(c *fiber.Ctx) *Session {
	sess, _ := c.Locals(ContextKeySession).(*Session)
	return sess
}

func (g *AuthGuard) rolesFor(path string) []UserRole {
	for _, rule := range g.rules {
		if strings.HasPrefix(path, rule.prefix) {
			return rule.roles
		}
	}
	return nil
}

// SetRedirect stashes the rejected path in a short lived cookie so the login
// flow can send the user back where they were headed.
func (g *AuthGuard) SetRedirect(c *fiber.Ctx) {
	rejectedRoute := g.cfg.GetRejectedRouteKey()

	g.logger.Info("setting redirect cookie %s=%s", rejectedRoute, c.OriginalURL())

	c.Cookie(&fiber.Cookie{
		Name:     rejectedRoute,
		Value:    c.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// PostLoginRedirect returns the stashed rejected path, or def when none was
// stored, clearing the cookie either way.
func (g *AuthGuard) PostLoginRedirect(c *fiber.Ctx, def string) string {
	rejectedRoute := g.cfg.GetRejectedRouteKey()
	r := c.Cookies(rejectedRoute)
	if r == "" {
		return def
	}
	g.cookieDel(c, rejectedRoute)
	return r
}

func (g *AuthGuard) cookieDel(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *AuthGuard) defaultAuthErrHandler(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryAuth, "an unexpected authentication error").
			WithCode(goerrors.CodeUnauthorized)
	}

	g.logger.Info("authentication rejected on %s: %s (%s)",
		c.OriginalURL(), richErr.Message, richErr.TextCode)

	if wantsJSON(c) {
		return c.Status(http.StatusUnauthorized).JSON(Classify(err))
	}

	g.SetRedirect(c)

	statusCode := http.StatusSeeOther
	if c.Method() == fiber.MethodGet {
		statusCode = http.StatusFound
	}
	return c.Redirect(g.cfg.GetLoginRoute(), statusCode)
}

func (g *AuthGuard) defaultErrHandler(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "an unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	g.logger.Info("guard error handler: %s category=%s details=%s",
		richErr.Message, richErr.Category, print.MaybePrettyJSON(richErr.Metadata))

	switch richErr.Category {
	case goerrors.CategoryAuth:
		return g.AuthErrorHandler(c, richErr)
	case goerrors.CategoryAuthz:
		// Denied is terminal: redirecting to login would loop, the user is
		// already signed in.
		classification := Classify(richErr)
		if wantsJSON(c) {
			return c.Status(http.StatusForbidden).JSON(classification)
		}
		return c.Status(http.StatusForbidden).SendString(classification.UserMessage)
	default:
		status := richErr.Code
		if status == 0 {
			status = http.StatusInternalServerError
		}
		if wantsJSON(c) {
			return c.Status(status).JSON(Classify(richErr))
		}
		return c.Status(status).SendString(Classify(richErr).UserMessage)
	}
}

func wantsJSON(c *fiber.Ctx) bool {
	if c.XHR() {
		return true
	}
	accept := c.Get(fiber.HeaderAccept)
	if strings.Contains(accept, fiber.MIMEApplicationJSON) {
		return !strings.Contains(accept, fiber.MIMETextHTML)
	}
	return false
}
