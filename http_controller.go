package credentials

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"

	"github.com/goliatone/go-credentials/revision"
	"github.com/goliatone/go-credentials/revision/displayers"
)

const (
	MessageActivated          = "Your account has been activated successfully. You may now login."
	MessageActivationProblem  = "There was a problem activating this account. Please contact support."
	MessageAlreadyActivated   = "You have already activated this account. You may want to login."
	MessageResendSent         = "Check your email for your new activation email."
	MessageResendUnknownUser  = "That user does not exist."
	MessageResendActivated    = "That user is already activated."
	MessageThrottled          = "You have made too many attempts. Please try again later."
	MessageDetailsUpdated     = "Your details have been updated successfully."
	MessagePasswordUpdated    = "Your password has been updated successfully."
	MessageAccountDeleted     = "Your account has been deleted successfully."
	MessageEmailTaken         = "That email address is already in use."
	MessageUnexpectedAccount  = "There was a problem updating your account."
	MessageValidationProblems = "Please correct the errors in the form."
)

// RegisterCredentialsRoutes wires the activation and profile routes.
func RegisterCredentialsRoutes[T any](app router.Router[T], opts ...AccountControllerOption) *AccountController {
	controller := NewAccountController(opts...)

	activate := ThrottleMiddleware(controller.ActivationThrottle, controller.ThrottleKey, controller.throttled(controller.Config.GetHomeURL()))

	app.Get(fmt.Sprintf("%s/:id/:code", controller.Routes.Activate), controller.Activate, activate).
		SetName("account.activate")

	app.Get(controller.Routes.Resend, controller.ResendShow).
		SetName("account.resend.get")
	app.Post(controller.Routes.Resend, controller.ResendPost).
		SetName("account.resend.post")

	protected := controller.Protect
	app.Get(controller.Routes.Profile, controller.ProfileShow, protected...).
		SetName("account.profile")
	app.Post(controller.Routes.Details, controller.DetailsUpdate, protected...).
		SetName("account.details.post")
	app.Post(controller.Routes.Password, controller.PasswordUpdate, protected...).
		SetName("account.password.post")
	app.Post(controller.Routes.Delete, controller.AccountDelete, protected...).
		SetName("account.delete.post")
	app.Get(controller.Routes.History, controller.HistoryShow, protected...).
		SetName("account.history")
	app.Get(controller.Routes.History+".json", controller.HistoryJSON, protected...).
		SetName("account.history.json")

	return controller
}

type AccountControllerRoutes struct {
	Activate string
	Resend   string
	Profile  string
	Details  string
	Password string
	Delete   string
	History  string
}

type AccountControllerViews struct {
	Resend  string
	Profile string
	History string
}

// AccountController serves account activation and the profile pages.
type AccountController struct {
	Debug              bool
	Logger             Logger
	Repo               RepositoryManager
	Config             Config
	Mailer             Mailer
	Activity           ActivitySink
	Displayers         revision.Resolver
	ActivationThrottle Throttler
	ResendThrottle     Throttler
	ThrottleKey        ThrottleKeyFunc
	ContextKey         string
	HistoryLimit       int
	Protect            []router.MiddlewareFunc
	Routes             *AccountControllerRoutes
	Views              *AccountControllerViews
	ErrorHandler       router.ErrorHandler
}

type AccountControllerOption func(*AccountController) *AccountController

func WithAccountRepository(repo RepositoryManager) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Repo = repo
		return c
	}
}

func WithAccountConfig(cfg Config) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if cfg != nil {
			c.Config = cfg
		}
		return c
	}
}

func WithAccountMailer(m Mailer) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Mailer = m
		return c
	}
}

func WithAccountActivitySink(sink ActivitySink) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Activity = normalizeActivitySink(sink)
		return c
	}
}

func WithAccountLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithAccountThrottlers(activation, resend Throttler) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.ActivationThrottle, c.ResendThrottle = activation, resend
		return c
	}
}

func WithAccountThrottleKey(key ThrottleKeyFunc) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if key != nil {
			c.ThrottleKey = key
		}
		return c
	}
}

func WithAccountDisplayers(resolver revision.Resolver) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if resolver != nil {
			c.Displayers = resolver
		}
		return c
	}
}

// WithAccountProtection guards the profile routes, usually with the JWT middleware.
func WithAccountProtection(mw ...router.MiddlewareFunc) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Protect = append(c.Protect, mw...)
		return c
	}
}

func WithAccountErrorHandler(h router.ErrorHandler) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.ErrorHandler = h
		return c
	}
}

func WithAccountDebug(debug bool) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Debug = debug
		return c
	}
}

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	_, logger := ResolveLogger("credentials.account", nil, nil)
	c := &AccountController{
		Logger:       logger,
		Config:       DefaultSettings(),
		Activity:     noopActivitySink{},
		ThrottleKey:  ClientIPKey,
		ContextKey:   DefaultContextKey,
		HistoryLimit: DefaultHistoryLimit,
		Routes: &AccountControllerRoutes{
			Activate: "/account/activate",
			Resend:   "/account/resend",
			Profile:  "/account/profile",
			Details:  "/account/details",
			Password: "/account/password",
			Delete:   "/account/delete",
			History:  "/account/history",
		},
		Views: &AccountControllerViews{
			Resend:  "account/resend",
			Profile: "account/profile",
			History: "account/history",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in account controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.defaultErrHandler
	}

	if c.ActivationThrottle == nil {
		c.ActivationThrottle = NewRateThrottler(c.Config.GetActivationThrottle())
	}

	if c.ResendThrottle == nil {
		c.ResendThrottle = NewRateThrottler(c.Config.GetResendThrottle())
	}

	if c.Displayers == nil {
		c.Displayers = displayers.NewRegistry()
	}

	if c.Mailer == nil {
		mailer, err := NewTemplateMailer(c.Config.GetMailFrom(), WithMailLogger(c.Logger))
		if err != nil {
			panic(err)
		}
		c.Mailer = mailer
	}

	return c
}

func (a *AccountController) commandOptions() []CommandOption {
	return []CommandOption{
		WithCommandConfig(a.Config),
		WithCommandMailer(a.Mailer),
		WithCommandActivitySink(a.Activity),
		WithCommandLogger(a.Logger),
	}
}

// currentUser loads the signed in account.
func (a *AccountController) currentUser(ctx router.Context) (*User, error) {
	claims, ok := GetRouterClaims(ctx, a.ContextKey)
	if !ok {
		return nil, ErrUnauthenticated
	}

	id, ok := ClaimsUserID(claims)
	if !ok {
		return nil, ErrUnauthenticated
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), id.String())
	if err != nil {
		return nil, surfaceError(err, "failed to load current user")
	}
	return user, nil
}

func (a *AccountController) ProfileShow(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	groups, err := a.Repo.Groups().NamesForUser(ctx.Context(), user.ID)
	if err != nil {
		a.Logger.Error("profile groups", "error", err)
	}

	return ctx.Render(a.Views.Profile, router.ViewContext{
		"user":   user,
		"groups": groups,
		"errors": map[string]string{},
	})
}

// DetailsPayload is the profile details form
type DetailsPayload struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Email     string `form:"email" json:"email"`
}

func (a *AccountController) DetailsUpdate(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(DetailsPayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("update details parse payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Redirect(a.Routes.Profile, fiber.StatusSeeOther)
	}

	if a.Debug {
		fmt.Println("======= ACCOUNT DETAILS ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("==============================")
	}

	req := UpdateDetailsMessage{
		UserID:    user.ID,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
	}

	handler := NewUpdateDetailsHandler(a.Repo, a.commandOptions()...)
	if err := handler.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("update details", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  accountErrorMessage(err),
			"system_message": "Error updating details",
			"validation":     FormatValidationErrorToMap(err),
		}).Redirect(a.Routes.Profile, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"success_message": MessageDetailsUpdated,
	}).Redirect(a.Routes.Profile, fiber.StatusSeeOther)
}

// PasswordPayload is the profile password form
type PasswordPayload struct {
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"password_confirmation" json:"password_confirmation"`
}

func (a *AccountController) PasswordUpdate(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(PasswordPayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("update password parse payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Redirect(a.Routes.Profile, fiber.StatusSeeOther)
	}

	req := UpdatePasswordMessage{
		UserID:          user.ID,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
	}

	handler := NewUpdatePasswordHandler(a.Repo, a.commandOptions()...)
	if err := handler.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("update password", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  accountErrorMessage(err),
			"system_message": "Error updating password",
			"validation":     FormatValidationErrorToMap(err),
		}).Redirect(a.Routes.Profile, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"success_message": MessagePasswordUpdated,
	}).Redirect(a.Routes.Profile, fiber.StatusSeeOther)
}

func (a *AccountController) AccountDelete(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	handler := NewDeleteAccountHandler(a.Repo, a.commandOptions()...)
	if err := handler.Execute(ctx.Context(), DeleteAccountMessage{UserID: user.ID}); err != nil {
		a.Logger.Error("delete account", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  accountErrorMessage(err),
			"system_message": "Error deleting account",
		}).Redirect(a.Routes.Profile, fiber.StatusSeeOther)
	}

	a.clearSession(ctx)

	return flash.WithSuccess(ctx, router.ViewContext{
		"success_message": MessageAccountDeleted,
	}).Redirect(a.Config.GetHomeURL(), fiber.StatusSeeOther)
}

func (a *AccountController) HistoryShow(ctx router.Context) error {
	user, data, err := a.history(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Render(a.Views.History, router.ViewContext{
		"user":      user,
		"revisions": data,
	})
}

func (a *AccountController) HistoryJSON(ctx router.Context) error {
	_, data, err := a.history(ctx)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Code != 0 {
			return ctx.JSON(richErr.Code, richErr)
		}
		return ctx.JSON(fiber.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(router.StatusOK, map[string]any{"revisions": data})
}

func (a *AccountController) history(ctx router.Context) (*User, []router.ViewContext, error) {
	user, err := a.currentUser(ctx)
	if err != nil {
		return nil, nil, err
	}

	records, err := a.Repo.Revisions().ListForRevisionable(ctx.Context(), revisionTypeUser, user.ID, a.HistoryLimit)
	if err != nil {
		return nil, nil, surfaceError(err, "failed to load account history")
	}

	presenters := revision.PresentAll(RevisionRecords(records), a.Displayers,
		revision.WithAuthContext(revision.ActorContext(user.ID)),
		revision.WithPeopleLookup(a.Repo.Users()),
	)

	data, err := HistoryTemplateData(ctx.Context(), presenters)
	if err != nil {
		return nil, nil, surfaceError(err, "failed to describe account history")
	}

	if a.Debug {
		fmt.Println("======= ACCOUNT HISTORY ======")
		fmt.Println(print.MaybePrettyJSON(data))
		fmt.Println("==============================")
	}

	return user, data, nil
}

func (a *AccountController) clearSession(ctx router.Context) {
	ctx.Cookie(&router.Cookie{
		Name:     a.ContextKey,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func accountErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmailTaken):
		return MessageEmailTaken
	case goerrors.IsValidation(err):
		return MessageValidationProblems
	default:
		return MessageUnexpectedAccount
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into field messages
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return out
	}
	for field, ferr := range verrs {
		if ferr != nil {
			out[field] = ferr.Error()
		}
	}
	return out
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

func (a *AccountController) defaultErrHandler(c router.Context, err error) error {
	if errors.Is(err, ErrUnauthenticated) {
		return c.Redirect(a.Config.GetLoginURL(), fiber.StatusSeeOther)
	}
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
