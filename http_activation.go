package credentials

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// Activate handles the link sent in the activation email.
func (a *AccountController) Activate(ctx router.Context) error {
	req := ActivateAccountMessage{
		UserID: ctx.Param("id", ""),
		Code:   ctx.Param("code", ""),
	}

	if req.UserID == "" || req.Code == "" {
		return ctx.Status(fiber.StatusBadRequest).Render("errors/400", router.ViewContext{
			"message": "Bad Request",
		})
	}

	handler := NewActivateAccountHandler(a.Repo, a.commandOptions()...)
	err := handler.Execute(ctx.Context(), req)

	switch {
	case err == nil:
		return flash.WithSuccess(ctx, router.ViewContext{
			"success_message": MessageActivated,
		}).Redirect(a.Config.GetLoginURL(), fiber.StatusSeeOther)
	case errors.Is(err, ErrUserAlreadyActivated):
		return flash.WithError(ctx, router.ViewContext{
			"warning_message": MessageAlreadyActivated,
		}).Redirect(a.Config.GetLoginURL(), fiber.StatusSeeOther)
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrActivationFailed):
		a.Logger.Info("activation rejected", "user", req.UserID, "error", err)
	default:
		a.Logger.Error("activate account", "user", req.UserID, "error", err)
	}

	return flash.WithError(ctx, router.ViewContext{
		"error_message": MessageActivationProblem,
	}).Redirect(a.Config.GetHomeURL(), fiber.StatusSeeOther)
}

func (a *AccountController) ResendShow(ctx router.Context) error {
	return ctx.Render(a.Views.Resend, router.ViewContext{
		"errors": map[string]string{},
		"record": ResendActivationPayload{},
	})
}

// ResendActivationPayload is the resend form
type ResendActivationPayload struct {
	Email string `form:"email" json:"email"`
}

func (a *AccountController) ResendPost(ctx router.Context) error {
	payload := new(ResendActivationPayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("resend activation parse payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Redirect(a.Routes.Resend, fiber.StatusSeeOther)
	}

	req := ResendActivationMessage{Email: payload.Email}
	if err := req.Validate(); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": MessageValidationProblems,
			"validation":    FormatValidationErrorToMap(err),
			"record":        payload,
		}).Redirect(a.Routes.Resend, fiber.StatusSeeOther)
	}

	if !a.ResendThrottle.Allow(a.ThrottleKey(ctx)) {
		return a.throttled(a.Routes.Resend)(ctx, ErrThrottled)
	}

	var res *ResendActivationResponse
	req.OnResponse = func(resp *ResendActivationResponse) {
		res = resp
	}

	handler := NewResendActivationHandler(a.Repo, a.commandOptions()...)
	if err := handler.Execute(ctx.Context(), req); err != nil {
		message := MessageUnexpectedAccount
		switch {
		case errors.Is(err, ErrUserNotFound):
			message = MessageResendUnknownUser
		case errors.Is(err, ErrUserAlreadyActivated):
			message = MessageResendActivated
		default:
			a.Logger.Error("resend activation", "error", err)
		}
		return flash.WithError(ctx, router.ViewContext{
			"error_message": message,
			"record":        payload,
		}).Redirect(a.Routes.Resend, fiber.StatusSeeOther)
	}

	if a.Debug {
		fmt.Println("======= ACTIVATION RESEND ======")
		fmt.Println(print.MaybePrettyJSON(res.Mail))
		fmt.Println("================================")
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"success_message": MessageResendSent,
	}).Redirect(a.Routes.Resend, fiber.StatusSeeOther)
}

// throttled answers requests rejected by a throttler.
func (a *AccountController) throttled(redirect string) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		key := a.ThrottleKey(ctx)
		a.Logger.Warn("request throttled", "key", key, "path", redirect, "error", err)
		emitActivity(ctx.Context(), a.Activity, a.Logger, ActivityEvent{
			EventType: ActivityEventThrottled,
			Actor:     ActorRef{ID: key, Type: "client"},
			Metadata:  map[string]any{"path": redirect},
		})
		return flash.WithError(ctx, router.ViewContext{
			"error_message": MessageThrottled,
		}).Redirect(redirect, fiber.StatusSeeOther)
	}
}
