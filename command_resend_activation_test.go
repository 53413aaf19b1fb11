package credentials

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendActivationSendsLink(t *testing.T) {
	repo, _ := newTestManager(t)
	user := registerPendingUser(t, repo, "jane@example.com")
	mailer := &captureMailer{}
	sink := &captureSink{}

	var resp *ResendActivationResponse
	handler := NewResendActivationHandler(repo, commandTestOptions(mailer, sink, &captureLogger{})...)
	err := handler.Execute(context.Background(), ResendActivationMessage{
		Email: "  jane@example.com ",
		OnResponse: func(r *ResendActivationResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	sent := mailer.sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "jane@example.com", msg.To)
	assert.Equal(t, "Acme - Activation", msg.Subject)
	assert.Equal(t, MailTemplateActivation, msg.Template)
	assert.Equal(t, "https://acme.test/account/activate/"+user.ID.String()+"/"+user.ActivationCode, msg.Data["link"])
	assert.Equal(t, "Jane Doe", msg.Data["name"])

	assert.Equal(t, []ActivityEventType{ActivityEventActivationResent}, sink.types())
}

func TestResendActivationGeneratesMissingCode(t *testing.T) {
	repo, db := newTestManager(t)
	user := registerPendingUser(t, repo, "jane@example.com")
	require.NoError(t, repo.Users().SetActivationCodeTx(context.Background(), db, user.ID, ""))

	mailer := &captureMailer{}
	handler := NewResendActivationHandler(repo, commandTestOptions(mailer, nil, &captureLogger{})...)
	require.NoError(t, handler.Execute(context.Background(), ResendActivationMessage{Email: "jane@example.com"}))

	stored, err := repo.Users().GetByID(context.Background(), user.ID.String())
	require.NoError(t, err)
	require.Len(t, stored.ActivationCode, 64)

	sent := mailer.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Data["link"], stored.ActivationCode)
}

func TestResendActivationErrors(t *testing.T) {
	repo, _ := newTestManager(t)
	registerActiveUser(t, repo, "john@example.com")
	mailer := &captureMailer{}
	handler := NewResendActivationHandler(repo, commandTestOptions(mailer, nil, &captureLogger{})...)

	err := handler.Execute(context.Background(), ResendActivationMessage{Email: "nobody@example.com"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = handler.Execute(context.Background(), ResendActivationMessage{Email: "john@example.com"})
	assert.ErrorIs(t, err, ErrUserAlreadyActivated)

	err = handler.Execute(context.Background(), ResendActivationMessage{Email: "not an email"})
	require.Error(t, err)
	assert.True(t, goerrors.IsValidation(err))

	assert.Empty(t, mailer.sent())
}

func TestResendActivationMailFailure(t *testing.T) {
	repo, _ := newTestManager(t)
	registerPendingUser(t, repo, "jane@example.com")
	sink := &captureSink{}
	mailer := &captureMailer{err: errors.New("smtp down")}

	handler := NewResendActivationHandler(repo, commandTestOptions(mailer, sink, &captureLogger{})...)
	err := handler.Execute(context.Background(), ResendActivationMessage{Email: "jane@example.com"})
	require.Error(t, err)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryExternal))
	assert.Empty(t, sink.events)
}
