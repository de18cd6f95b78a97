package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		err      error
		kind     Kind
		message  string
		data     string
		redirect string
	}{
		{name: "success envelope", status: 200, body: `{"success":true,"data":{"id":1},"message":"ok"}`, kind: KindOK, data: `{"id":1}`},
		{name: "success false with message", status: 200, body: `{"success":false,"message":"bad password"}`, kind: KindRejected, message: "bad password"},
		{name: "success false without message", status: 200, body: `{"success":false}`, kind: KindRejected, message: MsgRejected},
		{name: "legacy code 200", status: 200, body: `{"code":200,"data":[1,2],"msg":"ok"}`, kind: KindOK, data: `[1,2]`},
		{name: "legacy code 401", status: 200, body: `{"code":401,"redirectUrl":"/sso"}`, kind: KindSessionExpired, message: MsgSessionExpired, redirect: "/sso"},
		{name: "legacy other code", status: 200, body: `{"code":500,"msg":"db down"}`, kind: KindRejected, message: "db down"},
		{name: "bare json", status: 200, body: `[1,2,3]`, kind: KindOK, data: `[1,2,3]`},
		{name: "object without envelope", status: 200, body: `{"id":5}`, kind: KindOK, data: `{"id":5}`},
		{name: "empty 204", status: 204, body: ``, kind: KindOK},
		{name: "201 envelope", status: 201, body: `{"success":true,"data":"x"}`, kind: KindOK, data: `"x"`},
		{name: "401", status: 401, body: `{"success":false,"message":"token invalid"}`, kind: KindSessionExpired, message: MsgSessionExpired},
		{name: "401 redirect", status: 401, body: `{"redirectUrl":"https://sso/login"}`, kind: KindSessionExpired, message: MsgSessionExpired, redirect: "https://sso/login"},
		{name: "403 default", status: 403, body: ``, kind: KindForbidden, message: MsgForbidden},
		{name: "403 server message", status: 403, body: `{"success":false,"message":"admins only"}`, kind: KindForbidden, message: "admins only"},
		{name: "404", status: 404, body: `not found`, kind: KindNotFound, message: MsgNotFound},
		{name: "500", status: 500, body: `<html>`, kind: KindServer, message: MsgServer},
		{name: "503 message", status: 503, body: `{"message":"maintenance"}`, kind: KindServer, message: "maintenance"},
		{name: "400 server message", status: 400, body: `{"success":false,"message":"invalid credentials"}`, kind: KindStatus, message: "invalid credentials"},
		{name: "418 default", status: 418, body: ``, kind: KindStatus, message: "Request failed with status 418"},
		{name: "transport", err: errors.New("dial tcp: connection refused"), kind: KindTransport, message: MsgTransport},
		{name: "deadline", err: fmt.Errorf("get: %w", context.DeadlineExceeded), kind: KindTransport, message: MsgTransport},
		{name: "canceled", err: context.Canceled, kind: KindCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.status, []byte(tt.body), tt.err)
			assert.Equal(t, tt.kind, got.Kind)
			if tt.kind != KindOK {
				assert.Equal(t, tt.message, got.Message)
			}
			assert.Equal(t, tt.redirect, got.RedirectURL)
			if tt.data != "" {
				assert.JSONEq(t, tt.data, string(got.Data))
			}
		})
	}
}

func TestOutcomeAsError(t *testing.T) {
	require.NoError(t, Outcome{Kind: KindOK}.AsError())

	err := Classify(http.StatusUnauthorized, nil, nil).AsError()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.NotErrorIs(t, err, ErrTransport)
	assert.True(t, IsAuthRejection(err))
	assert.Equal(t, KindSessionExpired, KindOf(err))

	rejected := Classify(200, []byte(`{"success":false}`), nil).AsError()
	assert.ErrorIs(t, rejected, ErrRejected)
	assert.True(t, IsAuthRejection(rejected))

	cause := errors.New("boom")
	transport := Classify(0, nil, cause).AsError()
	assert.ErrorIs(t, transport, ErrTransport)
	assert.ErrorIs(t, transport, cause)
	assert.False(t, IsAuthRejection(transport))

	server := Classify(502, nil, nil).AsError()
	assert.False(t, IsAuthRejection(server))
	assert.Contains(t, server.Error(), "status 502")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindOK, KindOf(nil))
	assert.Equal(t, KindTransport, KindOf(errors.New("plain")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("wrapped: %w", &Error{Kind: KindNotFound})))
}

func TestKindNames(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range Kinds() {
		name := k.String()
		assert.NotEmpty(t, name)
		assert.False(t, seen[name], "duplicate kind name %s", name)
		seen[name] = true
	}
	assert.Equal(t, "kind(200)", Kind(200).String())
}
