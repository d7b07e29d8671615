package endpointtests

import (
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msrp-tools/msrp-contract-tests/framework/ldtest"
	"github.com/msrp-tools/msrp-contract-tests/scenario"
	"github.com/msrp-tools/msrp-contract-tests/servicedef"
)

func DoMessagingTests(t *ldtest.T) {
	pair := scenario.DefaultPair()

	t.Run("each message is confirmed to its sender", func(t *ldtest.T) {
		e, _ := NewConnectedPair(t, "messaging")
		script := scenario.AlternatingScript(pair, "Hello", "Hi!", "How are you?", "Fine, thanks")
		sent, err := scenario.Exchange(e.Harness(), script)
		require.NoError(t, err)
		assert.Len(t, sent, len(script))
	})

	t.Run("messages are delivered to the peer", func(t *ldtest.T) {
		e, _ := NewConnectedPair(t, "messaging")
		script := scenario.AlternatingScript(pair, "Hello", "Hi!", "How are you?", "Fine, thanks").WithDelivery(pair)
		_, err := scenario.Exchange(e.Harness(), script)
		require.NoError(t, err)

		received := e.RequireMessages(t, servicedef.RoleActive, servicedef.EventMessageReceived)
		if assert.Len(t, received, 2) {
			assert.Equal(t, "Hi!", received[0].GetString("content"))
			assert.Equal(t, "Fine, thanks", received[1].GetString("content"))
		}
	})

	t.Run("message with explicit content type", func(t *ldtest.T) {
		e, _ := NewConnectedPair(t, "messaging")
		_, err := scenario.Exchange(e.Harness(), scenario.Script{{
			From:        pair.Active,
			SessionID:   pair.ActiveSession,
			Content:     "plain text",
			ContentType: "text/plain",
			To:          pair.Passive,
			ToSessionID: pair.PassiveSession,
		}})
		require.NoError(t, err)
	})

	t.Run("message containing line breaks and non-ASCII text", func(t *ldtest.T) {
		e, _ := NewConnectedPair(t, "messaging")
		script := scenario.AlternatingScript(pair, "first line\nsecond line", "żółw 🐢").WithDelivery(pair)
		_, err := scenario.Exchange(e.Harness(), script)
		require.NoError(t, err)
	})

	t.Run("message to a session that does not exist", func(t *ldtest.T) {
		e := NewEndpointPair(t, "messaging")
		e.Send(t, servicedef.RoleActive, servicedef.CommandSendMessage,
			servicedef.SessionParams("no_such_session"), map[string]interface{}{"content": "Hello"})
		e.RequireError(t, servicedef.RoleActive, "Session not found")
		assert.Len(t, e.RequireMessages(t, servicedef.RoleActive, servicedef.EventMessageSent), 0)
		e.RequireNoEvent(t, servicedef.RolePassive, servicedef.EventMessageReceived, time.Millisecond*200)
	})
}
