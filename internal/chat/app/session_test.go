package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"realtime_chat_service/internal/chat/domain"
)

// 測試 group 記錄:join/leave 與 Close 的 cancel 行為
func TestSession_Groups(t *testing.T) {
	sess := NewSession(nil, "user-1")

	cancelled := map[string]bool{}
	addGroup := func(id string) {
		sess.AddGroup(id, func() { cancelled[id] = true })
	}

	addGroup("conv-1")
	addGroup("conv-2")
	assert.True(t, sess.Joined("conv-1"))
	assert.True(t, sess.Joined("conv-2"))
	assert.False(t, sess.Joined("conv-3"))
	assert.ElementsMatch(t, []string{"conv-1", "conv-2"}, sess.Groups())

	sess.RemoveGroup("conv-1")
	assert.False(t, sess.Joined("conv-1"))
	assert.True(t, cancelled["conv-1"])
	assert.False(t, cancelled["conv-2"])

	sess.Close()
	assert.True(t, cancelled["conv-2"])
	assert.Empty(t, sess.Groups())
}

// 重複 join 同一個 conversation 要先取消舊的訂閱
func TestSession_AddGroup_Replace(t *testing.T) {
	sess := NewSession(nil, "user-1")

	oldCancelled := false
	sess.AddGroup("conv-1", func() { oldCancelled = true })
	sess.AddGroup("conv-1", func() {})

	assert.True(t, oldCancelled)
	assert.Len(t, sess.Groups(), 1)
}

// Close 之後 AddGroup 要立刻取消,不能留下訂閱
func TestSession_AddGroup_AfterClose(t *testing.T) {
	sess := NewSession(nil, "user-1")
	sess.Close()

	cancelled := false
	sess.AddGroup("conv-1", func() { cancelled = true })

	assert.True(t, cancelled)
	assert.False(t, sess.Joined("conv-1"))
}

// Push 在 Close 之後回 false,不會寫進已關閉的 channel
func TestSession_Push_AfterClose(t *testing.T) {
	sess := NewSession(nil, "user-1")

	assert.True(t, sess.Push(domain.WSPush{Event: domain.EventReceiveMessage}))

	sess.Close()
	assert.False(t, sess.Push(domain.WSPush{Event: domain.EventReceiveMessage}))
}

// deliver 會丟掉這條連線自己發出的事件 (typing 的 Others 語意)
func TestChatGatewayHandler_Deliver_OriginExcluded(t *testing.T) {
	h := &ChatGatewayHandler{}
	sess := NewSession(nil, "user-1")

	// 自己發出的 typing 事件
	h.deliver(sess, domain.Envelope{
		Event:  domain.EventUserStartedTyping,
		Origin: sess.ID,
	})
	assert.Empty(t, sess.send)

	// 別人的事件要推下去
	h.deliver(sess, domain.Envelope{
		Event:  domain.EventUserStartedTyping,
		Origin: "other-session",
		Payload: domain.TypingPayload{
			UserID:         "user-2",
			ConversationID: "conv-1",
		},
	})
	assert.Len(t, sess.send, 1)

	var push domain.WSPush
	assert.NoError(t, json.Unmarshal(<-sess.send, &push))
	assert.Equal(t, domain.EventUserStartedTyping, push.Event)

	// Origin 為空 (message broadcast) 時大家都收,包含 sender 自己
	h.deliver(sess, domain.Envelope{Event: domain.EventReceiveMessage})
	assert.Len(t, sess.send, 1)
}

// 同一個 connection context 下掛著的 group 訂閱,連線關閉要一起取消
func TestSession_GroupContexts(t *testing.T) {
	sess := NewSession(nil, "user-1")
	connCtx, connCancel := context.WithCancel(context.Background())

	subCtx, subCancel := context.WithCancel(connCtx)
	sess.AddGroup("conv-1", subCancel)

	connCancel()
	<-subCtx.Done()
	assert.Error(t, subCtx.Err())
}
