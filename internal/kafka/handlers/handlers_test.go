package handlers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifrelay/internal/domain"
	"notifrelay/internal/kafka/registry"
)

const listenerJSON = `{
	"time": "1718000000000",
	"app": "com.whatsapp",
	"title": "Vitoria",
	"titleBig": "Mensagens Agrupadas",
	"text": "Novas mensagens: 2",
	"subText": "",
	"extraInfoText": "",
	"groupedMessages": [{"title": "Vitoria", "text": "5"}, {"title": "Vitoria", "text": "6"}],
	"icon": "aWNvbg=="
}`

func TestListenerPayload_Bare(t *testing.T) {
	in := registry.DispatchDirect(TopicAndroid, []byte(listenerJSON))
	require.NotNil(t, in)

	assert.Equal(t, "com.whatsapp", in.App)
	assert.Equal(t, "Vitoria", in.Title)
	assert.Equal(t, "Mensagens Agrupadas", in.TitleBig)
	assert.Equal(t, "aWNvbg==", in.Icon)
	assert.Equal(t, []domain.GroupedMessage{
		{Title: "Vitoria", Text: "5"},
		{Title: "Vitoria", Text: "6"},
	}, in.GroupedMessages)
}

func TestListenerPayload_HeadlessWrapper(t *testing.T) {
	wrapped, err := json.Marshal(map[string]string{"notification": listenerJSON})
	require.NoError(t, err)

	in := registry.DispatchDirect(TopicAndroid, wrapped)
	require.NotNil(t, in)
	assert.Equal(t, "com.whatsapp", in.App)
	assert.Len(t, in.GroupedMessages, 2)
}

func TestListenerPayload_Garbage(t *testing.T) {
	assert.Nil(t, registry.DispatchDirect(TopicAndroid, []byte("not json")))
	assert.Nil(t, registry.DispatchDirect(TopicAndroid, []byte(`{"notification": "not json"}`)))
}

func TestNotificationPosted(t *testing.T) {
	data := []byte(`{"eventType":"NOTIFICATION_POSTED","eventId":"e-1","payload":` + listenerJSON + `}`)

	in := registry.Dispatch(TopicCapture, data)
	require.NotNil(t, in)
	assert.Equal(t, "com.whatsapp", in.App)
	assert.Equal(t, "1718000000000", in.Time)
}

func TestNotificationPosted_MissingApp(t *testing.T) {
	data := []byte(`{"eventType":"NOTIFICATION_POSTED","eventId":"e-2","payload":{"title":"x"}}`)
	assert.Nil(t, registry.Dispatch(TopicCapture, data))
}
