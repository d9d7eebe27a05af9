package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/paragishere/Cyvance-chat/internal/domain"
	"github.com/paragishere/Cyvance-chat/internal/infra/lock"
	"github.com/paragishere/Cyvance-chat/internal/repository"
	"github.com/paragishere/Cyvance-chat/internal/repository/mocks"
	"github.com/paragishere/Cyvance-chat/internal/service"
)

var now = time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC)

type testServer struct {
	router      *gin.Engine
	rooms       *mocks.RoomRepository
	messages    *mocks.MessageRepository
	attachments *mocks.AttachmentStore
	purges      int
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	ts := &testServer{
		rooms:       new(mocks.RoomRepository),
		messages:    new(mocks.MessageRepository),
		attachments: new(mocks.AttachmentStore),
	}
	locker := lock.NewKeyedLocker()
	settings := service.DefaultSettings()
	clock := func() time.Time { return now }

	roomService := service.NewRoomService(ts.rooms, ts.messages, ts.attachments, locker, settings).WithClock(clock)
	messageService := service.NewMessageService(ts.rooms, ts.messages, ts.attachments, locker, settings).WithClock(clock)

	r := gin.New()
	r.SetHTMLTemplate(Templates())
	r.GET("/healthz", Healthz)
	NewChatHandler(roomService, messageService).RegisterRoutes(r, func(c *gin.Context) {
		ts.purges++
		c.Next()
	})
	ts.router = r
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) expectRoom(code string, lastActivity time.Time) {
	ts.rooms.On("FindByCode", mock.Anything, code).
		Return(&domain.Room{ID: 1, Code: code, CreatedAt: lastActivity, LastActivity: lastActivity}, nil)
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHome(t *testing.T) {
	ts := newTestServer()

	w := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/create/"`)
	assert.Equal(t, 1, ts.purges)
}

func TestHealthzSkipsPurge(t *testing.T) {
	ts := newTestServer()

	w := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, ts.purges)
}

func TestCreateRoomRedirects(t *testing.T) {
	ts := newTestServer()
	ts.rooms.On("IsCodeExists", mock.Anything, mock.AnythingOfType("string")).Return(false, nil).Once()
	ts.rooms.On("Create", mock.Anything, mock.AnythingOfType("*domain.Room")).Return(nil).Once()

	w := ts.do(httptest.NewRequest(http.MethodPost, "/create/", nil))

	require.Equal(t, http.StatusFound, w.Code)
	location := w.Header().Get("Location")
	assert.Regexp(t, `^/r/[a-z0-9]{8}/$`, location)
	ts.rooms.AssertExpectations(t)
}

func TestRoomView(t *testing.T) {
	ts := newTestServer()
	ts.expectRoom("abcd1234", now.Add(-time.Hour))
	ts.rooms.On("Touch", mock.Anything, "abcd1234", now).Return(nil).Once()

	w := ts.do(httptest.NewRequest(http.MethodGet, "/r/abcd1234/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "abcd1234")
	assert.Contains(t, body, "120 minutes")
	ts.rooms.AssertExpectations(t)
}

func TestRoomView_NotFound(t *testing.T) {
	ts := newTestServer()
	ts.rooms.On("FindByCode", mock.Anything, "gone0000").Return(nil, repository.ErrRoomNotFound)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/r/gone0000/", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	ts.rooms.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything, mock.Anything)
}

func TestListMessages(t *testing.T) {
	ts := newTestServer()
	last := time.Date(2026, 10, 15, 8, 0, 0, 123456000, time.UTC)
	ts.expectRoom("abcd1234", last)
	ts.messages.On("ListSince", mock.Anything, uint(1), (*time.Time)(nil)).Return([]domain.Message{
		{ID: 1, Type: domain.MessageText, Content: "hi", Nickname: "bob", CreatedAt: last},
		{ID: 2, Type: domain.MessageImage, AttachmentPath: "room_images/a.png", Nickname: "anon", CreatedAt: last},
	}, nil).Once()
	ts.attachments.On("URL", "room_images/a.png").Return("/media/room_images/a.png")

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/abcd1234/messages/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "2026-10-15T08:30:00+00:00", body["server_time"])
	assert.Equal(t, "2026-10-15T10:00:00.123456+00:00", body["expires_at"])

	msgs := body["messages"].([]interface{})
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{
		"id":         float64(1),
		"type":       "text",
		"content":    "hi",
		"image_url":  nil,
		"created_at": "2026-10-15T08:00:00.123456+00:00",
		"nickname":   "bob",
	}, first)
	assert.Equal(t, "/media/room_images/a.png", msgs[1].(map[string]interface{})["image_url"])
}

func TestListMessages_WithSince(t *testing.T) {
	ts := newTestServer()
	ts.expectRoom("abcd1234", now)
	cursor := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	ts.messages.On("ListSince", mock.Anything, uint(1), mock.MatchedBy(func(since *time.Time) bool {
		return since != nil && since.Equal(cursor)
	})).Return([]domain.Message{}, nil).Once()

	// "+" 在查询串中未编码时会被解码为空格
	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/abcd1234/messages/?since=2026-10-15T08:00:00+00:00", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"messages":[]`)
	ts.messages.AssertExpectations(t)
}

func TestListMessages_InvalidSince(t *testing.T) {
	ts := newTestServer()
	ts.expectRoom("abcd1234", now)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/abcd1234/messages/?since=yesterday", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid since", w.Body.String())
}

func TestSendText(t *testing.T) {
	ts := newTestServer()
	ts.expectRoom("abcd1234", now)
	var stored *domain.Message
	ts.messages.On("AppendAndTouch", mock.Anything, "abcd1234", mock.AnythingOfType("*domain.Message")).
		Run(func(args mock.Arguments) { stored = args.Get(2).(*domain.Message) }).
		Return(nil).Once()

	w := ts.do(postForm("/api/abcd1234/send/text/", url.Values{"nickname": {"bob"}, "content": {"hi"}}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	require.NotNil(t, stored)
	assert.Equal(t, "hi", stored.Content)
	assert.Equal(t, "bob", stored.Nickname)
}

func TestSendText_ValidationError(t *testing.T) {
	ts := newTestServer()
	ts.expectRoom("abcd1234", now)

	w := ts.do(postForm("/api/abcd1234/send/text/", url.Values{"content": {""}}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"ok":false,"errors":{"content":["This field is required."]}}`, w.Body.String())
}

func TestSendCode(t *testing.T) {
	ts := newTestServer()
	ts.expectRoom("abcd1234", now)
	var stored *domain.Message
	ts.messages.On("AppendAndTouch", mock.Anything, "abcd1234", mock.AnythingOfType("*domain.Message")).
		Run(func(args mock.Arguments) { stored = args.Get(2).(*domain.Message) }).
		Return(nil).Once()

	w := ts.do(postForm("/api/abcd1234/send/code/", url.Values{"content": {"print(1)"}, "language": {"python"}}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[python]\nprint(1)", stored.Content)
}

func TestSend_UnknownRoom(t *testing.T) {
	ts := newTestServer()
	ts.rooms.On("FindByCode", mock.Anything, "nope0000").Return(nil, repository.ErrRoomNotFound)

	w := ts.do(postForm("/api/nope0000/send/text/", url.Values{"content": {"hi"}}))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSend_InternalError(t *testing.T) {
	ts := newTestServer()
	ts.expectRoom("abcd1234", now)
	ts.messages.On("AppendAndTouch", mock.Anything, "abcd1234", mock.Anything).Return(errors.New("db down")).Once()

	w := ts.do(postForm("/api/abcd1234/send/text/", url.Values{"content": {"hi"}}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func imageRequest(t *testing.T, path string, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("nickname", "carol"))
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="cat.png"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSendImage(t *testing.T) {
	ts := newTestServer()
	ts.expectRoom("abcd1234", now)
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	ts.attachments.On("Save", mock.Anything, ".png", mock.Anything).Return("room_images/x.png", nil).Once()
	var stored *domain.Message
	ts.messages.On("AppendAndTouch", mock.Anything, "abcd1234", mock.AnythingOfType("*domain.Message")).
		Run(func(args mock.Arguments) { stored = args.Get(2).(*domain.Message) }).
		Return(nil).Once()

	w := ts.do(imageRequest(t, "/api/abcd1234/send/image/", "image/png", png))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.MessageImage, stored.Type)
	assert.Equal(t, "carol", stored.Nickname)
	assert.Equal(t, "room_images/x.png", stored.AttachmentPath)
}

func TestSendImage_MissingFile(t *testing.T) {
	ts := newTestServer()
	ts.expectRoom("abcd1234", now)

	w := ts.do(postForm("/api/abcd1234/send/image/", url.Values{"nickname": {"carol"}}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"ok":false,"errors":{"image":["This field is required."]}}`, w.Body.String())
}

func TestSendImage_UnsupportedType(t *testing.T) {
	ts := newTestServer()
	ts.expectRoom("abcd1234", now)
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

	w := ts.do(imageRequest(t, "/api/abcd1234/send/image/", "image/tiff", png))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"ok":false,"errors":{"image":["Unsupported image type."]}}`, w.Body.String())
	ts.attachments.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleServiceError_RoomBusy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleServiceError(c, fmt.Errorf("wrapped: %w", service.ErrRoomBusy))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}
