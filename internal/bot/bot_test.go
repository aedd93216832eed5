package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/teambot/core/telegram"
	"github.com/m3rciful/teambot/core/telegram/middleware"
	tgsender "github.com/m3rciful/teambot/core/telegram/sender"
	"github.com/m3rciful/teambot/internal/application"
	"github.com/m3rciful/teambot/internal/storage/memory"

	tele "gopkg.in/telebot.v4"
)

const (
	applicantID  = int64(7)
	reviewerID   = int64(99)
	adminID      = int64(42)
	reviewChatID = int64(-1001)
)

type apiCall struct {
	Method string
	Params map[string]any
}

func (c apiCall) str(key string) string {
	switch v := c.Params[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// buttons returns the callback data of the inline keyboard sent with the call.
func (c apiCall) buttons() []string {
	var markup tele.ReplyMarkup
	_ = json.Unmarshal([]byte(c.str("reply_markup")), &markup)
	var out []string
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			out = append(out, btn.Data)
		}
	}
	return out
}

// fakeAPI answers every Bot API method with a minimal message.
type fakeAPI struct {
	mu    sync.Mutex
	calls []apiCall
	log   []apiCall
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params := map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&params)
	f.mu.Lock()
	call := apiCall{Method: path.Base(r.URL.Path), Params: params}
	f.calls = append(f.calls, call)
	f.log = append(f.log, call)
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1}}}`))
}

func (f *fakeAPI) take() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.calls
	f.calls = nil
	return out
}

func (f *fakeAPI) all() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiCall(nil), f.log...)
}

type harness struct {
	t     *testing.T
	api   *fakeAPI
	tb    *tele.Bot
	store *memory.Store
	bot   *Bot
	reg   *tg.Registry
	disp  *tgsender.Dispatcher
	clock *testclock.Clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	tb, err := tele.NewBot(tele.Settings{URL: srv.URL, Token: "123:test", Offline: true})
	require.NoError(t, err)

	clk := testclock.NewClock(time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC))
	store := memory.NewStore()
	disp := tgsender.NewDispatcher(tgsender.Options{Workers: 1})
	t.Cleanup(disp.Close)

	b, err := New(Options{
		Service:      application.NewService(store, application.Options{Clock: clk}),
		Dispatcher:   disp,
		ReviewChatID: reviewChatID,
		InviteLink:   "https://t.me/+team",
		Clock:        clk,
	})
	require.NoError(t, err)
	reg := tg.NewRegistry()
	require.NoError(t, b.Register(reg))

	return &harness{t: t, api: api, tb: tb, store: store, bot: b, reg: reg, disp: disp, clock: clk}
}

func (h *harness) user(id int64) *tele.User {
	return &tele.User{ID: id, Username: "user" + strconv.FormatInt(id, 10), FirstName: "Ann"}
}

func (h *harness) chat(id int64) *tele.Chat {
	if id < 0 {
		return &tele.Chat{ID: id, Type: tele.ChatSuperGroup}
	}
	return &tele.Chat{ID: id, Type: tele.ChatPrivate}
}

func (h *harness) text(from int64, text string) []apiCall {
	h.t.Helper()
	c := h.tb.NewContext(tele.Update{ID: 1, Message: &tele.Message{
		ID: 5, Sender: h.user(from), Chat: h.chat(from), Text: text,
	}})
	if strings.HasPrefix(text, "/") {
		cmd, ok := h.reg.Commands()[text]
		require.True(h.t, ok, text)
		require.NoError(h.t, cmd.Handler(c))
	} else {
		require.NoError(h.t, h.bot.Text()(c))
	}
	return h.api.take()
}

func (h *harness) press(from, chat int64, unique, payload string) []apiCall {
	h.t.Helper()
	cb := &tele.Callback{
		ID:      "cb",
		Sender:  h.user(from),
		Message: &tele.Message{ID: 10, Chat: h.chat(chat)},
		Data:    "\f" + unique + "|" + payload,
	}
	key, _ := middleware.ParseCallback(cb)
	handler, ok := h.reg.GetCallback(key)
	require.True(h.t, ok, key)
	require.NoError(h.t, handler(h.tb.NewContext(tele.Update{ID: 2, Callback: cb})))
	return h.api.take()
}

// flush waits for queued notifications and returns every call made so far.
// Later steps only see their own calls.
func (h *harness) flush() []apiCall {
	h.disp.Close()
	h.api.take()
	return h.api.all()
}

// notices returns the messages sent to chat outside of any handler reply.
func notices(calls []apiCall, chat int64) []string {
	var out []string
	for _, c := range calls {
		if c.Method == "sendMessage" && c.str("chat_id") == strconv.FormatInt(chat, 10) {
			out = append(out, c.str("text"))
		}
	}
	return out
}

func (h *harness) latest() *application.Application {
	h.t.Helper()
	app, err := h.store.FindLatestByUser(context.Background(), applicantID)
	require.NoError(h.t, err)
	return app
}

func find(calls []apiCall, method string) (apiCall, bool) {
	for _, c := range calls {
		if c.Method == method {
			return c, true
		}
	}
	return apiCall{}, false
}

func sent(t *testing.T, calls []apiCall, method string) apiCall {
	t.Helper()
	c, ok := find(calls, method)
	require.True(t, ok, "no %s among %v", method, calls)
	return c
}

func (h *harness) submit() *application.Application {
	h.t.Helper()
	h.text(applicantID, "/start")
	h.text(applicantID, "a friend told me")
	h.press(applicantID, applicantID, keyAvail, "3-4")
	h.press(applicantID, applicantID, keyExp, "yes")
	return h.latest()
}

func TestIntakeAndApproval(t *testing.T) {
	h := newHarness(t)

	calls := h.text(applicantID, "/start")
	assert.Equal(t, textWelcome, sent(t, calls, "sendMessage").str("text"))
	assert.Equal(t, []string{"\fform|start"}, sent(t, calls, "sendMessage").buttons())

	calls = h.press(applicantID, applicantID, keyForm, formStart)
	assert.Equal(t, textQuestionSource, sent(t, calls, "editMessageText").str("text"))

	calls = h.text(applicantID, "  a friend told me ")
	msg := sent(t, calls, "sendMessage")
	assert.Equal(t, textQuestionAvailability, msg.str("text"))
	assert.Contains(t, msg.buttons(), "\favail|5+")
	assert.Equal(t, application.StepAvailability, h.latest().Step)
	assert.Equal(t, "a friend told me", *h.latest().Source)

	calls = h.press(applicantID, applicantID, keyAvail, "3-4")
	assert.Equal(t, textQuestionExperience, sent(t, calls, "editMessageText").str("text"))

	calls = h.press(applicantID, applicantID, keyExp, "yes")
	assert.Equal(t, textSubmitted, sent(t, calls, "editMessageText").str("text"))
	app := h.latest()
	assert.Equal(t, application.StatusPending, app.Status)
	assert.Equal(t, application.StepDone, app.Step)

	calls = h.press(reviewerID, reviewChatID, keyReview, app.ID.String()+"|approve")
	edit := sent(t, calls, "editMessageText")
	assert.Contains(t, edit.str("text"), resultApproved)
	assert.Empty(t, edit.buttons())
	assert.Equal(t, textReviewUpdated, sent(t, calls, "answerCallbackQuery").str("text"))

	log := h.flush()
	posts := notices(log, reviewChatID)
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0], "a friend told me")
	assert.Contains(t, posts[0], resultPending)
	for _, c := range log {
		if c.Method == "sendMessage" && c.str("chat_id") == strconv.FormatInt(reviewChatID, 10) {
			assert.Equal(t, []string{
				"\freview|" + app.ID.String() + "|approve",
				"\freview|" + app.ID.String() + "|reject",
			}, c.buttons())
		}
	}
	sentToApplicant := notices(log, applicantID)
	require.NotEmpty(t, sentToApplicant)
	notice := sentToApplicant[len(sentToApplicant)-1]
	assert.Contains(t, notice, textApproved)
	assert.Contains(t, notice, "https://t.me/+team")

	calls = h.press(reviewerID, reviewChatID, keyReview, app.ID.String()+"|reject")
	assert.Equal(t, textReviewDone, sent(t, calls, "answerCallbackQuery").str("text"))

	app = h.latest()
	assert.Equal(t, application.StatusApproved, app.Status)
	require.NotNil(t, app.ReviewedBy)
	assert.Equal(t, reviewerID, *app.ReviewedBy)

	calls = h.text(applicantID, "/start")
	assert.Equal(t, textAlreadyApproved, sent(t, calls, "sendMessage").str("text"))
}

func TestSourceTooShort(t *testing.T) {
	h := newHarness(t)
	h.text(applicantID, "/start")

	calls := h.text(applicantID, " ab ")
	assert.Equal(t, textSourceTooShort, sent(t, calls, "sendMessage").str("text"))
	app := h.latest()
	assert.Equal(t, application.StepSource, app.Step)
	assert.Nil(t, app.Source)
}

func TestFirstTextShowsWelcome(t *testing.T) {
	h := newHarness(t)
	calls := h.text(applicantID, "hello there")
	assert.Equal(t, textWelcome, sent(t, calls, "sendMessage").str("text"))
	assert.Nil(t, h.latest().Source)
}

func TestTextAtChoiceStepRepeatsQuestion(t *testing.T) {
	h := newHarness(t)
	h.text(applicantID, "/start")
	h.text(applicantID, "a friend told me")

	calls := h.text(applicantID, "three hours")
	assert.Equal(t, textQuestionAvailability, sent(t, calls, "sendMessage").str("text"))
	assert.Equal(t, application.StepAvailability, h.latest().Step)
}

func TestStaleStepButtonIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.text(applicantID, "/start")

	calls := h.press(applicantID, applicantID, keyAvail, "3-4")
	require.Len(t, calls, 1)
	assert.Equal(t, "answerCallbackQuery", calls[0].Method)
	assert.Empty(t, calls[0].str("text"))
	assert.Equal(t, application.StepSource, h.latest().Step)
}

func TestInvalidChoiceAlerts(t *testing.T) {
	h := newHarness(t)
	h.text(applicantID, "/start")
	h.text(applicantID, "a friend told me")

	calls := h.press(applicantID, applicantID, keyAvail, "24/7")
	cb := sent(t, calls, "answerCallbackQuery")
	assert.Equal(t, textInvalidChoice, cb.str("text"))
	assert.Equal(t, "true", cb.str("show_alert"))
	assert.Equal(t, application.StepAvailability, h.latest().Step)
}

func TestResumeAndReset(t *testing.T) {
	h := newHarness(t)
	h.text(applicantID, "/start")
	h.text(applicantID, "a friend told me")

	calls := h.text(applicantID, "/start")
	msg := sent(t, calls, "sendMessage")
	assert.Equal(t, textResumeOrReset, msg.str("text"))
	assert.Equal(t, []string{"\fform|resume", "\fform|reset"}, msg.buttons())

	calls = h.press(applicantID, applicantID, keyForm, formResume)
	assert.Equal(t, textQuestionAvailability, sent(t, calls, "editMessageText").str("text"))

	calls = h.press(applicantID, applicantID, keyForm, formReset)
	assert.Equal(t, textWelcome, sent(t, calls, "editMessageText").str("text"))
	app := h.latest()
	assert.Equal(t, application.StepSource, app.Step)
	assert.Equal(t, application.StatusNew, app.Status)
	assert.Nil(t, app.Source)
}

func TestSubmittedApplicationBlocksForm(t *testing.T) {
	h := newHarness(t)
	h.submit()
	h.flush()

	calls := h.text(applicantID, "/start")
	assert.Equal(t, textAlreadySent, sent(t, calls, "sendMessage").str("text"))

	calls = h.press(applicantID, applicantID, keyForm, formReset)
	assert.Equal(t, textAlreadySent, sent(t, calls, "answerCallbackQuery").str("text"))
	assert.Equal(t, application.StatusPending, h.latest().Status)
}

func TestRejectedApplicantMayReapply(t *testing.T) {
	h := newHarness(t)
	first := h.submit()
	h.press(reviewerID, reviewChatID, keyReview, first.ID.String()+"|reject")

	sentToApplicant := notices(h.flush(), applicantID)
	require.NotEmpty(t, sentToApplicant)
	assert.Equal(t, textRejected, sentToApplicant[len(sentToApplicant)-1])

	calls := h.text(applicantID, "/start")
	require.Len(t, calls, 2)
	assert.Equal(t, textRejectedRetry, calls[0].str("text"))
	assert.Equal(t, textWelcome, calls[1].str("text"))

	app := h.latest()
	assert.NotEqual(t, first.ID, app.ID)
	assert.Equal(t, application.StepSource, app.Step)

	old, err := h.store.FindByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusRejected, old.Status)
}

func TestReviewOutsideReviewChatIsRefused(t *testing.T) {
	h := newHarness(t)
	app := h.submit()

	calls := h.press(applicantID, applicantID, keyReview, app.ID.String()+"|approve")
	assert.Equal(t, textReviewForbidden, sent(t, calls, "answerCallbackQuery").str("text"))
	assert.Equal(t, application.StatusPending, h.latest().Status)
}

func TestReviewUnknownApplication(t *testing.T) {
	h := newHarness(t)

	calls := h.press(reviewerID, reviewChatID, keyReview, "not-a-uuid|approve")
	assert.Equal(t, textReviewNotFound, sent(t, calls, "answerCallbackQuery").str("text"))

	calls = h.press(reviewerID, reviewChatID, keyReview, "0b6f5f3e-7d0c-4c39-9a43-1b2f3c4d5e6f|approve")
	assert.Equal(t, textReviewNotFound, sent(t, calls, "answerCallbackQuery").str("text"))
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	h.submit()
	h.flush()

	calls := h.text(adminID, "/stats")
	text := sent(t, calls, "sendMessage").str("text")
	assert.Contains(t, text, "pending: 1")
	assert.Contains(t, text, "total: 1")
	assert.Contains(t, text, "2026-03-01 12:30 UTC")
}

func TestReviewSummaryEscapesAnswers(t *testing.T) {
	source := "<script>&"
	name := "Ann <B>"
	avail := application.AvailabilityFivePlus
	yes := true
	submitted := time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC)
	app := &application.Application{
		UserID:        7,
		FullName:      &name,
		Source:        &source,
		Availability:  &avail,
		HasExperience: &yes,
		Status:        application.StatusRejected,
		SubmittedAt:   &submitted,
	}

	text := reviewSummary(app)
	assert.Contains(t, text, "Ann &lt;B&gt;")
	assert.Contains(t, text, "&lt;script&gt;&amp;")
	assert.Contains(t, text, "5+ hours a day")
	assert.Contains(t, text, "<b>Team experience:</b> Yes")
	assert.Contains(t, text, "2026-03-01 09:05 UTC")
	assert.Contains(t, text, resultRejected)
}
