package handler

import (
	"fmt"
	"testing"
	"time"

	"flashcards/internal/service"
	"flashcards/internal/srs"
	"flashcards/internal/testutil"

	tele "gopkg.in/telebot.v3"
)

var today = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

// fakeContext records what a handler sends. Methods not overridden panic.
type fakeContext struct {
	tele.Context

	sender   *tele.User
	text     string
	callback *tele.Callback
	message  *tele.Message

	sent      []string
	edited    []string
	responses []*tele.CallbackResponse
	markups   []*tele.ReplyMarkup
}

func newFakeContext(userID int64, text string) *fakeContext {
	return &fakeContext{
		sender:  &tele.User{ID: userID},
		text:    text,
		message: &tele.Message{Text: text},
	}
}

func newFakeCallback(userID int64, data string) *fakeContext {
	c := newFakeContext(userID, "")
	c.callback = &tele.Callback{ID: "cb", Data: data}
	return c
}

func (c *fakeContext) Sender() *tele.User       { return c.sender }
func (c *fakeContext) Text() string             { return c.text }
func (c *fakeContext) Callback() *tele.Callback { return c.callback }
func (c *fakeContext) Message() *tele.Message   { return c.message }

func (c *fakeContext) Send(what interface{}, opts ...interface{}) error {
	c.sent = append(c.sent, fmt.Sprint(what))
	c.recordMarkup(opts)
	return nil
}

func (c *fakeContext) Edit(what interface{}, opts ...interface{}) error {
	c.edited = append(c.edited, fmt.Sprint(what))
	c.recordMarkup(opts)
	return nil
}

func (c *fakeContext) recordMarkup(opts []interface{}) {
	for _, opt := range opts {
		if m, ok := opt.(*tele.ReplyMarkup); ok {
			c.markups = append(c.markups, m)
		}
	}
}

// lastMarkup returns the keyboard of the last sent or edited message
func (c *fakeContext) lastMarkup() *tele.ReplyMarkup {
	if n := len(c.markups); n > 0 {
		return c.markups[n-1]
	}
	return nil
}

func (c *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) > 0 {
		c.responses = append(c.responses, resp[0])
	}
	return nil
}

// lastOutput returns the last sent or edited text
func (c *fakeContext) lastOutput() string {
	if n := len(c.edited); n > 0 {
		return c.edited[n-1]
	}
	if n := len(c.sent); n > 0 {
		return c.sent[n-1]
	}
	return ""
}

type testDeps struct {
	users *testutil.MockUserRepository
	cards *testutil.MockCardRepository
}

func newTestHandler(t *testing.T) (*Handler, testDeps) {
	t.Helper()
	return newTestHandlerAt(t, today)
}

// newTestHandlerAt builds a handler whose scheduler clock is fixed at now
func newTestHandlerAt(t *testing.T, now time.Time) (*Handler, testDeps) {
	t.Helper()

	deps := testDeps{
		users: new(testutil.MockUserRepository),
		cards: new(testutil.MockCardRepository),
	}
	logger := testutil.NewTestLogger()
	scheduler := srs.New(srs.DefaultConfig(), srs.FixedClock(now), srs.NoShuffle)

	h := NewHandler(
		nil,
		service.NewAuthService(deps.users, "secret"),
		service.NewCardService(deps.cards, scheduler, logger),
		service.NewReviewService(deps.cards, scheduler, logger),
		service.NewStatsService(deps.cards, scheduler, logger),
		20,
		logger,
	)

	t.Cleanup(func() {
		deps.users.AssertExpectations(t)
		deps.cards.AssertExpectations(t)
	})
	return h, deps
}
