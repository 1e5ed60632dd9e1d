package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"survey-game-service/internal/app"
	"survey-game-service/internal/domain"
	"survey-game-service/internal/infra/memory"
	"survey-game-service/internal/survey"
)

func newTestService(records []domain.QuestionRecord) *app.SurveyService {
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(records), time.Minute)
	return app.NewSurveyService(
		questions,
		memory.NewSessionStore(),
		memory.NewPlayerStore(),
		memory.NewResponseSink(),
		survey.NewSequencer([]string{"Faculty"}),
		app.WithLogger(discardLogger()),
	)
}

func newTestServer(t *testing.T, service *app.SurveyService) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewRouter(service, discardLogger()))
	t.Cleanup(server.Close)
	return server
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleQuestions() []domain.QuestionRecord {
	return []domain.QuestionRecord{
		{ID: "Q1", Category: "Faculty", Type: "yesno", Text: map[string]string{"en": "Were lectures clear?", "ko": "강의가 명확했나요?"}},
		{ID: "Q2", Category: "Faculty", Type: "text", Text: map[string]string{"en": "Any comments?"}},
	}
}

func TestWebSocketSurveyFlow(t *testing.T) {
	server := newTestServer(t, newTestService(sampleQuestions()))
	conn := dial(t, server, "respondentId=u1&name=Alice&locale=ko")

	state := readUntil(t, conn, "state")
	var view app.SessionView
	decode(t, state, &view)
	if view.SessionID == "" || view.Current == nil || view.Current.Prompt != "강의가 명확했나요?" {
		t.Fatalf("unexpected initial state %+v", view)
	}

	send(t, conn, "answer", map[string]any{"value": "Yes", "quality": "perfect"})
	var out app.AnswerOutcome
	decode(t, readUntil(t, conn, "reward"), &out)
	if out.Reward == nil || out.Stats.Points < 20 || out.Current == nil || out.Current.QuestionID != "Q2" {
		t.Fatalf("unexpected reward %+v", out)
	}

	send(t, conn, "answer", map[string]any{"value": "Great course"})
	decode(t, readUntil(t, conn, "reward"), &out)
	if !out.Completed {
		t.Fatalf("expected completion after last answer, got %+v", out.SessionView)
	}
	readUntil(t, conn, "completed")

	send(t, conn, "skip", nil)
	var e errorPayload
	decode(t, readUntil(t, conn, "error"), &e)
	if e.Code != "completed" {
		t.Fatalf("expected completed error, got %+v", e)
	}
}

func TestWebSocketRejectsInvalidAnswer(t *testing.T) {
	server := newTestServer(t, newTestService(sampleQuestions()))
	conn := dial(t, server, "respondentId=u1&name=Alice")
	readUntil(t, conn, "state")

	send(t, conn, "answer", map[string]any{"value": "Maybe"})
	var e errorPayload
	decode(t, readUntil(t, conn, "error"), &e)
	if e.Code != "invalid_answer" {
		t.Fatalf("expected invalid_answer, got %+v", e)
	}

	send(t, conn, "dance", nil)
	decode(t, readUntil(t, conn, "error"), &e)
	if e.Code != "bad_request" {
		t.Fatalf("expected bad_request, got %+v", e)
	}
}

func TestWebSocketBackAndJump(t *testing.T) {
	records := append(sampleQuestions(), domain.QuestionRecord{ID: "Q3", Category: "Faculty", Type: "likert"})
	server := newTestServer(t, newTestService(records))
	conn := dial(t, server, "respondentId=u1&name=Alice")
	readUntil(t, conn, "state")

	send(t, conn, "jump", nil)
	var out app.AnswerOutcome
	decode(t, readUntil(t, conn, "reward"), &out)
	if out.Current == nil || out.Current.QuestionID != "Q3" || len(out.Skipped) != 2 {
		t.Fatalf("expected jump to Q3 skipping two, got %+v", out)
	}

	send(t, conn, "back", nil)
	var view app.SessionView
	decode(t, readUntil(t, conn, "state"), &view)
	if view.Current.QuestionID != "Q2" || view.Current.Previous == nil || !view.Current.Previous.Skipped {
		t.Fatalf("expected to revisit skipped Q2, got %+v", view.Current)
	}
}

func TestWebSocketResume(t *testing.T) {
	server := newTestServer(t, newTestService(sampleQuestions()))
	conn := dial(t, server, "respondentId=u1&name=Alice")
	var view app.SessionView
	decode(t, readUntil(t, conn, "state"), &view)

	send(t, conn, "answer", map[string]any{"value": "No"})
	readUntil(t, conn, "reward")
	conn.Close()

	again := dial(t, server, "sessionId="+view.SessionID)
	var resumed app.SessionView
	decode(t, readUntil(t, again, "state"), &resumed)
	if resumed.SessionID != view.SessionID || resumed.Current.QuestionID != "Q2" {
		t.Fatalf("expected resume at Q2, got %+v", resumed)
	}

	missing := dial(t, server, "sessionId=nope")
	var e errorPayload
	decode(t, readUntil(t, missing, "error"), &e)
	if e.Code != "not_found" {
		t.Fatalf("expected not_found, got %+v", e)
	}
}

func TestWebSocketEmptySurvey(t *testing.T) {
	server := newTestServer(t, newTestService(nil))
	conn := dial(t, server, "respondentId=u1")
	var view app.SessionView
	decode(t, readUntil(t, conn, "state"), &view)
	if !view.Empty || view.Current != nil {
		t.Fatalf("expected empty survey state, got %+v", view)
	}
}

func TestWebSocketRequiresRespondent(t *testing.T) {
	server := newTestServer(t, newTestService(sampleQuestions()))
	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestWebSocketLeaderboardFeed(t *testing.T) {
	service := newTestService(sampleQuestions())
	server := newTestServer(t, service)
	watcher := dial(t, server, "respondentId=u1&name=Alice")
	readUntil(t, watcher, "state")

	bob, err := service.Start(context.Background(), "u2", "Bob", "en")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.Answer(context.Background(), bob.SessionID, "Yes", survey.QualityPerfect); err != nil {
		t.Fatalf("answer: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var lb domain.Leaderboard
		decode(t, readUntil(t, watcher, "leaderboard"), &lb)
		if len(lb.Entries) > 0 && lb.Entries[0].RespondentID == "u2" {
			return
		}
	}
	t.Fatalf("expected Bob to lead the live leaderboard")
}

func TestDeliverStopsWithWriter(t *testing.T) {
	send := make(chan outboundMessage[any])
	writerDone := make(chan struct{})
	close(writerDone)

	done := make(chan bool, 1)
	go func() { done <- deliver(send, writerDone, outboundMessage[any]{Type: "reward"}) }()
	select {
	case ok := <-done:
		if ok {
			t.Fatalf("expected delivery to fail once the writer stopped")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("deliver blocked after the writer stopped")
	}

	buffered := make(chan outboundMessage[any], 1)
	if !deliver(buffered, make(chan struct{}), outboundMessage[any]{Type: "state"}) {
		t.Fatalf("expected delivery to a live writer")
	}
	if msg := <-buffered; msg.Type != "state" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil reads messages until one of type typ arrives and returns its payload. Leaderboard
// pushes interleave with replies, so other types are skipped.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) json.RawMessage {
	t.Helper()
	for i := 0; i < 20; i++ {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", typ, err)
		}
		if msg.Type == typ {
			return msg.Payload
		}
	}
	t.Fatalf("no %s message within 20 reads", typ)
	return nil
}

func decode(t *testing.T, raw json.RawMessage, v any) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}
