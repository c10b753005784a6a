package chat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mrgbiryu-cyber/maestro/pkg/chat"
)

// scriptedBackend serves canned streaming responses and records each
// request it receives.
type scriptedBackend struct {
	mu        sync.Mutex
	responses []string
	requests  []chat.StreamRequest
	server    *httptest.Server
}

func newScriptedBackend(responses ...string) *scriptedBackend {
	b := &scriptedBackend{responses: responses}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chat.StreamRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		b.requests = append(b.requests, req)
		idx := len(b.requests) - 1
		b.mu.Unlock()

		body := ""
		if idx < len(b.responses) {
			body = b.responses[idx]
		}

		flusher := w.(http.Flusher)
		// Deliver in small fragments to exercise incremental parsing.
		for i := 0; i < len(body); i += 7 {
			end := i + 7
			if end > len(body) {
				end = len(body)
			}
			_, _ = w.Write([]byte(body[i:end]))
			flusher.Flush()
		}
	}))
	return b
}

func (b *scriptedBackend) Requests() []chat.StreamRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]chat.StreamRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

var _ = Describe("Conversation", func() {
	var (
		backend *scriptedBackend
		history *chat.History
		conv    *chat.Conversation
	)

	buildConversation := func(responses ...string) {
		backend = newScriptedBackend(responses...)

		var err error
		history, err = chat.NewHistory(GinkgoT().TempDir(), "proj-1", "")
		Expect(err).ToNot(HaveOccurred())

		conv = chat.NewConversation(
			chat.NewStreamingClient(backend.server.URL, "secret"),
			history,
			chat.ConversationOptions{ProjectID: "proj-1"},
		)
	}

	AfterEach(func() {
		if conv != nil {
			conv.Close()
		}
		if backend != nil {
			backend.server.Close()
		}
	})

	sendAndWait := func(text string, handler chat.HandlerFunc) {
		done := make(chan struct{})
		wrapped := chat.HandlerFunc{
			DisplayFunc: handler.DisplayFunc,
			SignalFunc:  handler.SignalFunc,
			CompleteFunc: func(final string) {
				if handler.CompleteFunc != nil {
					handler.CompleteFunc(final)
				}
				close(done)
			},
			ErrorFunc: func(err error) {
				if handler.ErrorFunc != nil {
					handler.ErrorFunc(err)
				}
				close(done)
			},
		}

		_, err := conv.Send(context.Background(), text, wrapped)
		Expect(err).ToNot(HaveOccurred())
		Eventually(done, 2*time.Second).Should(BeClosed())
	}

	Describe("Send", func() {
		It("streams display text and arms the gate on a ready signal", func() {
			buildConversation(`Plan complete. {"status":"READY_TO_START","final_summary":"Run ingest"} Confirm?`)

			var final string
			var signals []chat.Signal
			sendAndWait("are we set?", chat.HandlerFunc{
				SignalFunc:   func(sig chat.Signal) { signals = append(signals, sig) },
				CompleteFunc: func(f string) { final = f },
			})

			Expect(final).To(Equal("Plan complete.  Confirm?"))
			Expect(signals).To(HaveLen(1))
			Expect(conv.Gate().State()).To(Equal(chat.GateReady))
			Expect(conv.Gate().Summary()).To(Equal("Run ingest"))
		})

		It("switches mode on a mode switch signal", func() {
			buildConversation(`{"type":"MODE_SWITCH","mode":"FUNCTION","reason":"writing config"} Now in function mode.`)

			sendAndWait("configure the agents", chat.HandlerFunc{})

			Expect(conv.Mode()).To(Equal(chat.ModeFunction))
		})

		It("resets a stale go-ahead before issuing a new request", func() {
			buildConversation(
				`{"status":"READY_TO_START","final_summary":"Old plan"}`,
				`Let me reconsider that.`,
			)

			sendAndWait("first", chat.HandlerFunc{})
			Expect(conv.Gate().State()).To(Equal(chat.GateReady))

			sendAndWait("actually, change of plans", chat.HandlerFunc{})
			Expect(conv.Gate().State()).To(Equal(chat.GateNotReady))
		})

		It("persists the raw assistant content including signal payloads", func() {
			buildConversation(`Done. {"status":"READY_TO_START","final_summary":"Go"}`)

			sendAndWait("ready?", chat.HandlerFunc{})

			last, ok := chat.LastAssistant(history.GetMessages())
			Expect(ok).To(BeTrue())
			Expect(last.Content).To(ContainSubstring("READY_TO_START"))
		})

		It("sends prior history with each request", func() {
			buildConversation(`first reply`, `second reply`)

			sendAndWait("one", chat.HandlerFunc{})
			sendAndWait("two", chat.HandlerFunc{})

			reqs := backend.Requests()
			Expect(reqs).To(HaveLen(2))
			Expect(reqs[1].History).To(HaveLen(2))
			Expect(reqs[1].History[0].Content).To(Equal("one"))
			Expect(reqs[1].History[1].Content).To(Equal("first reply"))
		})

		It("fails fast when no token is configured", func() {
			buildConversation()
			conv = chat.NewConversation(
				chat.NewStreamingClient(backend.server.URL, ""),
				history,
				chat.ConversationOptions{ProjectID: "proj-1"},
			)

			_, err := conv.Send(context.Background(), "hi", chat.HandlerFunc{})
			Expect(err).To(MatchError(chat.ErrMissingToken))
			Expect(backend.Requests()).To(BeEmpty())
		})
	})

	Describe("Restore", func() {
		It("re-derives gate and mode from the last assistant message", func() {
			buildConversation()

			Expect(history.Add(chat.NewUserMessage("set up the workflow"))).To(Succeed())
			Expect(history.Add(chat.NewAssistantMessage(
				`{"type":"MODE_SWITCH","mode":"REQUIREMENT","reason":"specs"} Ready: {"status":"READY_TO_START","final_summary":"Launch"}`,
			))).To(Succeed())

			conv.Restore()

			Expect(conv.Gate().State()).To(Equal(chat.GateReady))
			Expect(conv.Gate().Summary()).To(Equal("Launch"))
			Expect(conv.Mode()).To(Equal(chat.ModeRequirement))
		})

		It("leaves defaults when the payload never completed", func() {
			buildConversation()

			Expect(history.Add(chat.NewAssistantMessage(`leftover {"status": "READY_TO_START"`))).To(Succeed())

			conv.Restore()

			Expect(conv.Gate().State()).To(Equal(chat.GateNotReady))
			Expect(conv.Mode()).To(Equal(chat.ModeNatural))
		})
	})
})
