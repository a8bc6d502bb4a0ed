package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/streamchat/pkg/chat"
	"github.com/papercomputeco/streamchat/pkg/logger"
	"github.com/papercomputeco/streamchat/pkg/server"
	"github.com/papercomputeco/streamchat/pkg/sse"
	"github.com/papercomputeco/streamchat/pkg/stream"
)

var _ = Describe("Tokenize", func() {
	It("keeps the separating space on later words", func() {
		Expect(server.Tokenize("hello  big\tworld")).To(Equal([]string{"hello", " big", " world"}))
	})

	It("returns nothing for blank input", func() {
		Expect(server.Tokenize(" \n ")).To(BeEmpty())
	})
})

var _ = Describe("Server", func() {
	var (
		s  *server.Server
		ts *httptest.Server
	)

	post := func(body string) *http.Response {
		resp, err := http.Post(ts.URL+"/stream", "application/json", strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	BeforeEach(func() {
		s = server.New(server.Config{Logger: logger.Nop()})
		ts = httptest.NewServer(s.Handler())
	})

	AfterEach(func() {
		ts.Close()
	})

	It("answers ping", func() {
		resp, err := http.Get(ts.URL + "/ping")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("streams one frame per word followed by the sentinel", func() {
		resp := post(`{"message":"hello big world"}`)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal(
			"data: hello\n\n" +
				"data:  big\n\n" +
				"data:  world\n\n" +
				"data: [DONE]\n\n",
		))
	})

	DescribeTable("rejects bad requests with a JSON error",
		func(body, want string) {
			resp := post(body)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var errResp server.ErrorResponse
			Expect(json.NewDecoder(resp.Body).Decode(&errResp)).To(Succeed())
			Expect(errResp.Error).To(Equal(want))
		},
		Entry("empty message", `{"message":""}`, "message is required"),
		Entry("blank message", `{"message":"   "}`, "message is required"),
		Entry("missing message", `{}`, "message is required"),
		Entry("not JSON", `hello`, "invalid request body"),
	)

	It("clamps a negative token delay", func() {
		s.SetTokenDelay(-time.Second)
		Expect(s.TokenDelay()).To(BeZero())

		s.SetTokenDelay(15 * time.Millisecond)
		Expect(s.TokenDelay()).To(Equal(15 * time.Millisecond))
	})

	It("feeds a stream client end to end", func() {
		store := chat.NewStore(logger.Nop())
		client, err := stream.NewClient(store, stream.Config{
			BaseURL: ts.URL,
			Framing: sse.FramingLine,
			Logger:  logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		res, err := client.Send(context.Background(), "echo this back", "User")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.State).To(Equal(stream.Completed))
		Expect(res.Text).To(Equal("echo this back"))
		Expect(res.Frames).To(Equal(3))

		snap := store.Snapshot()
		Expect(snap).To(HaveLen(2))
		Expect(snap[1].Text).To(Equal("echo this back"))
		Expect(snap[1].Final).To(BeTrue())
	})

	It("turns a rejected request into an apology", func() {
		store := chat.NewStore(logger.Nop())
		client, err := stream.NewClient(store, stream.Config{BaseURL: ts.URL, Apology: "sorry"})
		Expect(err).NotTo(HaveOccurred())

		res, err := client.Stream(context.Background(), " ")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.State).To(Equal(stream.Failed))
		Expect(res.HTTPStatus).To(Equal(http.StatusBadRequest))
		Expect(store.Snapshot()).To(HaveLen(1))
		Expect(store.Snapshot()[0].Text).To(Equal("sorry"))
	})
})

var _ = Describe("Server on a listener", func() {
	var (
		s       *server.Server
		baseURL string
		done    chan error
	)

	BeforeEach(func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		baseURL = "http://" + ln.Addr().String()

		s = server.New(server.Config{TokenDelay: 5 * time.Millisecond, Logger: logger.Nop()})
		done = make(chan error, 1)
		go func() { done <- s.RunWithListener(ln) }()
	})

	AfterEach(func() {
		Expect(s.Shutdown()).To(Succeed())
		Eventually(done, 5*time.Second).Should(Receive())
	})

	It("paces tokens so subscribers see the reply grow", func() {
		store := chat.NewStore(logger.Nop())
		client, err := stream.NewClient(store, stream.Config{
			BaseURL: baseURL,
			Framing: sse.FramingLine,
			Logger:  logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		var seen []string
		client.Subscribe(func(snap []chat.Message) {
			if n := len(snap); n > 0 && !snap[n-1].IsOwn {
				seen = append(seen, snap[n-1].Text)
			}
		})

		res, err := client.Send(context.Background(), "one two three four", "User")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.State).To(Equal(stream.Completed))
		Expect(res.Text).To(Equal("one two three four"))
		Expect(seen).To(ContainElement("one two"))
	})

	It("stops streaming when the client cancels", func() {
		s.SetTokenDelay(50 * time.Millisecond)

		store := chat.NewStore(logger.Nop())
		client, err := stream.NewClient(store, stream.Config{BaseURL: baseURL, Framing: sse.FramingLine})
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		client.Subscribe(func(snap []chat.Message) {
			if n := len(snap); n > 0 && snap[n-1].Text == "a" {
				cancel()
			}
		})

		full := strings.TrimSpace(strings.Repeat("a ", 20))
		res, err := client.Stream(ctx, full)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.State).To(Equal(stream.Cancelled))
		Expect(errors.Is(res.Err, context.Canceled)).To(BeTrue())
		Expect(res.Text).To(HavePrefix("a"))
		Expect(len(res.Text)).To(BeNumerically("<", len(full)))
	})
})
