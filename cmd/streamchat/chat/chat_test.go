package chatcmder_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	chatcmder "github.com/papercomputeco/streamchat/cmd/streamchat/chat"
	"github.com/papercomputeco/streamchat/pkg/logger"
	"github.com/papercomputeco/streamchat/pkg/server"
)

var _ = Describe("chat command", func() {
	var (
		ts     *httptest.Server
		tmpDir string
	)

	run := func(stdin string, args ...string) (string, error) {
		var out, errOut bytes.Buffer
		cmd := chatcmder.NewChatCmd()
		cmd.Flags().String("config-dir", tmpDir, "")
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)
		cmd.SetArgs(append([]string{"--base-url", ts.URL}, args...))
		err := cmd.Execute()
		return out.String(), err
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "streamchat-chat-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, tmpDir)

		ts = httptest.NewServer(server.New(server.Config{Logger: logger.Nop()}).Handler())
		DeferCleanup(func() { ts.Close() })
	})

	It("prints each reply with the assistant prefix", func() {
		out, err := run("hi there\nsecond one\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("AI Assistant> hi there\nAI Assistant> second one\n"))
	})

	It("uses the configured assistant name", func() {
		out, err := run("hey\n", "--assistant-name", "Echo")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("Echo> hey\n"))
	})

	It("counts and clears the conversation", func() {
		out, err := run("hi\n/count\n/clear\n/count\n")
		Expect(err).NotTo(HaveOccurred())

		lines := strings.Split(strings.TrimSpace(out), "\n")
		Expect(lines).To(HaveLen(4))
		Expect(lines[1]).To(ContainSubstring("Messages:"))
		Expect(lines[1]).To(HaveSuffix("2"))
		Expect(lines[2]).To(ContainSubstring("Conversation cleared."))
		Expect(lines[3]).To(HaveSuffix("0"))
	})

	It("stops reading at /exit", func() {
		out, err := run("/exit\nnever sent\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(BeEmpty())
	})

	It("skips blank lines", func() {
		out, err := run("\n   \nok\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("AI Assistant> ok\n"))
	})

	It("shows the apology and keeps going when a reply fails", func() {
		ts.Close()
		ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))

		out, err := run("one\ntwo\n", "--apology", "Sorry.")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("AI Assistant> Sorry.\nAI Assistant> Sorry.\n"))
	})

	It("rejects positional arguments", func() {
		_, err := run("", "extra")
		Expect(err).To(HaveOccurred())
	})
})
