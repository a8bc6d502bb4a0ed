package servecmder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/streamchat/pkg/logger"
)

type delays struct {
	mu  sync.Mutex
	got []time.Duration
}

func (d *delays) apply(v time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, v)
}

func (d *delays) last() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.got) == 0 {
		return -1
	}
	return d.got[len(d.got)-1]
}

func (d *delays) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.got)
}

var _ = Describe("serve command", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "streamchat-serve-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, tmpDir)
	})

	Describe("NewServeCmd", func() {
		It("registers the server flags", func() {
			cmd := NewServeCmd()
			Expect(cmd.Flags().Lookup("listen")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("token-delay")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("no-log-file")).NotTo(BeNil())
		})

		It("rejects an invalid token delay before listening", func() {
			cmd := NewServeCmd()
			cmd.Flags().String("config-dir", tmpDir, "")
			cmd.Flags().Bool("debug", false, "")
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs([]string{"--token-delay", "soon"})

			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("invalid token delay"))
		})

		It("rejects positional arguments", func() {
			cmd := NewServeCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs([]string{"extra"})
			Expect(cmd.Execute()).To(HaveOccurred())
		})
	})

	Describe("setupLogger", func() {
		It("writes JSON records to serve.log next to the config", func() {
			var stderr bytes.Buffer
			c := &serveCommander{}
			closeLog, err := c.setupLogger(&stderr, filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())

			c.logger.Info("hello from serve", "port", 8090)
			closeLog()

			data, err := os.ReadFile(filepath.Join(tmpDir, logFileName))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"msg":"hello from serve"`))
			Expect(stderr.String()).To(ContainSubstring("hello from serve"))
		})

		It("only logs to stderr with --no-log-file", func() {
			var stderr bytes.Buffer
			c := &serveCommander{noLogFile: true}
			closeLog, err := c.setupLogger(&stderr, filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			closeLog()

			_, err = os.Stat(filepath.Join(tmpDir, logFileName))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Describe("watchTokenDelay", func() {
		var (
			configPath string
			got        *delays
			cancel     context.CancelFunc
			done       chan error
		)

		write := func(body string) {
			Expect(os.WriteFile(configPath, []byte(body), 0o600)).To(Succeed())
		}

		BeforeEach(func() {
			configPath = filepath.Join(tmpDir, "config.toml")
			write("version = 0\n")

			got = &delays{}
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			done = make(chan error, 1)
			go func() {
				done <- watchTokenDelay(ctx, configPath, logger.Nop(), got.apply)
			}()
			// Give the watcher time to register the directory.
			time.Sleep(100 * time.Millisecond)
		})

		AfterEach(func() {
			cancel()
			Eventually(done).Should(Receive(MatchError(context.Canceled)))
		})

		It("applies a changed token delay", func() {
			write("version = 0\n\n[server]\ntoken_delay = \"250ms\"\n")
			Eventually(got.last).Should(Equal(250 * time.Millisecond))
		})

		It("ignores invalid values", func() {
			write("version = 0\n\n[server]\ntoken_delay = \"later\"\n")
			Consistently(got.count, 300*time.Millisecond).Should(BeZero())
		})

		It("ignores other files in the directory", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "other.toml"),
				[]byte("[server]\ntoken_delay = \"1s\"\n"), 0o600)).To(Succeed())
			Consistently(got.count, 300*time.Millisecond).Should(BeZero())
		})
	})
})
