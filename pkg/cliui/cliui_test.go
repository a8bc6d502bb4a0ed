package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/streamchat/pkg/cliui"
)

var _ = Describe("cliui", func() {
	Describe("FormatDuration", func() {
		It("uses milliseconds below a second", func() {
			Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		})

		It("uses seconds with one decimal otherwise", func() {
			Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
		})
	})

	Describe("Mark", func() {
		It("picks the mark from the error", func() {
			Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
			Expect(cliui.Mark(errors.New("boom"))).To(Equal(cliui.FailMark))
		})
	})

	Describe("Step", func() {
		It("returns the function's error and prints the final line", func() {
			var buf bytes.Buffer
			want := errors.New("unreachable")

			err := cliui.Step(&buf, "Checking backend", func() error { return want })
			Expect(err).To(MatchError(want))
			Expect(buf.String()).To(ContainSubstring("Checking backend"))
			Expect(buf.String()).To(HaveSuffix("\n"))
		})
	})

	Describe("ColorEnabled", func() {
		It("is false for a plain buffer", func() {
			Expect(cliui.ColorEnabled(&bytes.Buffer{})).To(BeFalse())
		})
	})

	Describe("RenderMarkdown", func() {
		It("keeps the text of the document", func() {
			out, err := cliui.RenderMarkdown("# Title\n\nsome **bold** text", 40)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Title"))
			Expect(out).To(ContainSubstring("bold"))
		})
	})
})
